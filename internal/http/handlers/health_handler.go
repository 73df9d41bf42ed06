package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/wa-marketing/backend/internal/http/dto"
)

const healthTimeout = 2 * time.Second

// PingFunc reports whether a dependency is reachable.
type PingFunc func(ctx context.Context) error

type AvailabilityChecker interface {
	IsAvailable(ctx context.Context) bool
}

type HealthHandler struct {
	provider string
	postgres PingFunc
	redis    PingFunc
	chatbot  AvailabilityChecker
}

func NewHealthHandler(provider string, postgres, redis PingFunc, chatbot AvailabilityChecker) *HealthHandler {
	return &HealthHandler{provider: provider, postgres: postgres, redis: redis, chatbot: chatbot}
}

// Health answers 503 when a store is down. The chatbot is reported but
// does not fail the check since conversations degrade to the fallback reply.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	resp := dto.HealthResponse{
		Status:   "ok",
		Provider: h.provider,
		Postgres: pingStatus(ctx, h.postgres),
		Redis:    pingStatus(ctx, h.redis),
		Chatbot:  "unavailable",
	}
	if h.chatbot != nil && h.chatbot.IsAvailable(ctx) {
		resp.Chatbot = "ok"
	}

	if resp.Postgres != "ok" || resp.Redis != "ok" {
		resp.Status = "degraded"
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}

func pingStatus(ctx context.Context, ping PingFunc) string {
	if ping == nil {
		return "unknown"
	}
	if err := ping(ctx); err != nil {
		return "down"
	}
	return "ok"
}
