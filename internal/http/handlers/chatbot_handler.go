package handlers

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/wa-marketing/backend/internal/http/dto"
	"github.com/wa-marketing/backend/internal/metrics"
	"github.com/wa-marketing/backend/internal/models"
	"github.com/wa-marketing/backend/internal/services"
	"go.uber.org/zap"
)

type ChatProxy interface {
	Proxy(ctx context.Context, contactID uuid.UUID, text string) (*services.ChatReply, error)
}

type ChatHistory interface {
	ListSessions(ctx context.Context, limit, offset int) ([]models.ChatSession, error)
	ListMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.ChatMessage, error)
}

type ChatbotHandler struct {
	proxy    ChatProxy
	history  ChatHistory
	validate *validator.Validate
	log      *zap.Logger
}

func NewChatbotHandler(proxy ChatProxy, history ChatHistory, log *zap.Logger) *ChatbotHandler {
	return &ChatbotHandler{proxy: proxy, history: history, validate: validator.New(), log: log}
}

func (h *ChatbotHandler) SendMessage(c *fiber.Ctx) error {
	var req dto.ChatbotMessageRequest
	if ok, err := bindJSON(c, h.validate, &req); !ok {
		return err
	}

	reply, err := h.proxy.Proxy(c.UserContext(), uuid.MustParse(req.ContactID), req.Message)
	if err != nil {
		metrics.ChatbotRequests.WithLabelValues("proxy_error").Inc()
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: reply})
}

func (h *ChatbotHandler) ListSessions(c *fiber.Ctx) error {
	limit, offset := paging(c)
	sessions, err := h.history.ListSessions(c.UserContext(), limit, offset)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if sessions == nil {
		sessions = []models.ChatSession{}
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.ListResponse{Items: sessions, Limit: limit, Offset: offset}})
}

func (h *ChatbotHandler) ListSessionMessages(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badID(c, "session")
	}
	limit, _ := paging(c)

	msgs, err := h.history.ListMessages(c.UserContext(), id, limit)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: msgs})
}
