package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/wa-marketing/backend/internal/http/dto"
	"github.com/wa-marketing/backend/internal/queue"
	"go.uber.org/zap"
)

type QueueInspector interface {
	Name() string
	Counts(ctx context.Context, task string) (*queue.Counts, error)
	Failed(ctx context.Context, limit int) ([]queue.Job, error)
}

// QueueHandler exposes read-only queue state to operators.
type QueueHandler struct {
	queue QueueInspector
	task  string
	log   *zap.Logger
}

func NewQueueHandler(q QueueInspector, task string, log *zap.Logger) *QueueHandler {
	return &QueueHandler{queue: q, task: task, log: log}
}

func (h *QueueHandler) Stats(c *fiber.Ctx) error {
	counts, err := h.queue.Counts(c.UserContext(), h.task)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{
		"queue":  h.queue.Name(),
		"task":   h.task,
		"counts": counts,
	}})
}

func (h *QueueHandler) FailedJobs(c *fiber.Ctx) error {
	limit, _ := paging(c)
	jobs, err := h.queue.Failed(c.UserContext(), limit)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if jobs == nil {
		jobs = []queue.Job{}
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: jobs})
}
