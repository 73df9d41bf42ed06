package handlers

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/wa-marketing/backend/internal/http/dto"
	"github.com/wa-marketing/backend/internal/middleware"
	"github.com/wa-marketing/backend/internal/models"
	"github.com/wa-marketing/backend/internal/repositories"
	"github.com/wa-marketing/backend/internal/services"
	"go.uber.org/zap"
)

// CampaignAPI is the orchestrator surface the campaign endpoints use.
type CampaignAPI interface {
	Create(ctx context.Context, in services.CreateCampaignInput, creatorID uuid.UUID) (*models.Campaign, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	List(ctx context.Context, f repositories.CampaignFilter) ([]models.Campaign, error)
	Launch(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) (*models.LaunchSummary, error)
	Cancel(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) (*services.CancelSummary, error)
	GetStats(ctx context.Context, id uuid.UUID) (*models.CampaignStats, error)
}

type AuditReader interface {
	List(ctx context.Context, f repositories.AuditFilter) ([]models.AuditLog, error)
}

type CampaignHandler struct {
	campaigns CampaignAPI
	audit     AuditReader
	validate  *validator.Validate
	log       *zap.Logger
}

func NewCampaignHandler(campaigns CampaignAPI, audit AuditReader, log *zap.Logger) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns, audit: audit, validate: validator.New(), log: log}
}

func (h *CampaignHandler) CreateCampaign(c *fiber.Ctx) error {
	var req dto.CreateCampaignRequest
	if ok, err := bindJSON(c, h.validate, &req); !ok {
		return err
	}

	campaign, err := h.campaigns.Create(c.UserContext(), services.CreateCampaignInput{
		Name:        req.Name,
		Type:        req.Type,
		Segment:     req.Segment,
		TemplateID:  uuid.MustParse(req.TemplateID),
		Variables:   req.Variables,
		ScheduledAt: req.ScheduledAt,
	}, middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: campaign})
}

func (h *CampaignHandler) ListCampaigns(c *fiber.Ctx) error {
	limit, offset := paging(c)
	filter := repositories.CampaignFilter{Limit: limit, Offset: offset}

	if v := c.Query("status"); v != "" {
		s := strings.ToUpper(v)
		filter.Status = &s
	}
	if v := c.Query("type"); v != "" {
		t, ok := models.NormalizeCampaignType(v)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "unknown campaign type"})
		}
		filter.Type = &t
	}
	if c.Query("mine") == "true" {
		me := middleware.GetUserID(c)
		filter.CreatedBy = &me
	}

	campaigns, err := h.campaigns.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if campaigns == nil {
		campaigns = []models.Campaign{}
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.ListResponse{Items: campaigns, Limit: limit, Offset: offset}})
}

func (h *CampaignHandler) GetCampaign(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badID(c, "campaign")
	}

	campaign, err := h.campaigns.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: campaign})
}

func (h *CampaignHandler) LaunchCampaign(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badID(c, "campaign")
	}

	summary, err := h.campaigns.Launch(c.UserContext(), id, middleware.GetActorID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.SuccessResponse{OK: true, Data: summary})
}

func (h *CampaignHandler) CancelCampaign(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badID(c, "campaign")
	}

	summary, err := h.campaigns.Cancel(c.UserContext(), id, middleware.GetActorID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: summary})
}

func (h *CampaignHandler) GetStats(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badID(c, "campaign")
	}

	stats, err := h.campaigns.GetStats(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: stats})
}

func (h *CampaignHandler) GetAudit(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badID(c, "campaign")
	}

	limit, offset := paging(c)
	entries, err := h.audit.List(c.UserContext(), repositories.AuditFilter{
		EntityType: "campaign",
		EntityID:   id,
		ActorType:  c.Query("actor"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	if entries == nil {
		entries = []models.AuditLog{}
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.ListResponse{Items: entries, Limit: limit, Offset: offset}})
}
