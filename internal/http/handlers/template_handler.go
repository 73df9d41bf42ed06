package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/wa-marketing/backend/internal/formatter"
	"github.com/wa-marketing/backend/internal/http/dto"
	"github.com/wa-marketing/backend/internal/models"
	"go.uber.org/zap"
)

type TemplateStore interface {
	Create(ctx context.Context, t *models.Template) error
	List(ctx context.Context, status *string, limit, offset int) ([]models.Template, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Template, error)
}

type TemplateHandler struct {
	templates TemplateStore
	language  string
	validate  *validator.Validate
	log       *zap.Logger
}

func NewTemplateHandler(templates TemplateStore, defaultLanguage string, log *zap.Logger) *TemplateHandler {
	return &TemplateHandler{templates: templates, language: defaultLanguage, validate: validator.New(), log: log}
}

// CreateTemplate registers a template as PENDING. Approval happens through
// ReviewTemplate once the vendor has accepted it.
func (h *TemplateHandler) CreateTemplate(c *fiber.Ctx) error {
	var req dto.CreateTemplateRequest
	if ok, err := bindJSON(c, h.validate, &req); !ok {
		return err
	}

	t := &models.Template{
		Name:      strings.TrimSpace(req.Name),
		Content:   req.Content,
		Variables: req.Variables,
		Category:  req.Category,
		Language:  req.Language,
		Status:    models.TemplateStatusPending,
	}
	if t.Category == "" {
		t.Category = models.TemplateCategoryMarketing
	}
	if t.Language == "" {
		t.Language = h.language
	}
	if t.Variables == nil {
		n := formatter.Placeholders(t.Content)
		t.Variables = make([]string, n)
		for i := range t.Variables {
			t.Variables[i] = fmt.Sprintf("var%d", i+1)
		}
	}

	if err := h.templates.Create(c.UserContext(), t); err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: t})
}

func (h *TemplateHandler) ListTemplates(c *fiber.Ctx) error {
	limit, offset := paging(c)
	var status *string
	if v := c.Query("status"); v != "" {
		s := strings.ToUpper(v)
		status = &s
	}

	templates, err := h.templates.List(c.UserContext(), status, limit, offset)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if templates == nil {
		templates = []models.Template{}
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.ListResponse{Items: templates, Limit: limit, Offset: offset}})
}

// ReviewTemplate records the vendor's decision. An empty body approves.
func (h *TemplateHandler) ReviewTemplate(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badID(c, "template")
	}

	var req dto.ReviewTemplateRequest
	if len(c.Body()) > 0 {
		if ok, err := bindJSON(c, h.validate, &req); !ok {
			return err
		}
	}
	if req.Status == "" {
		req.Status = models.TemplateStatusApproved
	}

	t, err := h.templates.UpdateStatus(c.UserContext(), id, req.Status)
	if err != nil {
		return respondError(c, h.log, err)
	}
	h.log.Info("template reviewed", zap.String("template_id", id.String()), zap.String("status", t.Status))
	return c.JSON(dto.SuccessResponse{OK: true, Data: t})
}
