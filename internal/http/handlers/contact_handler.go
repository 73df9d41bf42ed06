package handlers

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/wa-marketing/backend/internal/http/dto"
	"github.com/wa-marketing/backend/internal/models"
	"github.com/wa-marketing/backend/internal/repositories"
	"go.uber.org/zap"
)

type ContactDirectory interface {
	Upsert(ctx context.Context, in repositories.ContactUpsert) (*models.Contact, error)
	List(ctx context.Context, f repositories.ContactFilter) ([]models.Contact, error)
}

type ContactHandler struct {
	contacts ContactDirectory
	validate *validator.Validate
	log      *zap.Logger
}

func NewContactHandler(contacts ContactDirectory, log *zap.Logger) *ContactHandler {
	return &ContactHandler{contacts: contacts, validate: validator.New(), log: log}
}

// UpsertContact creates the contact or merges the given fields into the
// existing one with the same phone.
func (h *ContactHandler) UpsertContact(c *fiber.Ctx) error {
	var req dto.UpsertContactRequest
	if ok, err := bindJSON(c, h.validate, &req); !ok {
		return err
	}

	segment := ""
	if req.Segment != "" {
		s, ok := models.NormalizeSegment(req.Segment)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "unknown segment " + req.Segment})
		}
		segment = s
	}

	contact, err := h.contacts.Upsert(c.UserContext(), repositories.ContactUpsert{
		Phone:   req.Phone,
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Segment: segment,
		Tags:    req.Tags,
		OptedIn: req.OptedIn,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: contact})
}

func (h *ContactHandler) ListContacts(c *fiber.Ctx) error {
	limit, offset := paging(c)
	filter := repositories.ContactFilter{
		Search: strings.TrimSpace(c.Query("q")),
		Limit:  limit,
		Offset: offset,
	}

	if v := c.Query("segment"); v != "" {
		s, ok := models.NormalizeSegment(v)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "unknown segment " + v})
		}
		filter.Segment = &s
	}
	if v := c.Query("status"); v != "" {
		s := strings.ToUpper(v)
		filter.Status = &s
	}
	if v := c.Query("opted_in"); v != "" {
		b := v == "true"
		filter.OptedIn = &b
	}

	contacts, err := h.contacts.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.ListResponse{Items: contacts, Limit: limit, Offset: offset}})
}
