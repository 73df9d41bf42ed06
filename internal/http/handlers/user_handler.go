package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/wa-marketing/backend/internal/http/dto"
	"github.com/wa-marketing/backend/internal/middleware"
	"github.com/wa-marketing/backend/internal/models"
	"github.com/wa-marketing/backend/internal/rbac"
	"go.uber.org/zap"
)

type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type UserHandler struct {
	users UserReader
	log   *zap.Logger
}

func NewUserHandler(users UserReader, log *zap.Logger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

// GetMe returns the caller and the permissions their token grants.
func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	user, err := h.users.GetByID(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{
		"user":        user,
		"permissions": rbac.RolePermissions[middleware.GetRole(c)],
	}})
}
