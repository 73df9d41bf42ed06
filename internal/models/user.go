package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a back-office operator. Roles map to permissions in rbac.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
