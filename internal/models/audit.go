package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit actors
const (
	ActorUser    = "user"
	ActorSystem  = "system"
	ActorWorker  = "worker"
	ActorWebhook = "webhook"
)

// AuditLog records campaign lifecycle changes for operators.
type AuditLog struct {
	ID          uuid.UUID  `json:"id"`
	ActorUserID *uuid.UUID `json:"actor_user_id,omitempty"`
	ActorType   string     `json:"actor_type"`
	Action      string     `json:"action"`
	EntityType  string     `json:"entity_type"` // campaign/contact/template
	EntityID    *uuid.UUID `json:"entity_id,omitempty"`
	Meta        any        `json:"meta,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
