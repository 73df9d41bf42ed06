package models

import (
	"time"

	"github.com/google/uuid"
)

// Contact statuses
const (
	ContactStatusActive   = "ACTIVE"
	ContactStatusInactive = "INACTIVE"
	ContactStatusBlocked  = "BLOCKED"
)

type Contact struct {
	ID           uuid.UUID  `json:"id"`
	Phone        string     `json:"phone"`
	Name         *string    `json:"name,omitempty"`
	Email        *string    `json:"email,omitempty"`
	Segment      string     `json:"segment"`
	Tags         []string   `json:"tags"`
	OptedIn      bool       `json:"opted_in"`
	OptedInAt    *time.Time `json:"opted_in_at,omitempty"`
	Status       string     `json:"status"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (c *Contact) DisplayName() string {
	if c.Name == nil {
		return ""
	}
	return *c.Name
}

func (c *Contact) EmailAddress() string {
	if c.Email == nil {
		return ""
	}
	return *c.Email
}
