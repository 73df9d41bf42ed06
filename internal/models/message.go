package models

import (
	"time"

	"github.com/google/uuid"
)

// Message statuses
const (
	MessageStatusPending   = "PENDING"
	MessageStatusQueued    = "QUEUED"
	MessageStatusSent      = "SENT"
	MessageStatusDelivered = "DELIVERED"
	MessageStatusRead      = "READ"
	MessageStatusFailed    = "FAILED"
)

// Forward-only transitions driven by the send path and provider receipts.
var ValidMessageTransitions = map[string][]string{
	MessageStatusPending:   {MessageStatusQueued, MessageStatusSent, MessageStatusFailed},
	MessageStatusQueued:    {MessageStatusSent, MessageStatusFailed},
	MessageStatusSent:      {MessageStatusDelivered, MessageStatusRead, MessageStatusFailed},
	MessageStatusDelivered: {MessageStatusRead, MessageStatusFailed},
	MessageStatusRead:      {},
	MessageStatusFailed:    {},
}

func IsValidMessageTransition(from, to string) bool {
	return contains(ValidMessageTransitions[from], to)
}

type Message struct {
	ID            uuid.UUID  `json:"id"`
	CampaignID    *uuid.UUID `json:"campaign_id,omitempty"`
	ContactID     uuid.UUID  `json:"contact_id"`
	Content       string     `json:"content"`
	Status        string     `json:"status"`
	CorrelationID uuid.UUID  `json:"correlation_id"`
	ExternalID    *string    `json:"external_id,omitempty"`
	Error         *string    `json:"error,omitempty"`
	LastEventID   *string    `json:"-"`
	LastEventAt   *time.Time `json:"-"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
	ReadAt        *time.Time `json:"read_at,omitempty"`
	FailedAt      *time.Time `json:"failed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// MessageOutcome is the send-path result for one message, keyed by correlation id.
type MessageOutcome struct {
	CorrelationID uuid.UUID
	Success       bool
	ExternalID    string
	Error         string
}
