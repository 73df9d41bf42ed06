package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ChatDirectionInbound  = "in"
	ChatDirectionOutbound = "out"
)

type ChatSession struct {
	ID          uuid.UUID `json:"id"`
	ContactID   uuid.UUID `json:"contact_id"`
	LastMessage string    `json:"last_message"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Active reports whether the session saw traffic within window of now.
func (s *ChatSession) Active(now time.Time, window time.Duration) bool {
	return now.Sub(s.UpdatedAt) <= window
}

type ChatMessage struct {
	ID         uuid.UUID `json:"id"`
	SessionID  uuid.UUID `json:"session_id"`
	Direction  string    `json:"direction"`
	Content    string    `json:"content"`
	Confidence *float64  `json:"confidence,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
