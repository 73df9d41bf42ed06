package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wa-marketing/backend/internal/models"
)

type ChatRepo struct {
	pool *pgxpool.Pool
}

func NewChatRepo(pool *pgxpool.Pool) *ChatRepo {
	return &ChatRepo{pool: pool}
}

// GetSessionByContact returns nil, nil when the contact never chatted.
func (r *ChatRepo) GetSessionByContact(ctx context.Context, contactID uuid.UUID) (*models.ChatSession, error) {
	var s models.ChatSession
	err := r.pool.QueryRow(ctx, `
		SELECT id, contact_id, last_message, created_at, updated_at
		FROM chat_sessions WHERE contact_id = $1
	`, contactID).Scan(&s.ID, &s.ContactID, &s.LastMessage, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// TouchSession creates the contact's session or refreshes its last message.
func (r *ChatRepo) TouchSession(ctx context.Context, contactID uuid.UUID, lastMessage string) (*models.ChatSession, error) {
	var s models.ChatSession
	err := r.pool.QueryRow(ctx, `
		INSERT INTO chat_sessions (contact_id, last_message)
		VALUES ($1, $2)
		ON CONFLICT (contact_id) DO UPDATE SET
			last_message = EXCLUDED.last_message,
			updated_at = now()
		RETURNING id, contact_id, last_message, created_at, updated_at
	`, contactID, lastMessage).Scan(&s.ID, &s.ContactID, &s.LastMessage, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ChatRepo) AddMessage(ctx context.Context, m *models.ChatMessage) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO chat_messages (session_id, direction, content, confidence)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, m.SessionID, m.Direction, m.Content, m.Confidence).Scan(&m.ID, &m.CreatedAt)
}

func (r *ChatRepo) ListSessions(ctx context.Context, limit, offset int) ([]models.ChatSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, contact_id, last_message, created_at, updated_at
		FROM chat_sessions ORDER BY updated_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.ChatSession
	for rows.Next() {
		var s models.ChatSession
		if err := rows.Scan(&s.ID, &s.ContactID, &s.LastMessage, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *ChatRepo) ListMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, direction, content, confidence, created_at
		FROM chat_messages WHERE session_id = $1
		ORDER BY created_at DESC LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Direction, &m.Content, &m.Confidence, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
