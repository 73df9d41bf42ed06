package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wa-marketing/backend/internal/apperr"
	"github.com/wa-marketing/backend/internal/models"
)

const messageColumns = `
	id, campaign_id, contact_id, content, status, correlation_id, external_id, error,
	last_event_id, last_event_at, sent_at, delivered_at, read_at, failed_at, created_at`

// counterColumns maps a campaign counter name to its column. Anything else
// is rejected before reaching SQL.
var counterColumns = map[string]string{
	"provider_delivered": "provider_delivered",
	"read":               "read_count",
	"clicked":            "clicked",
	"failed":             "failed",
}

// statusTimestampColumns is the column stamped when a message enters a status.
var statusTimestampColumns = map[string]string{
	models.MessageStatusSent:      "sent_at",
	models.MessageStatusDelivered: "delivered_at",
	models.MessageStatusRead:      "read_at",
	models.MessageStatusFailed:    "failed_at",
}

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var m models.Message
	err := row.Scan(&m.ID, &m.CampaignID, &m.ContactID, &m.Content, &m.Status, &m.CorrelationID,
		&m.ExternalID, &m.Error, &m.LastEventID, &m.LastEventAt,
		&m.SentAt, &m.DeliveredAt, &m.ReadAt, &m.FailedAt, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func insertMessages(ctx context.Context, tx pgx.Tx, msgs []models.Message) (int64, error) {
	if len(msgs) == 0 {
		return 0, nil
	}
	return tx.CopyFrom(ctx,
		pgx.Identifier{"messages"},
		[]string{"id", "campaign_id", "contact_id", "content", "status", "correlation_id"},
		pgx.CopyFromSlice(len(msgs), func(i int) ([]any, error) {
			m := msgs[i]
			return []any{m.ID, m.CampaignID, m.ContactID, m.Content, m.Status, m.CorrelationID}, nil
		}),
	)
}

// Create stores a single message outside of a campaign (chatbot replies).
func (r *MessageRepo) Create(ctx context.Context, m *models.Message) error {
	if m.CorrelationID == uuid.Nil {
		m.CorrelationID = uuid.New()
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO messages (campaign_id, contact_id, content, status, correlation_id, external_id, error, sent_at, failed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, m.CampaignID, m.ContactID, m.Content, m.Status, m.CorrelationID, m.ExternalID, m.Error, m.SentAt, m.FailedAt,
	).Scan(&m.ID, &m.CreatedAt)
}

func (r *MessageRepo) GetByExternalID(ctx context.Context, externalID string) (*models.Message, error) {
	m, err := scanMessage(r.pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE external_id = $1`, externalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("message with external id %s not found", externalID)
	}
	return m, err
}

// FilterUnsent returns the subset of correlation ids whose message is still
// PENDING or QUEUED, so a retried job does not send twice.
func (r *MessageRepo) FilterUnsent(ctx context.Context, correlationIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT correlation_id FROM messages
		WHERE correlation_id = ANY($1) AND status IN ('PENDING', 'QUEUED')
	`, correlationIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]bool, len(correlationIDs))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// ApplyOutcomes records the send-path result of each message, matched by
// correlation id, and adds the matching campaign counters in the same
// transaction. Messages that already left PENDING/QUEUED are untouched and
// not counted. It returns the delta that was applied.
func (r *MessageRepo) ApplyOutcomes(ctx context.Context, campaignID uuid.UUID, outcomes []models.MessageOutcome, at time.Time) (models.CampaignCounters, error) {
	var delta models.CampaignCounters
	if len(outcomes) == 0 {
		return delta, nil
	}

	batch := &pgx.Batch{}
	for _, o := range outcomes {
		if o.Success {
			batch.Queue(`
				UPDATE messages SET status = 'SENT', external_id = $3, sent_at = $4, error = NULL
				WHERE correlation_id = $1 AND campaign_id = $2 AND status IN ('PENDING', 'QUEUED')
			`, o.CorrelationID, campaignID, nullIfEmpty(o.ExternalID), at)
			continue
		}
		batch.Queue(`
			UPDATE messages SET status = 'FAILED', error = $3, failed_at = $4
			WHERE correlation_id = $1 AND campaign_id = $2 AND status IN ('PENDING', 'QUEUED')
		`, o.CorrelationID, campaignID, o.Error, at)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return delta, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	br := tx.SendBatch(ctx, batch)
	for _, o := range outcomes {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return models.CampaignCounters{}, fmt.Errorf("apply outcome %s: %w", o.CorrelationID, err)
		}
		if tag.RowsAffected() == 0 {
			continue
		}
		delta.AttemptedSent++
		if !o.Success {
			delta.TransportFailed++
		}
	}
	if err := br.Close(); err != nil {
		return models.CampaignCounters{}, err
	}

	if err := addSendCounters(ctx, tx, campaignID, delta.AttemptedSent, delta.TransportFailed); err != nil {
		return models.CampaignCounters{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return models.CampaignCounters{}, err
	}
	return delta, nil
}

// FailUnreachable fails the unsent messages of a campaign whose contact opted
// out or is no longer ACTIVE, counting them as transport failures in the
// same transaction.
func (r *MessageRepo) FailUnreachable(ctx context.Context, campaignID uuid.UUID, reason string, at time.Time) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE messages m SET status = 'FAILED', error = $2, failed_at = $3
		FROM contacts c
		WHERE c.id = m.contact_id AND m.campaign_id = $1 AND m.status IN ('PENDING', 'QUEUED')
		  AND NOT (c.status = 'ACTIVE' AND c.opted_in)
	`, campaignID, reason, at)
	if err != nil {
		return 0, err
	}
	n := tag.RowsAffected()
	if err := addSendCounters(ctx, tx, campaignID, n, n); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return n, nil
}

func addSendCounters(ctx context.Context, tx pgx.Tx, campaignID uuid.UUID, attempted, failed int64) error {
	if attempted == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE campaigns SET
			attempted_sent   = attempted_sent + $1,
			transport_failed = transport_failed + $2,
			updated_at       = now()
		WHERE id = $3
	`, attempted, failed, campaignID)
	return err
}

// StatusChange is a provider-driven status move of a single message.
type StatusChange struct {
	MessageID uuid.UUID
	From      string
	To        string
	At        time.Time
	Error     string
	EventID   string
	// Counter is the campaign counter to bump when the row changes, or "".
	Counter string
}

// ApplyStatus performs the conditional status update and the matching
// campaign counter increment in one transaction. It reports whether the
// message row changed.
func (r *MessageRepo) ApplyStatus(ctx context.Context, ch StatusChange) (bool, error) {
	tsCol, ok := statusTimestampColumns[ch.To]
	if !ok {
		return false, fmt.Errorf("unsupported target status %q", ch.To)
	}
	var counterCol string
	if ch.Counter != "" {
		if counterCol, ok = counterColumns[ch.Counter]; !ok {
			return false, fmt.Errorf("unknown campaign counter %q", ch.Counter)
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, apperr.Transient(err, "begin status transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var campaignID *uuid.UUID
	err = tx.QueryRow(ctx, `
		UPDATE messages SET
			status = $3,
			`+tsCol+` = $4,
			error = COALESCE(NULLIF($5, ''), error),
			last_event_id = NULLIF($6, ''),
			last_event_at = $4
		WHERE id = $1 AND status = $2
		  AND ($6 = '' OR last_event_id IS DISTINCT FROM $6)
		RETURNING campaign_id
	`, ch.MessageID, ch.From, ch.To, ch.At, ch.Error, ch.EventID).Scan(&campaignID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if campaignID != nil && counterCol != "" {
		if _, err := tx.Exec(ctx, `
			UPDATE campaigns SET `+counterCol+` = `+counterCol+` + 1, updated_at = now()
			WHERE id = $1
		`, *campaignID); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// CountByStatus groups the campaign's messages by status.
func (r *MessageRepo) CountByStatus(ctx context.Context, campaignID uuid.UUID) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*) FROM messages WHERE campaign_id = $1 GROUP BY status
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

// ListStaleSent returns SENT messages with an external id whose last
// provider event is older than before.
func (r *MessageRepo) ListStaleSent(ctx context.Context, before time.Time, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE status = 'SENT' AND external_id IS NOT NULL
		  AND COALESCE(last_event_at, sent_at) < $1
		ORDER BY sent_at LIMIT $2
	`, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

// ListUnsentTargets returns the still-PENDING messages of a campaign joined
// with their contact, for relaunching a paused campaign.
func (r *MessageRepo) ListUnsentTargets(ctx context.Context, campaignID uuid.UUID) ([]MessageTarget, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.id, m.correlation_id, c.id, c.phone, c.name, c.email
		FROM messages m
		JOIN contacts c ON c.id = m.contact_id
		WHERE m.campaign_id = $1 AND m.status IN ('PENDING', 'QUEUED')
		  AND c.status = 'ACTIVE' AND c.opted_in
		ORDER BY m.created_at, m.id
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MessageTarget
	for rows.Next() {
		var t MessageTarget
		if err := rows.Scan(&t.MessageID, &t.CorrelationID, &t.ContactID, &t.Phone, &t.Name, &t.Email); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// MessageTarget is a materialized message together with its recipient.
type MessageTarget struct {
	MessageID     uuid.UUID
	CorrelationID uuid.UUID
	ContactID     uuid.UUID
	Phone         string
	Name          *string
	Email         *string
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
