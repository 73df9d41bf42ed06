package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wa-marketing/backend/internal/apperr"
	"github.com/wa-marketing/backend/internal/models"
)

const campaignColumns = `
	id, name, type, status, segment, template_id, variables,
	attempted_sent, transport_failed, provider_delivered, read_count, clicked, failed,
	scheduled_at, started_at, completed_at, created_by, created_at, updated_at`

type CampaignRepo struct {
	pool *pgxpool.Pool
}

func NewCampaignRepo(pool *pgxpool.Pool) *CampaignRepo {
	return &CampaignRepo{pool: pool}
}

func scanCampaign(row pgx.Row) (*models.Campaign, error) {
	var c models.Campaign
	err := row.Scan(&c.ID, &c.Name, &c.Type, &c.Status, &c.Segment, &c.TemplateID, &c.Variables,
		&c.AttemptedSent, &c.TransportFailed, &c.ProviderDelivered, &c.Read, &c.Clicked, &c.Failed,
		&c.ScheduledAt, &c.StartedAt, &c.CompletedAt, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepo) Create(ctx context.Context, c *models.Campaign) error {
	if c.Variables == nil {
		c.Variables = map[string]string{}
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO campaigns (name, type, status, segment, template_id, variables, scheduled_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, c.Name, c.Type, c.Status, c.Segment, c.TemplateID, c.Variables, c.ScheduledAt, c.CreatedBy,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *CampaignRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	c, err := scanCampaign(r.pool.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("campaign %s not found", id)
	}
	return c, err
}

type CampaignFilter struct {
	Status    *string
	Type      *string
	CreatedBy *uuid.UUID
	Limit     int
	Offset    int
}

func (r *CampaignRepo) List(ctx context.Context, f CampaignFilter) ([]models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns`
	args := []any{}
	argIdx := 1
	where := []string{}

	if f.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *f.Status)
		argIdx++
	}
	if f.Type != nil {
		where = append(where, fmt.Sprintf("type = $%d", argIdx))
		args = append(args, *f.Type)
		argIdx++
	}
	if f.CreatedBy != nil {
		where = append(where, fmt.Sprintf("created_by = $%d", argIdx))
		args = append(args, *f.CreatedBy)
		argIdx++
	}

	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}

// UpdateStatus moves the campaign from one status to another. It reports
// false when the campaign was no longer in the expected status.
func (r *CampaignRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaigns SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// IncrementCounters adds delta to the campaign counters in one statement.
func (r *CampaignRepo) IncrementCounters(ctx context.Context, id uuid.UUID, delta models.CampaignCounters) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE campaigns SET
			attempted_sent     = attempted_sent + $1,
			transport_failed   = transport_failed + $2,
			provider_delivered = provider_delivered + $3,
			read_count         = read_count + $4,
			clicked            = clicked + $5,
			failed             = failed + $6,
			updated_at         = now()
		WHERE id = $7
	`, delta.AttemptedSent, delta.TransportFailed, delta.ProviderDelivered,
		delta.Read, delta.Clicked, delta.Failed, id)
	return err
}

// MarkCompletedIfDone completes a RUNNING campaign once none of its messages
// is still PENDING or QUEUED. Only one caller observes true.
func (r *CampaignRepo) MarkCompletedIfDone(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaigns SET status = 'COMPLETED', completed_at = $2, updated_at = now()
		WHERE id = $1 AND status = 'RUNNING'
		  AND NOT EXISTS (
			SELECT 1 FROM messages
			WHERE campaign_id = $1 AND status IN ('PENDING', 'QUEUED')
		  )
	`, id, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *CampaignRepo) ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]models.Campaign, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+campaignColumns+` FROM campaigns
		WHERE status = 'SCHEDULED' AND scheduled_at <= $1
		ORDER BY scheduled_at LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}

// Launch materializes the messages and flips the campaign to RUNNING in one
// transaction. It fails with CONFLICT when the campaign left fromStatus.
func (r *CampaignRepo) Launch(ctx context.Context, id uuid.UUID, fromStatus string, startedAt time.Time, msgs []models.Message) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.Transient(err, "begin launch transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE campaigns SET status = 'RUNNING', started_at = $1, completed_at = NULL, updated_at = now()
		WHERE id = $2 AND status = $3
	`, startedAt, id, fromStatus)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return apperr.Conflict("campaign %s is no longer %s", id, fromStatus)
	}

	if _, err := insertMessages(ctx, tx, msgs); err != nil {
		return fmt.Errorf("insert messages: %w", err)
	}

	return tx.Commit(ctx)
}
