package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wa-marketing/backend/internal/apperr"
	"github.com/wa-marketing/backend/internal/models"
)

const contactColumns = `
	id, phone, name, email, segment, tags, opted_in, opted_in_at, status,
	last_activity, created_at, updated_at`

type ContactRepo struct {
	pool *pgxpool.Pool
}

func NewContactRepo(pool *pgxpool.Pool) *ContactRepo {
	return &ContactRepo{pool: pool}
}

func scanContact(row pgx.Row) (*models.Contact, error) {
	var c models.Contact
	err := row.Scan(&c.ID, &c.Phone, &c.Name, &c.Email, &c.Segment, &c.Tags, &c.OptedIn, &c.OptedInAt,
		&c.Status, &c.LastActivity, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ContactUpsert is the incoming data for an upsert by phone. Empty strings
// leave the stored value in place.
type ContactUpsert struct {
	Phone   string
	Name    string
	Email   string
	Segment string
	Tags    []string
	OptedIn bool
}

// Upsert creates the contact or merges into the existing one. Name, email
// and segment are only overwritten by non-empty values, and opted_in is
// only ever raised.
func (r *ContactRepo) Upsert(ctx context.Context, in ContactUpsert) (*models.Contact, error) {
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	return scanContact(r.pool.QueryRow(ctx, `
		INSERT INTO contacts (phone, name, email, segment, tags, opted_in, opted_in_at, last_activity)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), COALESCE(NULLIF($4, ''), 'NEW'), $5, $6,
		        CASE WHEN $6 THEN now() END, now())
		ON CONFLICT (phone) DO UPDATE SET
			name          = COALESCE(NULLIF($2, ''), contacts.name),
			email         = COALESCE(NULLIF($3, ''), contacts.email),
			segment       = COALESCE(NULLIF($4, ''), contacts.segment),
			tags          = CASE WHEN cardinality($5::text[]) > 0 THEN $5 ELSE contacts.tags END,
			opted_in      = contacts.opted_in OR $6,
			opted_in_at   = CASE WHEN NOT contacts.opted_in AND $6 THEN now() ELSE contacts.opted_in_at END,
			last_activity = now(),
			updated_at    = now()
		RETURNING `+contactColumns,
		in.Phone, in.Name, in.Email, in.Segment, tags, in.OptedIn))
}

func (r *ContactRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	c, err := scanContact(r.pool.QueryRow(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("contact %s not found", id)
	}
	return c, err
}

// ListTargets returns the ACTIVE, opted-in contacts of a segment.
func (r *ContactRepo) ListTargets(ctx context.Context, segment string) ([]models.Contact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+contactColumns+` FROM contacts
		WHERE segment = $1 AND status = 'ACTIVE' AND opted_in
		ORDER BY created_at, id
	`, segment)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectContacts(rows)
}

type ContactFilter struct {
	Segment *string
	Status  *string
	OptedIn *bool
	Search  string
	Limit   int
	Offset  int
}

func (r *ContactRepo) List(ctx context.Context, f ContactFilter) ([]models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts`
	args := []any{}
	argIdx := 1
	where := []string{}

	if f.Segment != nil {
		where = append(where, fmt.Sprintf("segment = $%d", argIdx))
		args = append(args, *f.Segment)
		argIdx++
	}
	if f.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *f.Status)
		argIdx++
	}
	if f.OptedIn != nil {
		where = append(where, fmt.Sprintf("opted_in = $%d", argIdx))
		args = append(args, *f.OptedIn)
		argIdx++
	}
	if f.Search != "" {
		where = append(where, fmt.Sprintf("(phone ILIKE $%d OR name ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+f.Search+"%")
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
	return collectContacts(rows)
}

func collectContacts(rows pgx.Rows) ([]models.Contact, error) {
	var contacts []models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}
