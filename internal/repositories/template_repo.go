package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wa-marketing/backend/internal/apperr"
	"github.com/wa-marketing/backend/internal/models"
)

const templateColumns = `id, name, content, variables, category, language, status, created_at`

type TemplateRepo struct {
	pool *pgxpool.Pool
}

func NewTemplateRepo(pool *pgxpool.Pool) *TemplateRepo {
	return &TemplateRepo{pool: pool}
}

func scanTemplate(row pgx.Row) (*models.Template, error) {
	var t models.Template
	if err := row.Scan(&t.ID, &t.Name, &t.Content, &t.Variables, &t.Category, &t.Language, &t.Status, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TemplateRepo) Create(ctx context.Context, t *models.Template) error {
	if t.Variables == nil {
		t.Variables = []string{}
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO templates (name, content, variables, category, language, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, t.Name, t.Content, t.Variables, t.Category, t.Language, t.Status).Scan(&t.ID, &t.CreatedAt)
	if isUniqueViolation(err) {
		return apperr.Conflict("template %q already exists", t.Name)
	}
	return err
}

func (r *TemplateRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	t, err := scanTemplate(r.pool.QueryRow(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("template %s not found", id)
	}
	return t, err
}

func (r *TemplateRepo) List(ctx context.Context, status *string, limit, offset int) ([]models.Template, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := `SELECT ` + templateColumns + ` FROM templates`
	args := []any{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []models.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

func (r *TemplateRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Template, error) {
	t, err := scanTemplate(r.pool.QueryRow(ctx, `
		UPDATE templates SET status = $1 WHERE id = $2
		RETURNING `+templateColumns, status, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("template %s not found", id)
	}
	return t, err
}
