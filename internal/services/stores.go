package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wa-marketing/backend/internal/models"
	"github.com/wa-marketing/backend/internal/queue"
	"github.com/wa-marketing/backend/internal/repositories"
)

// The services depend on these narrow views of the repositories and the
// job queue. The repositories package provides the Postgres-backed
// implementations.

type CampaignStore interface {
	Create(ctx context.Context, c *models.Campaign) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	List(ctx context.Context, f repositories.CampaignFilter) ([]models.Campaign, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	IncrementCounters(ctx context.Context, id uuid.UUID, delta models.CampaignCounters) error
	MarkCompletedIfDone(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]models.Campaign, error)
	Launch(ctx context.Context, id uuid.UUID, fromStatus string, startedAt time.Time, msgs []models.Message) error
}

type ContactStore interface {
	Upsert(ctx context.Context, in repositories.ContactUpsert) (*models.Contact, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contact, error)
	ListTargets(ctx context.Context, segment string) ([]models.Contact, error)
}

type TemplateStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Template, error)
}

type MessageStore interface {
	Create(ctx context.Context, m *models.Message) error
	GetByExternalID(ctx context.Context, externalID string) (*models.Message, error)
	FilterUnsent(ctx context.Context, correlationIDs []uuid.UUID) (map[uuid.UUID]bool, error)
	ApplyOutcomes(ctx context.Context, campaignID uuid.UUID, outcomes []models.MessageOutcome, at time.Time) (models.CampaignCounters, error)
	ApplyStatus(ctx context.Context, ch repositories.StatusChange) (bool, error)
	CountByStatus(ctx context.Context, campaignID uuid.UUID) (map[string]int64, error)
	ListStaleSent(ctx context.Context, before time.Time, limit int) ([]models.Message, error)
	ListUnsentTargets(ctx context.Context, campaignID uuid.UUID) ([]repositories.MessageTarget, error)
	FailUnreachable(ctx context.Context, campaignID uuid.UUID, reason string, at time.Time) (int64, error)
}

type ChatStore interface {
	GetSessionByContact(ctx context.Context, contactID uuid.UUID) (*models.ChatSession, error)
	TouchSession(ctx context.Context, contactID uuid.UUID, lastMessage string) (*models.ChatSession, error)
	AddMessage(ctx context.Context, m *models.ChatMessage) error
}

type AuditLogger interface {
	Log(ctx context.Context, entry models.AuditLog) error
}

// JobQueue is the part of the Redis queue the orchestrator drives.
type JobQueue interface {
	AddBulk(ctx context.Context, task string, items []queue.BulkJob) ([]*queue.Job, error)
	RemoveByCampaign(ctx context.Context, task, campaignID string) (int, error)
}
