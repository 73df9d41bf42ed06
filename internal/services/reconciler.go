package services

import (
	"context"
	"time"

	"github.com/wa-marketing/backend/internal/apperr"
	"github.com/wa-marketing/backend/internal/events"
	"github.com/wa-marketing/backend/internal/gateway"
	"github.com/wa-marketing/backend/internal/models"
	"github.com/wa-marketing/backend/internal/repositories"
	"go.uber.org/zap"
)

// StatusEvent is a provider delivery receipt for one message.
type StatusEvent struct {
	ExternalID string
	Status     string
	Timestamp  time.Time
	Error      string
	EventID    string
}

// counterFor is the campaign counter a status move bumps. SENT is counted on
// the send path, not from receipts.
var counterFor = map[string]string{
	models.MessageStatusDelivered: "provider_delivered",
	models.MessageStatusRead:      "read",
	models.MessageStatusFailed:    "failed",
}

// Reconciler folds asynchronous provider receipts into message and campaign
// state. Replays and out-of-order receipts are absorbed without changing
// any counter.
type Reconciler struct {
	messages  MessageStore
	fetcher   gateway.StatusFetcher
	publisher events.Publisher
	log       *zap.Logger
	now       func() time.Time
}

// NewReconciler builds a reconciler. fetcher may be nil when the provider
// has no status lookup; Sweep is then a no-op.
func NewReconciler(messages MessageStore, fetcher gateway.StatusFetcher, publisher events.Publisher, log *zap.Logger) *Reconciler {
	return &Reconciler{
		messages:  messages,
		fetcher:   fetcher,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// ApplyStatusEvent reports whether the event changed the message. Unknown
// external ids, repeated events and backwards moves are ignored.
func (r *Reconciler) ApplyStatusEvent(ctx context.Context, ev StatusEvent) (bool, error) {
	log := r.log.With(
		zap.String("external_id", ev.ExternalID),
		zap.String("status", ev.Status),
		zap.String("event_id", ev.EventID),
	)

	if ev.ExternalID == "" {
		log.Debug("status event without message id")
		return false, nil
	}

	m, err := r.messages.GetByExternalID(ctx, ev.ExternalID)
	if apperr.Is(err, apperr.KindNotFound) {
		log.Info("status event for unknown message ignored")
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if ev.EventID != "" && m.LastEventID != nil && *m.LastEventID == ev.EventID {
		log.Debug("duplicate status event ignored")
		return false, nil
	}
	if !models.IsValidMessageTransition(m.Status, ev.Status) {
		log.Debug("stale or repeated status ignored", zap.String("current", m.Status))
		return false, nil
	}

	at := ev.Timestamp
	if at.IsZero() {
		at = r.now()
	}

	changed, err := r.messages.ApplyStatus(ctx, repositories.StatusChange{
		MessageID: m.ID,
		From:      m.Status,
		To:        ev.Status,
		At:        at,
		Error:     ev.Error,
		EventID:   ev.EventID,
		Counter:   counterFor[ev.Status],
	})
	if err != nil {
		return false, err
	}
	if !changed {
		log.Debug("status already applied concurrently")
		return false, nil
	}

	payload := map[string]any{
		"message_id":  m.ID.String(),
		"external_id": ev.ExternalID,
		"old_status":  m.Status,
		"new_status":  ev.Status,
	}
	if m.CampaignID != nil {
		payload["campaign_id"] = m.CampaignID.String()
	}
	_ = r.publisher.Publish(ctx, events.StreamCampaign, events.Event{
		Type:    events.EventMessageStatusChanged,
		Payload: payload,
	})

	log.Debug("message status reconciled", zap.String("from", m.Status))
	return true, nil
}

// Sweep polls the provider for SENT messages that have not received a
// receipt within olderThan and applies whatever status it reports.
func (r *Reconciler) Sweep(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	if r.fetcher == nil {
		return 0, nil
	}

	stale, err := r.messages.ListStaleSent(ctx, r.now().Add(-olderThan), limit)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, m := range stale {
		if ctx.Err() != nil {
			break
		}
		if m.ExternalID == nil {
			continue
		}
		status, err := r.fetcher.GetMessageStatus(ctx, *m.ExternalID)
		if err != nil {
			r.log.Warn("status lookup failed", zap.String("external_id", *m.ExternalID), zap.Error(err))
			continue
		}
		if status == "" || status == m.Status {
			continue
		}
		changed, err := r.ApplyStatusEvent(ctx, StatusEvent{
			ExternalID: *m.ExternalID,
			Status:     status,
			EventID:    "poll:" + *m.ExternalID + ":" + status,
		})
		if err != nil {
			r.log.Warn("failed to apply polled status", zap.String("external_id", *m.ExternalID), zap.Error(err))
			continue
		}
		if changed {
			applied++
		}
	}

	if len(stale) > 0 {
		r.log.Info("reconciliation sweep finished", zap.Int("checked", len(stale)), zap.Int("applied", applied))
	}
	return applied, nil
}

// StatusForEvent maps a normalized webhook event type to a message status.
func StatusForEvent(eventType string) (string, bool) {
	switch eventType {
	case gateway.EventMessageSent:
		return models.MessageStatusSent, true
	case gateway.EventMessageDelivered:
		return models.MessageStatusDelivered, true
	case gateway.EventMessageRead:
		return models.MessageStatusRead, true
	case gateway.EventMessageFailed:
		return models.MessageStatusFailed, true
	}
	return "", false
}
