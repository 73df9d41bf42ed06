package services

import (
	"context"

	"github.com/wa-marketing/backend/internal/gateway"
	"github.com/wa-marketing/backend/internal/metrics"
	"github.com/wa-marketing/backend/internal/repositories"
	"go.uber.org/zap"
)

// Webhook results recorded in metrics.
const (
	webhookApplied = "applied"
	webhookIgnored = "ignored"
	webhookError   = "error"
)

// WebhookService dispatches normalized provider events. Handling errors are
// logged and counted but never returned, so the provider always gets a 200
// once the signature checked out.
type WebhookService struct {
	reconciler    *Reconciler
	conversations *ConversationService
	contacts      ContactStore
	provider      string
	log           *zap.Logger
}

func NewWebhookService(
	reconciler *Reconciler,
	conversations *ConversationService,
	contacts ContactStore,
	provider string,
	log *zap.Logger,
) *WebhookService {
	return &WebhookService{
		reconciler:    reconciler,
		conversations: conversations,
		contacts:      contacts,
		provider:      provider,
		log:           log.With(zap.String("provider", provider)),
	}
}

func (s *WebhookService) Dispatch(ctx context.Context, evs []gateway.WebhookEvent) {
	for _, ev := range evs {
		result := s.dispatchOne(ctx, ev)
		metrics.WebhookEvents.WithLabelValues(s.provider, ev.Type, result).Inc()
	}
}

func (s *WebhookService) dispatchOne(ctx context.Context, ev gateway.WebhookEvent) string {
	if status, ok := StatusForEvent(ev.Type); ok {
		changed, err := s.reconciler.ApplyStatusEvent(ctx, StatusEvent{
			ExternalID: ev.ExternalID,
			Status:     status,
			Timestamp:  ev.Timestamp,
			Error:      ev.Error,
			EventID:    ev.EventID,
		})
		if err != nil {
			s.log.Error("failed to reconcile status event",
				zap.String("type", ev.Type),
				zap.String("external_id", ev.ExternalID),
				zap.Error(err),
			)
			return webhookError
		}
		if !changed {
			return webhookIgnored
		}
		return webhookApplied
	}

	switch ev.Type {
	case gateway.EventMessageReceived:
		res, err := s.conversations.HandleInbound(ctx, ev)
		if err != nil {
			s.log.Error("failed to handle inbound message",
				zap.String("phone", gateway.MaskPhone(ev.Phone)),
				zap.Error(err),
			)
			return webhookError
		}
		s.log.Info("inbound message handled",
			zap.String("contact_id", res.ContactID.String()),
			zap.Bool("triggered", res.Triggered),
			zap.Bool("fallback", res.Fallback),
		)
		return webhookApplied

	case gateway.EventContactCreated, gateway.EventContactUpdated:
		if ev.Phone == "" {
			return webhookIgnored
		}
		if _, err := s.contacts.Upsert(ctx, repositories.ContactUpsert{Phone: ev.Phone, Name: ev.Name}); err != nil {
			s.log.Error("failed to sync contact", zap.String("phone", gateway.MaskPhone(ev.Phone)), zap.Error(err))
			return webhookError
		}
		return webhookApplied
	}

	s.log.Debug("unhandled webhook event", zap.String("type", ev.Type))
	return webhookIgnored
}
