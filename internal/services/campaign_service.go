package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/wa-marketing/backend/internal/apperr"
	"github.com/wa-marketing/backend/internal/config"
	"github.com/wa-marketing/backend/internal/events"
	"github.com/wa-marketing/backend/internal/formatter"
	"github.com/wa-marketing/backend/internal/gateway"
	"github.com/wa-marketing/backend/internal/metrics"
	"github.com/wa-marketing/backend/internal/models"
	"github.com/wa-marketing/backend/internal/queue"
	"github.com/wa-marketing/backend/internal/repositories"
	"go.uber.org/zap"
)

// TaskSendMessages is the queue task that delivers one batch of a campaign.
const TaskSendMessages = "send-messages"

// UnreachableContactError is recorded on unsent messages whose contact opted
// out or left ACTIVE before a relaunch.
const UnreachableContactError = "contact opted out or inactive"

// TemplateSnapshot is the template as it was at launch time.
type TemplateSnapshot struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Content  string    `json:"content"`
	Language string    `json:"language"`
}

type BatchRecipient struct {
	MessageID     uuid.UUID `json:"message_id"`
	CorrelationID uuid.UUID `json:"correlation_id"`
	ContactID     uuid.UUID `json:"contact_id"`
	Phone         string    `json:"phone"`
	Name          string    `json:"name,omitempty"`
	Email         string    `json:"email,omitempty"`
}

// SendBatchPayload is the job payload of TaskSendMessages.
type SendBatchPayload struct {
	CampaignID   uuid.UUID         `json:"campaign_id"`
	CampaignType string            `json:"campaign_type"`
	BatchIndex   int               `json:"batch_index"`
	TotalBatches int               `json:"total_batches"`
	Template     TemplateSnapshot  `json:"template"`
	Variables    map[string]string `json:"variables"`
	Recipients   []BatchRecipient  `json:"recipients"`
}

// BatchReport is stored as the result of a completed send job.
type BatchReport struct {
	CampaignID uuid.UUID `json:"campaign_id"`
	BatchIndex int       `json:"batch_index"`
	Sent       int       `json:"sent"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
}

type CreateCampaignInput struct {
	Name        string
	Type        string
	Segment     string
	TemplateID  uuid.UUID
	Variables   map[string]string
	ScheduledAt *time.Time
}

type CancelSummary struct {
	CampaignID  uuid.UUID `json:"campaign_id"`
	RemovedJobs int       `json:"removed_jobs"`
}

type CampaignService struct {
	campaigns CampaignStore
	contacts  ContactStore
	templates TemplateStore
	messages  MessageStore
	audit     AuditLogger
	jobs      JobQueue
	provider  gateway.Provider
	publisher events.Publisher
	queueCfg  config.QueueConfig
	gwCfg     config.GatewayConfig
	log       *zap.Logger
	now       func() time.Time
}

func NewCampaignService(
	campaigns CampaignStore,
	contacts ContactStore,
	templates TemplateStore,
	messages MessageStore,
	audit AuditLogger,
	jobs JobQueue,
	provider gateway.Provider,
	publisher events.Publisher,
	queueCfg config.QueueConfig,
	gwCfg config.GatewayConfig,
	log *zap.Logger,
) *CampaignService {
	if queueCfg.BatchSize <= 0 {
		queueCfg.BatchSize = 100
	}
	if queueCfg.BatchStagger <= 0 {
		queueCfg.BatchStagger = time.Second
	}
	return &CampaignService{
		campaigns: campaigns,
		contacts:  contacts,
		templates: templates,
		messages:  messages,
		audit:     audit,
		jobs:      jobs,
		provider:  provider,
		publisher: publisher,
		queueCfg:  queueCfg,
		gwCfg:     gwCfg,
		log:       log,
		now:       time.Now,
	}
}

// recordTransition writes the audit entry and publishes the status change of
// a campaign whose row has already been updated.
func (s *CampaignService) recordTransition(ctx context.Context, c *models.Campaign, oldStatus string, actorID *uuid.UUID, actorType string, meta map[string]any) {
	if meta == nil {
		meta = map[string]any{}
	}
	meta["old_status"] = oldStatus
	meta["new_status"] = c.Status

	if err := s.audit.Log(ctx, models.AuditLog{
		ActorUserID: actorID,
		ActorType:   actorType,
		Action:      fmt.Sprintf("campaign_status_%s_to_%s", oldStatus, c.Status),
		EntityType:  "campaign",
		EntityID:    &c.ID,
		Meta:        meta,
	}); err != nil {
		s.log.Warn("audit log write failed", zap.String("campaign_id", c.ID.String()), zap.Error(err))
	}

	_ = s.publisher.Publish(ctx, events.StreamCampaign, events.Event{
		Type: events.EventCampaignStatusChanged,
		Payload: map[string]any{
			"campaign_id": c.ID.String(),
			"name":        c.Name,
			"old_status":  oldStatus,
			"new_status":  c.Status,
		},
	})

	s.log.Info("campaign status changed",
		zap.String("campaign_id", c.ID.String()),
		zap.String("from", oldStatus),
		zap.String("to", c.Status),
	)
}

func (s *CampaignService) Create(ctx context.Context, in CreateCampaignInput, creatorID uuid.UUID) (*models.Campaign, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("campaign name is required")
	}
	typ, ok := models.NormalizeCampaignType(in.Type)
	if !ok {
		return nil, apperr.Validation("unknown campaign type %q", in.Type)
	}
	segment, ok := models.NormalizeSegment(in.Segment)
	if !ok {
		return nil, apperr.Validation("unknown segment %q", in.Segment)
	}
	if _, err := s.templates.GetByID(ctx, in.TemplateID); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Validation("template %s does not exist", in.TemplateID)
		}
		return nil, err
	}

	c := &models.Campaign{
		Name:        name,
		Type:        typ,
		Status:      models.CampaignStatusDraft,
		Segment:     segment,
		TemplateID:  in.TemplateID,
		Variables:   in.Variables,
		ScheduledAt: in.ScheduledAt,
		CreatedBy:   creatorID,
	}
	if c.ScheduledAt != nil {
		c.Status = models.CampaignStatusScheduled
	}
	if c.Variables == nil {
		c.Variables = map[string]string{}
	}

	if err := s.campaigns.Create(ctx, c); err != nil {
		return nil, err
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &creatorID,
		ActorType:   models.ActorUser,
		Action:      "campaign_created",
		EntityType:  "campaign",
		EntityID:    &c.ID,
		Meta:        map[string]any{"type": c.Type, "segment": c.Segment, "status": c.Status},
	})

	return c, nil
}

func (s *CampaignService) Get(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	return s.campaigns.GetByID(ctx, id)
}

func (s *CampaignService) List(ctx context.Context, f repositories.CampaignFilter) ([]models.Campaign, error) {
	return s.campaigns.List(ctx, f)
}

// Launch materializes one message per targeted contact, moves the campaign
// to RUNNING and enqueues one send job per batch. A PAUSED campaign that
// already started is relaunched with its still-unsent messages instead.
func (s *CampaignService) Launch(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) (*models.LaunchSummary, error) {
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.IsValidCampaignTransition(c.Status, models.CampaignStatusRunning) {
		return nil, apperr.Conflict("campaign %s is %s and cannot be launched", c.ID, c.Status)
	}

	tpl, err := s.templates.GetByID(ctx, c.TemplateID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Validation("campaign template %s no longer exists", c.TemplateID)
		}
		return nil, err
	}
	if !tpl.IsApproved() {
		return nil, apperr.Validation("template %q is %s, only APPROVED templates can be sent", tpl.Name, tpl.Status)
	}

	var recipients []BatchRecipient
	oldStatus := c.Status
	startedAt := s.now()

	if c.Status == models.CampaignStatusPaused && c.StartedAt != nil {
		recipients, err = s.relaunchRecipients(ctx, c)
		if err != nil {
			return nil, err
		}
		ok, err := s.campaigns.UpdateStatus(ctx, c.ID, models.CampaignStatusPaused, models.CampaignStatusRunning)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Conflict("campaign %s changed status during relaunch", c.ID)
		}
		if len(recipients) == 0 {
			// Nothing reachable is left to send, so the relaunch only closes
			// the campaign out.
			metrics.ActiveCampaigns.Inc()
			c.Status = models.CampaignStatusRunning
			s.recordTransition(ctx, c, oldStatus, actorID, actorTypeFor(actorID), map[string]any{"total_contacts": 0})
			if err := s.completeIfDone(ctx, c.ID); err != nil {
				return nil, err
			}
			return &models.LaunchSummary{CampaignID: c.ID}, nil
		}
	} else {
		contacts, err := s.contacts.ListTargets(ctx, c.Segment)
		if err != nil {
			return nil, err
		}
		if len(contacts) == 0 {
			return nil, apperr.Validation("segment %s has no active opted-in contacts", c.Segment)
		}

		msgs := make([]models.Message, 0, len(contacts))
		recipients = make([]BatchRecipient, 0, len(contacts))
		for _, ct := range contacts {
			r := BatchRecipient{
				MessageID:     uuid.New(),
				CorrelationID: uuid.New(),
				ContactID:     ct.ID,
				Phone:         ct.Phone,
				Name:          ct.DisplayName(),
				Email:         ct.EmailAddress(),
			}
			msgs = append(msgs, models.Message{
				ID:            r.MessageID,
				CampaignID:    &c.ID,
				ContactID:     ct.ID,
				Content:       formatter.Render(tpl.Content, r.formatterContact(), c.Variables),
				Status:        models.MessageStatusPending,
				CorrelationID: r.CorrelationID,
			})
			recipients = append(recipients, r)
		}

		if err := s.campaigns.Launch(ctx, c.ID, c.Status, startedAt, msgs); err != nil {
			return nil, err
		}
		c.StartedAt = &startedAt
	}
	c.Status = models.CampaignStatusRunning

	batches := chunkRecipients(recipients, s.queueCfg.BatchSize)
	snapshot := TemplateSnapshot{ID: tpl.ID, Name: tpl.Name, Content: tpl.Content, Language: tpl.Language}
	items := make([]queue.BulkJob, len(batches))
	for i, batch := range batches {
		items[i] = queue.BulkJob{
			Payload: SendBatchPayload{
				CampaignID:   c.ID,
				CampaignType: c.Type,
				BatchIndex:   i,
				TotalBatches: len(batches),
				Template:     snapshot,
				Variables:    c.Variables,
				Recipients:   batch,
			},
			Options: queue.JobOptions{
				Delay:      time.Duration(i) * s.queueCfg.BatchStagger,
				Attempts:   s.queueCfg.Attempts,
				Backoff:    s.queueCfg.Backoff,
				CampaignID: c.ID.String(),
			},
		}
	}

	if _, err := s.jobs.AddBulk(ctx, TaskSendMessages, items); err != nil {
		// Park the campaign so the messages can be picked up by a relaunch.
		if _, rerr := s.campaigns.UpdateStatus(ctx, c.ID, models.CampaignStatusRunning, models.CampaignStatusPaused); rerr != nil {
			s.log.Error("failed to pause campaign after enqueue error", zap.String("campaign_id", c.ID.String()), zap.Error(rerr))
		}
		return nil, apperr.Transient(err, "enqueue campaign %s", c.ID)
	}

	metrics.ActiveCampaigns.Inc()
	s.recordTransition(ctx, c, oldStatus, actorID, actorTypeFor(actorID), map[string]any{
		"total_contacts": len(recipients),
		"batches":        len(batches),
	})

	return &models.LaunchSummary{
		CampaignID:       c.ID,
		TotalContacts:    len(recipients),
		BatchesQueued:    len(batches),
		EstimatedMinutes: estimateMinutes(len(recipients), s.gwCfg.RatePerSecond),
	}, nil
}

// relaunchRecipients fails the unsent messages of contacts that opted out
// or left ACTIVE while the campaign was paused, then returns the rest.
func (s *CampaignService) relaunchRecipients(ctx context.Context, c *models.Campaign) ([]BatchRecipient, error) {
	failed, err := s.messages.FailUnreachable(ctx, c.ID, UnreachableContactError, s.now())
	if err != nil {
		return nil, err
	}
	if failed > 0 {
		s.log.Info("failed unsent messages of unreachable contacts",
			zap.String("campaign_id", c.ID.String()),
			zap.Int64("failed", failed),
		)
	}

	targets, err := s.messages.ListUnsentTargets(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	out := make([]BatchRecipient, len(targets))
	for i, t := range targets {
		out[i] = BatchRecipient{
			MessageID:     t.MessageID,
			CorrelationID: t.CorrelationID,
			ContactID:     t.ContactID,
			Phone:         t.Phone,
			Name:          deref(t.Name),
			Email:         deref(t.Email),
		}
	}
	return out, nil
}

// ProcessBatch is the queue handler of TaskSendMessages.
func (s *CampaignService) ProcessBatch(ctx context.Context, job *queue.Job) (any, error) {
	var p SendBatchPayload
	if err := job.Decode(&p); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode send job %s: %w", job.ID, err))
	}
	log := s.log.With(
		zap.String("job_id", job.ID),
		zap.String("campaign_id", p.CampaignID.String()),
		zap.Int("batch_index", p.BatchIndex),
	)

	ids := make([]uuid.UUID, len(p.Recipients))
	for i, r := range p.Recipients {
		ids[i] = r.CorrelationID
	}
	unsent, err := s.messages.FilterUnsent(ctx, ids)
	if err != nil {
		return nil, apperr.Transient(err, "load batch message states")
	}

	outbound := make([]gateway.OutboundMessage, 0, len(unsent))
	for _, r := range p.Recipients {
		if !unsent[r.CorrelationID] {
			continue
		}
		fc := r.formatterContact()
		msg := gateway.OutboundMessage{
			CorrelationID: r.CorrelationID.String(),
			Phone:         r.Phone,
			Body:          formatter.Render(p.Template.Content, fc, p.Variables),
		}
		if p.Template.Name != "" {
			msg.Template = &gateway.TemplatePayload{
				Name:       p.Template.Name,
				Language:   p.Template.Language,
				Parameters: formatter.ExtractParameters(p.Template.Content, fc, p.Variables),
			}
		}
		outbound = append(outbound, msg)
	}

	report := BatchReport{
		CampaignID: p.CampaignID,
		BatchIndex: p.BatchIndex,
		Skipped:    len(p.Recipients) - len(outbound),
	}
	if len(outbound) == 0 {
		log.Info("batch already delivered, nothing to send")
		return report, s.completeIfDone(ctx, p.CampaignID)
	}

	res := s.provider.SendBatch(ctx, outbound, gateway.BatchOptions{
		BatchSize: s.gwCfg.BatchSize,
		Delay:     s.gwCfg.BatchDelay,
	})

	outcomes := make([]models.MessageOutcome, 0, len(res.Results))
	for _, r := range res.Results {
		cid, err := uuid.Parse(r.CorrelationID)
		if err != nil {
			log.Error("provider result with foreign correlation id", zap.String("correlation_id", r.CorrelationID))
			continue
		}
		outcomes = append(outcomes, models.MessageOutcome{
			CorrelationID: cid,
			Success:       r.Success,
			ExternalID:    r.ProviderMessageID,
			Error:         r.Error,
		})
	}
	// Outcomes and counters commit together, so a retry after a later
	// failure finds these messages sent and counted.
	delta, err := s.messages.ApplyOutcomes(ctx, p.CampaignID, outcomes, s.now())
	if err != nil {
		return nil, apperr.Transient(err, "record send outcomes")
	}
	if stale := int64(len(outcomes)) - delta.AttemptedSent; stale > 0 {
		log.Warn("send outcomes for messages no longer unsent", zap.Int64("ignored", stale))
	}

	if err := s.completeIfDone(ctx, p.CampaignID); err != nil {
		return nil, err
	}

	metrics.CampaignMessagesSent.WithLabelValues(p.CampaignType, "sent").Add(float64(res.SentCount))
	metrics.CampaignMessagesSent.WithLabelValues(p.CampaignType, "failed").Add(float64(res.FailedCount))

	for _, e := range res.Errors {
		log.Warn("message send failed",
			zap.String("correlation_id", e.CorrelationID),
			zap.String("phone", e.Phone),
			zap.String("error", e.Error),
		)
	}
	log.Info("batch dispatched",
		zap.Int("sent", res.SentCount),
		zap.Int("failed", res.FailedCount),
		zap.Int("skipped", report.Skipped),
	)

	_ = s.publisher.Publish(ctx, events.StreamCampaign, events.Event{
		Type: events.EventCampaignProgress,
		Payload: map[string]any{
			"campaign_id":   p.CampaignID.String(),
			"batch_index":   p.BatchIndex,
			"total_batches": p.TotalBatches,
			"sent":          res.SentCount,
			"failed":        res.FailedCount,
		},
	})

	report.Sent = res.SentCount
	report.Failed = res.FailedCount
	return report, nil
}

// UpdateCampaignStats adds a batch result to the campaign counters and
// completes the campaign once no message is left to send.
func (s *CampaignService) UpdateCampaignStats(ctx context.Context, campaignID uuid.UUID, res gateway.BatchResult) error {
	if attempted := res.SentCount + res.FailedCount; attempted > 0 {
		delta := models.CampaignCounters{
			AttemptedSent:   int64(attempted),
			TransportFailed: int64(res.FailedCount),
		}
		if err := s.campaigns.IncrementCounters(ctx, campaignID, delta); err != nil {
			return apperr.Transient(err, "increment campaign counters")
		}
	}
	return s.completeIfDone(ctx, campaignID)
}

// completeIfDone moves a RUNNING campaign to COMPLETED once none of its
// messages is left to send.
func (s *CampaignService) completeIfDone(ctx context.Context, campaignID uuid.UUID) error {
	now := s.now()
	done, err := s.campaigns.MarkCompletedIfDone(ctx, campaignID, now)
	if err != nil {
		return apperr.Transient(err, "campaign completion check")
	}
	if !done {
		return nil
	}

	c, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		s.log.Warn("completed campaign could not be reloaded", zap.String("campaign_id", campaignID.String()), zap.Error(err))
		return nil
	}
	metrics.ActiveCampaigns.Dec()
	if c.StartedAt != nil {
		metrics.CampaignDuration.WithLabelValues(c.Type).Observe(now.Sub(*c.StartedAt).Seconds())
	}
	s.recordTransition(ctx, c, models.CampaignStatusRunning, nil, models.ActorWorker, map[string]any{
		"attempted_sent":   c.AttemptedSent,
		"transport_failed": c.TransportFailed,
	})
	return nil
}

// Cancel pauses a campaign and drops its not-yet-started send jobs. Jobs
// already running finish normally. Cancelling a PAUSED campaign only sweeps
// the queue again; a COMPLETED campaign cannot be cancelled.
func (s *CampaignService) Cancel(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) (*CancelSummary, error) {
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status == models.CampaignStatusCompleted {
		return nil, apperr.Conflict("campaign %s is %s and cannot be cancelled", c.ID, c.Status)
	}

	removed, err := s.jobs.RemoveByCampaign(ctx, TaskSendMessages, c.ID.String())
	if err != nil {
		return nil, err
	}

	oldStatus := c.Status
	if oldStatus == models.CampaignStatusPaused {
		return &CancelSummary{CampaignID: c.ID, RemovedJobs: removed}, nil
	}
	if !models.IsValidCampaignTransition(oldStatus, models.CampaignStatusPaused) {
		return nil, apperr.Conflict("campaign %s is %s and cannot be cancelled", c.ID, c.Status)
	}
	ok, err := s.campaigns.UpdateStatus(ctx, c.ID, oldStatus, models.CampaignStatusPaused)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("campaign %s changed status during cancel", c.ID)
	}
	c.Status = models.CampaignStatusPaused
	if oldStatus == models.CampaignStatusRunning {
		metrics.ActiveCampaigns.Dec()
	}

	s.recordTransition(ctx, c, oldStatus, actorID, actorTypeFor(actorID), map[string]any{"removed_jobs": removed})
	return &CancelSummary{CampaignID: c.ID, RemovedJobs: removed}, nil
}

func (s *CampaignService) GetStats(ctx context.Context, id uuid.UUID) (*models.CampaignStats, error) {
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.messages.CountByStatus(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.CampaignStats{
		CampaignID:   c.ID,
		Status:       c.Status,
		Counters:     c.CampaignCounters,
		DeliveryRate: percent(c.ProviderDelivered, c.AttemptedSent),
		OpenRate:     percent(c.Read, c.ProviderDelivered),
		ClickRate:    percent(c.Clicked, c.Read),
		Pending:      byStatus[models.MessageStatusPending] + byStatus[models.MessageStatusQueued],
		ByStatus:     byStatus,
	}, nil
}

// LaunchDue launches SCHEDULED campaigns whose time has come. Failures are
// logged per campaign and do not stop the sweep.
func (s *CampaignService) LaunchDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.campaigns.ListDueScheduled(ctx, now, 20)
	if err != nil {
		return 0, err
	}

	launched := 0
	for _, c := range due {
		summary, err := s.Launch(ctx, c.ID, nil)
		if err != nil {
			s.log.Error("scheduled launch failed", zap.String("campaign_id", c.ID.String()), zap.Error(err))
			if apperr.Is(err, apperr.KindValidation) {
				s.pauseUnlaunchable(ctx, &c, err)
			}
			continue
		}
		launched++
		s.log.Info("scheduled campaign launched",
			zap.String("campaign_id", c.ID.String()),
			zap.Int("total_contacts", summary.TotalContacts),
		)
	}
	return launched, nil
}

// pauseUnlaunchable parks a scheduled campaign that can never launch as is,
// so the ticker stops retrying it every interval.
func (s *CampaignService) pauseUnlaunchable(ctx context.Context, c *models.Campaign, cause error) {
	ok, err := s.campaigns.UpdateStatus(ctx, c.ID, models.CampaignStatusScheduled, models.CampaignStatusPaused)
	if err != nil || !ok {
		return
	}
	c.Status = models.CampaignStatusPaused
	s.recordTransition(ctx, c, models.CampaignStatusScheduled, nil, models.ActorSystem, map[string]any{"reason": cause.Error()})
}

func (r BatchRecipient) formatterContact() formatter.Contact {
	return formatter.Contact{Name: r.Name, Email: r.Email, Phone: r.Phone}
}

func chunkRecipients(rs []BatchRecipient, size int) [][]BatchRecipient {
	var out [][]BatchRecipient
	for start := 0; start < len(rs); start += size {
		end := start + size
		if end > len(rs) {
			end = len(rs)
		}
		out = append(out, rs[start:end])
	}
	return out
}

// estimateMinutes is the rough dispatch time at the provider rate ceiling.
func estimateMinutes(total, perSecond int) int {
	if perSecond <= 0 {
		perSecond = gateway.DefaultBatchSize
	}
	return int(math.Ceil(float64(total) / float64(perSecond) / 60))
}

// percent returns part/whole as a percentage rounded to two decimals.
func percent(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*10000) / 100
}

func actorTypeFor(actorID *uuid.UUID) string {
	if actorID == nil {
		return models.ActorSystem
	}
	return models.ActorUser
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
