package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wa-marketing/backend/internal/apperr"
	"github.com/wa-marketing/backend/internal/config"
	"github.com/wa-marketing/backend/internal/events"
	"github.com/wa-marketing/backend/internal/gateway"
	"github.com/wa-marketing/backend/internal/models"
	"github.com/wa-marketing/backend/internal/queue"
	"github.com/wa-marketing/backend/internal/repositories"
	"go.uber.org/zap"
)

// memDB is an in-memory stand-in for the Postgres schema. Each store type
// below is a view over it, mirroring the SQL semantics of the repositories.
type memDB struct {
	mu        sync.Mutex
	campaigns map[uuid.UUID]*models.Campaign
	contacts  map[uuid.UUID]*models.Contact
	templates map[uuid.UUID]*models.Template
	messages  map[uuid.UUID]*models.Message
	sessions  map[uuid.UUID]*models.ChatSession // by contact id
	chatMsgs  []models.ChatMessage
	audit     []models.AuditLog
	writes    int
	seq       int

	// Each of these fails the next n calls of the matching store method.
	failApply    int
	failComplete int
}

var errInjected = errors.New("injected store failure")

func newMemDB() *memDB {
	return &memDB{
		campaigns: map[uuid.UUID]*models.Campaign{},
		contacts:  map[uuid.UUID]*models.Contact{},
		templates: map[uuid.UUID]*models.Template{},
		messages:  map[uuid.UUID]*models.Message{},
		sessions:  map[uuid.UUID]*models.ChatSession{},
	}
}

func (db *memDB) addTemplate(content, status string) *models.Template {
	db.mu.Lock()
	defer db.mu.Unlock()
	t := &models.Template{
		ID:       uuid.New(),
		Name:     fmt.Sprintf("tpl_%d", len(db.templates)+1),
		Content:  content,
		Category: models.TemplateCategoryMarketing,
		Language: "fr",
		Status:   status,
	}
	db.templates[t.ID] = t
	return t
}

func (db *memDB) addContacts(n int, segment string, optedIn bool, status string) []*models.Contact {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]*models.Contact, n)
	for i := range out {
		db.seq++
		name := fmt.Sprintf("Client %d", db.seq)
		c := &models.Contact{
			ID:        uuid.New(),
			Phone:     fmt.Sprintf("+2417%07d", db.seq),
			Name:      &name,
			Segment:   segment,
			OptedIn:   optedIn,
			Status:    status,
			CreatedAt: time.Unix(int64(db.seq), 0),
		}
		db.contacts[c.ID] = c
		out[i] = c
	}
	return out
}

func (db *memDB) addCampaign(status, segment string, templateID uuid.UUID) *models.Campaign {
	db.mu.Lock()
	defer db.mu.Unlock()
	c := &models.Campaign{
		ID:         uuid.New(),
		Name:       "Promo",
		Type:       models.CampaignTypePromotional,
		Status:     status,
		Segment:    segment,
		TemplateID: templateID,
		Variables:  map[string]string{"var1": "prenom"},
		CreatedBy:  uuid.New(),
	}
	db.campaigns[c.ID] = c
	return c
}

func (db *memDB) campaign(id uuid.UUID) models.Campaign {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.campaigns[id]
}

func (db *memDB) messagesOf(campaignID uuid.UUID) []models.Message {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.Message
	for _, m := range db.messages {
		if m.CampaignID != nil && *m.CampaignID == campaignID {
			out = append(out, *m)
		}
	}
	return out
}

func (db *memDB) countStatus(campaignID uuid.UUID, status string) int64 {
	var n int64
	for _, m := range db.messagesOf(campaignID) {
		if m.Status == status {
			n++
		}
	}
	return n
}

type memCampaigns struct{ db *memDB }

func (s memCampaigns) Create(_ context.Context, c *models.Campaign) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	s.db.campaigns[c.ID] = &cp
	s.db.writes++
	return nil
}

func (s memCampaigns) GetByID(_ context.Context, id uuid.UUID) (*models.Campaign, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.campaigns[id]
	if !ok {
		return nil, apperr.NotFound("campaign %s not found", id)
	}
	cp := *c
	return &cp, nil
}

func (s memCampaigns) List(_ context.Context, f repositories.CampaignFilter) ([]models.Campaign, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Campaign
	for _, c := range s.db.campaigns {
		if f.Status == nil || c.Status == *f.Status {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s memCampaigns) UpdateStatus(_ context.Context, id uuid.UUID, from, to string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.campaigns[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	s.db.writes++
	return true, nil
}

func (s memCampaigns) IncrementCounters(_ context.Context, id uuid.UUID, d models.CampaignCounters) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c := s.db.campaigns[id]
	c.AttemptedSent += d.AttemptedSent
	c.TransportFailed += d.TransportFailed
	c.ProviderDelivered += d.ProviderDelivered
	c.Read += d.Read
	c.Clicked += d.Clicked
	c.Failed += d.Failed
	s.db.writes++
	return nil
}

func (s memCampaigns) MarkCompletedIfDone(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.failComplete > 0 {
		s.db.failComplete--
		return false, errInjected
	}
	c := s.db.campaigns[id]
	if c.Status != models.CampaignStatusRunning {
		return false, nil
	}
	for _, m := range s.db.messages {
		if m.CampaignID != nil && *m.CampaignID == id &&
			(m.Status == models.MessageStatusPending || m.Status == models.MessageStatusQueued) {
			return false, nil
		}
	}
	c.Status = models.CampaignStatusCompleted
	c.CompletedAt = &now
	return true, nil
}

func (s memCampaigns) ListDueScheduled(_ context.Context, now time.Time, _ int) ([]models.Campaign, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Campaign
	for _, c := range s.db.campaigns {
		if c.Status == models.CampaignStatusScheduled && c.ScheduledAt != nil && !c.ScheduledAt.After(now) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s memCampaigns) Launch(_ context.Context, id uuid.UUID, from string, startedAt time.Time, msgs []models.Message) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c := s.db.campaigns[id]
	if c.Status != from {
		return apperr.Conflict("campaign %s is no longer %s", id, from)
	}
	c.Status = models.CampaignStatusRunning
	c.StartedAt = &startedAt
	for i := range msgs {
		m := msgs[i]
		m.CreatedAt = startedAt.Add(time.Duration(i))
		s.db.messages[m.ID] = &m
	}
	s.db.writes++
	return nil
}

type memContacts struct{ db *memDB }

func (s memContacts) Upsert(_ context.Context, in repositories.ContactUpsert) (*models.Contact, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	now := time.Now()
	for _, c := range s.db.contacts {
		if c.Phone != in.Phone {
			continue
		}
		if in.Name != "" {
			c.Name = &in.Name
		}
		if in.Email != "" {
			c.Email = &in.Email
		}
		if in.Segment != "" {
			c.Segment = in.Segment
		}
		if in.OptedIn && !c.OptedIn {
			c.OptedIn = true
			c.OptedInAt = &now
		}
		c.LastActivity = &now
		cp := *c
		return &cp, nil
	}
	c := &models.Contact{
		ID:           uuid.New(),
		Phone:        in.Phone,
		Segment:      models.SegmentNew,
		OptedIn:      in.OptedIn,
		Status:       models.ContactStatusActive,
		LastActivity: &now,
	}
	if in.Name != "" {
		c.Name = &in.Name
	}
	if in.Segment != "" {
		c.Segment = in.Segment
	}
	s.db.contacts[c.ID] = c
	cp := *c
	return &cp, nil
}

func (s memContacts) GetByID(_ context.Context, id uuid.UUID) (*models.Contact, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.contacts[id]
	if !ok {
		return nil, apperr.NotFound("contact %s not found", id)
	}
	cp := *c
	return &cp, nil
}

func (s memContacts) ListTargets(_ context.Context, segment string) ([]models.Contact, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Contact
	for _, c := range s.db.contacts {
		if c.Segment == segment && c.Status == models.ContactStatusActive && c.OptedIn {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type memTemplates struct{ db *memDB }

func (s memTemplates) GetByID(_ context.Context, id uuid.UUID) (*models.Template, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.templates[id]
	if !ok {
		return nil, apperr.NotFound("template %s not found", id)
	}
	cp := *t
	return &cp, nil
}

type memMessages struct{ db *memDB }

func (s memMessages) Create(_ context.Context, m *models.Message) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	cp := *m
	s.db.messages[m.ID] = &cp
	return nil
}

func (s memMessages) GetByExternalID(_ context.Context, externalID string) (*models.Message, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, m := range s.db.messages {
		if m.ExternalID != nil && *m.ExternalID == externalID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("message with external id %s not found", externalID)
}

func (s memMessages) byCorrelation(id uuid.UUID) *models.Message {
	for _, m := range s.db.messages {
		if m.CorrelationID == id {
			return m
		}
	}
	return nil
}

func (s memMessages) FilterUnsent(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := map[uuid.UUID]bool{}
	for _, id := range ids {
		if m := s.byCorrelation(id); m != nil &&
			(m.Status == models.MessageStatusPending || m.Status == models.MessageStatusQueued) {
			out[id] = true
		}
	}
	return out, nil
}

func (s memMessages) ApplyOutcomes(_ context.Context, campaignID uuid.UUID, outcomes []models.MessageOutcome, at time.Time) (models.CampaignCounters, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var delta models.CampaignCounters
	if s.db.failApply > 0 {
		s.db.failApply--
		return delta, errInjected
	}
	for _, o := range outcomes {
		m := s.byCorrelation(o.CorrelationID)
		if m == nil || m.CampaignID == nil || *m.CampaignID != campaignID ||
			(m.Status != models.MessageStatusPending && m.Status != models.MessageStatusQueued) {
			continue
		}
		delta.AttemptedSent++
		if o.Success {
			ext := o.ExternalID
			m.Status = models.MessageStatusSent
			m.ExternalID = &ext
			m.SentAt = &at
		} else {
			e := o.Error
			m.Status = models.MessageStatusFailed
			m.Error = &e
			m.FailedAt = &at
			delta.TransportFailed++
		}
	}
	if c, ok := s.db.campaigns[campaignID]; ok {
		c.AttemptedSent += delta.AttemptedSent
		c.TransportFailed += delta.TransportFailed
	}
	s.db.writes++
	return delta, nil
}

func (s memMessages) FailUnreachable(_ context.Context, campaignID uuid.UUID, reason string, at time.Time) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for _, m := range s.db.messages {
		if m.CampaignID == nil || *m.CampaignID != campaignID ||
			(m.Status != models.MessageStatusPending && m.Status != models.MessageStatusQueued) {
			continue
		}
		if c := s.db.contacts[m.ContactID]; reachable(c) {
			continue
		}
		e := reason
		m.Status = models.MessageStatusFailed
		m.Error = &e
		m.FailedAt = &at
		n++
	}
	if c, ok := s.db.campaigns[campaignID]; ok {
		c.AttemptedSent += n
		c.TransportFailed += n
	}
	return n, nil
}

func reachable(c *models.Contact) bool {
	return c != nil && c.Status == models.ContactStatusActive && c.OptedIn
}

func (s memMessages) ApplyStatus(_ context.Context, ch repositories.StatusChange) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	m, ok := s.db.messages[ch.MessageID]
	if !ok || m.Status != ch.From {
		return false, nil
	}
	if ch.EventID != "" && m.LastEventID != nil && *m.LastEventID == ch.EventID {
		return false, nil
	}
	m.Status = ch.To
	at := ch.At
	switch ch.To {
	case models.MessageStatusDelivered:
		m.DeliveredAt = &at
	case models.MessageStatusRead:
		m.ReadAt = &at
	case models.MessageStatusFailed:
		m.FailedAt = &at
	}
	if ch.Error != "" {
		e := ch.Error
		m.Error = &e
	}
	ev := ch.EventID
	m.LastEventID = &ev
	m.LastEventAt = &at

	if m.CampaignID != nil {
		c := s.db.campaigns[*m.CampaignID]
		switch ch.Counter {
		case "provider_delivered":
			c.ProviderDelivered++
		case "read":
			c.Read++
		case "failed":
			c.Failed++
		}
	}
	return true, nil
}

func (s memMessages) CountByStatus(_ context.Context, campaignID uuid.UUID) (map[string]int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := map[string]int64{}
	for _, m := range s.db.messages {
		if m.CampaignID != nil && *m.CampaignID == campaignID {
			out[m.Status]++
		}
	}
	return out, nil
}

func (s memMessages) ListStaleSent(_ context.Context, before time.Time, limit int) ([]models.Message, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Message
	for _, m := range s.db.messages {
		if m.Status == models.MessageStatusSent && m.ExternalID != nil && m.SentAt != nil && m.SentAt.Before(before) {
			out = append(out, *m)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s memMessages) ListUnsentTargets(_ context.Context, campaignID uuid.UUID) ([]repositories.MessageTarget, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var msgs []*models.Message
	for _, m := range s.db.messages {
		if m.CampaignID != nil && *m.CampaignID == campaignID &&
			(m.Status == models.MessageStatusPending || m.Status == models.MessageStatusQueued) &&
			reachable(s.db.contacts[m.ContactID]) {
			msgs = append(msgs, m)
		}
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })

	out := make([]repositories.MessageTarget, 0, len(msgs))
	for _, m := range msgs {
		c := s.db.contacts[m.ContactID]
		out = append(out, repositories.MessageTarget{
			MessageID:     m.ID,
			CorrelationID: m.CorrelationID,
			ContactID:     c.ID,
			Phone:         c.Phone,
			Name:          c.Name,
			Email:         c.Email,
		})
	}
	return out, nil
}

type memChats struct{ db *memDB }

func (s memChats) GetSessionByContact(_ context.Context, contactID uuid.UUID) (*models.ChatSession, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	sess, ok := s.db.sessions[contactID]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (s memChats) TouchSession(_ context.Context, contactID uuid.UUID, last string) (*models.ChatSession, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	sess, ok := s.db.sessions[contactID]
	if !ok {
		sess = &models.ChatSession{ID: uuid.New(), ContactID: contactID, CreatedAt: time.Now()}
		s.db.sessions[contactID] = sess
	}
	sess.LastMessage = last
	sess.UpdatedAt = time.Now()
	cp := *sess
	return &cp, nil
}

func (s memChats) AddMessage(_ context.Context, m *models.ChatMessage) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	m.ID = uuid.New()
	s.db.chatMsgs = append(s.db.chatMsgs, *m)
	return nil
}

type memAudit struct{ db *memDB }

func (s memAudit) Log(_ context.Context, e models.AuditLog) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.audit = append(s.db.audit, e)
	return nil
}

// fakeJobs records enqueued jobs. Jobs handed to a worker with take are no
// longer removable, like active jobs in the real queue.
type fakeJobs struct {
	mu      sync.Mutex
	pending []*queue.Job
	taken   []*queue.Job
	err     error
	seq     int
}

func (q *fakeJobs) AddBulk(_ context.Context, task string, items []queue.BulkJob) ([]*queue.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	var out []*queue.Job
	for _, it := range items {
		q.seq++
		raw, err := jsonRaw(it.Payload)
		if err != nil {
			return nil, err
		}
		j := &queue.Job{
			ID:          fmt.Sprint(q.seq),
			Name:        task,
			CampaignID:  it.Options.CampaignID,
			Payload:     raw,
			MaxAttempts: it.Options.Attempts,
			Delay:       it.Options.Delay,
		}
		q.pending = append(q.pending, j)
		out = append(out, j)
	}
	return out, nil
}

func (q *fakeJobs) RemoveByCampaign(_ context.Context, _ string, campaignID string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.pending[:0]
	removed := 0
	for _, j := range q.pending {
		if j.CampaignID == campaignID {
			removed++
			continue
		}
		kept = append(kept, j)
	}
	q.pending = kept
	return removed, nil
}

func (q *fakeJobs) take() *queue.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	j := q.pending[0]
	q.pending = q.pending[1:]
	q.taken = append(q.taken, j)
	return j
}

// fakeProvider succeeds for every phone except those in fail.
type fakeProvider struct {
	mu      sync.Mutex
	fail    map[string]string
	sent    []gateway.OutboundMessage
	batches int
}

func (p *fakeProvider) Name() string { return config.ProviderBSP }

func (p *fakeProvider) SendOne(_ context.Context, m gateway.OutboundMessage) gateway.SendResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, m)
	if reason, ok := p.fail[m.Phone]; ok {
		return gateway.SendResult{CorrelationID: m.CorrelationID, Error: reason}
	}
	return gateway.SendResult{CorrelationID: m.CorrelationID, Success: true, ProviderMessageID: "wamid." + m.CorrelationID}
}

func (p *fakeProvider) SendBatch(ctx context.Context, msgs []gateway.OutboundMessage, _ gateway.BatchOptions) gateway.BatchResult {
	p.mu.Lock()
	p.batches++
	p.mu.Unlock()

	var res gateway.BatchResult
	for _, m := range msgs {
		r := p.SendOne(ctx, m)
		res.Results = append(res.Results, r)
		if r.Success {
			res.SentCount++
			continue
		}
		res.FailedCount++
		res.Errors = append(res.Errors, gateway.BatchError{CorrelationID: r.CorrelationID, Phone: gateway.MaskPhone(m.Phone), Error: r.Error})
	}
	return res
}

func (p *fakeProvider) VerifyWebhookSignature([]byte, string) bool { return true }

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) ofType(t string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	db        *memDB
	jobs      *fakeJobs
	provider  *fakeProvider
	publisher *recordingPublisher
	campaigns *CampaignService
}

func newHarness() *harness {
	db := newMemDB()
	h := &harness{
		db:        db,
		jobs:      &fakeJobs{},
		provider:  &fakeProvider{fail: map[string]string{}},
		publisher: &recordingPublisher{},
	}
	h.campaigns = NewCampaignService(
		memCampaigns{db}, memContacts{db}, memTemplates{db}, memMessages{db}, memAudit{db},
		h.jobs, h.provider, h.publisher,
		config.QueueConfig{BatchSize: 100, BatchStagger: time.Second, Attempts: 3, Backoff: 2 * time.Second},
		config.GatewayConfig{RatePerSecond: 80, BatchSize: 80, BatchDelay: time.Millisecond},
		zap.NewNop(),
	)
	return h
}

func jsonRaw(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	return json.RawMessage(b), err
}
