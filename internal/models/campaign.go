package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Campaign statuses
const (
	CampaignStatusDraft     = "DRAFT"
	CampaignStatusScheduled = "SCHEDULED"
	CampaignStatusRunning   = "RUNNING"
	CampaignStatusPaused    = "PAUSED"
	CampaignStatusCompleted = "COMPLETED"
)

// Campaign types
const (
	CampaignTypeBroadcast     = "BROADCAST"
	CampaignTypeReactivation  = "REACTIVATION"
	CampaignTypePromotional   = "PROMOTIONAL"
	CampaignTypeTransactional = "TRANSACTIONAL"
)

// Contact segments
const (
	SegmentActive   = "ACTIVE"
	SegmentInactive = "INACTIVE"
	SegmentNew      = "NEW"
	SegmentPremium  = "PREMIUM"
	SegmentVIP      = "VIP"
)

// Valid state transitions: from -> []to.
// PAUSED -> RUNNING only happens through an explicit relaunch.
// DRAFT -> PAUSED is a cancel before the first launch.
var ValidCampaignTransitions = map[string][]string{
	CampaignStatusDraft:     {CampaignStatusScheduled, CampaignStatusRunning, CampaignStatusPaused},
	CampaignStatusScheduled: {CampaignStatusRunning, CampaignStatusPaused},
	CampaignStatusRunning:   {CampaignStatusPaused, CampaignStatusCompleted},
	CampaignStatusPaused:    {CampaignStatusRunning},
	CampaignStatusCompleted: {},
}

func IsValidCampaignTransition(from, to string) bool {
	return contains(ValidCampaignTransitions[from], to)
}

var campaignTypes = []string{CampaignTypeBroadcast, CampaignTypeReactivation, CampaignTypePromotional, CampaignTypeTransactional}

var segments = []string{SegmentActive, SegmentInactive, SegmentNew, SegmentPremium, SegmentVIP}

// NormalizeCampaignType upper-cases t and reports whether it is a known type.
func NormalizeCampaignType(t string) (string, bool) {
	t = strings.ToUpper(strings.TrimSpace(t))
	return t, contains(campaignTypes, t)
}

func NormalizeSegment(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	return s, contains(segments, s)
}

type Campaign struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Status      string            `json:"status"`
	Segment     string            `json:"segment"`
	TemplateID  uuid.UUID         `json:"template_id"`
	Variables   map[string]string `json:"variables"`
	ScheduledAt *time.Time        `json:"scheduled_at,omitempty"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	CreatedBy   uuid.UUID         `json:"created_by"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	CampaignCounters
}

// CampaignCounters are server-authoritative and only move through atomic
// increments. AttemptedSent and TransportFailed come from the send path,
// the rest from provider receipts.
type CampaignCounters struct {
	AttemptedSent     int64 `json:"attempted_sent"`
	TransportFailed   int64 `json:"transport_failed"`
	ProviderDelivered int64 `json:"provider_delivered"`
	Read              int64 `json:"read"`
	Clicked           int64 `json:"clicked"`
	Failed            int64 `json:"failed"`
}

// LaunchSummary is returned by a successful launch.
type LaunchSummary struct {
	CampaignID       uuid.UUID `json:"campaign_id"`
	TotalContacts    int       `json:"total_contacts"`
	BatchesQueued    int       `json:"batches_queued"`
	EstimatedMinutes int       `json:"estimated_minutes"`
}

type CampaignStats struct {
	CampaignID   uuid.UUID        `json:"campaign_id"`
	Status       string           `json:"status"`
	Counters     CampaignCounters `json:"counters"`
	DeliveryRate float64          `json:"delivery_rate"`
	OpenRate     float64          `json:"open_rate"`
	ClickRate    float64          `json:"click_rate"`
	Pending      int64            `json:"pending"`
	ByStatus     map[string]int64 `json:"by_status"`
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
