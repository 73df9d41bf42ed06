package models

import (
	"testing"
	"time"
)

func TestIsValidCampaignTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Happy path
		{CampaignStatusDraft, CampaignStatusRunning, true},
		{CampaignStatusDraft, CampaignStatusScheduled, true},
		{CampaignStatusScheduled, CampaignStatusRunning, true},
		{CampaignStatusRunning, CampaignStatusCompleted, true},

		// Cancellation
		{CampaignStatusRunning, CampaignStatusPaused, true},
		{CampaignStatusScheduled, CampaignStatusPaused, true},
		{CampaignStatusDraft, CampaignStatusPaused, true},
		{CampaignStatusPaused, CampaignStatusRunning, true},

		// Invalid transitions
		{CampaignStatusCompleted, CampaignStatusRunning, false},
		{CampaignStatusCompleted, CampaignStatusPaused, false},
		{CampaignStatusRunning, CampaignStatusRunning, false},
		{CampaignStatusDraft, CampaignStatusCompleted, false},
		{CampaignStatusPaused, CampaignStatusCompleted, false},
		{"nonexistent", CampaignStatusRunning, false},
		{CampaignStatusDraft, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidCampaignTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidCampaignTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestAllCampaignStatusesHaveTransitionEntry(t *testing.T) {
	all := []string{
		CampaignStatusDraft, CampaignStatusScheduled, CampaignStatusRunning,
		CampaignStatusPaused, CampaignStatusCompleted,
	}
	for _, status := range all {
		if _, ok := ValidCampaignTransitions[status]; !ok {
			t.Errorf("status %q missing from ValidCampaignTransitions map", status)
		}
	}
	if n := len(ValidCampaignTransitions[CampaignStatusCompleted]); n != 0 {
		t.Errorf("COMPLETED should have no transitions, got %d", n)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
		fn     func(string) (string, bool)
	}{
		{"broadcast", CampaignTypeBroadcast, true, NormalizeCampaignType},
		{" Reactivation ", CampaignTypeReactivation, true, NormalizeCampaignType},
		{"spam", "SPAM", false, NormalizeCampaignType},
		{"vip", SegmentVIP, true, NormalizeSegment},
		{"active", SegmentActive, true, NormalizeSegment},
		{"", "", false, NormalizeSegment},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := tt.fn(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("normalize(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestIsValidMessageTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		{MessageStatusPending, MessageStatusSent, true},
		{MessageStatusSent, MessageStatusDelivered, true},
		{MessageStatusDelivered, MessageStatusRead, true},
		{MessageStatusSent, MessageStatusRead, true},
		{MessageStatusDelivered, MessageStatusFailed, true},

		{MessageStatusRead, MessageStatusRead, false},
		{MessageStatusRead, MessageStatusDelivered, false},
		{MessageStatusFailed, MessageStatusDelivered, false},
		{MessageStatusDelivered, MessageStatusSent, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			if got := IsValidMessageTransition(tt.from, tt.to); got != tt.expected {
				t.Errorf("IsValidMessageTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.expected)
			}
		})
	}
}

func TestChatSessionActive(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := ChatSession{UpdatedAt: now.Add(-29 * time.Minute)}
	if !s.Active(now, 30*time.Minute) {
		t.Error("session updated 29m ago should be active")
	}
	s.UpdatedAt = now.Add(-31 * time.Minute)
	if s.Active(now, 30*time.Minute) {
		t.Error("session updated 31m ago should not be active")
	}
}
