package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wa-marketing/backend/internal/events"
	"go.uber.org/zap"
)

func statusEvent(from, to string) events.Event {
	return events.Event{
		Type: events.EventCampaignStatusChanged,
		Payload: map[string]any{
			"campaign_id": "c-1",
			"name":        "Promo Noel",
			"old_status":  from,
			"new_status":  to,
		},
	}
}

func TestNoticeFor(t *testing.T) {
	tests := []struct {
		name   string
		event  events.Event
		notify bool
	}{
		{"completed", statusEvent("RUNNING", "COMPLETED"), true},
		{"paused while running", statusEvent("RUNNING", "PAUSED"), true},
		{"scheduled launch failed", statusEvent("SCHEDULED", "PAUSED"), true},
		{"launched", statusEvent("DRAFT", "RUNNING"), false},
		{"progress", events.Event{Type: events.EventCampaignProgress, Payload: map[string]any{}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, ok := noticeFor(tt.event)
			if ok != tt.notify {
				t.Errorf("noticeFor() notify = %v, want %v", ok, tt.notify)
			}
			if ok {
				assert.Contains(t, text, "Promo Noel")
			}
		})
	}
}

func TestNotifierRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newNotifier(srv.URL, zap.NewNop())
	n.maxElapsed = 5 * time.Second

	require.NoError(t, n.post(context.Background(), "done"))
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "done", got["text"])
}

func TestNotifierStopsOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	n := newNotifier(srv.URL, zap.NewNop())
	assert.Error(t, n.post(context.Background(), "done"))
	assert.Equal(t, int32(1), calls.Load())
}
