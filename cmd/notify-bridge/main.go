package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/wa-marketing/backend/internal/config"
	"github.com/wa-marketing/backend/internal/db"
	"github.com/wa-marketing/backend/internal/events"
	"github.com/wa-marketing/backend/internal/models"
	"go.uber.org/zap"
)

// Notify bridge: subscribes to campaign events and posts a short notice to an
// ops webhook (Slack or Teams incoming hook) when a campaign finishes or stops.

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	if cfg.NotifyWebhookURL == "" {
		log.Fatal("NOTIFY_WEBHOOK_URL is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, cfg.RedisPoolSize, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	n := newNotifier(cfg.NotifyWebhookURL, log)
	subscriber := events.NewRedisSubscriber(rdb, log)
	if err := subscriber.Subscribe(ctx, events.StreamCampaign, func(event events.Event) {
		n.handle(ctx, event)
	}); err != nil {
		log.Fatal("failed to subscribe", zap.Error(err))
	}

	log.Info("notify-bridge started")
	<-ctx.Done()
	log.Info("shutting down notify-bridge")
}

type notifier struct {
	url    string
	client *http.Client
	log    *zap.Logger
	// maxElapsed bounds retries of a single notice.
	maxElapsed time.Duration
}

func newNotifier(url string, log *zap.Logger) *notifier {
	return &notifier{
		url:        url,
		client:     &http.Client{Timeout: 10 * time.Second},
		log:        log,
		maxElapsed: time.Minute,
	}
}

func (n *notifier) handle(ctx context.Context, event events.Event) {
	text, ok := noticeFor(event)
	if !ok {
		return
	}
	if err := n.post(ctx, text); err != nil {
		n.log.Warn("failed to forward notification", zap.String("type", event.Type), zap.Error(err))
		return
	}
	n.log.Info("notification forwarded", zap.Any("campaign_id", event.Payload["campaign_id"]))
}

// noticeFor renders the ops message for campaign events worth a ping.
func noticeFor(event events.Event) (string, bool) {
	if event.Type != events.EventCampaignStatusChanged {
		return "", false
	}
	name, _ := event.Payload["name"].(string)
	from, _ := event.Payload["old_status"].(string)
	to, _ := event.Payload["new_status"].(string)

	switch {
	case to == models.CampaignStatusCompleted:
		return fmt.Sprintf("Campaign %q completed.", name), true
	case to == models.CampaignStatusPaused && from == models.CampaignStatusRunning:
		return fmt.Sprintf("Campaign %q was paused while running.", name), true
	case to == models.CampaignStatusPaused && from == models.CampaignStatusScheduled:
		return fmt.Sprintf("Scheduled campaign %q could not start and was paused.", name), true
	}
	return "", false
}

func (n *notifier) post(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = n.maxElapsed

	return backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("notify webhook returned %d", resp.StatusCode)
		case resp.StatusCode >= 300:
			return backoff.Permanent(fmt.Errorf("notify webhook returned %d", resp.StatusCode))
		}
		return nil
	}, backoff.WithContext(b, ctx))
}
