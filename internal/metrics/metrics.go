package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Messages handed to the provider, by campaign type and send outcome
	CampaignMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_messages_sent_total",
			Help: "Campaign messages dispatched to the WhatsApp provider",
		},
		[]string{"campaign_type", "status"},
	)

	CampaignDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campaign_duration_seconds",
			Help:    "Time from launch to completion of a campaign",
			Buckets: []float64{60, 300, 900, 1800, 3600, 7200, 14400, 43200},
		},
		[]string{"campaign_type"},
	)

	ActiveCampaigns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_campaigns",
			Help: "Campaigns currently RUNNING",
		},
	)

	QueueJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_jobs_total",
			Help: "Queue job outcomes",
		},
		[]string{"queue", "task", "outcome"},
	)

	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Provider webhook events by type and handling result",
		},
		[]string{"provider", "event", "result"},
	)

	ChatbotRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_requests_total",
			Help: "Calls to the RAG chatbot service",
		},
		[]string{"result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
