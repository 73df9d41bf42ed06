package events

import "context"

// Streams
const (
	StreamCampaign = "events:campaign"
)

// Event types
const (
	EventCampaignStatusChanged = "campaign_status_changed"
	EventCampaignProgress      = "campaign_progress"
	EventMessageStatusChanged  = "message_status_changed"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
