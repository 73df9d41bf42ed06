package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wa-marketing/backend/internal/config"
	"github.com/wa-marketing/backend/internal/formatter"
	"github.com/wa-marketing/backend/internal/models"
	"go.uber.org/zap"
)

// BSPProvider talks to a Respond.io style Business Solution Provider.
type BSPProvider struct {
	client    apiClient
	channelID string
	secret    string
	language  string
}

func NewBSPProvider(cfg config.GatewayConfig, log *zap.Logger) *BSPProvider {
	lang := cfg.Language
	if lang == "" {
		lang = "fr"
	}
	return &BSPProvider{
		client:    newAPIClient(cfg, log.With(zap.String("provider", config.ProviderBSP))),
		channelID: cfg.ChannelID,
		secret:    cfg.WebhookSecret,
		language:  lang,
	}
}

func (p *BSPProvider) Name() string { return config.ProviderBSP }

type bspRecipient struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type bspLanguage struct {
	Code string `json:"code"`
}

type bspComponent struct {
	Type       string                `json:"type"`
	Parameters []formatter.Parameter `json:"parameters"`
}

type bspTemplate struct {
	Name       string         `json:"name"`
	Language   bspLanguage    `json:"language"`
	Components []bspComponent `json:"components"`
}

type bspMessage struct {
	Type     string       `json:"type"`
	Text     string       `json:"text,omitempty"`
	Template *bspTemplate `json:"template,omitempty"`
}

type bspSendRequest struct {
	ChannelID string       `json:"channelId"`
	Recipient bspRecipient `json:"recipient"`
	Message   bspMessage   `json:"message"`
}

type bspSendResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (p *BSPProvider) buildRequest(msg OutboundMessage) bspSendRequest {
	req := bspSendRequest{
		ChannelID: p.channelID,
		Recipient: bspRecipient{Type: "whatsapp", ID: msg.Phone},
		Message:   bspMessage{Type: "text", Text: msg.Body},
	}
	if t := msg.Template; t != nil {
		lang := t.Language
		if lang == "" {
			lang = p.language
		}
		req.Message = bspMessage{
			Type: "template",
			Template: &bspTemplate{
				Name:       t.Name,
				Language:   bspLanguage{Code: lang},
				Components: []bspComponent{{Type: "body", Parameters: t.Parameters}},
			},
		}
	}
	return req
}

func (p *BSPProvider) SendOne(ctx context.Context, msg OutboundMessage) SendResult {
	return p.client.send(ctx, msg, func(ctx context.Context) (string, error) {
		var resp bspSendResponse
		if err := p.client.do(ctx, http.MethodPost, "/messages", p.buildRequest(msg), &resp); err != nil {
			return "", err
		}
		return resp.ID, nil
	})
}

func (p *BSPProvider) SendBatch(ctx context.Context, msgs []OutboundMessage, opts BatchOptions) BatchResult {
	return dispatchBatch(ctx, msgs, opts, p.SendOne, p.client.sleep)
}

func (p *BSPProvider) VerifyWebhookSignature(body []byte, signature string) bool {
	return verifyHMAC(p.secret, body, signature)
}

func (p *BSPProvider) SignatureHeader() string { return "X-Respondio-Signature" }

// GetMessageStatus returns the provider status mapped onto message statuses.
func (p *BSPProvider) GetMessageStatus(ctx context.Context, externalID string) (string, error) {
	var resp bspSendResponse
	if err := p.client.do(ctx, http.MethodGet, "/messages/"+url.PathEscape(externalID), nil, &resp); err != nil {
		return "", err
	}
	status, ok := statusFromVendor(resp.Status)
	if !ok {
		return "", fmt.Errorf("unknown provider status %q", resp.Status)
	}
	return status, nil
}

type PhoneCheck struct {
	Valid      bool   `json:"valid"`
	WhatsAppID string `json:"whatsappId"`
	Exists     bool   `json:"exists"`
}

// CheckPhoneNumber asks the BSP whether phone is a reachable WhatsApp account.
func (p *BSPProvider) CheckPhoneNumber(ctx context.Context, phone string) (*PhoneCheck, error) {
	var out PhoneCheck
	if err := p.client.do(ctx, http.MethodPost, "/contacts/validate", map[string]string{"phone": phone}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type bspWebhook struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type bspWebhookData struct {
	MessageID string `json:"messageId"`
	Error     string `json:"error"`
	ID        string `json:"id"`
	Phone     string `json:"phone"`
	Name      string `json:"name"`
	Contact   struct {
		ID    string `json:"id"`
		Phone string `json:"phone"`
		Name  string `json:"name"`
	} `json:"contact"`
	Message struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
}

func (p *BSPProvider) ParseWebhook(body []byte) ([]WebhookEvent, error) {
	var w bspWebhook
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("invalid webhook body: %w", err)
	}
	var d bspWebhookData
	if len(w.Data) > 0 {
		if err := json.Unmarshal(w.Data, &d); err != nil {
			return nil, fmt.Errorf("invalid webhook data: %w", err)
		}
	}

	ts := time.Now()
	if w.Timestamp > 0 {
		ts = time.Unix(w.Timestamp, 0)
	}

	ev := WebhookEvent{Type: w.Event, EventID: w.ID, Timestamp: ts}
	switch w.Event {
	case EventMessageReceived:
		ev.Phone = d.Contact.Phone
		ev.Name = d.Contact.Name
		ev.Text = d.Message.Text
		ev.ExternalID = d.MessageID
	case EventMessageSent, EventMessageDelivered, EventMessageRead, EventMessageFailed:
		ev.ExternalID = d.MessageID
		ev.Error = d.Error
	case EventContactCreated, EventContactUpdated:
		ev.Phone = d.Phone
		ev.Name = d.Name
	default:
		return nil, nil
	}
	if ev.EventID == "" && ev.ExternalID != "" {
		ev.EventID = ev.Type + ":" + ev.ExternalID
	}
	return []WebhookEvent{ev}, nil
}

func statusFromVendor(s string) (string, bool) {
	switch strings.ToLower(s) {
	case "sent", "accepted":
		return models.MessageStatusSent, true
	case "delivered":
		return models.MessageStatusDelivered, true
	case "read":
		return models.MessageStatusRead, true
	case "failed", "undelivered":
		return models.MessageStatusFailed, true
	}
	return "", false
}
