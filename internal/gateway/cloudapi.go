package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wa-marketing/backend/internal/config"
	"go.uber.org/zap"
)

// CloudAPIProvider sends through the WhatsApp Cloud API (graph.facebook.com).
type CloudAPIProvider struct {
	client        apiClient
	phoneNumberID string
	appSecret     string
	language      string
}

func NewCloudAPIProvider(cfg config.GatewayConfig, log *zap.Logger) *CloudAPIProvider {
	lang := cfg.Language
	if lang == "" {
		lang = "fr"
	}
	return &CloudAPIProvider{
		client:        newAPIClient(cfg, log.With(zap.String("provider", config.ProviderCloudAPI))),
		phoneNumberID: cfg.ChannelID,
		appSecret:     cfg.WebhookSecret,
		language:      lang,
	}
}

func (p *CloudAPIProvider) Name() string { return config.ProviderCloudAPI }

type cloudText struct {
	Body string `json:"body"`
}

type cloudTemplate struct {
	Name       string         `json:"name"`
	Language   bspLanguage    `json:"language"`
	Components []bspComponent `json:"components,omitempty"`
}

type cloudSendRequest struct {
	MessagingProduct string         `json:"messaging_product"`
	RecipientType    string         `json:"recipient_type"`
	To               string         `json:"to"`
	Type             string         `json:"type"`
	Text             *cloudText     `json:"text,omitempty"`
	Template         *cloudTemplate `json:"template,omitempty"`
}

type cloudSendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func (p *CloudAPIProvider) buildRequest(msg OutboundMessage) cloudSendRequest {
	req := cloudSendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               strings.TrimPrefix(msg.Phone, "+"),
		Type:             "text",
		Text:             &cloudText{Body: msg.Body},
	}
	if t := msg.Template; t != nil {
		lang := t.Language
		if lang == "" {
			lang = p.language
		}
		req.Type = "template"
		req.Text = nil
		req.Template = &cloudTemplate{
			Name:     t.Name,
			Language: bspLanguage{Code: lang},
		}
		if len(t.Parameters) > 0 {
			req.Template.Components = []bspComponent{{Type: "body", Parameters: t.Parameters}}
		}
	}
	return req
}

func (p *CloudAPIProvider) SendOne(ctx context.Context, msg OutboundMessage) SendResult {
	return p.client.send(ctx, msg, func(ctx context.Context) (string, error) {
		var resp cloudSendResponse
		if err := p.client.do(ctx, http.MethodPost, "/"+p.phoneNumberID+"/messages", p.buildRequest(msg), &resp); err != nil {
			return "", err
		}
		if len(resp.Messages) == 0 {
			return "", fmt.Errorf("provider response has no message id")
		}
		return resp.Messages[0].ID, nil
	})
}

func (p *CloudAPIProvider) SendBatch(ctx context.Context, msgs []OutboundMessage, opts BatchOptions) BatchResult {
	return dispatchBatch(ctx, msgs, opts, p.SendOne, p.client.sleep)
}

// VerifyWebhookSignature checks an X-Hub-Signature-256 value ("sha256=<hex>").
func (p *CloudAPIProvider) VerifyWebhookSignature(body []byte, signature string) bool {
	return verifyHMAC(p.appSecret, body, strings.TrimPrefix(signature, "sha256="))
}

func (p *CloudAPIProvider) SignatureHeader() string { return "X-Hub-Signature-256" }

type cloudWebhook struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Contacts []struct {
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
					WaID string `json:"wa_id"`
				} `json:"contacts"`
				Messages []struct {
					From      string `json:"from"`
					ID        string `json:"id"`
					Timestamp string `json:"timestamp"`
					Type      string `json:"type"`
					Text      *struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
				Statuses []struct {
					ID          string `json:"id"`
					Status      string `json:"status"`
					Timestamp   string `json:"timestamp"`
					RecipientID string `json:"recipient_id"`
					Errors      []struct {
						Code  int    `json:"code"`
						Title string `json:"title"`
					} `json:"errors"`
				} `json:"statuses"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

func (p *CloudAPIProvider) ParseWebhook(body []byte) ([]WebhookEvent, error) {
	var w cloudWebhook
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("invalid webhook body: %w", err)
	}

	var events []WebhookEvent
	for _, entry := range w.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			v := change.Value

			names := make(map[string]string, len(v.Contacts))
			for _, c := range v.Contacts {
				names[c.WaID] = c.Profile.Name
			}

			for _, m := range v.Messages {
				ev := WebhookEvent{
					Type:       EventMessageReceived,
					EventID:    m.ID,
					ExternalID: m.ID,
					Phone:      "+" + m.From,
					Name:       names[m.From],
					Timestamp:  unixString(m.Timestamp),
				}
				if m.Text != nil {
					ev.Text = m.Text.Body
				}
				events = append(events, ev)
			}

			for _, s := range v.Statuses {
				typ, ok := cloudStatusEvents[s.Status]
				if !ok {
					continue
				}
				ev := WebhookEvent{
					Type:       typ,
					EventID:    s.ID + ":" + s.Status,
					ExternalID: s.ID,
					Phone:      "+" + s.RecipientID,
					Timestamp:  unixString(s.Timestamp),
				}
				if len(s.Errors) > 0 {
					ev.Error = fmt.Sprintf("%d: %s", s.Errors[0].Code, s.Errors[0].Title)
				}
				events = append(events, ev)
			}
		}
	}
	return events, nil
}

var cloudStatusEvents = map[string]string{
	"sent":      EventMessageSent,
	"delivered": EventMessageDelivered,
	"read":      EventMessageRead,
	"failed":    EventMessageFailed,
}

func unixString(s string) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return time.Now()
	}
	return time.Unix(n, 0)
}
