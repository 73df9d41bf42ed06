// Package gateway sends WhatsApp messages through a configured provider.
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"

	"github.com/wa-marketing/backend/internal/config"
	"github.com/wa-marketing/backend/internal/formatter"
	"go.uber.org/zap"
)

const (
	DefaultBatchSize = 80
	DefaultDelay     = time.Second
)

// Normalized webhook event types
const (
	EventMessageReceived  = "message.received"
	EventMessageSent      = "message.sent"
	EventMessageDelivered = "message.delivered"
	EventMessageRead      = "message.read"
	EventMessageFailed    = "message.failed"
	EventContactCreated   = "contact.created"
	EventContactUpdated   = "contact.updated"
)

type TemplatePayload struct {
	Name       string
	Language   string
	Parameters []formatter.Parameter
}

// OutboundMessage is one send. CorrelationID is echoed back in every result
// and error so callers never have to match on phone numbers.
type OutboundMessage struct {
	CorrelationID string
	Phone         string
	Body          string
	Template      *TemplatePayload
}

type SendResult struct {
	CorrelationID     string `json:"correlation_id"`
	Success           bool   `json:"success"`
	ProviderMessageID string `json:"provider_message_id,omitempty"`
	Error             string `json:"error,omitempty"`
}

// BatchOptions controls SendBatch chunking. A zero BatchSize or Delay picks
// DefaultBatchSize or DefaultDelay; a negative Delay (NoDelay) sends the
// chunks back to back.
type BatchOptions struct {
	BatchSize int
	Delay     time.Duration
}

// NoDelay disables the pause between chunks.
const NoDelay time.Duration = -1

type BatchError struct {
	CorrelationID string `json:"correlation_id"`
	Phone         string `json:"phone"` // masked
	Error         string `json:"error"`
}

type BatchResult struct {
	SentCount   int          `json:"sent"`
	FailedCount int          `json:"failed"`
	Errors      []BatchError `json:"errors,omitempty"`
	Results     []SendResult `json:"results"`
}

// Provider is the outbound messaging capability shared by every vendor.
// SendOne and SendBatch never return errors; failures are reported in the result.
type Provider interface {
	Name() string
	SendOne(ctx context.Context, msg OutboundMessage) SendResult
	SendBatch(ctx context.Context, msgs []OutboundMessage, opts BatchOptions) BatchResult
	VerifyWebhookSignature(body []byte, signature string) bool
}

// StatusFetcher is implemented by providers that expose a message status lookup.
type StatusFetcher interface {
	GetMessageStatus(ctx context.Context, externalID string) (string, error)
}

// PhoneChecker is implemented by providers that can tell whether a number
// has a WhatsApp account.
type PhoneChecker interface {
	CheckPhoneNumber(ctx context.Context, phone string) (*PhoneCheck, error)
}

type WebhookEvent struct {
	Type       string
	EventID    string
	ExternalID string
	Phone      string
	Name       string
	Text       string
	Error      string
	Timestamp  time.Time
}

// WebhookParser turns a vendor webhook body into normalized events.
type WebhookParser interface {
	SignatureHeader() string
	ParseWebhook(body []byte) ([]WebhookEvent, error)
}

// New builds the provider selected by cfg.Provider.
func New(cfg config.GatewayConfig, log *zap.Logger) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderBSP:
		return NewBSPProvider(cfg, log), nil
	case config.ProviderCloudAPI:
		return NewCloudAPIProvider(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown whatsapp provider %q", cfg.Provider)
	}
}

var maskRe = regexp.MustCompile(`\d{5,}`)

// MaskPhone keeps only the last four digits of every digit run.
func MaskPhone(phone string) string {
	return maskRe.ReplaceAllStringFunc(phone, func(run string) string {
		masked := []byte(run)
		for i := 0; i < len(masked)-4; i++ {
			masked[i] = '*'
		}
		return string(masked)
	})
}

func verifyHMAC(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// Sign returns the hex HMAC-SHA256 of body, the form both vendors send.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
