package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/wa-marketing/backend/internal/gateway"
	"github.com/wa-marketing/backend/internal/metrics"
	"go.uber.org/zap"
)

const webhookTimeout = 10 * time.Second

type WebhookDispatcher interface {
	Dispatch(ctx context.Context, evs []gateway.WebhookEvent)
}

// WebhookHandler receives delivery receipts and inbound messages from the
// configured provider. Once the signature checks out the answer is always
// 200, otherwise the vendor keeps redelivering events we cannot use.
type WebhookHandler struct {
	provider    gateway.Provider
	parser      gateway.WebhookParser
	dispatcher  WebhookDispatcher
	verifyToken string
	log         *zap.Logger
}

func NewWebhookHandler(
	provider gateway.Provider,
	parser gateway.WebhookParser,
	dispatcher WebhookDispatcher,
	verifyToken string,
	log *zap.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		provider:    provider,
		parser:      parser,
		dispatcher:  dispatcher,
		verifyToken: verifyToken,
		log:         log.With(zap.String("provider", provider.Name())),
	}
}

func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	body := c.Body()
	sig := c.Get(h.parser.SignatureHeader())

	if !h.provider.VerifyWebhookSignature(body, sig) {
		metrics.WebhookEvents.WithLabelValues(h.provider.Name(), "unknown", "bad_signature").Inc()
		h.log.Warn("webhook signature rejected", zap.String("ip", c.IP()))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid signature"})
	}

	evs, err := h.parser.ParseWebhook(body)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(h.provider.Name(), "unknown", "unparsable").Inc()
		h.log.Warn("webhook body not understood", zap.Int("bytes", len(body)), zap.Error(err))
		return c.JSON(fiber.Map{"status": "ignored"})
	}

	// The body buffer is reused by fasthttp after return, so events are
	// dispatched before answering.
	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()
	h.dispatcher.Dispatch(ctx, evs)

	return c.JSON(fiber.Map{"status": "ok", "events": len(evs)})
}

// Verify answers the Cloud API subscription handshake.
func (h *WebhookHandler) Verify(c *fiber.Ctx) error {
	if c.Query("hub.mode") != "subscribe" || h.verifyToken == "" || c.Query("hub.verify_token") != h.verifyToken {
		h.log.Warn("webhook verification failed", zap.String("mode", c.Query("hub.mode")))
		return c.SendStatus(fiber.StatusForbidden)
	}
	h.log.Info("webhook subscription verified")
	return c.SendString(c.Query("hub.challenge"))
}
