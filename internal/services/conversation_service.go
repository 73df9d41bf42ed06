package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wa-marketing/backend/internal/apperr"
	"github.com/wa-marketing/backend/internal/config"
	"github.com/wa-marketing/backend/internal/gateway"
	"github.com/wa-marketing/backend/internal/models"
	"github.com/wa-marketing/backend/internal/repositories"
	"go.uber.org/zap"
)

// InboundResult describes what HandleInbound did with a message.
type InboundResult struct {
	ContactID uuid.UUID
	Triggered bool
	Reply     string
	Fallback  bool
	Delivered bool
}

type ChatReply struct {
	SessionID  uuid.UUID `json:"session_id"`
	Response   string    `json:"response"`
	Confidence float64   `json:"confidence"`
}

// ConversationService routes inbound WhatsApp messages to the chatbot and
// sends its replies back through the provider.
type ConversationService struct {
	contacts ContactStore
	chats    ChatStore
	messages MessageStore
	bot      Chatbot
	provider gateway.Provider
	cfg      config.ChatbotConfig
	log      *zap.Logger
	now      func() time.Time
}

func NewConversationService(
	contacts ContactStore,
	chats ChatStore,
	messages MessageStore,
	bot Chatbot,
	provider gateway.Provider,
	cfg config.ChatbotConfig,
	log *zap.Logger,
) *ConversationService {
	if cfg.SessionWindow <= 0 {
		cfg.SessionWindow = 30 * time.Minute
	}
	return &ConversationService{
		contacts: contacts,
		chats:    chats,
		messages: messages,
		bot:      bot,
		provider: provider,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// HandleInbound records an inbound message and answers it when it contains
// a trigger word or continues a recent conversation.
func (s *ConversationService) HandleInbound(ctx context.Context, ev gateway.WebhookEvent) (*InboundResult, error) {
	if ev.Phone == "" {
		return nil, apperr.Validation("inbound message without sender phone")
	}

	contact, err := s.contacts.Upsert(ctx, repositories.ContactUpsert{
		Phone:   ev.Phone,
		Name:    ev.Name,
		OptedIn: true,
	})
	if err != nil {
		return nil, err
	}
	res := &InboundResult{ContactID: contact.ID}

	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return res, nil
	}

	prev, err := s.chats.GetSessionByContact(ctx, contact.ID)
	if err != nil {
		return nil, err
	}
	res.Triggered = s.hasTrigger(text) || (prev != nil && prev.Active(s.now(), s.cfg.SessionWindow))

	session, err := s.chats.TouchSession(ctx, contact.ID, text)
	if err != nil {
		return nil, err
	}
	if err := s.chats.AddMessage(ctx, &models.ChatMessage{
		SessionID: session.ID,
		Direction: models.ChatDirectionInbound,
		Content:   text,
	}); err != nil {
		s.log.Warn("failed to store inbound chat message", zap.Error(err))
	}

	if !res.Triggered {
		return res, nil
	}

	var confidence *float64
	reply, err := s.bot.Chat(ctx, ChatRequest{
		Message:   text,
		SessionID: session.ID.String(),
		ContactID: contact.ID.String(),
	})
	if err != nil || strings.TrimSpace(reply.Response) == "" {
		s.log.Warn("chatbot unavailable, sending fallback",
			zap.String("contact_id", contact.ID.String()),
			zap.Error(err),
		)
		res.Reply = s.cfg.FallbackReply
		res.Fallback = true
	} else {
		res.Reply = reply.Response
		confidence = &reply.Confidence
	}

	if err := s.chats.AddMessage(ctx, &models.ChatMessage{
		SessionID:  session.ID,
		Direction:  models.ChatDirectionOutbound,
		Content:    res.Reply,
		Confidence: confidence,
	}); err != nil {
		s.log.Warn("failed to store chatbot reply", zap.Error(err))
	}

	res.Delivered = s.deliver(ctx, contact, res.Reply)
	return res, nil
}

// deliver sends a conversational reply and records it as a campaign-less
// message so receipts can be reconciled.
func (s *ConversationService) deliver(ctx context.Context, contact *models.Contact, body string) bool {
	correlationID := uuid.New()
	sent := s.provider.SendOne(ctx, gateway.OutboundMessage{
		CorrelationID: correlationID.String(),
		Phone:         contact.Phone,
		Body:          body,
	})

	now := s.now()
	m := &models.Message{
		ContactID:     contact.ID,
		Content:       body,
		CorrelationID: correlationID,
	}
	if sent.Success {
		m.Status = models.MessageStatusSent
		m.SentAt = &now
		if sent.ProviderMessageID != "" {
			m.ExternalID = &sent.ProviderMessageID
		}
	} else {
		m.Status = models.MessageStatusFailed
		m.FailedAt = &now
		m.Error = &sent.Error
		s.log.Warn("chatbot reply not delivered",
			zap.String("phone", gateway.MaskPhone(contact.Phone)),
			zap.String("error", sent.Error),
		)
	}

	if err := s.messages.Create(ctx, m); err != nil {
		s.log.Warn("failed to record chatbot reply message", zap.Error(err))
	}
	return sent.Success
}

// Proxy forwards an operator-supplied message to the chatbot on behalf of a
// contact and returns the answer without sending it over WhatsApp.
func (s *ConversationService) Proxy(ctx context.Context, contactID uuid.UUID, text string) (*ChatReply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("message is required")
	}
	contact, err := s.contacts.GetByID(ctx, contactID)
	if err != nil {
		return nil, err
	}

	session, err := s.chats.TouchSession(ctx, contact.ID, text)
	if err != nil {
		return nil, err
	}
	_ = s.chats.AddMessage(ctx, &models.ChatMessage{
		SessionID: session.ID,
		Direction: models.ChatDirectionInbound,
		Content:   text,
	})

	reply, err := s.bot.Chat(ctx, ChatRequest{
		Message:   text,
		SessionID: session.ID.String(),
		ContactID: contact.ID.String(),
	})
	if err != nil {
		return nil, apperr.Provider(err, "chatbot request failed")
	}

	_ = s.chats.AddMessage(ctx, &models.ChatMessage{
		SessionID:  session.ID,
		Direction:  models.ChatDirectionOutbound,
		Content:    reply.Response,
		Confidence: &reply.Confidence,
	})

	return &ChatReply{SessionID: session.ID, Response: reply.Response, Confidence: reply.Confidence}, nil
}

func (s *ConversationService) hasTrigger(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range s.cfg.TriggerWords {
		if w != "" && strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
