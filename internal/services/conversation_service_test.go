package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wa-marketing/backend/internal/apperr"
	"github.com/wa-marketing/backend/internal/config"
	"github.com/wa-marketing/backend/internal/gateway"
	"github.com/wa-marketing/backend/internal/models"
	"go.uber.org/zap"
)

type stubChatbot struct {
	reply *ChatResponse
	err   error
	reqs  []ChatRequest
}

func (b *stubChatbot) Chat(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	b.reqs = append(b.reqs, req)
	if b.err != nil {
		return nil, b.err
	}
	return b.reply, nil
}

const fallbackReply = "Un conseiller vous répondra rapidement."

func newConversationFixture(bot Chatbot) (*ConversationService, *memDB, *fakeProvider) {
	db := newMemDB()
	provider := &fakeProvider{fail: map[string]string{}}
	svc := NewConversationService(memContacts{db}, memChats{db}, memMessages{db}, bot, provider, config.ChatbotConfig{
		SessionWindow: 30 * time.Minute,
		TriggerWords:  []string{"aide", "prix", "info"},
		FallbackReply: fallbackReply,
	}, zap.NewNop())
	return svc, db, provider
}

func inbound(phone, text string) gateway.WebhookEvent {
	return gateway.WebhookEvent{Type: gateway.EventMessageReceived, Phone: phone, Name: "Awa", Text: text}
}

func TestHandleInboundTriggerWord(t *testing.T) {
	bot := &stubChatbot{reply: &ChatResponse{Response: "Nos prix sont en ligne.", Confidence: 0.9}}
	svc, db, provider := newConversationFixture(bot)

	res, err := svc.HandleInbound(context.Background(), inbound("+24177000001", "Quel est le PRIX ?"))
	require.NoError(t, err)
	assert.True(t, res.Triggered)
	assert.False(t, res.Fallback)
	assert.True(t, res.Delivered)
	assert.Equal(t, "Nos prix sont en ligne.", res.Reply)

	require.Len(t, bot.reqs, 1)
	assert.Equal(t, res.ContactID.String(), bot.reqs[0].ContactID)

	require.Len(t, provider.sent, 1)
	assert.Equal(t, "+24177000001", provider.sent[0].Phone)
	assert.Nil(t, provider.sent[0].Template)

	require.Len(t, db.chatMsgs, 2)
	assert.Equal(t, models.ChatDirectionInbound, db.chatMsgs[0].Direction)
	assert.Equal(t, models.ChatDirectionOutbound, db.chatMsgs[1].Direction)
	require.NotNil(t, db.chatMsgs[1].Confidence)

	var replies []*models.Message
	for _, m := range db.messages {
		replies = append(replies, m)
	}
	require.Len(t, replies, 1)
	assert.Nil(t, replies[0].CampaignID)
	assert.Equal(t, models.MessageStatusSent, replies[0].Status)

	contact := db.contacts[res.ContactID]
	assert.True(t, contact.OptedIn)
	assert.Equal(t, "Awa", *contact.Name)
}

func TestHandleInboundWithoutTriggerOrSession(t *testing.T) {
	bot := &stubChatbot{reply: &ChatResponse{Response: "ok"}}
	svc, db, provider := newConversationFixture(bot)

	res, err := svc.HandleInbound(context.Background(), inbound("+24177000002", "merci"))
	require.NoError(t, err)
	assert.False(t, res.Triggered)
	assert.Empty(t, bot.reqs)
	assert.Empty(t, provider.sent)
	assert.Len(t, db.chatMsgs, 1)
}

func TestHandleInboundContinuesRecentSession(t *testing.T) {
	bot := &stubChatbot{reply: &ChatResponse{Response: "Avec plaisir"}}
	svc, db, _ := newConversationFixture(bot)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, err := svc.HandleInbound(ctx, inbound("+24177000003", "info livraison"))
	require.NoError(t, err)

	var sess *models.ChatSession
	for _, s := range db.sessions {
		sess = s
	}
	require.NotNil(t, sess)

	sess.UpdatedAt = now.Add(-10 * time.Minute)
	res, err := svc.HandleInbound(ctx, inbound("+24177000003", "et demain ?"))
	require.NoError(t, err)
	assert.True(t, res.Triggered, "follow-up inside the window")

	sess.UpdatedAt = now.Add(-time.Hour)
	res, err = svc.HandleInbound(ctx, inbound("+24177000003", "bonne journée"))
	require.NoError(t, err)
	assert.False(t, res.Triggered, "follow-up after the window")
	assert.Len(t, bot.reqs, 2)
}

func TestHandleInboundFallsBackWhenChatbotFails(t *testing.T) {
	bot := &stubChatbot{err: errors.New("chatbot service unavailable")}
	svc, _, provider := newConversationFixture(bot)

	res, err := svc.HandleInbound(context.Background(), inbound("+24177000004", "aide svp"))
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, fallbackReply, res.Reply)
	require.Len(t, provider.sent, 1)
	assert.Equal(t, fallbackReply, provider.sent[0].Body)
}

func TestHandleInboundRecordsUndeliveredReply(t *testing.T) {
	bot := &stubChatbot{reply: &ChatResponse{Response: "Bonjour"}}
	svc, db, provider := newConversationFixture(bot)
	provider.fail["+24177000005"] = "outside 24h window"

	res, err := svc.HandleInbound(context.Background(), inbound("+24177000005", "aide"))
	require.NoError(t, err)
	assert.False(t, res.Delivered)
	for _, m := range db.messages {
		assert.Equal(t, models.MessageStatusFailed, m.Status)
		assert.Equal(t, "outside 24h window", *m.Error)
	}
}

func TestHandleInboundRequiresPhone(t *testing.T) {
	svc, _, _ := newConversationFixture(&stubChatbot{})
	_, err := svc.HandleInbound(context.Background(), inbound("", "aide"))
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestProxy(t *testing.T) {
	bot := &stubChatbot{reply: &ChatResponse{Response: "Réponse", Confidence: 0.7}}
	svc, db, provider := newConversationFixture(bot)
	ctx := context.Background()
	contact := db.addContacts(1, models.SegmentActive, true, models.ContactStatusActive)[0]

	reply, err := svc.Proxy(ctx, contact.ID, "  horaires ?  ")
	require.NoError(t, err)
	assert.Equal(t, "Réponse", reply.Response)
	assert.Equal(t, 0.7, reply.Confidence)
	assert.Equal(t, "horaires ?", bot.reqs[0].Message)
	assert.Empty(t, provider.sent, "proxied answers are not sent over WhatsApp")

	_, err = svc.Proxy(ctx, contact.ID, " ")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Proxy(ctx, uuid.New(), "hello")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	bot.err = errors.New("boom")
	_, err = svc.Proxy(ctx, contact.ID, "hello")
	assert.True(t, apperr.Is(err, apperr.KindProvider))
}
