package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wa-marketing/backend/internal/apperr"
	"github.com/wa-marketing/backend/internal/config"
	"github.com/wa-marketing/backend/internal/gateway"
	"github.com/wa-marketing/backend/internal/models"
	"github.com/wa-marketing/backend/internal/repositories"
	"github.com/wa-marketing/backend/internal/services"
	"go.uber.org/zap"
)

type stubCampaigns struct {
	launchErr error
	created   *services.CreateCampaignInput
}

func (s *stubCampaigns) Create(_ context.Context, in services.CreateCampaignInput, _ uuid.UUID) (*models.Campaign, error) {
	s.created = &in
	return &models.Campaign{ID: uuid.New(), Name: in.Name, Status: models.CampaignStatusDraft}, nil
}

func (s *stubCampaigns) Get(_ context.Context, id uuid.UUID) (*models.Campaign, error) {
	return nil, apperr.NotFound("campaign %s not found", id)
}

func (s *stubCampaigns) List(context.Context, repositories.CampaignFilter) ([]models.Campaign, error) {
	return nil, nil
}

func (s *stubCampaigns) Launch(_ context.Context, id uuid.UUID, _ *uuid.UUID) (*models.LaunchSummary, error) {
	if s.launchErr != nil {
		return nil, s.launchErr
	}
	return &models.LaunchSummary{CampaignID: id, TotalContacts: 250, BatchesQueued: 3, EstimatedMinutes: 1}, nil
}

func (s *stubCampaigns) Cancel(_ context.Context, id uuid.UUID, _ *uuid.UUID) (*services.CancelSummary, error) {
	return &services.CancelSummary{CampaignID: id, RemovedJobs: 2}, nil
}

func (s *stubCampaigns) GetStats(context.Context, uuid.UUID) (*models.CampaignStats, error) {
	return nil, apperr.Transient(io.ErrUnexpectedEOF, "redis down")
}

func do(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func campaignApp(stub *stubCampaigns) *fiber.App {
	h := NewCampaignHandler(stub, nil, zap.NewNop())
	app := fiber.New()
	app.Post("/campaigns", h.CreateCampaign)
	app.Get("/campaigns", h.ListCampaigns)
	app.Get("/campaigns/:id", h.GetCampaign)
	app.Post("/campaigns/:id/launch", h.LaunchCampaign)
	app.Post("/campaigns/:id/cancel", h.CancelCampaign)
	app.Get("/campaigns/:id/stats", h.GetStats)
	return app
}

func TestCampaignHandlerStatusMapping(t *testing.T) {
	id := uuid.New().String()
	tests := []struct {
		name      string
		launchErr error
		method    string
		path      string
		want      int
		wantKind  string
	}{
		{"launch ok", nil, http.MethodPost, "/campaigns/" + id + "/launch", http.StatusAccepted, ""},
		{"launch conflict", apperr.Conflict("running"), http.MethodPost, "/campaigns/" + id + "/launch", http.StatusConflict, "CONFLICT"},
		{"launch empty segment", apperr.Validation("no contacts"), http.MethodPost, "/campaigns/" + id + "/launch", http.StatusBadRequest, "VALIDATION"},
		{"bad id", nil, http.MethodPost, "/campaigns/nope/launch", http.StatusBadRequest, ""},
		{"not found", nil, http.MethodGet, "/campaigns/" + id, http.StatusNotFound, "NOT_FOUND"},
		{"transient", nil, http.MethodGet, "/campaigns/" + id + "/stats", http.StatusServiceUnavailable, "TRANSIENT_INFRA"},
		{"cancel ok", nil, http.MethodPost, "/campaigns/" + id + "/cancel", http.StatusOK, ""},
		{"list ok", nil, http.MethodGet, "/campaigns?limit=500", http.StatusOK, ""},
		{"list bad type", nil, http.MethodGet, "/campaigns?type=spam", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := campaignApp(&stubCampaigns{launchErr: tt.launchErr})
			status, body := do(t, app, tt.method, tt.path, "", nil)
			assert.Equal(t, tt.want, status)
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, body["kind"])
			}
		})
	}
}

type stubAudit struct{ got repositories.AuditFilter }

func (s *stubAudit) List(_ context.Context, f repositories.AuditFilter) ([]models.AuditLog, error) {
	s.got = f
	return []models.AuditLog{{ActorType: models.ActorWorker, Action: "campaign_status_RUNNING_to_COMPLETED"}}, nil
}

func TestCampaignAuditFilter(t *testing.T) {
	audit := &stubAudit{}
	h := NewCampaignHandler(&stubCampaigns{}, audit, zap.NewNop())
	app := fiber.New()
	app.Get("/campaigns/:id/audit", h.GetAudit)

	id := uuid.New()
	status, body := do(t, app, http.MethodGet, "/campaigns/"+id.String()+"/audit?actor=worker&limit=5", "", nil)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "campaign", audit.got.EntityType)
	assert.Equal(t, id, audit.got.EntityID)
	assert.Equal(t, "worker", audit.got.ActorType)
	assert.Equal(t, 5, audit.got.Limit)
	items := body["data"].(map[string]any)["items"].([]any)
	assert.Len(t, items, 1)
}

func TestCampaignListClampsPageSize(t *testing.T) {
	app := campaignApp(&stubCampaigns{})
	_, body := do(t, app, http.MethodGet, "/campaigns?limit=500&offset=-3", "", nil)
	data := body["data"].(map[string]any)
	assert.EqualValues(t, maxPageSize, data["limit"])
	assert.EqualValues(t, 0, data["offset"])
	assert.Equal(t, []any{}, data["items"])
}

func TestCreateCampaignValidation(t *testing.T) {
	stub := &stubCampaigns{}
	app := campaignApp(stub)

	status, body := do(t, app, http.MethodPost, "/campaigns", `{"name":"","type":"BROADCAST","segment":"ACTIVE","template_id":"x"}`, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation failed", body["error"])
	assert.Len(t, body["details"], 2)
	assert.Nil(t, stub.created)

	tplID := uuid.New()
	status, _ = do(t, app, http.MethodPost, "/campaigns",
		`{"name":"Soldes","type":"promotional","segment":"vip","template_id":"`+tplID.String()+`","variables":{"var1":"prenom"}}`, nil)
	assert.Equal(t, http.StatusCreated, status)
	require.NotNil(t, stub.created)
	assert.Equal(t, tplID, stub.created.TemplateID)
	assert.Equal(t, "prenom", stub.created.Variables["var1"])
}

func TestRespondErrorHidesInternalDetails(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return respondError(c, zap.NewNop(), io.ErrClosedPipe)
	})
	status, body := do(t, app, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal error", body["error"])
}

type recordingDispatcher struct {
	events []gateway.WebhookEvent
}

func (d *recordingDispatcher) Dispatch(_ context.Context, evs []gateway.WebhookEvent) {
	d.events = append(d.events, evs...)
}

const webhookSecret = "hook-secret"

func webhookApp(t *testing.T, provider string) (*fiber.App, *recordingDispatcher) {
	t.Helper()
	p, err := gateway.New(config.GatewayConfig{
		Provider:      provider,
		BaseURL:       "http://127.0.0.1:1",
		APIKey:        "k",
		ChannelID:     "123",
		WebhookSecret: webhookSecret,
	}, zap.NewNop())
	require.NoError(t, err)

	d := &recordingDispatcher{}
	h := NewWebhookHandler(p, p.(gateway.WebhookParser), d, "verify-me", zap.NewNop())
	app := fiber.New()
	app.Post("/webhooks/"+provider, h.Receive)
	app.Get("/webhooks/"+provider, h.Verify)
	return app, d
}

func TestCloudAPIWebhook(t *testing.T) {
	app, d := webhookApp(t, config.ProviderCloudAPI)
	body := `{"object":"whatsapp_business_account","entry":[{"id":"1","changes":[{"field":"messages","value":{` +
		`"statuses":[{"id":"wamid.1","status":"delivered","timestamp":"1717236000","recipient_id":"24177000001"}]}}]}]}`
	sig := "sha256=" + gateway.Sign(webhookSecret, []byte(body))

	status, _ := do(t, app, http.MethodPost, "/webhooks/cloudapi", body, map[string]string{"X-Hub-Signature-256": "sha256=00"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Empty(t, d.events)

	status, resp := do(t, app, http.MethodPost, "/webhooks/cloudapi", body, map[string]string{"X-Hub-Signature-256": sig})
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, resp["events"])
	require.Len(t, d.events, 1)
	assert.Equal(t, gateway.EventMessageDelivered, d.events[0].Type)
	assert.Equal(t, "wamid.1", d.events[0].ExternalID)

	garbage := `not json`
	status, resp = do(t, app, http.MethodPost, "/webhooks/cloudapi", garbage,
		map[string]string{"X-Hub-Signature-256": "sha256=" + gateway.Sign(webhookSecret, []byte(garbage))})
	assert.Equal(t, http.StatusOK, status, "signed but unparsable bodies are acknowledged")
	assert.Equal(t, "ignored", resp["status"])
}

func TestCloudAPIVerifyHandshake(t *testing.T) {
	app, _ := webhookApp(t, config.ProviderCloudAPI)

	req := httptest.NewRequest(http.MethodGet, "/webhooks/cloudapi?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=42", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "42", string(raw))

	req = httptest.NewRequest(http.MethodGet, "/webhooks/cloudapi?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=42", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestContactUpsertValidation(t *testing.T) {
	h := NewContactHandler(nil, zap.NewNop())
	app := fiber.New()
	app.Post("/contacts", h.UpsertContact)

	tests := []struct {
		name string
		body string
	}{
		{"missing phone", `{"name":"Awa"}`},
		{"not e164", `{"phone":"077000001"}`},
		{"bad email", `{"phone":"+24177000001","email":"nope"}`},
		{"unknown segment", `{"phone":"+24177000001","segment":"PROSPECT"}`},
		{"not json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, app, http.MethodPost, "/contacts", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.NotEmpty(t, body["error"])
		})
	}
}

type stubPing struct{ err error }

func (s stubPing) ping(context.Context) error { return s.err }

type stubBot bool

func (b stubBot) IsAvailable(context.Context) bool { return bool(b) }

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		pg      error
		bot     bool
		want    int
		chatbot string
	}{
		{"all up", nil, true, http.StatusOK, "ok"},
		{"chatbot down is not fatal", nil, false, http.StatusOK, "unavailable"},
		{"postgres down", io.EOF, true, http.StatusServiceUnavailable, "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(config.ProviderBSP, stubPing{tt.pg}.ping, stubPing{}.ping, stubBot(tt.bot))
			app := fiber.New()
			app.Get("/health", h.Health)

			status, body := do(t, app, http.MethodGet, "/health", "", nil)
			assert.Equal(t, tt.want, status)
			assert.Equal(t, tt.chatbot, body["chatbot"])
			assert.Equal(t, config.ProviderBSP, body["provider"])
		})
	}
}

