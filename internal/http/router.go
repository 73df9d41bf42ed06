package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/wa-marketing/backend/internal/config"
	"github.com/wa-marketing/backend/internal/http/handlers"
	"github.com/wa-marketing/backend/internal/middleware"
	"github.com/wa-marketing/backend/internal/rbac"
	"go.uber.org/zap"
)

type Handlers struct {
	Health   *handlers.HealthHandler
	Meta     *handlers.MetaHandler
	User     *handlers.UserHandler
	Campaign *handlers.CampaignHandler
	Contact  *handlers.ContactHandler
	Template *handlers.TemplateHandler
	Chatbot  *handlers.ChatbotHandler
	Queue    *handlers.QueueHandler
	Webhook  *handlers.WebhookHandler
	WSHub    *handlers.WSHub
}

func SetupRouter(app *fiber.App, cfg *config.Config, log *zap.Logger, rdb *redis.Client, h Handlers) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	app.Get("/health", h.Health.Health)
	app.Get(cfg.MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	// Provider webhooks authenticate by signature, not JWT.
	hooks := app.Group("/webhooks", middleware.RateLimitMiddleware(rdb, "webhook", cfg.RateLimit.WebhookPerMinute, time.Minute, log))
	hookPath := "/" + cfg.Gateway.Provider
	hooks.Post(hookPath, h.Webhook.Receive)
	if cfg.Gateway.Provider == config.ProviderCloudAPI {
		hooks.Get(hookPath, h.Webhook.Verify)
	}

	api := app.Group("/api/v1", middleware.AuthMiddleware(cfg.JWTSecret, log))
	api.Use(middleware.RateLimitMiddleware(rdb, "api", cfg.RateLimit.APIPerMinute, time.Minute, log))

	perm := middleware.RequirePermission

	// Meta
	api.Get("/meta/segments", h.Meta.GetSegments)
	api.Get("/meta/campaign-types", h.Meta.GetCampaignTypes)
	api.Get("/meta/templates", h.Meta.GetTemplateOptions)

	// User
	api.Get("/me", h.User.GetMe)

	// Campaigns
	launchLimit := middleware.RateLimitMiddleware(rdb, "launch", cfg.RateLimit.LaunchPerHour, time.Hour, log)
	api.Post("/campaigns", perm(rbac.PermManageCampaigns), h.Campaign.CreateCampaign)
	api.Get("/campaigns", perm(rbac.PermViewCampaigns), h.Campaign.ListCampaigns)
	api.Get("/campaigns/:id", perm(rbac.PermViewCampaigns), h.Campaign.GetCampaign)
	api.Post("/campaigns/:id/launch", perm(rbac.PermLaunchCampaigns), launchLimit, h.Campaign.LaunchCampaign)
	api.Post("/campaigns/:id/cancel", perm(rbac.PermLaunchCampaigns), h.Campaign.CancelCampaign)
	api.Get("/campaigns/:id/stats", perm(rbac.PermViewCampaigns), h.Campaign.GetStats)
	api.Get("/campaigns/:id/audit", perm(rbac.PermViewCampaigns), h.Campaign.GetAudit)

	// Contacts
	api.Post("/contacts", perm(rbac.PermManageContacts), h.Contact.UpsertContact)
	api.Get("/contacts", perm(rbac.PermViewContacts), h.Contact.ListContacts)

	// Templates
	api.Post("/templates", perm(rbac.PermManageTemplates), h.Template.CreateTemplate)
	api.Get("/templates", perm(rbac.PermViewCampaigns), h.Template.ListTemplates)
	api.Post("/templates/:id/approve", perm(rbac.PermApproveTemplates), h.Template.ReviewTemplate)

	// Chatbot
	chatLimit := middleware.RateLimitMiddleware(rdb, "chatbot", cfg.RateLimit.ChatbotPerMinute, time.Minute, log)
	api.Post("/chatbot/message", perm(rbac.PermUseChatbot), chatLimit, h.Chatbot.SendMessage)
	api.Get("/chatbot/sessions", perm(rbac.PermUseChatbot), h.Chatbot.ListSessions)
	api.Get("/chatbot/sessions/:id/messages", perm(rbac.PermUseChatbot), h.Chatbot.ListSessionMessages)

	// Queue (ops)
	api.Get("/queue/stats", perm(rbac.PermViewQueue), h.Queue.Stats)
	api.Get("/queue/failed", perm(rbac.PermViewQueue), h.Queue.FailedJobs)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(h.WSHub.HandleWS))
}
