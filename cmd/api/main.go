package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/wa-marketing/backend/internal/config"
	"github.com/wa-marketing/backend/internal/db"
	"github.com/wa-marketing/backend/internal/events"
	"github.com/wa-marketing/backend/internal/gateway"
	apphttp "github.com/wa-marketing/backend/internal/http"
	"github.com/wa-marketing/backend/internal/http/dto"
	"github.com/wa-marketing/backend/internal/http/handlers"
	"github.com/wa-marketing/backend/internal/queue"
	"github.com/wa-marketing/backend/internal/repositories"
	"github.com/wa-marketing/backend/internal/services"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, db.MigrationsFS(cfg.MigrationsDir), log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, cfg.RedisPoolSize, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	campaignRepo := repositories.NewCampaignRepo(pool)
	contactRepo := repositories.NewContactRepo(pool)
	templateRepo := repositories.NewTemplateRepo(pool)
	messageRepo := repositories.NewMessageRepo(pool)
	chatRepo := repositories.NewChatRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Provider
	provider, err := gateway.New(cfg.Gateway, log)
	if err != nil {
		log.Fatal("failed to build whatsapp provider", zap.Error(err))
	}
	parser, ok := provider.(gateway.WebhookParser)
	if !ok {
		log.Fatal("provider cannot parse webhooks", zap.String("provider", provider.Name()))
	}
	fetcher, _ := provider.(gateway.StatusFetcher)

	// Queue (producer side only, the worker consumes)
	jobs := queue.New(rdb, cfg.Queue.Name, queue.Options{
		Attempts:      cfg.Queue.Attempts,
		Backoff:       cfg.Queue.Backoff,
		KeepCompleted: cfg.Queue.KeepComplete,
		KeepFailed:    cfg.Queue.KeepFailed,
		PollInterval:  cfg.Queue.PollInterval,
		LockTTL:       cfg.Queue.LockTTL,
	}, log)

	// Services
	chatbot := services.NewChatbotClient(cfg.Chatbot, log)
	campaignService := services.NewCampaignService(
		campaignRepo, contactRepo, templateRepo, messageRepo, auditRepo,
		jobs, provider, publisher, cfg.Queue, cfg.Gateway, log,
	)
	reconciler := services.NewReconciler(messageRepo, fetcher, publisher, log)
	conversations := services.NewConversationService(contactRepo, chatRepo, messageRepo, chatbot, provider, cfg.Chatbot, log)
	webhooks := services.NewWebhookService(reconciler, conversations, contactRepo, provider.Name(), log)

	// Handlers
	wsHub := handlers.NewWSHub(cfg.JWTSecret, subscriber, log)
	if err := wsHub.Start(ctx); err != nil {
		log.Fatal("failed to start ws hub", zap.Error(err))
	}

	h := apphttp.Handlers{
		Health: handlers.NewHealthHandler(provider.Name(), pool.Ping, func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}, chatbot),
		Meta:     handlers.NewMetaHandler(),
		User:     handlers.NewUserHandler(userRepo, log),
		Campaign: handlers.NewCampaignHandler(campaignService, auditRepo, log),
		Contact:  handlers.NewContactHandler(contactRepo, log),
		Template: handlers.NewTemplateHandler(templateRepo, cfg.Gateway.Language, log),
		Chatbot:  handlers.NewChatbotHandler(conversations, chatRepo, log),
		Queue:    handlers.NewQueueHandler(jobs, services.TaskSendMessages, log),
		Webhook:  handlers.NewWebhookHandler(provider, parser, webhooks, cfg.Gateway.VerifyToken, log),
		WSHub:    wsHub,
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 4 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(dto.ErrorResponse{Error: err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, h)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr), zap.String("provider", provider.Name()))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
