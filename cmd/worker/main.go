package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wa-marketing/backend/internal/config"
	"github.com/wa-marketing/backend/internal/db"
	"github.com/wa-marketing/backend/internal/events"
	"github.com/wa-marketing/backend/internal/gateway"
	"github.com/wa-marketing/backend/internal/queue"
	"github.com/wa-marketing/backend/internal/repositories"
	"github.com/wa-marketing/backend/internal/services"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const reconcileBatch = 500

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, db.MigrationsFS(cfg.MigrationsDir), log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, cfg.RedisPoolSize, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repos
	campaignRepo := repositories.NewCampaignRepo(pool)
	contactRepo := repositories.NewContactRepo(pool)
	templateRepo := repositories.NewTemplateRepo(pool)
	messageRepo := repositories.NewMessageRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	provider, err := gateway.New(cfg.Gateway, log)
	if err != nil {
		log.Fatal("failed to build whatsapp provider", zap.Error(err))
	}
	fetcher, ok := provider.(gateway.StatusFetcher)
	if !ok {
		log.Warn("provider has no status lookup, reconcile sweep disabled", zap.String("provider", provider.Name()))
	}

	jobs := queue.New(rdb, cfg.Queue.Name, queue.Options{
		Attempts:      cfg.Queue.Attempts,
		Backoff:       cfg.Queue.Backoff,
		KeepCompleted: cfg.Queue.KeepComplete,
		KeepFailed:    cfg.Queue.KeepFailed,
		PollInterval:  cfg.Queue.PollInterval,
		LockTTL:       cfg.Queue.LockTTL,
	}, log)

	// Services
	publisher := events.NewRedisPublisher(rdb, log)
	campaignService := services.NewCampaignService(
		campaignRepo, contactRepo, templateRepo, messageRepo, auditRepo,
		jobs, provider, publisher, cfg.Queue, cfg.Gateway, log,
	)
	reconciler := services.NewReconciler(messageRepo, fetcher, publisher, log)

	jobs.Process(services.TaskSendMessages, cfg.Queue.Concurrency, campaignService.ProcessBatch)
	jobs.OnCompleted(func(job *queue.Job) {
		log.Debug("batch completed", zap.String("job_id", job.ID), zap.String("campaign_id", job.CampaignID))
	})
	jobs.OnFailed(func(job *queue.Job, err error) {
		log.Error("batch failed permanently",
			zap.String("job_id", job.ID),
			zap.String("campaign_id", job.CampaignID),
			zap.Int("attempts", job.AttemptsMade),
			zap.Error(err),
		)
	})

	log.Info("worker started",
		zap.String("queue", cfg.Queue.Name),
		zap.Int("concurrency", cfg.Queue.Concurrency),
		zap.String("provider", provider.Name()),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		jobs.Run(gctx)
		return nil
	})

	g.Go(func() error {
		every(gctx, cfg.ScheduleInterval, func() {
			n, err := campaignService.LaunchDue(gctx, time.Now())
			if err != nil {
				log.Error("scheduled launch sweep failed", zap.Error(err))
				return
			}
			if n > 0 {
				log.Info("scheduled campaigns launched", zap.Int("count", n))
			}
		})
		return nil
	})

	g.Go(func() error {
		every(gctx, cfg.ReconcileInterval, func() {
			n, err := reconciler.Sweep(gctx, cfg.ReconcileStaleAfter, reconcileBatch)
			if err != nil {
				log.Error("reconcile sweep failed", zap.Error(err))
				return
			}
			if n > 0 {
				log.Info("stale messages reconciled", zap.Int("count", n))
			}
		})
		return nil
	})

	// Metrics and liveness
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get(cfg.MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	g.Go(func() error {
		addr := fmt.Sprintf(":%s", cfg.WorkerPort)
		if err := app.Listen(addr); err != nil {
			return fmt.Errorf("metrics listener: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		_ = app.Shutdown()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("worker stopped with error", zap.Error(err))
	}
	log.Info("worker stopped")
}

// every runs fn now and then on each tick until ctx is done.
func every(ctx context.Context, interval time.Duration, fn func()) {
	if interval <= 0 {
		return
	}
	fn()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
