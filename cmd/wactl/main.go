// Command wactl is the operator CLI: it issues API tokens and drives
// campaigns and the send queue without going through the HTTP API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/wa-marketing/backend/internal/config"
	"github.com/wa-marketing/backend/internal/db"
	"github.com/wa-marketing/backend/internal/events"
	"github.com/wa-marketing/backend/internal/gateway"
	"github.com/wa-marketing/backend/internal/queue"
	"github.com/wa-marketing/backend/internal/repositories"
	"github.com/wa-marketing/backend/internal/services"
	"go.uber.org/zap"
)

// env holds the connections opened for one command invocation.
type env struct {
	cfg  *config.Config
	log  *zap.Logger
	pool *pgxpool.Pool
	rdb  *redis.Client
}

func (e *env) Close() {
	if e.rdb != nil {
		_ = e.rdb.Close()
	}
	if e.pool != nil {
		e.pool.Close()
	}
	_ = e.log.Sync()
}

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "wactl",
	Short:         "Operate the WhatsApp marketing backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log connection details")
	rootCmd.AddCommand(tokenCmd, campaignCmd, queueCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// connect opens Postgres and Redis with the process configuration.
func connect(ctx context.Context) (*env, error) {
	log := zap.NewNop()
	if verbose {
		log, _ = zap.NewDevelopment()
	}
	cfg := config.Load()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, 4, log)
	if err != nil {
		return nil, err
	}
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, 4, log)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &env{cfg: cfg, log: log, pool: pool, rdb: rdb}, nil
}

func (e *env) queue() *queue.Queue {
	return queue.New(e.rdb, e.cfg.Queue.Name, queue.Options{
		Attempts:      e.cfg.Queue.Attempts,
		Backoff:       e.cfg.Queue.Backoff,
		KeepCompleted: e.cfg.Queue.KeepComplete,
		KeepFailed:    e.cfg.Queue.KeepFailed,
	}, e.log)
}

func (e *env) campaignService() (*services.CampaignService, error) {
	provider, err := gateway.New(e.cfg.Gateway, e.log)
	if err != nil {
		return nil, err
	}
	return services.NewCampaignService(
		repositories.NewCampaignRepo(e.pool),
		repositories.NewContactRepo(e.pool),
		repositories.NewTemplateRepo(e.pool),
		repositories.NewMessageRepo(e.pool),
		repositories.NewAuditRepo(e.pool),
		e.queue(),
		provider,
		events.NewRedisPublisher(e.rdb, e.log),
		e.cfg.Queue,
		e.cfg.Gateway,
		e.log,
	), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
