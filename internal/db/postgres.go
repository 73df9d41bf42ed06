package db

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// connectTimeout bounds how long startup waits for a store to come up.
const connectTimeout = 30 * time.Second

func NewPostgresPool(ctx context.Context, dsn string, maxConns int, log *zap.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	err = waitReady(ctx, "postgres", pool.Ping, log)
	if err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("connected to PostgreSQL",
		zap.String("host", cfg.ConnConfig.Host),
		zap.String("database", cfg.ConnConfig.Database),
		zap.Int32("max_conns", cfg.MaxConns),
	)
	return pool, nil
}

// waitReady pings with exponential backoff so containers may start in any order.
func waitReady(ctx context.Context, name string, ping func(context.Context) error, log *zap.Logger) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = connectTimeout

	err := backoff.RetryNotify(func() error {
		return ping(ctx)
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		log.Warn("store not ready, retrying", zap.String("store", name), zap.Duration("in", next), zap.Error(err))
	})
	if err != nil {
		return fmt.Errorf("ping %s: %w", name, err)
	}
	return nil
}
