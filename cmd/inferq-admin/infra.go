package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/inferq/config"
	"github.com/target/inferq/internal/bootstrap"
)

var errRedisNotConfigured = errors.New("redis not configured: set REDIS_ENABLED=true")

// connectRedis returns a connected client or errRedisNotConfigured when Redis is disabled.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func connectRedis(logger *slog.Logger, cfg *config.RedisConfig) (redis.UniversalClient, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errRedisNotConfigured
	}
	client, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{RedisConfig: *cfg, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

// withDatabase runs f with a connected database under a signal-aware timeout.
func withDatabase(
	cmdCtx *commandContext,
	timeout time.Duration,
	f func(context.Context, *sql.DB) error,
) error {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", cerr)
		}
	}()

	return f(ctx, db)
}

// withRedis runs f with a connected Redis client under a signal-aware timeout.
func withRedis(
	cmdCtx *commandContext,
	timeout time.Duration,
	f func(context.Context, redis.UniversalClient) error,
) error {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := connectRedis(cmdCtx.Logger, &cmdCtx.Config.Redis)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			cmdCtx.Logger.Warn("redis close failed", "error", cerr)
		}
	}()

	return f(ctx, client)
}

func closeInfra(db *sql.DB, redisClient redis.UniversalClient) error {
	var closeErr error
	if db != nil {
		if err := db.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close db: %w", err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close redis: %w", err))
		}
	}
	return closeErr
}
