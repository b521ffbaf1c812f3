package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/target/inferq/config"
	"github.com/target/inferq/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	bootstrap.SetLogLevel(cfg.LogLevel)
	logStartupInfo(ctx, logger, &cfg)

	// Engines, identity mode and the embedding width are checked before anything connects.
	if err = bootstrap.ValidateServiceConfig(&cfg); err != nil {
		return err
	}

	infra, err := connectInfrastructure(&cfg, logger)
	if err != nil {
		return err
	}
	defer infra.close(ctx, logger)

	if err = prepareSchema(ctx, &cfg, infra.db, logger); err != nil {
		return err
	}

	// Build the enabled services and block until a shutdown signal drains them.
	services, err := bootstrap.NewServices(ctx, &bootstrap.ServiceDeps{
		Config:      &cfg,
		DB:          infra.db,
		RedisClient: infra.redis,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}

	return bootstrap.RunServicesWithShutdown(&bootstrap.ServiceOrchestrationConfig{
		Config:      &cfg,
		Services:    services,
		DB:          infra.db,
		RedisClient: infra.redis,
		Logger:      logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting inferq service",
		"db_host", cfg.Postgres.Host,
		"db_port", cfg.Postgres.Port,
		"db_name", cfg.Postgres.Name,
		"redis_enabled", cfg.Redis.Enabled,
		"auth_mode", cfg.Auth.Mode,
		"inference_provider", cfg.Inference.Provider,
		"embedding_provider", cfg.Embedding.Provider,
		"enabled_services", bootstrap.GetEnabledServices(cfg))
}

// infrastructure holds the shared connections every service borrows.
// redis is nil when REDIS_ENABLED is off.
type infrastructure struct {
	db    *sql.DB
	redis redis.UniversalClient
}

func connectInfrastructure(cfg *config.AppConfig, logger *slog.Logger) (*infrastructure, error) {
	dbCfg := bootstrap.DatabaseConfig{
		DBConfig:    cfg.Postgres,
		RedisConfig: cfg.Redis,
		Logger:      logger,
	}

	db, err := bootstrap.ConnectDB(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	infra := &infrastructure{db: db}

	// Redis only backs the run lock and embedding dedupe, but a configured instance
	// that cannot be reached is still fatal.
	infra.redis, err = bootstrap.ConnectRedis(dbCfg)
	if err != nil {
		infra.close(context.Background(), logger)
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return infra, nil
}

func (i *infrastructure) close(ctx context.Context, logger *slog.Logger) {
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			logger.ErrorContext(ctx, "close redis failed", "error", err)
		}
	}
	if err := i.db.Close(); err != nil {
		logger.ErrorContext(ctx, "close database failed", "error", err)
	}
}

// prepareSchema applies embedded migrations unless the deployment runs them out of band.
func prepareSchema(ctx context.Context, cfg *config.AppConfig, db *sql.DB, logger *slog.Logger) error {
	if !cfg.Postgres.RunMigrationsOnStart {
		logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
		return nil
	}
	return bootstrap.RunMigrations(ctx, db, logger)
}
