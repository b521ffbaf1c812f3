package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/inferq/config"
	"github.com/target/inferq/internal/adapters/reaper"
	"github.com/target/inferq/internal/adapters/trigger"
	"github.com/target/inferq/internal/observability/statsd"
	"github.com/target/inferq/internal/service"
)

// TriggerConfig contains configuration for the in-process worker trigger.
type TriggerConfig struct {
	Pipeline    *service.WorkerPipeline
	Jobs        *service.JobService
	Config      config.TriggerConfig
	Concurrency int
	Logger      *slog.Logger
	Metrics     statsd.Sink
}

// triggerJitterDivisor spreads replica start-up over a tenth of the interval.
const triggerJitterDivisor = 10

// RunTrigger starts the worker trigger.
func RunTrigger(ctx context.Context, cfg TriggerConfig) error {
	if cfg.Pipeline == nil {
		return errors.New("worker pipeline is required")
	}

	opts := trigger.RunnerOptions{
		Worker:      cfg.Pipeline,
		Interval:    cfg.Config.Interval,
		RunOnStart:  cfg.Config.RunOnStart,
		Concurrency: cfg.Concurrency,
		Jitter:      cfg.Config.Interval / triggerJitterDivisor,
		Logger:      cfg.Logger,
		Metrics:     cfg.Metrics,
	}
	if cfg.Jobs != nil {
		opts.Queue = cfg.Jobs
	}

	runner, err := trigger.NewRunner(opts)
	if err != nil {
		return fmt.Errorf("create trigger runner: %w", err)
	}

	return runner.Run(ctx)
}

// ReaperConfig contains configuration for reaper.
type ReaperConfig struct {
	DB      *sql.DB
	Logger  *slog.Logger
	Config  config.ReaperConfig
	Metrics statsd.Sink
}

// RunReaper starts the reaper service.
func RunReaper(ctx context.Context, cfg ReaperConfig) error {
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		DB:      cfg.DB,
		Config:  cfg.Config,
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create reaper runner: %w", err)
	}

	return runner.Run(ctx)
}
