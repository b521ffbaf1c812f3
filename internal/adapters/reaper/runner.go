// Package reaper provides adapters for running the job reaper.
package reaper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/inferq/config"
	"github.com/target/inferq/internal/core"
	"github.com/target/inferq/internal/data"
	"github.com/target/inferq/internal/observability/statsd"
	"github.com/target/inferq/internal/service"
)

// Runner constructs the reaper service and runs its cleanup loop.
type Runner struct {
	reaper *service.ReaperService
	logger *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB     *sql.DB
	Config config.ReaperConfig
	Logger *slog.Logger

	// Repo overrides the Postgres-backed repository built from DB.
	Repo    core.ReaperRepository
	Metrics statsd.Sink
}

// NewRunner creates a new reaper runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.DB == nil && opts.Repo == nil {
		return nil, errors.New("database connection is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	repo := opts.Repo
	if repo == nil {
		repo = data.NewInferenceJobRepo(opts.DB, data.RepoConfig{Logger: opts.Logger})
	}

	reaper, err := service.NewReaperService(service.ReaperServiceOptions{
		Repo:    repo,
		Config:  opts.Config,
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("wire reaper service: %w", err)
	}

	return &Runner{reaper: reaper, logger: opts.Logger}, nil
}

// Run starts the reaper loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting reaper runner")
	err := r.reaper.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
