package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/inferq/internal/bootstrap"
	"github.com/target/inferq/internal/data"
	"github.com/target/inferq/internal/domain/model"
	"github.com/target/inferq/internal/service"
)

type jobStatsOptions struct {
	JSON bool
}

func runJobStats(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet("job-stats")
	var opts jobStatsOptions
	fs.BoolVar(&opts.JSON, "json", false, "Print counts as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		stats, err := data.NewInferenceJobRepo(db, data.RepoConfig{Logger: cmdCtx.Logger}).Stats(ctx)
		if err != nil {
			return fmt.Errorf("load job stats: %w", err)
		}
		return printJobStats(os.Stdout, stats, opts)
	})
}

func printJobStats(w io.Writer, stats *model.JobStats, opts jobStatsOptions) error {
	if stats == nil {
		stats = &model.JobStats{}
	}
	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := []struct {
		status model.JobStatus
		count  int
	}{
		{model.JobStatusQueued, stats.Queued},
		{model.JobStatusProcessing, stats.Processing},
		{model.JobStatusCompleted, stats.Completed},
		{model.JobStatusFailed, stats.Failed},
	}
	if err := writef(tw, "STATUS\tCOUNT\n"); err != nil {
		return fmt.Errorf("print stats header: %w", err)
	}
	for _, row := range rows {
		if err := writef(tw, "%s\t%d\n", row.status, row.count); err != nil {
			return fmt.Errorf("print stats row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush stats: %w", err)
	}
	return nil
}

func runReap(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet("reap")
	timeout := fs.Duration("timeout", defaultCommandTimeout, "Maximum duration for the cleanup pass")
	if err := parseWithTimeout(fs, args, timeout); err != nil {
		return err
	}

	return withDatabase(cmdCtx, *timeout, func(ctx context.Context, db *sql.DB) error {
		reaper, err := service.NewReaperService(service.ReaperServiceOptions{
			Repo:   data.NewInferenceJobRepo(db, data.RepoConfig{Logger: cmdCtx.Logger}),
			Config: cmdCtx.Config.Reaper,
			Logger: cmdCtx.Logger,
		})
		if err != nil {
			return fmt.Errorf("create reaper: %w", err)
		}
		return reaper.RunOnce(ctx)
	})
}

// runWorkerOnce performs the same invocation as POST /api/worker/run without the HTTP hop.
func runWorkerOnce(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet("worker-run")
	timeout := fs.Duration("timeout", defaultCommandTimeout, "Maximum duration for the invocation")
	if err := parseWithTimeout(fs, args, timeout); err != nil {
		return err
	}

	return withDatabase(cmdCtx, *timeout, func(ctx context.Context, db *sql.DB) error {
		var redisClient redis.UniversalClient
		if cmdCtx.Config.Redis.Enabled {
			client, err := connectRedis(cmdCtx.Logger, &cmdCtx.Config.Redis)
			if err != nil {
				return err
			}
			redisClient = client
			defer func() {
				if cerr := closeInfra(nil, redisClient); cerr != nil {
					cmdCtx.Logger.Warn("close redis failed", "error", cerr)
				}
			}()
		}

		services, err := bootstrap.NewServices(ctx, &bootstrap.ServiceDeps{
			Config:      &cmdCtx.Config,
			DB:          db,
			RedisClient: redisClient,
			Logger:      cmdCtx.Logger,
		})
		if err != nil {
			return fmt.Errorf("build services: %w", err)
		}

		result, runErr := services.Pipeline.Run(ctx)

		drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := services.EmbeddingExecutor.Shutdown(drainCtx); err != nil {
			cmdCtx.Logger.Warn("embedding executor did not drain", "error", err)
		}

		if runErr != nil {
			return fmt.Errorf("worker run: %w", runErr)
		}
		return printWorkerResult(os.Stdout, result)
	})
}

func printWorkerResult(w io.Writer, result model.WorkerRunResult) error {
	if result.Empty() {
		return writeln(w, "No jobs to process")
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writef(tw, "JOB\tSTATUS\tRESPONSE\tERROR\n"); err != nil {
		return fmt.Errorf("print outcome header: %w", err)
	}
	for _, o := range result.Outcomes {
		if err := writef(tw, "%s\t%s\t%s\t%s\n", o.JobID, o.Status, dash(o.ResponseID), dash(o.Error)); err != nil {
			return fmt.Errorf("print outcome: %w", err)
		}
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
