package main

import (
	"context"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/target/inferq/config"
	"github.com/target/inferq/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const (
	defaultMigrationTimeout = 5 * time.Minute
	defaultCommandTimeout   = 2 * time.Minute
)

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}
	bootstrap.SetLogLevel(cfg.LogLevel)

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrations,
		},
		"db-reset": {
			name:        "db-reset",
			description: "Drop the database schema and re-run migrations",
			run:         runDBReset,
		},
		"job-stats": {
			name:        "job-stats",
			description: "Print inference job counts by status",
			run:         runJobStats,
		},
		"reap": {
			name:        "reap",
			description: "Run one reaper pass (fail stale queued jobs, delete old jobs)",
			run:         runReap,
		},
		"worker-run": {
			name:        "worker-run",
			description: "Run one worker invocation in this process and print the outcomes",
			run:         runWorkerOnce,
		},
		"list-cache-keys": {
			name:        "list-cache-keys",
			description: "Inspect worker run locks and embedding dedupe keys in Redis",
			run:         runListCacheKeys,
		},
		"clear-cache-keys": {
			name:        "clear-cache-keys",
			description: "Delete worker run locks or embedding dedupe keys from Redis",
			run:         runClearCacheKeys,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: inferq-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := writef(os.Stdout, "  %-20s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}
