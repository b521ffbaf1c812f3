package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/target/inferq/internal/service"
)

type cacheKeyKind string

const (
	cacheKeyLocks  cacheKeyKind = "locks"
	cacheKeyDedupe cacheKeyKind = "dedupe"
	cacheKeyAll    cacheKeyKind = "all"
)

type cacheKeyOptions struct {
	Kind   cacheKeyKind
	DryRun bool
	Yes    bool
}

// cachePatterns returns SCAN patterns for kind under the configured key prefix.
func cachePatterns(prefix string, kind cacheKeyKind) ([]string, error) {
	locks := prefix + service.RunLockKeyPrefix + "*"
	dedupe := prefix + service.DedupeKeyPrefix + "*"
	switch kind {
	case cacheKeyLocks:
		return []string{locks}, nil
	case cacheKeyDedupe:
		return []string{dedupe}, nil
	case cacheKeyAll:
		return []string{locks, dedupe}, nil
	default:
		return nil, fmt.Errorf("unknown --kind %q (valid: locks, dedupe, all)", kind)
	}
}

func parseCacheKeyFlags(name string, args []string, destructive bool) (cacheKeyOptions, error) {
	fs := newFlagSet(name)
	var kind string
	opts := cacheKeyOptions{}
	fs.StringVar(&kind, "kind", string(cacheKeyAll), "Key family: locks, dedupe or all")
	if destructive {
		fs.BoolVar(&opts.DryRun, "dry-run", false, "Report matching keys without deleting them")
		fs.BoolVar(&opts.Yes, "yes", false, "Skip confirmation prompt")
	}
	if err := fs.Parse(args); err != nil {
		return cacheKeyOptions{}, err
	}
	opts.Kind = cacheKeyKind(kind)
	if _, err := cachePatterns("", opts.Kind); err != nil {
		return cacheKeyOptions{}, err
	}
	return opts, nil
}

func runListCacheKeys(cmdCtx *commandContext, args []string) error {
	opts, err := parseCacheKeyFlags("list-cache-keys", args, false)
	if err != nil {
		return err
	}
	patterns, err := cachePatterns(cmdCtx.Config.Redis.KeyPrefix, opts.Kind)
	if err != nil {
		return err
	}

	return withRedis(cmdCtx, defaultCommandTimeout, func(ctx context.Context, client redis.UniversalClient) error {
		total := 0
		for _, pattern := range patterns {
			n, scanErr := writeCacheKeys(ctx, os.Stdout, client, pattern)
			if scanErr != nil {
				return scanErr
			}
			total += n
		}
		if total == 0 {
			return writeln(os.Stdout, "(no keys found)")
		}
		return writef(os.Stdout, "\nTotal keys: %d\n", total)
	})
}

func writeCacheKeys(ctx context.Context, w io.Writer, client redis.UniversalClient, pattern string) (int, error) {
	iter := client.Scan(ctx, 0, pattern, 100).Iterator()
	total := 0
	for iter.Next(ctx) {
		key := iter.Val()
		total++
		ttl, err := client.TTL(ctx, key).Result()
		if err != nil {
			if writeErr := writef(w, "  %s (TTL: error: %v)\n", key, err); writeErr != nil {
				return total, fmt.Errorf("print cache key: %w", writeErr)
			}
			continue
		}
		if writeErr := writef(w, "  %s (TTL: %s)\n", key, renderTTL(ttl)); writeErr != nil {
			return total, fmt.Errorf("print cache key: %w", writeErr)
		}
	}
	if err := iter.Err(); err != nil {
		return total, fmt.Errorf("redis scan: %w", err)
	}
	return total, nil
}

type cacheConfirmOptions struct {
	opts   cacheKeyOptions
	prefix string
}

func (c cacheConfirmOptions) IsDryRun() bool { return c.opts.DryRun }
func (c cacheConfirmOptions) IsYes() bool    { return c.opts.Yes }
func (c cacheConfirmOptions) GetWarning() string {
	if c.opts.Kind == cacheKeyDedupe {
		return "WARNING: deleting dedupe keys makes the next embed of each message recompute its vector."
	}
	return "WARNING: deleting run locks lets overlapping worker invocations start immediately."
}

func (c cacheConfirmOptions) GetTarget() string {
	return fmt.Sprintf("%s keys under prefix %q", c.opts.Kind, c.prefix)
}

func runClearCacheKeys(cmdCtx *commandContext, args []string) error {
	opts, err := parseCacheKeyFlags("clear-cache-keys", args, true)
	if err != nil {
		return err
	}
	prefix := cmdCtx.Config.Redis.KeyPrefix
	patterns, err := cachePatterns(prefix, opts.Kind)
	if err != nil {
		return err
	}
	if confirmErr := confirmAction(cacheConfirmOptions{opts: opts, prefix: prefix}, "delete cache keys"); confirmErr != nil {
		return confirmErr
	}

	return withRedis(cmdCtx, defaultCommandTimeout, func(ctx context.Context, client redis.UniversalClient) error {
		req := &cacheDeleteRequest{Ctx: ctx, Logger: cmdCtx.Logger, Redis: client, DryRun: opts.DryRun}
		stats := cacheDeleteStats{}
		for _, pattern := range patterns {
			if delErr := req.deleteForPattern(pattern, &stats); delErr != nil {
				return delErr
			}
		}
		verb := "Deleted"
		if opts.DryRun {
			verb = "Would delete"
		}
		if err := writef(os.Stdout, "%s %d of %d matching keys\n", verb, stats.deleted, stats.total); err != nil {
			return fmt.Errorf("print delete summary: %w", err)
		}
		if stats.failures > 0 {
			return errors.New("some cache key deletions failed")
		}
		return nil
	})
}

const cacheDeleteBatch = 500

type cacheDeleteRequest struct {
	Ctx    context.Context
	Logger *slog.Logger
	Redis  redis.UniversalClient
	DryRun bool
}

type cacheDeleteStats struct {
	total    int
	deleted  int64
	failures int
}

func (req *cacheDeleteRequest) deleteForPattern(pattern string, stats *cacheDeleteStats) error {
	req.Logger.Info("scanning redis", "pattern", pattern, "dry_run", req.DryRun)

	iter := req.Redis.Scan(req.Ctx, 0, pattern, 100).Iterator()
	batch := make([]string, 0, cacheDeleteBatch)
	for iter.Next(req.Ctx) {
		stats.total++
		batch = append(batch, iter.Val())
		if len(batch) == cacheDeleteBatch {
			req.flush(batch, stats)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	req.flush(batch, stats)
	return nil
}

func (req *cacheDeleteRequest) flush(batch []string, stats *cacheDeleteStats) {
	if len(batch) == 0 {
		return
	}
	if req.DryRun {
		stats.deleted += int64(len(batch))
		return
	}
	// Cluster clients reject multi-key DEL across slots, so keys go one at a time.
	for _, key := range batch {
		n, err := req.Redis.Del(req.Ctx, key).Result()
		if err != nil {
			stats.failures++
			req.Logger.Error("failed to delete cache key", "key", key, "error", err)
			continue
		}
		stats.deleted += n
	}
}
