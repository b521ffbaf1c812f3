package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/inferq/config"
	"github.com/target/inferq/internal/data"
)

// DatabaseConfig contains configuration for database connections.
type DatabaseConfig struct {
	DBConfig    config.DBConfig
	RedisConfig config.RedisConfig
	Logger      *slog.Logger
}

const connectTimeout = 5 * time.Second

// ConnectDB opens the pgx-backed pool and verifies it with a ping.
func ConnectDB(cfg DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", postgresDSN(cfg.DBConfig))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	applyPoolSettings(db, cfg.DBConfig)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if pingErr := db.PingContext(ctx); pingErr != nil {
		return nil, closeAfter(fmt.Errorf("ping database: %w", pingErr), db, "database")
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("database connected",
			"host", cfg.DBConfig.Host,
			"port", cfg.DBConfig.Port,
			"database", cfg.DBConfig.Name,
			"max_open_conns", db.Stats().MaxOpenConnections,
		)
	}
	return db, nil
}

// postgresDSN renders a URL DSN; url.URL escapes credentials.
func postgresDSN(cfg config.DBConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: url.Values{"sslmode": []string{cfg.SSLMode}}.Encode(),
	}
	return u.String()
}

func applyPoolSettings(db *sql.DB, cfg config.DBConfig) {
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 || maxIdle > maxOpen {
		maxIdle = min(5, maxOpen)
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = 5 * time.Minute
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)
}

func closeAfter(err error, c interface{ Close() error }, what string) error {
	if closeErr := c.Close(); closeErr != nil {
		return errors.Join(err, fmt.Errorf("close %s: %w", what, closeErr))
	}
	return err
}

// ConnectRedis connects to a standalone, sentinel or cluster deployment. It returns a nil
// client and no error when Redis is disabled; the run lock and embedding dedupe are then skipped.
//
//nolint:ireturn // the concrete client type depends on the deployment topology.
func ConnectRedis(cfg DatabaseConfig) (redis.UniversalClient, error) {
	if !cfg.RedisConfig.Enabled {
		if cfg.Logger != nil {
			cfg.Logger.Info("redis disabled; run lock and embedding dedupe are off")
		}
		return nil, nil //nolint:nilnil // a nil client signals that Redis-backed features are off
	}

	opts, desc, err := redisOptions(cfg.RedisConfig)
	if err != nil {
		return nil, err
	}
	client := redis.NewUniversalClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		return nil, closeAfter(fmt.Errorf("ping redis: %w", pingErr), client, "redis client")
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("redis connected", "topology", desc, "addrs", strings.Join(opts.Addrs, ","))
	}
	return client, nil
}

// redisOptions maps REDIS_* settings onto go-redis universal options. Cluster wins over
// sentinel, which wins over a direct URI. The returned description never includes credentials.
func redisOptions(cfg config.RedisConfig) (*redis.UniversalOptions, string, error) {
	switch {
	case cfg.UseCluster:
		opts := &redis.UniversalOptions{
			Addrs:         normalizeAddrs(cfg.ClusterNodes),
			Password:      cfg.Password,
			IsClusterMode: true,
		}
		if len(opts.Addrs) == 0 && strings.TrimSpace(cfg.URI) != "" {
			if err := applyRedisURI(opts, cfg.URI); err != nil {
				return nil, "", fmt.Errorf("parse redis cluster uri: %w", err)
			}
		}
		if len(opts.Addrs) == 0 {
			return nil, "", errors.New("redis cluster configuration requires at least one address")
		}
		return opts, "cluster", nil

	case cfg.UseSentinel:
		addrs := normalizeAddrs(cfg.SentinelNodes)
		if len(addrs) == 0 {
			return nil, "", errors.New("redis sentinel configuration requires at least one sentinel node")
		}
		if cfg.SentinelMasterName == "" {
			return nil, "", errors.New("redis sentinel configuration requires a master name")
		}
		return &redis.UniversalOptions{
			Addrs:            addrs,
			MasterName:       cfg.SentinelMasterName,
			Password:         cfg.Password,
			SentinelPassword: cfg.SentinelPassword,
		}, "sentinel:" + cfg.SentinelMasterName, nil

	default:
		if strings.TrimSpace(cfg.URI) == "" {
			return nil, "", errors.New("redis direct configuration requires a URI")
		}
		opts := &redis.UniversalOptions{Password: cfg.Password}
		if err := applyRedisURI(opts, cfg.URI); err != nil {
			return nil, "", fmt.Errorf("parse redis uri: %w", err)
		}
		return opts, "standalone", nil
	}
}

// applyRedisURI accepts either a redis:// / rediss:// URL or a bare host:port.
func applyRedisURI(opts *redis.UniversalOptions, raw string) error {
	uri := strings.TrimSpace(raw)
	if !strings.HasPrefix(uri, "redis://") && !strings.HasPrefix(uri, "rediss://") {
		opts.Addrs = []string{uri}
		return nil
	}

	parsed, err := redis.ParseURL(uri)
	if err != nil {
		return err
	}
	opts.Addrs = []string{parsed.Addr}
	opts.DB = parsed.DB
	opts.TLSConfig = parsed.TLSConfig
	if parsed.Username != "" {
		opts.Username = parsed.Username
	}
	if parsed.Password != "" {
		opts.Password = parsed.Password
	}
	return nil
}

func normalizeAddrs(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, addr := range raw {
		if trimmed := strings.TrimSpace(addr); trimmed != "" && !slices.Contains(out, trimmed) {
			out = append(out, trimmed)
		}
	}
	return out
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if err := data.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if logger != nil {
		logger.InfoContext(ctx, "database migrations completed")
	}
	return nil
}
