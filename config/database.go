package config

import "time"

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"                    envDefault:"localhost"`
	Port     int    `env:"PORT"                    envDefault:"5432"`
	User     string `env:"USER"                    envDefault:"inferq"`
	Password string `env:"PASSWORD"                envDefault:"inferq"`
	Name     string `env:"NAME"                    envDefault:"inferq"`
	SSLMode  string `env:"SSL_MODE"                envDefault:"disable"`
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`

	MaxOpenConns    int           `env:"MAX_OPEN_CONNS"     envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS"     envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME"  envDefault:"5m"`
}

// RedisConfig contains Redis configuration. Redis is optional: it backs the
// cross-replica worker run lock and the embedding dedupe cache.
type RedisConfig struct {
	Enabled            bool     `env:"ENABLED"              envDefault:"false"`
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
	// KeyPrefix namespaces every key written by this service.
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"inferq:"`
}
