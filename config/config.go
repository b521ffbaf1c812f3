package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Identity verification configuration
//   - database.go: Database and Redis configuration
//   - http.go: HTTP server configuration
//   - services.go: Service modes, worker, trigger and reaper configuration
//   - engines.go: Inference and embedding engine configuration
//   - observability.go: Metrics and failure notifications
type AppConfig struct {
	// IsDev controls development mode behavior.
	// Set DEV=true or APP_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Auth AuthConfig

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	HTTP HTTPConfig

	// Services is a comma-delimited list of enabled services.
	Services string `env:"SERVICES" envDefault:"http,trigger,reaper"`

	Worker  WorkerConfig  `envPrefix:"WORKER_"`
	Trigger TriggerConfig `envPrefix:"TRIGGER_"`

	Inference InferenceConfig `envPrefix:"INFERENCE_"`
	Embedding EmbeddingConfig `envPrefix:"EMBEDDING_"`

	Reaper ReaperConfig

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Worker.Sanitize()
	c.Trigger.Sanitize()
	c.Inference.Sanitize()
	c.Embedding.Sanitize()
	c.Reaper.Sanitize()
	c.Observability.Sanitize()

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.detectDevMode()
}

func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		appEnv := strings.ToLower(os.Getenv("APP_ENV"))
		c.IsDev = appEnv == "development" || appEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

func (c *AppConfig) isEnabled(mode ServiceMode) bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[mode]
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool { return c.isEnabled(ServiceModeHTTP) }

// IsTriggerEnabled returns true if the in-process worker trigger is enabled.
func (c *AppConfig) IsTriggerEnabled() bool { return c.isEnabled(ServiceModeTrigger) }

// IsReaperEnabled returns true if the reaper service is enabled.
func (c *AppConfig) IsReaperEnabled() bool { return c.isEnabled(ServiceModeReaper) }
