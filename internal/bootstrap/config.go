package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/target/inferq/config"
)

// logLevel is shared by every logger InitLogger creates so SetLogLevel can
// raise or lower verbosity once configuration has been read.
var logLevel = new(slog.LevelVar)

// InitLogger initializes the structured logger.
func InitLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// SetLogLevel applies a textual level (debug, info, warn, error). Unknown values keep info.
func SetLogLevel(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		l = slog.LevelInfo
	}
	logLevel.Set(l)
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// ValidateServiceConfig validates that at least one service is enabled and that
// the selected engines and identity mode carry the settings they need.
func ValidateServiceConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("service config is required")
	}
	services, err := cfg.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("invalid service configuration: %w", err)
	}

	if len(services) == 0 {
		return errors.New("no services enabled")
	}

	var errs []error
	errs = append(errs, validateEngine("inference", engineSettings{
		provider: cfg.Inference.Provider,
		model:    cfg.Inference.Model,
		apiKey:   cfg.Inference.APIKey,
		endpoint: cfg.Inference.Endpoint,
	}))
	errs = append(errs, validateEngine("embedding", engineSettings{
		provider: cfg.Embedding.Provider,
		model:    cfg.Embedding.Model,
		apiKey:   cfg.Embedding.APIKey,
		endpoint: cfg.Embedding.Endpoint,
	}))
	if cfg.Embedding.Dimension != config.StoredEmbeddingDimension {
		errs = append(errs, fmt.Errorf("embedding dimension %d does not match the stored vector width %d",
			cfg.Embedding.Dimension, config.StoredEmbeddingDimension))
	}
	errs = append(errs, validateAuth(&cfg.Auth, cfg.IsDev))

	return errors.Join(errs...)
}

type engineSettings struct {
	provider config.EngineProvider
	model    string
	apiKey   string
	endpoint string
}

func validateEngine(name string, e engineSettings) error {
	if e.provider == config.ProviderMock || e.provider == "" {
		return nil
	}
	var errs []error
	if isMockModel(e.model) {
		errs = append(errs, fmt.Errorf("%s provider %s requires a real model, got %q", name, e.provider, e.model))
	}
	switch e.provider {
	case config.ProviderGemini:
		if strings.TrimSpace(e.apiKey) == "" {
			errs = append(errs, fmt.Errorf("%s provider gemini requires an API key", name))
		}
	case config.ProviderHTTP:
		if strings.TrimSpace(e.endpoint) == "" {
			errs = append(errs, fmt.Errorf("%s provider http requires an endpoint", name))
		}
	}
	return errors.Join(errs...)
}

func isMockModel(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	return m == "" || strings.HasPrefix(m, "mock")
}

func validateAuth(auth *config.AuthConfig, isDev bool) error {
	switch auth.Mode {
	case config.AuthModeJWT:
		if auth.JWT.Secret == "" {
			return errors.New("auth mode jwt requires JWT_SECRET")
		}
	case config.AuthModeOIDC:
		if auth.OIDC.DiscoveryURL == "" || auth.OIDC.ClientID == "" {
			return errors.New("auth mode oidc requires a discovery URL and client id")
		}
	case config.AuthModeMock:
		if !isDev {
			slog.Default().Warn("mock auth mode enabled outside development")
		}
	}
	return nil
}

// GetEnabledServices returns a sorted list of enabled service names.
func GetEnabledServices(cfg *config.AppConfig) []string {
	if cfg == nil {
		return []string{}
	}
	services, err := cfg.GetEnabledServices()
	if err != nil {
		// Return empty list on error - validation will catch this
		return []string{}
	}

	enabledServices := make([]string, 0, len(services))
	for svc := range services {
		enabledServices = append(enabledServices, string(svc))
	}
	slices.Sort(enabledServices)

	return enabledServices
}
