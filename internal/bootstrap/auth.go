package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/target/inferq/config"
	"github.com/target/inferq/internal/adapters/identity"
	"github.com/target/inferq/internal/ports"
	"github.com/target/inferq/internal/service"
)

// AuthConfig contains configuration for the identity service.
type AuthConfig struct {
	Auth   config.AuthConfig
	Logger *slog.Logger
}

// BuildIdentityService creates an identity service backed by the verifier for the configured auth mode.
func BuildIdentityService(ctx context.Context, cfg AuthConfig) (*service.IdentityService, error) {
	verifier, err := buildVerifier(ctx, cfg.Auth)
	if err != nil {
		return nil, err
	}

	if cfg.Logger != nil {
		cfg.Logger.InfoContext(ctx, "identity verifier configured",
			"mode", cfg.Auth.Mode,
			"worker_token", cfg.Auth.WorkerToken != "",
		)
	}

	return service.NewIdentityService(service.IdentityServiceOptions{
		Verifier:    verifier,
		WorkerToken: cfg.Auth.WorkerToken,
		Logger:      cfg.Logger,
	})
}

//nolint:ireturn // the verifier implementation is chosen by configuration.
func buildVerifier(ctx context.Context, auth config.AuthConfig) (ports.IdentityVerifier, error) {
	switch auth.Mode {
	case config.AuthModeMock:
		v, err := identity.NewDevVerifier(identity.DevConfig{
			Token:  auth.DevAuth.Token,
			UserID: auth.DevAuth.UserID,
			Email:  auth.DevAuth.Email,
			Role:   auth.DevAuth.Role,
		})
		if err != nil {
			return nil, fmt.Errorf("build dev verifier: %w", err)
		}
		return v, nil

	case config.AuthModeOIDC:
		v, err := identity.NewOIDCVerifier(ctx, identity.OIDCConfig{
			ClientID:     auth.OIDC.ClientID,
			DiscoveryURL: auth.OIDC.DiscoveryURL,
			RoleClaim:    auth.OIDC.RoleClaim,
		})
		if err != nil {
			return nil, fmt.Errorf("build oidc verifier: %w", err)
		}
		return v, nil

	case config.AuthModeJWT:
		v, err := identity.NewJWTVerifier(identity.JWTConfig{
			Secret:   auth.JWT.Secret,
			Issuer:   auth.JWT.Issuer,
			Audience: auth.JWT.Audience,
		})
		if err != nil {
			return nil, fmt.Errorf("build jwt verifier: %w", err)
		}
		return v, nil

	default:
		return nil, fmt.Errorf("unsupported auth mode %q", auth.Mode)
	}
}
