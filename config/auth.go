package config

import (
	"fmt"
	"strings"
)

// AuthMode selects how bearer credentials are verified.
type AuthMode string

const (
	// AuthModeOIDC verifies OIDC ID tokens against a discovered issuer.
	AuthModeOIDC AuthMode = "oidc"
	// AuthModeJWT verifies HS256 tokens signed with a shared secret.
	AuthModeJWT AuthMode = "jwt"
	// AuthModeMock accepts a fixed token and returns a configured identity (development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "oidc", "jwt", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oidc, jwt, mock)", v)
	}
}

// OIDCConfig contains OIDC ID token verification configuration.
type OIDCConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	// RoleClaim names the claim carrying the caller's role.
	RoleClaim string `env:"ROLE_CLAIM" envDefault:"role"`
}

// JWTConfig contains shared-secret bearer token configuration.
type JWTConfig struct {
	Secret   string `env:"SECRET"`
	Issuer   string `env:"ISSUER"`
	Audience string `env:"AUDIENCE" envDefault:"authenticated"`
}

// DevAuthConfig controls the mock identity returned when AUTH_MODE=mock.
type DevAuthConfig struct {
	Token  string `env:"TOKEN"   envDefault:"dev-token"`
	UserID string `env:"USER_ID" envDefault:"00000000-0000-0000-0000-000000000001"`
	Email  string `env:"EMAIL"   envDefault:"dev@example.com"`
	Role   string `env:"ROLE"    envDefault:"authenticated"`
}

// AuthConfig groups all identity verification configuration.
type AuthConfig struct {
	Mode AuthMode `env:"AUTH_MODE" envDefault:"jwt"`

	OIDC    OIDCConfig    `envPrefix:"OIDC_"`
	JWT     JWTConfig     `envPrefix:"JWT_"`
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// WorkerToken, when set, must be presented as a bearer credential on the worker endpoint.
	WorkerToken string `env:"WORKER_TOKEN"`
}
