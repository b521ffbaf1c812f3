// Package identity implements ports.IdentityVerifier for OIDC ID tokens, shared-secret JWTs,
// and a fixed development token.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	domainauth "github.com/target/inferq/internal/domain/auth"
	apperrors "github.com/target/inferq/internal/errors"
	"github.com/target/inferq/internal/ports"
	"golang.org/x/oauth2"
)

var _ ports.IdentityVerifier = (*OIDCVerifier)(nil)

// OIDCConfig holds configuration for the OIDC verifier.
type OIDCConfig struct {
	ClientID     string
	DiscoveryURL string
	// RoleClaim names the claim carrying the caller's role. Default "role".
	RoleClaim  string
	HTTPClient *http.Client // Optional, defaults to a client with a 30s timeout
}

// OIDCVerifier validates ID tokens issued by a discovered OIDC provider.
type OIDCVerifier struct {
	verifier  *gooidc.IDTokenVerifier
	roleClaim string
}

// NewOIDCVerifier fetches the discovery document and prepares a verifier for ClientID.
func NewOIDCVerifier(ctx context.Context, cfg OIDCConfig) (*OIDCVerifier, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	// The key set captures this client for later JWKS refreshes.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	issuer := strings.TrimSuffix(cfg.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	roleClaim := strings.TrimSpace(cfg.RoleClaim)
	if roleClaim == "" {
		roleClaim = "role"
	}
	return &OIDCVerifier{
		verifier:  op.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		roleClaim: roleClaim,
	}, nil
}

// Verify implements ports.IdentityVerifier.
func (v *OIDCVerifier) Verify(ctx context.Context, token string) (domainauth.Identity, error) {
	idTok, err := v.verifier.Verify(ctx, token)
	if err != nil {
		return domainauth.Identity{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "invalid id token")
	}

	var claims map[string]any
	if err := idTok.Claims(&claims); err != nil {
		return domainauth.Identity{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "parse id token claims")
	}

	return domainauth.Identity{
		UserID:    firstNonEmpty(stringClaim(claims, "sub"), stringClaim(claims, "samaccountname")),
		Email:     firstNonEmpty(stringClaim(claims, "email"), stringClaim(claims, "mail")),
		Role:      parseRole(stringClaim(claims, v.roleClaim)),
		ExpiresAt: idTok.Expiry,
	}, nil
}

func stringClaim(claims map[string]any, name string) string {
	s, _ := claims[name].(string)
	return strings.TrimSpace(s)
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseRole maps a provider role string onto a domain role; unknown or empty is authenticated.
func parseRole(s string) domainauth.Role {
	switch r := domainauth.Role(strings.ToLower(strings.TrimSpace(s))); r {
	case domainauth.RoleService, domainauth.RoleAnon:
		return r
	default:
		return domainauth.RoleAuthenticated
	}
}
