package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	domainauth "github.com/target/inferq/internal/domain/auth"
	apperrors "github.com/target/inferq/internal/errors"
	"github.com/target/inferq/internal/ports"
)

var _ ports.IdentityVerifier = (*JWTVerifier)(nil)

// JWTConfig configures HS256 bearer verification.
type JWTConfig struct {
	Secret string
	// Issuer and Audience are enforced when non-empty.
	Issuer   string
	Audience string
	Leeway   time.Duration
}

type bearerClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// JWTVerifier validates HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTVerifier creates a JWTVerifier.
func NewJWTVerifier(cfg JWTConfig) (*JWTVerifier, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}
	return &JWTVerifier{secret: []byte(cfg.Secret), parser: jwt.NewParser(opts...)}, nil
}

// Verify implements ports.IdentityVerifier.
func (v *JWTVerifier) Verify(_ context.Context, token string) (domainauth.Identity, error) {
	var claims bearerClaims
	_, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return domainauth.Identity{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "invalid token")
	}

	identity := domainauth.Identity{
		UserID: strings.TrimSpace(claims.Subject),
		Email:  strings.TrimSpace(claims.Email),
		Role:   parseRole(claims.Role),
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}
