package identity

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	domainauth "github.com/target/inferq/internal/domain/auth"
	apperrors "github.com/target/inferq/internal/errors"
	"github.com/target/inferq/internal/ports"
)

var _ ports.IdentityVerifier = (*DevVerifier)(nil)

// DevConfig controls the fixed development identity.
type DevConfig struct {
	Token  string
	UserID string
	Email  string
	Role   string
	// SessionDuration sets the reported expiry; default 8h.
	SessionDuration time.Duration
}

// DevVerifier accepts a single configured token for local development.
type DevVerifier struct {
	token    []byte
	identity domainauth.Identity
	duration time.Duration
	now      func() time.Time
}

// NewDevVerifier constructs a dev verifier from DevConfig.
func NewDevVerifier(cfg DevConfig) (*DevVerifier, error) {
	if cfg.Token == "" {
		return nil, errors.New("dev auth: Token is required")
	}
	if cfg.UserID == "" {
		return nil, errors.New("dev auth: UserID is required")
	}
	dur := cfg.SessionDuration
	if dur <= 0 {
		dur = 8 * time.Hour
	}
	return &DevVerifier{
		token: []byte(cfg.Token),
		identity: domainauth.Identity{
			UserID: cfg.UserID,
			Email:  cfg.Email,
			Role:   parseRole(cfg.Role),
		},
		duration: dur,
		now:      time.Now,
	}, nil
}

// Verify implements ports.IdentityVerifier. Every accepted call gets a fresh expiry.
func (v *DevVerifier) Verify(_ context.Context, token string) (domainauth.Identity, error) {
	if subtle.ConstantTimeCompare([]byte(token), v.token) != 1 {
		return domainauth.Identity{}, apperrors.Unauthorized("invalid token")
	}
	id := v.identity
	id.ExpiresAt = v.now().Add(v.duration)
	return id, nil
}
