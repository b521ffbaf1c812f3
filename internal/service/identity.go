package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	domainauth "github.com/target/inferq/internal/domain/auth"
	apperrors "github.com/target/inferq/internal/errors"
	"github.com/target/inferq/internal/ports"
)

// IdentityServiceOptions groups dependencies for IdentityService.
type IdentityServiceOptions struct {
	Verifier ports.IdentityVerifier // Required
	// WorkerToken, when set, is a static credential accepted on the worker endpoint.
	WorkerToken string
	Logger      *slog.Logger
}

// IdentityService turns bearer credentials into verified identities.
type IdentityService struct {
	verifier    ports.IdentityVerifier
	workerToken []byte
	logger      *slog.Logger
	now         func() time.Time
}

// NewIdentityService constructs a new IdentityService.
func NewIdentityService(opts IdentityServiceOptions) (*IdentityService, error) {
	if opts.Verifier == nil {
		return nil, errors.New("IdentityVerifier is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "identity_service")
	}

	var workerToken []byte
	if t := strings.TrimSpace(opts.WorkerToken); t != "" {
		workerToken = []byte(t)
	}

	return &IdentityService{
		verifier:    opts.Verifier,
		workerToken: workerToken,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// MustNewIdentityService constructs a new IdentityService and panics on error.
func MustNewIdentityService(opts IdentityServiceOptions) *IdentityService {
	svc, err := NewIdentityService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create IdentityService: %v", err))
	}
	return svc
}

// Authenticate verifies token and returns the caller. Every failure is Unauthorized.
func (s *IdentityService) Authenticate(ctx context.Context, token string) (domainauth.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domainauth.Identity{}, apperrors.Unauthorized("missing bearer token")
	}

	identity, err := s.verifier.Verify(ctx, token)
	if err != nil {
		if s.logger != nil {
			s.logger.DebugContext(ctx, "token verification failed", "error", err)
		}
		if apperrors.IsUnauthorized(err) {
			return domainauth.Identity{}, err
		}
		return domainauth.Identity{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "invalid token")
	}

	if !identity.Valid() {
		return domainauth.Identity{}, apperrors.Unauthorized("token does not identify a user")
	}
	if identity.Expired(s.now()) {
		return domainauth.Identity{}, apperrors.Unauthorized("token expired")
	}
	return identity, nil
}

// AuthorizeWorker admits a worker invocation. The configured worker token or any verified
// service-role identity is accepted. Without a worker token any verified caller is admitted.
func (s *IdentityService) AuthorizeWorker(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if len(s.workerToken) > 0 && subtle.ConstantTimeCompare([]byte(token), s.workerToken) == 1 {
		return nil
	}

	identity, err := s.Authenticate(ctx, token)
	if err != nil {
		return err
	}
	if len(s.workerToken) > 0 && identity.Role != domainauth.RoleService {
		return apperrors.Unauthorized("worker invocation requires the service role")
	}
	return nil
}
