// Package ports defines interfaces (hexagonal ports) for the external
// collaborators of the inference queue. Implementations live in internal/adapters;
// orchestration in internal/service.
package ports

import (
	"context"

	domainauth "github.com/target/inferq/internal/domain/auth"
)

// IdentityVerifier validates a bearer credential and returns the caller.
// Implementations return an error wrapping errors.ErrCodeUnauthorized for
// missing, malformed, expired or otherwise invalid credentials.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (domainauth.Identity, error)
}
