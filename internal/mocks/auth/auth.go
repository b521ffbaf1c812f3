// Package auth contains simple hand-written test doubles for the identity port.
// These are lightweight and suitable for unit tests without codegen.
package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	domainauth "github.com/target/inferq/internal/domain/auth"
	apperrors "github.com/target/inferq/internal/errors"
	"github.com/target/inferq/internal/ports"
)

// Ensure compile-time conformance to ports.
var _ ports.IdentityVerifier = (*StaticVerifier)(nil)

// StaticVerifier accepts a fixed set of tokens, each mapped to an identity.
type StaticVerifier struct {
	VerifyFunc func(ctx context.Context, token string) (domainauth.Identity, error)

	mu     sync.Mutex
	tokens map[string]domainauth.Identity
	calls  int
}

// NewStaticVerifier creates a verifier with no known tokens.
func NewStaticVerifier() *StaticVerifier {
	return &StaticVerifier{tokens: make(map[string]domainauth.Identity)}
}

// Allow registers token for identity. A zero ExpiresAt is replaced with one hour from now.
func (v *StaticVerifier) Allow(token string, identity domainauth.Identity) *StaticVerifier {
	v.mu.Lock()
	defer v.mu.Unlock()
	if identity.ExpiresAt.IsZero() {
		identity.ExpiresAt = time.Now().Add(time.Hour)
	}
	if identity.Role == "" {
		identity.Role = domainauth.RoleAuthenticated
	}
	v.tokens[token] = identity
	return v
}

// Verify implements ports.IdentityVerifier.
func (v *StaticVerifier) Verify(ctx context.Context, token string) (domainauth.Identity, error) {
	if v.VerifyFunc != nil {
		return v.VerifyFunc(ctx, token)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++

	token = strings.TrimSpace(token)
	if token == "" {
		return domainauth.Identity{}, apperrors.Unauthorized("missing bearer token")
	}
	identity, ok := v.tokens[token]
	if !ok {
		return domainauth.Identity{}, apperrors.Unauthorized("invalid token")
	}
	return identity, nil
}

// Calls returns how many times Verify consulted the token table.
func (v *StaticVerifier) Calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}
