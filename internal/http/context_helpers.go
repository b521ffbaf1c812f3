package httpx

import (
	"context"

	domainauth "github.com/target/inferq/internal/domain/auth"
)

// identityKey is an unexported context key type to avoid collisions across packages.
type identityKey struct{}

// SetIdentityInContext returns a child context that carries the verified caller.
func SetIdentityInContext(ctx context.Context, identity domainauth.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the verified caller and whether one was set.
func IdentityFromContext(ctx context.Context) (domainauth.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(domainauth.Identity)
	return identity, ok
}
