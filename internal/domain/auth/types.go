// Package auth contains domain-level types for verified callers.
// It is pure and free of framework/adapter concerns.
package auth

import (
	"strings"
	"time"
)

// Role is the caller's role as asserted by the identity provider.
type Role string

const (
	// RoleAuthenticated is an ordinary signed-in user.
	RoleAuthenticated Role = "authenticated"
	// RoleService is a trusted backend caller (e.g., the worker trigger).
	RoleService Role = "service_role"
	// RoleAnon is an unauthenticated caller holding a public token.
	RoleAnon Role = "anon"
)

// Identity is the verified principal behind a bearer credential.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	UserID    string    `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"-"`
}

// Valid reports whether the identity carries a usable subject.
func (i Identity) Valid() bool {
	return strings.TrimSpace(i.UserID) != "" && i.Role != RoleAnon
}

// Expired reports whether the credential expiry has passed at now.
func (i Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}
