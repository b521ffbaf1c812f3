package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIdentity_Valid(t *testing.T) {
	assert.True(t, Identity{UserID: "u1", Role: RoleAuthenticated}.Valid())
	assert.False(t, Identity{UserID: "  ", Role: RoleAuthenticated}.Valid())
	assert.False(t, Identity{UserID: "u1", Role: RoleAnon}.Valid())
}

func TestIdentity_Expired(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.False(t, Identity{}.Expired(now), "zero expiry never expires")
	assert.True(t, Identity{ExpiresAt: now.Add(-time.Second)}.Expired(now))
	assert.False(t, Identity{ExpiresAt: now.Add(time.Minute)}.Expired(now))
}
