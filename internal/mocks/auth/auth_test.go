package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/inferq/internal/domain/auth"
	apperrors "github.com/target/inferq/internal/errors"
)

func TestStaticVerifier_KnownToken(t *testing.T) {
	v := NewStaticVerifier().Allow("tok", domainauth.Identity{UserID: "u1", Email: "u1@example.com"})

	id, err := v.Verify(context.Background(), " tok ")
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)
	assert.Equal(t, domainauth.RoleAuthenticated, id.Role)
	assert.False(t, id.ExpiresAt.IsZero())
	assert.Equal(t, 1, v.Calls())
}

func TestStaticVerifier_Rejects(t *testing.T) {
	v := NewStaticVerifier()

	_, err := v.Verify(context.Background(), "")
	assert.True(t, apperrors.IsUnauthorized(err))

	_, err = v.Verify(context.Background(), "nope")
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestStaticVerifier_CustomFunc(t *testing.T) {
	boom := errors.New("boom")
	v := &StaticVerifier{
		VerifyFunc: func(context.Context, string) (domainauth.Identity, error) {
			return domainauth.Identity{}, boom
		},
	}

	_, err := v.Verify(context.Background(), "tok")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, v.Calls())
}
