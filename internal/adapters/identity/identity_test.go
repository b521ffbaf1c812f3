package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/inferq/internal/domain/auth"
	apperrors "github.com/target/inferq/internal/errors"
)

func TestParseRole(t *testing.T) {
	assert.Equal(t, domainauth.RoleService, parseRole(" SERVICE_ROLE "))
	assert.Equal(t, domainauth.RoleAnon, parseRole("anon"))
	assert.Equal(t, domainauth.RoleAuthenticated, parseRole(""))
	assert.Equal(t, domainauth.RoleAuthenticated, parseRole("admin"))
}

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestJWTVerifier(t *testing.T) {
	v, err := NewJWTVerifier(JWTConfig{Secret: "s3cret", Issuer: "https://auth.example.com", Audience: "authenticated"})
	require.NoError(t, err)
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	valid := jwt.MapClaims{
		"sub":   "user-1",
		"email": "u@example.com",
		"role":  "authenticated",
		"iss":   "https://auth.example.com",
		"aud":   "authenticated",
		"exp":   exp.Unix(),
	}

	id, err := v.Verify(context.Background(), signHS256(t, "s3cret", valid))
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)
	assert.Equal(t, "u@example.com", id.Email)
	assert.Equal(t, domainauth.RoleAuthenticated, id.Role)
	assert.True(t, exp.Equal(id.ExpiresAt))

	mutate := func(k string, val any) jwt.MapClaims {
		c := jwt.MapClaims{}
		for key, value := range valid {
			c[key] = value
		}
		if val == nil {
			delete(c, k)
		} else {
			c[k] = val
		}
		return c
	}

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", signHS256(t, "other", valid)},
		{"expired", signHS256(t, "s3cret", mutate("exp", time.Now().Add(-time.Hour).Unix()))},
		{"missing exp", signHS256(t, "s3cret", mutate("exp", nil))},
		{"wrong issuer", signHS256(t, "s3cret", mutate("iss", "https://evil.example.com"))},
		{"wrong audience", signHS256(t, "s3cret", mutate("aud", "anon"))},
		{"garbage", "not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.token)
			require.Error(t, err)
			assert.True(t, apperrors.IsUnauthorized(err))
		})
	}
}

func TestJWTVerifier_RejectsOtherAlgorithms(t *testing.T) {
	v, err := NewJWTVerifier(JWTConfig{Secret: "s3cret"})
	require.NoError(t, err)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), tok)
	require.Error(t, err)
}

func TestNewJWTVerifier_RequiresSecret(t *testing.T) {
	_, err := NewJWTVerifier(JWTConfig{})
	require.Error(t, err)
}

func TestDevVerifier(t *testing.T) {
	_, err := NewDevVerifier(DevConfig{UserID: "u"})
	require.Error(t, err)
	_, err = NewDevVerifier(DevConfig{Token: "t"})
	require.Error(t, err)

	v, err := NewDevVerifier(DevConfig{Token: "dev-token", UserID: "dev-user", Email: "dev@example.com"})
	require.NoError(t, err)
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return fixed }

	id, err := v.Verify(context.Background(), "dev-token")
	require.NoError(t, err)
	assert.Equal(t, domainauth.Identity{
		UserID:    "dev-user",
		Email:     "dev@example.com",
		Role:      domainauth.RoleAuthenticated,
		ExpiresAt: fixed.Add(8 * time.Hour),
	}, id)

	_, err = v.Verify(context.Background(), "nope")
	assert.True(t, apperrors.IsUnauthorized(err))
}

// oidcTestServer serves discovery and a JWKS for a single RSA key.
func oidcTestServer(t *testing.T, key *rsa.PrivateKey) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                                srv.URL,
			"authorization_endpoint":                srv.URL + "/auth",
			"token_endpoint":                        srv.URL + "/token",
			"jwks_uri":                              srv.URL + "/keys",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	mux.HandleFunc("/keys", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": "test-key",
				"alg": "RS256",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOIDCVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv := oidcTestServer(t, key)

	v, err := NewOIDCVerifier(context.Background(), OIDCConfig{
		ClientID:     "inferq",
		DiscoveryURL: srv.URL + "/.well-known/openid-configuration",
		RoleClaim:    "app_role",
	})
	require.NoError(t, err)

	sign := func(claims jwt.MapClaims) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		tok.Header["kid"] = "test-key"
		s, signErr := tok.SignedString(key)
		require.NoError(t, signErr)
		return s
	}

	id, err := v.Verify(context.Background(), sign(jwt.MapClaims{
		"iss":      srv.URL,
		"aud":      "inferq",
		"sub":      "user-7",
		"mail":     "seven@example.com",
		"app_role": "service_role",
		"iat":      time.Now().Unix(),
		"exp":      time.Now().Add(time.Hour).Unix(),
	}))
	require.NoError(t, err)
	assert.Equal(t, "user-7", id.UserID)
	assert.Equal(t, "seven@example.com", id.Email)
	assert.Equal(t, domainauth.RoleService, id.Role)
	assert.False(t, id.ExpiresAt.IsZero())

	_, err = v.Verify(context.Background(), sign(jwt.MapClaims{
		"iss": srv.URL,
		"aud": "someone-else",
		"sub": "user-7",
		"exp": time.Now().Add(time.Hour).Unix(),
	}))
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestNewOIDCVerifier_Validation(t *testing.T) {
	_, err := NewOIDCVerifier(context.Background(), OIDCConfig{DiscoveryURL: "http://example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client ID is required")

	_, err = NewOIDCVerifier(context.Background(), OIDCConfig{ClientID: "c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discovery URL is required")
}
