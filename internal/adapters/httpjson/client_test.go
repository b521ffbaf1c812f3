package httpjson

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{ResultPath: "a"})
	require.Error(t, err)

	_, err = New(Config{Endpoint: "http://x"})
	require.Error(t, err)

	_, err = New(Config{Endpoint: "http://x", ResultPath: "a[?"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile result path")
}

func TestClient_Post(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hi there"}}],"data":[{"embedding":[0.5,1,2]}]}`))
	}))
	defer srv.Close()

	c, err := New(Config{Endpoint: srv.URL, APIKey: "k", ResultPath: "choices[0].message.content"})
	require.NoError(t, err)

	v, err := c.Post(context.Background(), map[string]string{"prompt": "hello"})
	require.NoError(t, err)
	s, err := String(v)
	require.NoError(t, err)
	assert.Equal(t, "hi there", s)
	assert.Equal(t, "Bearer k", gotAuth)
	assert.Equal(t, "hello", gotBody["prompt"])

	c, err = New(Config{Endpoint: srv.URL, ResultPath: "data[0].embedding"})
	require.NoError(t, err)
	v, err = c.Post(context.Background(), nil)
	require.NoError(t, err)
	vec, err := Float32s(v)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 1, 2}, vec)

	c, err = New(Config{Endpoint: srv.URL, ResultPath: "missing.path"})
	require.NoError(t, err)
	_, err = c.Post(context.Background(), nil)
	require.Error(t, err)
}

func TestClient_Post_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := New(Config{Endpoint: srv.URL, ResultPath: "x"})
	require.NoError(t, err)

	_, err = c.Post(context.Background(), nil)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.Code)
	assert.Contains(t, statusErr.Body, "rate limited")
}

func TestClient_Post_HonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c, err := New(Config{Endpoint: srv.URL, ResultPath: "x"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Post(ctx, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConverters(t *testing.T) {
	_, err := String(3.0)
	require.Error(t, err)
	_, err = Float32s([]any{1.0, "x"})
	require.Error(t, err)
	_, err = Float32s("x")
	require.Error(t, err)
}
