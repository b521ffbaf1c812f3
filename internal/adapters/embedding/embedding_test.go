package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMock_Embed(t *testing.T) {
	m := NewMock("mock-model-v1", 1536)
	a, err := m.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, a, 1536)

	again, err := m.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, a, again)

	other, err := m.Embed(context.Background(), "goodbye")
	require.NoError(t, err)
	assert.NotEqual(t, a, other)

	for _, v := range a {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.Less(t, v, float32(1))
	}
	assert.Equal(t, "mock-model-v1", m.Model())
	assert.Equal(t, 1536, m.Dimension())
}

func TestMock_Embed_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMock("m", 4).Embed(ctx, "x")
	require.ErrorIs(t, err, context.Canceled)
}

func TestHTTP_Embed(t *testing.T) {
	var got embedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer srv.Close()

	h, err := NewHTTP(HTTPConfig{
		Endpoint:     srv.URL,
		Model:        "text-embed",
		Dimension:    3,
		ResponsePath: "data[0].embedding",
	})
	require.NoError(t, err)

	vec, err := h.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, embedRequest{Model: "text-embed", Input: "hello", Dimensions: 3}, got)
}

func TestNewHTTP_Validation(t *testing.T) {
	_, err := NewHTTP(HTTPConfig{Endpoint: "http://x", ResponsePath: "a"})
	require.Error(t, err)
	_, err = NewHTTP(HTTPConfig{Dimension: 3, ResponsePath: "a"})
	require.Error(t, err)
}

func TestGemini_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embeddings":[{"values":[0.25,0.5]}]}`))
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), GeminiConfig{
		APIKey:    "k",
		Model:     "text-embedding-004",
		Dimension: 2,
		BaseURL:   srv.URL,
	})
	require.NoError(t, err)

	vec, err := g.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, 0.5}, vec)
	assert.Equal(t, 2, g.Dimension())
}

func TestNewGemini_Validation(t *testing.T) {
	_, err := NewGemini(context.Background(), GeminiConfig{Model: "m", Dimension: 1})
	require.Error(t, err)
	_, err = NewGemini(context.Background(), GeminiConfig{APIKey: "k", Model: "m"})
	require.Error(t, err)
}
