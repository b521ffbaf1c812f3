package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/target/inferq/internal/adapters/httpjson"
	"github.com/target/inferq/internal/ports"
)

var _ ports.EmbeddingEngine = (*HTTP)(nil)

// HTTPConfig configures an OpenAI-style embeddings backend.
type HTTPConfig struct {
	Endpoint  string
	APIKey    string
	Model     string
	Dimension int
	// ResponsePath is a JMESPath expression selecting the vector.
	ResponsePath string
	HTTPClient   *http.Client
}

type embedRequest struct {
	Model      string `json:"model,omitempty"`
	Input      string `json:"input"`
	Dimensions int    `json:"dimensions,omitempty"`
}

// HTTP posts embedding requests to a JSON endpoint.
type HTTP struct {
	client    *httpjson.Client
	model     string
	dimension int
}

// NewHTTP creates an HTTP embedding engine.
func NewHTTP(cfg HTTPConfig) (*HTTP, error) {
	if cfg.Dimension <= 0 {
		return nil, errors.New("http embedding engine: dimension must be positive")
	}
	client, err := httpjson.New(httpjson.Config{
		Endpoint:   cfg.Endpoint,
		APIKey:     cfg.APIKey,
		ResultPath: cfg.ResponsePath,
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("http embedding engine: %w", err)
	}
	return &HTTP{client: client, model: cfg.Model, dimension: cfg.Dimension}, nil
}

// Embed implements ports.EmbeddingEngine.
func (h *HTTP) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := h.client.Post(ctx, embedRequest{Model: h.model, Input: text, Dimensions: h.dimension})
	if err != nil {
		return nil, fmt.Errorf("http embed: %w", err)
	}
	vec, err := httpjson.Float32s(result)
	if err != nil {
		return nil, fmt.Errorf("http embed: %w", err)
	}
	return vec, nil
}

// Model implements ports.EmbeddingEngine.
func (h *HTTP) Model() string { return h.model }

// Dimension implements ports.EmbeddingEngine.
func (h *HTTP) Dimension() int { return h.dimension }
