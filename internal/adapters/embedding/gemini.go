package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/target/inferq/internal/ports"
	"google.golang.org/genai"
)

var _ ports.EmbeddingEngine = (*Gemini)(nil)

// GeminiConfig configures the Gemini embedding engine.
type GeminiConfig struct {
	APIKey     string
	Model      string
	Dimension  int
	BaseURL    string
	HTTPClient *http.Client
}

// Gemini embeds text with the Gemini API, truncating output to Dimension.
type Gemini struct {
	client    *genai.Client
	model     string
	dimension int
}

// NewGemini creates a Gemini embedding engine.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("gemini: model is required")
	}
	if cfg.Dimension <= 0 {
		return nil, errors.New("gemini: dimension must be positive")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: cfg.Model, dimension: cfg.Dimension}, nil
}

// Embed implements ports.EmbeddingEngine.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	dim := int32(g.dimension) //nolint:gosec // dimension is validated positive and small
	resp, err := g.client.Models.EmbedContent(ctx, g.model, genai.Text(text), &genai.EmbedContentConfig{
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, errors.New("gemini embed: no embeddings returned")
	}
	return resp.Embeddings[0].Values, nil
}

// Model implements ports.EmbeddingEngine.
func (g *Gemini) Model() string { return g.model }

// Dimension implements ports.EmbeddingEngine.
func (g *Gemini) Dimension() int { return g.dimension }
