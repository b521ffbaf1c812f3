package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/target/inferq/internal/ports"
	"google.golang.org/genai"
)

var _ ports.InferenceEngine = (*Gemini)(nil)

// GeminiConfig configures the Gemini engine.
type GeminiConfig struct {
	APIKey       string
	Model        string
	SystemPrompt string
	// BaseURL overrides the API endpoint; tests point it at a local server.
	BaseURL    string
	HTTPClient *http.Client
}

// Gemini generates replies with the Gemini API.
type Gemini struct {
	client       *genai.Client
	model        string
	systemPrompt string
}

// NewGemini creates a Gemini engine.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("gemini: model is required")
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
	return &Gemini{client: client, model: cfg.Model, systemPrompt: strings.TrimSpace(cfg.SystemPrompt)}, nil
}

// Generate implements ports.InferenceEngine.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	var cfg *genai.GenerateContentConfig
	if g.systemPrompt != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: g.systemPrompt}}},
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("gemini generate: no candidates returned")
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", errors.New("gemini generate: reply blocked by safety filters")
	}
	return resp.Text(), nil
}

// Name implements ports.InferenceEngine.
func (g *Gemini) Name() string { return "gemini" }
