package inference

import (
	"context"
	"fmt"
	"net/http"

	"github.com/target/inferq/internal/adapters/httpjson"
	"github.com/target/inferq/internal/ports"
)

var _ ports.InferenceEngine = (*HTTP)(nil)

// HTTPConfig configures an OpenAI-style chat completion backend.
type HTTPConfig struct {
	Endpoint     string
	APIKey       string
	Model        string
	SystemPrompt string
	// ResponsePath is a JMESPath expression selecting the reply text.
	ResponsePath string
	HTTPClient   *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model,omitempty"`
	Messages []chatMessage `json:"messages"`
}

// HTTP posts chat requests to a JSON endpoint.
type HTTP struct {
	client       *httpjson.Client
	model        string
	systemPrompt string
}

// NewHTTP creates an HTTP engine.
func NewHTTP(cfg HTTPConfig) (*HTTP, error) {
	client, err := httpjson.New(httpjson.Config{
		Endpoint:   cfg.Endpoint,
		APIKey:     cfg.APIKey,
		ResultPath: cfg.ResponsePath,
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("http inference engine: %w", err)
	}
	return &HTTP{client: client, model: cfg.Model, systemPrompt: cfg.SystemPrompt}, nil
}

// Generate implements ports.InferenceEngine.
func (h *HTTP) Generate(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{Model: h.model}
	if h.systemPrompt != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: h.systemPrompt})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: prompt})

	result, err := h.client.Post(ctx, req)
	if err != nil {
		return "", fmt.Errorf("http inference: %w", err)
	}
	reply, err := httpjson.String(result)
	if err != nil {
		return "", fmt.Errorf("http inference: %w", err)
	}
	return reply, nil
}

// Name implements ports.InferenceEngine.
func (h *HTTP) Name() string { return "http" }
