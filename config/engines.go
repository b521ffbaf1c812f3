package config

import (
	"fmt"
	"strings"
	"time"
)

// EngineProvider selects the backend of an inference or embedding engine.
type EngineProvider string

const (
	// ProviderMock returns deterministic local results without network calls.
	ProviderMock EngineProvider = "mock"
	// ProviderGemini calls Google Gemini via google.golang.org/genai.
	ProviderGemini EngineProvider = "gemini"
	// ProviderHTTP posts JSON to an arbitrary endpoint and extracts the result with JMESPath.
	ProviderHTTP EngineProvider = "http"
)

// UnmarshalText implements encoding.TextUnmarshaler for EngineProvider.
func (p *EngineProvider) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "mock", "gemini", "http":
		*p = EngineProvider(v)
		return nil
	default:
		return fmt.Errorf("invalid provider: %q (valid options: mock, gemini, http)", v)
	}
}

// InferenceConfig configures the text generation engine.
type InferenceConfig struct {
	Provider EngineProvider `env:"PROVIDER" envDefault:"mock"`
	Model    string         `env:"MODEL"    envDefault:"gemini-2.0-flash"`
	APIKey   string         `env:"API_KEY"`

	// SystemPrompt is prepended to every request when non-empty.
	SystemPrompt string `env:"SYSTEM_PROMPT"`

	// Endpoint and ResponsePath configure the http provider.
	Endpoint     string `env:"ENDPOINT"`
	ResponsePath string `env:"RESPONSE_PATH" envDefault:"choices[0].message.content"`

	// MockDelay simulates engine latency for the mock provider.
	MockDelay time.Duration `env:"MOCK_DELAY" envDefault:"0s"`
}

// Sanitize normalises inference configuration values.
func (c *InferenceConfig) Sanitize() {
	c.Model = strings.TrimSpace(c.Model)
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	c.ResponsePath = strings.TrimSpace(c.ResponsePath)
	if c.MockDelay < 0 {
		c.MockDelay = 0
	}
}

// StoredEmbeddingDimension is the width of the vector column in the embeddings table.
const StoredEmbeddingDimension = 1536

const (
	defaultEmbeddingDimension = StoredEmbeddingDimension
	defaultEmbeddingModel     = "mock-model-v1"
)

// EmbeddingConfig configures the embedding engine and the background embedding executor.
type EmbeddingConfig struct {
	Provider EngineProvider `env:"PROVIDER" envDefault:"mock"`
	Model    string         `env:"MODEL"    envDefault:"mock-model-v1"`
	APIKey   string         `env:"API_KEY"`

	// Dimension must equal StoredEmbeddingDimension.
	Dimension int `env:"DIMENSION" envDefault:"1536"`

	Endpoint     string `env:"ENDPOINT"`
	ResponsePath string `env:"RESPONSE_PATH" envDefault:"data[0].embedding"`

	// Timeout bounds a single embedding engine call.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"15s"`

	// Concurrency bounds background embedding tasks in flight.
	Concurrency int `env:"CONCURRENCY" envDefault:"8"`

	// DedupeTTL is how long a content hash is remembered in Redis to skip recomputation.
	DedupeTTL time.Duration `env:"DEDUPE_TTL" envDefault:"24h"`
}

// Sanitize normalises embedding configuration values.
func (c *EmbeddingConfig) Sanitize() {
	if c.Model = strings.TrimSpace(c.Model); c.Model == "" {
		c.Model = defaultEmbeddingModel
	}
	if c.Dimension <= 0 {
		c.Dimension = defaultEmbeddingDimension
	}
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	c.ResponsePath = strings.TrimSpace(c.ResponsePath)
	if c.Timeout < time.Second {
		c.Timeout = time.Second
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.DedupeTTL < 0 {
		c.DedupeTTL = 0
	}
}
