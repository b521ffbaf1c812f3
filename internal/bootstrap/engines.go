package bootstrap

import (
	"context"
	"fmt"

	"github.com/target/inferq/config"
	"github.com/target/inferq/internal/adapters/embedding"
	"github.com/target/inferq/internal/adapters/inference"
	"github.com/target/inferq/internal/ports"
)

// BuildInferenceEngine returns the inference backend selected by INFERENCE_PROVIDER.
//
//nolint:ireturn // the engine implementation is chosen by configuration.
func BuildInferenceEngine(ctx context.Context, cfg config.InferenceConfig) (ports.InferenceEngine, error) {
	switch cfg.Provider {
	case config.ProviderMock, "":
		return inference.NewMock(cfg.MockDelay), nil
	case config.ProviderGemini:
		engine, err := inference.NewGemini(ctx, inference.GeminiConfig{
			APIKey:       cfg.APIKey,
			Model:        cfg.Model,
			SystemPrompt: cfg.SystemPrompt,
		})
		if err != nil {
			return nil, fmt.Errorf("build gemini inference engine: %w", err)
		}
		return engine, nil
	case config.ProviderHTTP:
		engine, err := inference.NewHTTP(inference.HTTPConfig{
			Endpoint:     cfg.Endpoint,
			APIKey:       cfg.APIKey,
			Model:        cfg.Model,
			SystemPrompt: cfg.SystemPrompt,
			ResponsePath: cfg.ResponsePath,
		})
		if err != nil {
			return nil, fmt.Errorf("build http inference engine: %w", err)
		}
		return engine, nil
	default:
		return nil, fmt.Errorf("unsupported inference provider %q", cfg.Provider)
	}
}

// BuildEmbeddingEngine returns the embedding backend selected by EMBEDDING_PROVIDER.
//
//nolint:ireturn // the engine implementation is chosen by configuration.
func BuildEmbeddingEngine(ctx context.Context, cfg config.EmbeddingConfig) (ports.EmbeddingEngine, error) {
	switch cfg.Provider {
	case config.ProviderMock, "":
		return embedding.NewMock(cfg.Model, cfg.Dimension), nil
	case config.ProviderGemini:
		engine, err := embedding.NewGemini(ctx, embedding.GeminiConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
		})
		if err != nil {
			return nil, fmt.Errorf("build gemini embedding engine: %w", err)
		}
		return engine, nil
	case config.ProviderHTTP:
		engine, err := embedding.NewHTTP(embedding.HTTPConfig{
			Endpoint:     cfg.Endpoint,
			APIKey:       cfg.APIKey,
			Model:        cfg.Model,
			Dimension:    cfg.Dimension,
			ResponsePath: cfg.ResponsePath,
		})
		if err != nil {
			return nil, fmt.Errorf("build http embedding engine: %w", err)
		}
		return engine, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.Provider)
	}
}
