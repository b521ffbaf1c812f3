package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/inferq/config"
)

func TestBuildInferenceEngine(t *testing.T) {
	ctx := context.Background()

	engine, err := BuildInferenceEngine(ctx, config.InferenceConfig{Provider: config.ProviderMock})
	require.NoError(t, err)
	assert.Equal(t, "mock", engine.Name())

	engine, err = BuildInferenceEngine(ctx, config.InferenceConfig{
		Provider:     config.ProviderHTTP,
		Endpoint:     "http://127.0.0.1:9/v1/chat/completions",
		ResponsePath: "choices[0].message.content",
	})
	require.NoError(t, err)
	assert.Equal(t, "http", engine.Name())

	_, err = BuildInferenceEngine(ctx, config.InferenceConfig{Provider: config.ProviderHTTP})
	require.Error(t, err)

	_, err = BuildInferenceEngine(ctx, config.InferenceConfig{Provider: config.ProviderGemini})
	require.Error(t, err)

	_, err = BuildInferenceEngine(ctx, config.InferenceConfig{Provider: "openai"})
	require.Error(t, err)
}

func TestBuildEmbeddingEngine(t *testing.T) {
	ctx := context.Background()

	engine, err := BuildEmbeddingEngine(ctx, config.EmbeddingConfig{
		Provider:  config.ProviderMock,
		Model:     "mock-model-v1",
		Dimension: 8,
	})
	require.NoError(t, err)
	assert.Equal(t, "mock-model-v1", engine.Model())
	assert.Equal(t, 8, engine.Dimension())

	_, err = BuildEmbeddingEngine(ctx, config.EmbeddingConfig{Provider: config.ProviderHTTP, Dimension: 8})
	require.Error(t, err)

	_, err = BuildEmbeddingEngine(ctx, config.EmbeddingConfig{Provider: "openai"})
	require.Error(t, err)
}
