package ports

import "context"

// InferenceEngine turns a prompt into a reply. Calls may take seconds; callers
// bound them with ctx.
type InferenceEngine interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// EmbeddingEngine turns text into a fixed-dimension vector.
type EmbeddingEngine interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
	Dimension() int
}
