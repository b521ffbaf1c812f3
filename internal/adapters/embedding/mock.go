// Package embedding implements ports.EmbeddingEngine backends.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"

	"github.com/target/inferq/internal/ports"
)

var _ ports.EmbeddingEngine = (*Mock)(nil)

// Mock produces a pseudo-random vector seeded by the text, so equal text yields equal vectors.
type Mock struct {
	model     string
	dimension int
}

// NewMock creates a mock engine.
func NewMock(model string, dimension int) *Mock {
	return &Mock{model: model, dimension: dimension}
}

// Embed implements ports.EmbeddingEngine.
func (m *Mock) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sum := sha256.Sum256([]byte(text))
	rng := rand.New(rand.NewPCG(binary.LittleEndian.Uint64(sum[:8]), binary.LittleEndian.Uint64(sum[8:16])))

	vec := make([]float32, m.dimension)
	for i := range vec {
		vec[i] = rng.Float32()
	}
	return vec, nil
}

// Model implements ports.EmbeddingEngine.
func (m *Mock) Model() string { return m.model }

// Dimension implements ports.EmbeddingEngine.
func (m *Mock) Dimension() int { return m.dimension }
