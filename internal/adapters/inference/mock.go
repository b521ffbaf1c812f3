// Package inference implements ports.InferenceEngine backends.
package inference

import (
	"context"
	"time"

	"github.com/target/inferq/internal/ports"
)

var _ ports.InferenceEngine = (*Mock)(nil)

// Mock answers every prompt with a canned reply after an optional delay.
type Mock struct {
	delay time.Duration
}

// NewMock creates a mock engine. A positive delay simulates engine latency.
func NewMock(delay time.Duration) *Mock {
	return &Mock{delay: max(delay, 0)}
}

// Generate implements ports.InferenceEngine.
func (m *Mock) Generate(ctx context.Context, prompt string) (string, error) {
	if m.delay > 0 {
		timer := time.NewTimer(m.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return `This is a mocked AI response to: "` + prompt + `". I am running on the Edge!`, nil
}

// Name implements ports.InferenceEngine.
func (m *Mock) Name() string { return "mock" }
