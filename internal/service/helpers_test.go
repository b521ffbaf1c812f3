package service

import (
	"sync"
	"time"

	domainauth "github.com/target/inferq/internal/domain/auth"
	"github.com/target/inferq/internal/domain/model"
)

type capturedMetric struct {
	kind  string
	name  string
	value float64
	tags  map[string]string
}

// capturingSink records every emission for assertions.
type capturingSink struct {
	mu      sync.Mutex
	metrics []capturedMetric
}

func (s *capturingSink) record(kind, name string, value float64, tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, capturedMetric{kind: kind, name: name, value: value, tags: tags})
}

func (s *capturingSink) Count(name string, value int64, tags map[string]string) {
	s.record("count", name, float64(value), tags)
}

func (s *capturingSink) Gauge(name string, value float64, tags map[string]string) {
	s.record("gauge", name, value, tags)
}

func (s *capturingSink) Timing(name string, value time.Duration, tags map[string]string) {
	s.record("timing", name, value.Seconds(), tags)
}

func (s *capturingSink) find(name string) []capturedMetric {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []capturedMetric
	for _, m := range s.metrics {
		if m.name == name {
			out = append(out, m)
		}
	}
	return out
}

var testCaller = domainauth.Identity{
	UserID: "user-1",
	Email:  "user-1@example.com",
	Role:   domainauth.RoleAuthenticated,
}

func claimedJob(id, content string) *model.ClaimedJob {
	claimedAt := time.Now().Add(-time.Second)
	return &model.ClaimedJob{
		InferenceJob: model.InferenceJob{
			ID:         id,
			MessageID:  "msg-" + id,
			UserID:     testCaller.UserID,
			Status:     model.JobStatusProcessing,
			MaxRetries: 1,
			ClaimedAt:  &claimedAt,
			CreatedAt:  claimedAt.Add(-time.Second),
		},
		ConversationID: "11111111-1111-1111-1111-111111111111",
		Content:        content,
	}
}

func strPtr(s string) *string { return &s }
