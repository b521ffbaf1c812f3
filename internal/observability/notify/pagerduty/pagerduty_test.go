package pagerduty

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/inferq/internal/observability/notify"
)

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestBuildEventDefaults(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{RoutingKey: "key", Timeout: time.Second})
	require.NoError(t, err)

	event := client.buildEvent(notify.JobFailurePayload{
		JobID:      "123",
		MessageID:  "m-1",
		Error:      "boom",
		ErrorClass: "timeout",
		RetryCount: 2,
		MaxRetries: 2,
		Metadata:   map[string]string{"provider": "mock", "job_id": "ignored"},
	})

	assert.Equal(t, "trigger", event["event_action"])
	assert.Equal(t, "inference_job:123", event["dedup_key"])

	section, ok := event["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, notify.SeverityCritical, section["severity"])
	assert.Equal(t, "inferq", section["source"])
	assert.Equal(t, "inference-worker", section["component"])

	custom, ok := section["custom_details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "123", custom["job_id"])
	assert.Equal(t, "mock", custom["provider"])
	assert.Equal(t, 2, custom["retry_count"])
}

func TestSendJobFailureRetries(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["routing_key"] != "key" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client, err := NewClient(Config{RoutingKey: "key", RetryLimit: 1, Endpoint: srv.URL})
	require.NoError(t, err)

	require.NoError(t, client.SendJobFailure(context.Background(), notify.JobFailurePayload{JobID: "1"}))
	assert.Equal(t, 2, calls)
}
