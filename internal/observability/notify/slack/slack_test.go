package slack

import (
	"context"
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

func TestFormatMessageIncludesFields(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{
		WebhookURL: "https://hooks.slack.com/services/test",
		Channel:    "#alerts",
		Username:   "bot",
		Timeout:    time.Second,
	})
	require.NoError(t, err)

	msg := client.formatMessage(notify.JobFailurePayload{
		JobID:          "123",
		ConversationID: "conv-1",
		MessageID:      "msg-1",
		Error:          "engine <boom>",
		ErrorClass:     "timeout",
		RetryCount:     1,
		MaxRetries:     1,
		Metadata:       map[string]string{"provider": "mock"},
	})

	assert.Equal(t, "bot", msg["username"])
	assert.Equal(t, "#alerts", msg["channel"])

	text, ok := msg["text"].(string)
	require.True(t, ok)
	for _, want := range []string{"Inference job failed", "`123`", "conv-1", "msg-1", "engine &lt;boom&gt;", "timeout", "1/1 retries", "provider: mock"} {
		assert.Contains(t, text, want)
	}
}

func TestFormatMessageJobLink(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{
		WebhookURL:   "https://hooks.slack.com/services/test",
		JobURLPrefix: "https://inferq.local/api/jobs",
	})
	require.NoError(t, err)

	text, _ := client.formatMessage(notify.JobFailurePayload{JobID: "abc"})["text"].(string)
	assert.Contains(t, text, "<https://inferq.local/api/jobs/abc|abc>")

	bad, err := NewClient(Config{WebhookURL: "https://hooks", JobURLPrefix: "not a url"})
	require.NoError(t, err)
	text, _ = bad.formatMessage(notify.JobFailurePayload{JobID: "abc"})["text"].(string)
	assert.Contains(t, text, "`abc`")
}

func TestSendJobFailureSurfacesErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("invalid_token"))
	}))
	defer srv.Close()

	client, err := NewClient(Config{WebhookURL: srv.URL})
	require.NoError(t, err)

	err = client.SendJobFailure(context.Background(), notify.JobFailurePayload{JobID: "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_token")
	assert.Contains(t, err.Error(), "403")
}
