package statsd

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMetricName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" job/metric ":  "job_metric",
		"foo..bar":      "foo.bar",
		"bad:name|x":    "bad_name_x",
		".leading.dot.": "leading.dot",
	}
	for input, want := range tests {
		assert.Equal(t, want, normalizeMetricName(input), input)
	}
	assert.Equal(t, "inferq", sanitizePrefix("  .inferq. "))
}

func TestFormatTags(t *testing.T) {
	t.Parallel()

	global := map[string]string{"env": "prod", " service ": " inferq "}
	local := map[string]string{"result": " success ", "": "ignored", "env": "stage"}

	assert.Equal(t, "|#env:stage,result:success,service:inferq", formatTags(global, local))
	assert.Empty(t, formatTags(nil, nil))
}

func TestClientWritesLineProtocol(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	client, err := NewClient(Config{
		Enabled:    true,
		Address:    pc.LocalAddr().String(),
		Prefix:     "inferq",
		GlobalTags: map[string]string{"env": "test"},
	})
	require.NoError(t, err)
	defer client.Close()
	require.True(t, client.Enabled())

	read := func() string {
		buf := make([]byte, 512)
		require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
		n, _, readErr := pc.ReadFrom(buf)
		require.NoError(t, readErr)
		return string(buf[:n])
	}

	client.Count("job.transition", 1, map[string]string{"result": "success"})
	assert.Equal(t, "inferq.job.transition:1|c|#env:test,result:success", read())

	client.Timing("job.duration", 1500*time.Microsecond, nil)
	assert.Equal(t, "inferq.job.duration:1.5|ms|#env:test", read())

	client.Gauge("queue.depth", 3, nil)
	assert.Equal(t, "inferq.queue.depth:3|g|#env:test", read())
}

func TestClientDisabledAndClose(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{Enabled: true, Address: "   "})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	client.Count("ignored", 1, nil)
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
	nilClient.Count("x", 1, nil)
	require.NoError(t, nilClient.Close())
	assert.Zero(t, nilClient.FailedWrites())
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{Enabled: true, Address: "bad address"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statsd dial")
}
