package httpx

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveCompressed(t *testing.T, method, acceptEncoding string, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/", nil)
	if acceptEncoding != "" {
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}
	rec := httptest.NewRecorder()
	Compression(CompressionConfig{Level: 6})(h).ServeHTTP(rec, req)
	return rec
}

func writeBody(contentType string, status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		if body != "" {
			_, _ = io.WriteString(w, body)
		}
	}
}

func TestCompression_JSONRoundTrip(t *testing.T) {
	payload := `{"message":"` + strings.Repeat("hello ", 500) + `"}`
	rec := serveCompressed(t, http.MethodGet, "gzip, deflate", writeBody("application/json", http.StatusOK, payload))

	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	assert.Equal(t, "Accept-Encoding", rec.Header().Get("Vary"))
	assert.Empty(t, rec.Header().Get("Content-Length"))

	gr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	defer gr.Close()
	got, err := io.ReadAll(gr)
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))
}

func TestCompression_Skips(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		acceptEncoding string
		handler        http.HandlerFunc
	}{
		{"client does not accept gzip", http.MethodGet, "deflate", writeBody("application/json", 200, "{}")},
		{"no accept-encoding", http.MethodGet, "", writeBody("application/json", 200, "{}")},
		{"gzip disabled with q=0", http.MethodGet, "gzip;q=0", writeBody("application/json", 200, "{}")},
		{"head request", http.MethodHead, "gzip", writeBody("application/json", 200, "")},
		{"no content", http.MethodGet, "gzip", writeBody("", http.StatusNoContent, "")},
		{"not modified", http.MethodGet, "gzip", writeBody("", http.StatusNotModified, "")},
		{"binary content", http.MethodGet, "gzip", writeBody("image/png", 200, "png")},
		{"already encoded", http.MethodGet, "gzip", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Content-Encoding", "br")
			w.WriteHeader(200)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveCompressed(t, tt.method, tt.acceptEncoding, tt.handler)
			assert.NotEqual(t, "gzip", rec.Header().Get("Content-Encoding"))
		})
	}
}

func TestCompression_ErrorStatusesAreCompressed(t *testing.T) {
	rec := serveCompressed(t, http.MethodGet, "gzip", writeBody("application/json; charset=utf-8", http.StatusNotFound, `{"error":"not_found"}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
}

func TestAcceptsGzip(t *testing.T) {
	tests := map[string]bool{
		"gzip":          true,
		"gzip;q=1":      true,
		"gzip;q=0.5":    true,
		"deflate, gzip": true,
		"GZIP":          true,
		"gzip;q=0":      false,
		"gzip; q=0.0":   false,
		"deflate":       false,
		"x-gzip":        false,
		"":              false,
	}
	for header, want := range tests {
		assert.Equal(t, want, acceptsGzip(header), header)
	}
}
