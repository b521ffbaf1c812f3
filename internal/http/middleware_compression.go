package httpx

import (
	"bufio"
	"compress/gzip"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
)

// CompressionConfig holds configuration for the compression middleware.
type CompressionConfig struct {
	Level  int // Compression level (1-9, where 6 is default)
	Logger *slog.Logger
}

//nolint:gochecknoglobals // static read-only lookup
var compressibleTypes = map[string]bool{
	"application/json":         true,
	"application/problem+json": true,
	"text/plain":               true,
	"text/html":                true,
	"text/css":                 true,
	"application/javascript":   true,
	"image/svg+xml":            true,
}

// Compression returns a middleware that compresses HTTP responses using gzip.
// It compresses responses only when:
// - Client accepts gzip encoding (via Accept-Encoding header).
// - Content-Type is compressible (application/json, text/plain, etc.).
// - Response status is not 1xx, 204, or 304.
// - Request method is not HEAD.
func Compression(cfg CompressionConfig) func(http.Handler) http.Handler {
	level := cfg.Level
	if level < gzip.BestSpeed || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pool := &sync.Pool{New: func() any {
		w, err := gzip.NewWriterLevel(io.Discard, level)
		if err != nil {
			return gzip.NewWriter(io.Discard)
		}
		return w
	}}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead || !acceptsGzip(r.Header.Get("Accept-Encoding")) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Add("Vary", "Accept-Encoding")
			gzw := &gzipResponseWriter{ResponseWriter: w, pool: pool}
			next.ServeHTTP(gzw, r)

			if gzw.gz != nil {
				if err := gzw.gz.Close(); err != nil {
					logger.ErrorContext(r.Context(), "closing gzip writer failed", "error", err)
				}
				gzw.gz.Reset(io.Discard)
				pool.Put(gzw.gz)
			}
		})
	}
}

// acceptsGzip checks if the client accepts gzip encoding, respecting q=0.
func acceptsGzip(acceptEncoding string) bool {
	for part := range strings.SplitSeq(acceptEncoding, ",") {
		encoding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(encoding), "gzip") {
			continue
		}
		q := strings.ReplaceAll(strings.TrimSpace(params), " ", "")
		return q != "q=0" && q != "q=0.0" && q != "q=0.00" && q != "q=0.000"
	}
	return false
}

func isCompressibleContentType(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return compressibleTypes[strings.TrimSpace(strings.ToLower(mediaType))]
}

// gzipResponseWriter decides at WriteHeader time whether to compress the body.
type gzipResponseWriter struct {
	http.ResponseWriter
	pool          *sync.Pool
	gz            *gzip.Writer
	headerWritten bool
}

func (w *gzipResponseWriter) WriteHeader(statusCode int) {
	if w.headerWritten {
		return
	}
	w.headerWritten = true

	h := w.Header()
	compress := statusCode >= http.StatusOK &&
		statusCode != http.StatusNoContent &&
		statusCode != http.StatusNotModified &&
		h.Get("Content-Encoding") == "" &&
		isCompressibleContentType(h.Get("Content-Type"))

	if compress {
		gz, ok := w.pool.Get().(*gzip.Writer)
		if !ok {
			gz = gzip.NewWriter(io.Discard)
		}
		gz.Reset(w.ResponseWriter)
		w.gz = gz
		h.Set("Content-Encoding", "gzip")
		h.Del("Content-Length")
	}

	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	if !w.headerWritten {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", http.DetectContentType(b))
		}
		w.WriteHeader(http.StatusOK)
	}
	if w.gz != nil {
		return w.gz.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

// Flush implements http.Flusher for streaming support.
func (w *gzipResponseWriter) Flush() {
	if w.gz != nil {
		_ = w.gz.Flush()
	}
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack implements http.Hijacker.
func (w *gzipResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := w.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, errors.New("http.Hijacker not supported")
}
