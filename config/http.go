package config

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// MaxConnections caps concurrently accepted connections. Zero disables the cap.
	MaxConnections int `env:"HTTP_MAX_CONNECTIONS" envDefault:"0"`

	// MaxBodyBytes bounds request bodies accepted by JSON handlers.
	MaxBodyBytes int64 `env:"HTTP_MAX_BODY_BYTES" envDefault:"1048576"`

	// CompressionEnabled enables gzip compression for JSON responses.
	CompressionEnabled bool `env:"HTTP_COMPRESSION_ENABLED" envDefault:"false"`

	// CompressionLevel is the gzip compression level (1-9).
	CompressionLevel int `env:"HTTP_COMPRESSION_LEVEL" envDefault:"6"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.CompressionLevel < 1 {
		h.CompressionLevel = 1
	}
	if h.CompressionLevel > 9 {
		h.CompressionLevel = 9
	}
	if h.MaxConnections < 0 {
		h.MaxConnections = 0
	}
	if h.MaxBodyBytes <= 0 {
		h.MaxBodyBytes = 1 << 20
	}
}
