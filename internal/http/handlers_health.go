package httpx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const healthResponse = `{"status":"ok"}`

// healthHandler returns a simple 200 OK status for liveness checks.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, healthResponse); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}

// ReadinessCheck is a named dependency probe such as a database ping.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

const readinessTimeout = 2 * time.Second

// readinessHandler runs every check and reports 503 when any fails.
func readinessHandler(checks []ReadinessCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[c.Name] = "unavailable"
				if logger != nil {
					logger.WarnContext(ctx, "readiness check failed", "check", c.Name, "error", err)
				}
				continue
			}
			results[c.Name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "unavailable"
		}
		WriteJSON(w, status, map[string]any{"status": overall, "checks": results})
	}
}
