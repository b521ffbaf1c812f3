package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	domainauth "github.com/target/inferq/internal/domain/auth"
)

// Authenticator resolves a bearer credential into a verified caller.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domainauth.Identity, error)
}

// WorkerAuthorizer admits worker invocations.
type WorkerAuthorizer interface {
	AuthorizeWorker(ctx context.Context, token string) error
}

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *respWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler { //nolint:errorlint // sentinel re-panicked as-is
						panic(err)
					}
					logger.ErrorContext(r.Context(), "panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					WriteError(w, ErrorParams{
						Code:    http.StatusInternalServerError,
						ErrCode: "internal_error",
						Err:     errors.New("internal server error"),
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// LimitBody caps request bodies at n bytes.
func LimitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if n > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth returns a middleware that requires a verified bearer credential.
// The caller identity is stored in the request context.
func RequireAuth(auth Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := auth.Authenticate(r.Context(), bearerToken(r))
			if err != nil {
				WriteServiceError(w, r, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(SetIdentityInContext(r.Context(), identity)))
		})
	}
}

// RequireWorker returns a middleware that admits only authorised worker invocations.
func RequireWorker(auth WorkerAuthorizer, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := auth.AuthorizeWorker(r.Context(), bearerToken(r)); err != nil {
				WriteServiceError(w, r, logger, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
