package httpx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth          Authenticator
	Worker        WorkerAuthorizer
	Enqueue       Enqueuer
	Pipeline      WorkerRunner
	Embeddings    Embedder
	Jobs          JobReader
	Conversations ConversationReader

	// Optional
	Readiness      []ReadinessCheck
	Metrics        http.Handler
	MaxBodyBytes   int64
	Compression    bool
	CompressionLvl int
	Logger         *slog.Logger
}

// NewRouter creates and configures the API router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logging(logger))
	r.Use(Recover(logger))
	if services.Compression {
		r.Use(Compression(CompressionConfig{Level: services.CompressionLvl, Logger: logger}))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "message": "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{
			"error":   "method_not_allowed",
			"message": "method not allowed",
		})
	})

	r.Get("/healthz", healthHandler)
	r.Head("/healthz", healthHandler)
	r.Get("/readyz", readinessHandler(services.Readiness, logger))
	if services.Metrics != nil {
		r.Handle("/metrics", services.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(LimitBody(services.MaxBodyBytes))

		auth := &AuthHandlers{Svc: services.Auth, Logger: logger}
		r.Post("/auth/verify", auth.Verify)

		worker := &WorkerHandlers{Svc: services.Pipeline, Logger: logger}
		r.With(RequireWorker(services.Worker, logger)).Post("/worker/run", worker.Run)

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(services.Auth, logger))

			enqueue := &EnqueueHandlers{Svc: services.Enqueue, Logger: logger}
			r.Post("/enqueue", enqueue.Enqueue)

			emb := &EmbeddingHandlers{Svc: services.Embeddings, Logger: logger}
			r.Post("/embeddings", emb.Embed)
			r.Post("/embeddings/search", emb.Search)

			jobs := &JobHandlers{Jobs: services.Jobs, Conversations: services.Conversations, Logger: logger}
			r.Get("/jobs/{id}", jobs.GetJob)
			r.Get("/conversations/{id}/messages", jobs.ListMessages)
		})
	})

	return r
}
