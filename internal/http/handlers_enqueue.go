package httpx

import (
	"context"
	"log/slog"
	"net/http"

	domainauth "github.com/target/inferq/internal/domain/auth"
	"github.com/target/inferq/internal/domain/model"
)

// Enqueuer persists a user message and its queued job.
type Enqueuer interface {
	Enqueue(ctx context.Context, caller domainauth.Identity, req model.EnqueueRequest) (*model.EnqueueResult, error)
}

// EnqueueHandlers serves the enqueue endpoint.
type EnqueueHandlers struct {
	Svc    Enqueuer
	Logger *slog.Logger
}

type enqueueResponse struct {
	Success bool `json:"success"`
	*model.EnqueueResult
}

// Enqueue handles POST /api/enqueue.
func (h *EnqueueHandlers) Enqueue(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())

	var req model.EnqueueRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	res, err := h.Svc.Enqueue(r.Context(), caller, req)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, enqueueResponse{Success: true, EnqueueResult: res})
}
