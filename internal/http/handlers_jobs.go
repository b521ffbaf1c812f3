// Package httpx provides the HTTP API for the inference job queue.
package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	domainauth "github.com/target/inferq/internal/domain/auth"
	"github.com/target/inferq/internal/domain/model"
)

// JobReader looks up a job on behalf of its owner.
type JobReader interface {
	GetForUser(ctx context.Context, id, userID string) (*model.InferenceJob, error)
}

// ConversationReader lists a caller's messages in one conversation.
type ConversationReader interface {
	ListMessages(ctx context.Context, caller domainauth.Identity, conversationID string, limit int) ([]*model.Message, error)
}

// JobHandlers provides HTTP handlers for job and conversation reads.
type JobHandlers struct {
	Jobs          JobReader
	Conversations ConversationReader
	Logger        *slog.Logger
}

// GetJob handles GET /api/jobs/{id}.
func (h *JobHandlers) GetJob(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())

	job, err := h.Jobs.GetForUser(r.Context(), chi.URLParam(r, "id"), caller.UserID)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

const defaultMessageLimit = 100

// ListMessages handles GET /api/conversations/{id}/messages.
func (h *JobHandlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())
	limit := parseIntQuery(r, "limit", defaultMessageLimit)

	msgs, err := h.Conversations.ListMessages(r.Context(), caller, chi.URLParam(r, "id"), limit)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	if msgs == nil {
		msgs = []*model.Message{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}
