package httpx

import (
	"context"
	"log/slog"
	"net/http"

	domainauth "github.com/target/inferq/internal/domain/auth"
	"github.com/target/inferq/internal/domain/model"
)

// Embedder generates embeddings and runs similarity searches.
type Embedder interface {
	Embed(ctx context.Context, caller domainauth.Identity, req model.EmbedRequest) (*model.EmbedResult, error)
	Search(ctx context.Context, caller domainauth.Identity, req model.SearchRequest) ([]*model.SimilarMessage, error)
}

// EmbeddingHandlers serves the embedding endpoints.
type EmbeddingHandlers struct {
	Svc    Embedder
	Logger *slog.Logger
}

type embedResponse struct {
	Success bool `json:"success"`
	*model.EmbedResult
}

// Embed handles POST /api/embeddings.
func (h *EmbeddingHandlers) Embed(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())

	var req model.EmbedRequest
	if !DecodeOptionalJSON(w, r, &req) {
		return
	}

	res, err := h.Svc.Embed(r.Context(), caller, req)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, embedResponse{Success: true, EmbedResult: res})
}

// Search handles POST /api/embeddings/search.
func (h *EmbeddingHandlers) Search(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())

	var req model.SearchRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	hits, err := h.Svc.Search(r.Context(), caller, req)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	if hits == nil {
		hits = []*model.SimilarMessage{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"results": hits})
}
