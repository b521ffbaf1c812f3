package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/target/inferq/internal/domain/auth"
)

// AuthHandlers exposes the identity check to clients.
type AuthHandlers struct {
	Svc    Authenticator
	Logger *slog.Logger
}

type verifyResponse struct {
	Valid bool                 `json:"valid"`
	User  *domainauth.Identity `json:"user,omitempty"`
	Error string               `json:"error,omitempty"`
}

// Verify handles POST /api/auth/verify.
func (h *AuthHandlers) Verify(w http.ResponseWriter, r *http.Request) {
	identity, err := h.Svc.Authenticate(r.Context(), bearerToken(r))
	if err != nil {
		if h.Logger != nil {
			h.Logger.DebugContext(r.Context(), "identity check rejected", "error", err)
		}
		WriteJSON(w, http.StatusUnauthorized, verifyResponse{Valid: false, Error: err.Error()})
		return
	}
	WriteJSON(w, http.StatusOK, verifyResponse{Valid: true, User: &identity})
}
