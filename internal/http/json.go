package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	apperrors "github.com/target/inferq/internal/errors"
)

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decodeJSON(w, r, dst, false)
}

// DecodeOptionalJSON is DecodeJSON for endpoints whose body may be absent.
func DecodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decodeJSON(w, r, dst, true)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	if r.Body == nil {
		if allowEmpty {
			return true
		}
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: errors.New("request body is required")})
		return false
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return true
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, ErrorParams{
				Code:    http.StatusRequestEntityTooLarge,
				ErrCode: "body_too_large",
				Err:     fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit),
			})
			return false
		}
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": p.Err.Error()})
}

// WriteServiceError maps a service error onto a status code and error body.
// Internal errors are logged and their detail withheld from the caller.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code := statusForError(err)
	if status >= http.StatusInternalServerError {
		if logger != nil {
			logger.ErrorContext(r.Context(), "request failed",
				"method", r.Method,
				"path", r.URL.Path,
				"error", err,
			)
		}
		if status == http.StatusInternalServerError {
			err = errors.New("internal server error")
		}
	}

	body := map[string]string{"error": code, "message": err.Error()}
	if field := apperrors.GetField(err); field != "" {
		body["field"] = field
	}
	WriteJSON(w, status, body)
}

func statusForError(err error) (int, string) {
	switch {
	case apperrors.IsUnauthorized(err):
		return http.StatusUnauthorized, "unauthorized"
	case apperrors.IsValidation(err):
		return http.StatusBadRequest, "invalid_argument"
	case apperrors.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case apperrors.IsConflict(err):
		return http.StatusConflict, "conflict"
	case apperrors.IsTimeout(err):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
