package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	accessservice "creator-access-gate/internal/access/service"
	"creator-access-gate/internal/credential/domain"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the error body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse is returned by endpoints with nothing else to say.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// WriteJSON writes data as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// DecodeJSON decodes the request body into v. An empty body leaves v untouched and is not an
// error when allowEmpty is set. On failure it writes a 400 and returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	if r.Body == nil || r.Body == http.NoBody {
		if allowEmpty {
			return true
		}
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return true
		}
		WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// writeServiceError maps service errors to status codes. Invalid-input messages come from
// fixed strings in the domain and services and are returned as is; unauthorized carries the
// endpoint's generic message; anything unrecognised is logged and reported as a bare 500.
func writeServiceError(w http.ResponseWriter, logger zerolog.Logger, err error, unauthorized string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, accessservice.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, unauthorized)
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, "Not found")
	default:
		logger.Error().Err(err).Msg("request failed")
		WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
