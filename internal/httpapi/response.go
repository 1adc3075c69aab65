package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/geomesh/proximity/internal/middleware"
)

// envelope is the shape every JSON response shares.
type envelope struct {
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Fields    interface{} `json:"fields,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// RespondJSON writes data as the success envelope at status.
func RespondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	writeEnvelope(w, r, status, envelope{Data: data})
}

// RespondBadRequest writes a 400 with message.
func RespondBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, http.StatusBadRequest, "bad_request", message)
}

// RespondValidationError writes a 422 with message and structured
// per-field errors.
func RespondValidationError(w http.ResponseWriter, r *http.Request, message string, fields interface{}) {
	writeEnvelope(w, r, http.StatusUnprocessableEntity, envelope{
		Error: "validation_failed", Message: message, Fields: fields,
	})
}

// RespondUnauthorized writes a 401 (AuthFailed / TokenExpired).
func RespondUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, http.StatusUnauthorized, "unauthorized", message)
}

// RespondForbidden writes a 403.
func RespondForbidden(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, http.StatusForbidden, "forbidden", message)
}

// RespondNotFound writes a 404.
func RespondNotFound(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, http.StatusNotFound, "not_found", message)
}

// RespondInternalError writes a 500 and logs the underlying message
// server-side only (never echoed to the caller).
func RespondInternalError(w http.ResponseWriter, r *http.Request, message string) {
	slog.Error("internal error", "path", r.URL.Path, "message", message, "request_id", middleware.GetRequestID(r.Context()))
	writeError(w, r, http.StatusInternalServerError, "internal_error", "an internal error occurred")
}

// RespondServiceUnavailable writes a 503.
func RespondServiceUnavailable(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, http.StatusServiceUnavailable, "service_unavailable", message)
}

// RespondRateLimitError writes a 429 with a Retry-After header.
func RespondRateLimitError(w http.ResponseWriter, r *http.Request, message string, retryAfterSeconds int) {
	if retryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	writeError(w, r, http.StatusTooManyRequests, "rate_limit_exceeded", message)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, errCode, message string) {
	writeEnvelope(w, r, status, envelope{Error: errCode, Message: message})
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, env envelope) {
	env.RequestID = middleware.GetRequestID(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
