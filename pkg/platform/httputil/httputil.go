// Package httputil renders JSON responses for the orchestrator-facing handlers.
package httputil

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	dErrors "kbv/pkg/domain-errors"
	"kbv/pkg/platform/stepresult"
)

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteFailure renders err in the orchestrator failure shape.
func WriteFailure(w http.ResponseWriter, component string, err error) {
	WriteJSON(w, StatusFor(err), stepresult.FromError(component, err))
}

// StatusFor maps the domain error code of err to an HTTP status.
func StatusFor(err error) int {
	return StatusForCode(dErrors.CodeOf(err))
}

// StatusForCode maps a domain error code to an HTTP status.
func StatusForCode(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeStateConflict:
		return http.StatusConflict
	case dErrors.CodeDependency, dErrors.CodeUnauthorized, dErrors.CodeNotFound:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON decodes the request body into T, writing a validation failure on error.
// A request without a Content-Type is read as JSON; any other media type is rejected.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, component string) (*T, bool) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			if logger != nil {
				logger.WarnContext(r.Context(), "unsupported request content type", "content_type", ct)
			}
			WriteFailure(w, component, dErrors.New(dErrors.CodeValidation, "content type must be application/json"))
			return nil, false
		}
	}

	var req T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if logger != nil {
			logger.WarnContext(r.Context(), "failed to decode request body", "error", err)
		}
		WriteFailure(w, component, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return nil, false
	}
	return &req, true
}

// SessionHeader names the session a step runs against.
const SessionHeader = "session-id"

// SessionID returns the trimmed session header value.
func SessionID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(SessionHeader))
}

// BearerToken returns the credential from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) < len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}
