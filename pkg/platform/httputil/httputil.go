// Package httputil holds the JSON response helpers shared by every HTTP
// handler. Handlers never write status codes or error bodies by hand.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "atrium/pkg/domain-errors"
)

// WriteJSON serializes payload with the given status. Encoding failures are
// swallowed: by then the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// WriteError maps a domain error onto an HTTP status and a stable error body.
// Internal errors omit the description so store/database details never reach
// clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)

	body := map[string]string{"error": errorToken(code)}
	if status < http.StatusInternalServerError {
		body["error_description"] = dErrors.MessageOf(err)
	}
	WriteJSON(w, status, body)
}

// WriteRetryAfter is WriteError plus a Retry-After header, used by the rate
// limiting middleware.
func WriteRetryAfter(w http.ResponseWriter, seconds string) {
	w.Header().Set("Retry-After", seconds)
	WriteJSON(w, http.StatusTooManyRequests, map[string]string{
		"error":             "rate_limited",
		"error_description": "too many requests",
	})
}

func errorToken(code dErrors.Code) string {
	if code == dErrors.CodeInternal {
		return "internal_error"
	}
	return string(code)
}
