// Package httputil centralizes JSON response envelopes so every handler
// renders errors and payloads the same way.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "github.com/BlueCodeSystems/ecap-plus-pmp-sub000/pkg/domain-errors"
)

// WriteJSON renders v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders a coded error as a JSON error envelope. Internal errors
// omit the description so upstream details never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		if msg := dErrors.MessageOf(err); msg != "" {
			body["error_description"] = msg
		}
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}
