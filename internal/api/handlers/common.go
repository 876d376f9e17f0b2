// Package handlers implements the HTTP API. Every handler is a factory that
// closes over its dependencies and returns an http.HandlerFunc.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/pulsedash/pulsedash/internal/api/middleware"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func accountID(r *http.Request) string {
	return middleware.AccountID(r.Context())
}
