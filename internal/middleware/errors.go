package middleware

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/terraconstructs/hrconsole/internal/apperr"
)

// ErrorBody is the JSON shape of every failed API response.
type ErrorBody struct {
	Error string      `json:"error"`
	Kind  apperr.Kind `json:"kind"`
}

// WriteError renders err as {error, kind} with the status of its Kind.
func WriteError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		log.Printf("ERROR: %v", err)
	}
	WriteJSON(w, status, ErrorBody{Error: err.Error(), Kind: kind})
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: encode response: %v", err)
	}
}
