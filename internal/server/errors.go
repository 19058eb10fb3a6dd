package server

import (
	"net/http"

	"github.com/terraconstructs/hrconsole/internal/middleware"
)

// writeError renders err as {error, kind}; see apperr.HTTPStatus.
func writeError(w http.ResponseWriter, err error) {
	middleware.WriteError(w, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	middleware.WriteJSON(w, status, v)
}
