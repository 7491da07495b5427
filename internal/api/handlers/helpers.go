package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/promptdeck/promptdeck/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeServiceError maps classified service errors onto HTTP statuses.
// Unclassified errors are logged and reported as a bare 500 so internal
// detail never leaks to clients.
func writeServiceError(w http.ResponseWriter, err error) {
	status := apperr.Status(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("unhandled service error", "error", err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
