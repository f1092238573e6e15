package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/yangguang01/vibesub/internal/command"
	"github.com/yangguang01/vibesub/internal/remote"
	"github.com/yangguang01/vibesub/internal/store"
	"github.com/yangguang01/vibesub/internal/subtitle"
	"github.com/yangguang01/vibesub/internal/task"
)

func jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeError maps engine errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var (
		parseErr  *subtitle.ParseError
		statusErr *remote.StatusError
	)
	switch {
	case errors.Is(err, remote.ErrUnauthorized):
		jsonResponse(w, map[string]interface{}{
			"error":        "session expired, please log in again",
			"need_relogin": true,
		}, http.StatusUnauthorized)
	case errors.Is(err, command.ErrUnknownCommand),
		errors.Is(err, task.ErrUnknownTask),
		errors.Is(err, store.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, command.ErrInvalidPayload),
		errors.Is(err, task.ErrInvalidRequest):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &parseErr):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &statusErr):
		jsonError(w, err.Error(), http.StatusBadGateway)
	default:
		log.Printf("[api] internal error: %v", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}
