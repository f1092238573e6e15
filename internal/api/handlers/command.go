package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yangguang01/vibesub/internal/command"
)

// Dispatcher runs a command decoded from its raw JSON payload.
type Dispatcher interface {
	Dispatch(ctx context.Context, kind command.Kind, raw json.RawMessage) (interface{}, error)
	Kinds() []command.Kind
}

type CommandHandler struct {
	dispatcher Dispatcher
}

func NewCommandHandler(d Dispatcher) *CommandHandler {
	return &CommandHandler{dispatcher: d}
}

// ListKinds returns the command kinds the daemon accepts.
func (h *CommandHandler) ListKinds(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]interface{}{"kinds": h.dispatcher.Kinds()}, http.StatusOK)
}

// Run dispatches POST /api/commands/{kind}. The body is the command payload.
func (h *CommandHandler) Run(w http.ResponseWriter, r *http.Request) {
	kind := command.Kind(chi.URLParam(r, "kind"))

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	resp, err := h.dispatcher.Dispatch(r.Context(), kind, raw)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, resp, http.StatusOK)
}
