package handlers

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
)

// PositionStore persists the overlay offset shared by every video.
type PositionStore interface {
	LoadPosition(ctx context.Context) (x, y float64, err error)
	SavePosition(ctx context.Context, x, y float64) error
}

type PositionHandler struct {
	store PositionStore
}

func NewPositionHandler(st PositionStore) *PositionHandler {
	return &PositionHandler{store: st}
}

type positionBody struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	x, y, err := h.store.LoadPosition(r.Context())
	if err != nil {
		jsonError(w, "failed to get position", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]float64{"x": x, "y": y}, http.StatusOK)
}

func (h *PositionHandler) SavePosition(w http.ResponseWriter, r *http.Request) {
	var req positionBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.X == nil || req.Y == nil || !finite(*req.X) || !finite(*req.Y) {
		jsonError(w, "x and y must be numbers", http.StatusBadRequest)
		return
	}

	if err := h.store.SavePosition(r.Context(), *req.X, *req.Y); err != nil {
		jsonError(w, "failed to save position", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
