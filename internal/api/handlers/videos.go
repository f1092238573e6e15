package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yangguang01/vibesub/internal/store"
	"github.com/yangguang01/vibesub/internal/subtitle"
)

// VideoStore is the per-video slice of the store the handlers read.
type VideoStore interface {
	TaskState(ctx context.Context, videoID string) (*store.TaskState, error)
	Subtitle(ctx context.Context, videoID string) (string, error)
	Strategies(ctx context.Context, videoID string) (*store.Strategies, bool, error)
	ForgetVideo(ctx context.Context, videoID string) error
}

type VideoHandler struct {
	store VideoStore
}

func NewVideoHandler(st VideoStore) *VideoHandler {
	return &VideoHandler{store: st}
}

// GetVideo returns the persisted task state and strategies of a video, the
// data the popup restores when it is reopened.
func (h *VideoHandler) GetVideo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")

	state, err := h.store.TaskState(r.Context(), videoID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := map[string]interface{}{
		"video_id":   videoID,
		"task":       state,
		"strategies": []string{},
	}
	st, has, err := h.store.Strategies(r.Context(), videoID)
	if err != nil {
		writeError(w, err)
		return
	}
	if has {
		resp["strategies"] = st.Strategies
	}
	_, err = h.store.Subtitle(r.Context(), videoID)
	resp["has_subtitle"] = err == nil

	jsonResponse(w, resp, http.StatusOK)
}

// DeleteVideo forgets everything stored for a video.
func (h *VideoHandler) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	if err := h.store.ForgetVideo(r.Context(), videoID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeSubtitle returns the stored SRT of a video, or WebVTT with
// format=vtt.
func (h *VideoHandler) ServeSubtitle(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")

	srt, err := h.store.Subtitle(r.Context(), videoID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "no subtitle stored for "+videoID, http.StatusNotFound)
			return
		}
		writeError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	switch r.URL.Query().Get("format") {
	case "", "srt":
		w.Header().Set("Content-Type", "application/x-subrip; charset=utf-8")
		w.Write([]byte(srt))
	case "vtt":
		cues, errs := subtitle.ParseLenient(srt)
		if len(cues) == 0 && len(errs) > 0 {
			writeError(w, errs[0])
			return
		}
		w.Header().Set("Content-Type", "text/vtt; charset=utf-8")
		w.Write([]byte(subtitle.ToVTT(cues)))
	default:
		jsonError(w, "unsupported format, use srt or vtt", http.StatusBadRequest)
	}
}
