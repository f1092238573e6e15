package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/yangguang01/vibesub/internal/task"
)

const heartbeatInterval = 25 * time.Second

// Subscriber hands out event subscriptions.
type Subscriber interface {
	Subscribe(buffer int) (<-chan task.Event, func())
}

type EventsHandler struct {
	hub       Subscriber
	heartbeat time.Duration
}

func NewEventsHandler(hub Subscriber) *EventsHandler {
	return &EventsHandler{hub: hub, heartbeat: heartbeatInterval}
}

// Stream serves task events as Server-Sent Events. An optional video_id
// query parameter restricts the stream to one video.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	videoID := r.URL.Query().Get("video_id")

	events, cancel := h.hub.Subscribe(32)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			if videoID != "" && ev.VideoID != videoID {
				continue
			}
			data, err := json.Marshal(ev)
			if err != nil {
				log.Printf("[api] encode event %s: %v", ev.ID, err)
				continue
			}
			fmt.Fprintf(w, "event: taskStatusUpdate\nid: %s\ndata: %s\n\n", ev.ID, data)
			flusher.Flush()
		}
	}
}
