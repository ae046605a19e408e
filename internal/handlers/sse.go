package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/setlive/backend/internal/hub"
)

// SSEHandler serves Server-Sent Events streams for real-time session
// updates. Connecting joins the event's room; disconnecting leaves it.
type SSEHandler struct {
	hub *hub.Hub
}

// NewSSEHandler creates an SSEHandler backed by the given hub.
func NewSSEHandler(h *hub.Hub) *SSEHandler {
	return &SSEHandler{hub: h}
}

// Stream opens an SSE connection scoped to one event. It sends an initial
// "connected" event, then one SSE event per hub notification. Payloads are
// invalidation signals: clients re-fetch the session snapshot rather than
// patching local state. A heartbeat comment is sent every 30 seconds to
// keep the connection alive through proxies.
func (h *SSEHandler) Stream(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ch := h.hub.Join(eventID)
	defer h.hub.Leave(eventID, ch)

	fmt.Fprintf(w, "event: connected\ndata: ok\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-ch:
			data, err := json.Marshal(evt.Payload)
			if err != nil {
				data = []byte("{}")
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}
