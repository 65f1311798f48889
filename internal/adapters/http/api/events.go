// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tkarami/elorank/internal/adapters/broker"
)

// EventDependencies defines the interface for event stream subscriptions.
type EventDependencies interface {
	Subscribe() (*broker.Subscriber, error)
	Unsubscribe(sub *broker.Subscriber)
}

// EventsHandler handles the persistent ranking event stream.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandleStream handles GET /ranking/events requests as an SSE stream.
//
// Each message carries one RankingEvent as JSON. The stream has no
// replay: consumers pull a full snapshot from GET /ranking before
// relying on it. A failed write ends this subscriber only.
func (h *EventsHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	const op = "api.ranking_events"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", NewKind(op, ErrStreaming))
		return
	}

	sub, err := h.deps.Subscribe()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}
	defer h.deps.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-sub.Events():
			if !open {
				// Broker dropped or closed this subscriber.
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: message\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
