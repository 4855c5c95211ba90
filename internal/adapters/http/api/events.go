// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// EventsHandler handles live-update subscriptions over server-sent events.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandleEvents handles GET /api/events?clientId=... requests. The connection
// stays open until the client disconnects; the hub writes to it from the
// publisher and the per-subscriber heartbeat.
func (h *EventsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", ErrStreamingUnsupported)
		return
	}

	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sink := newFlushSink(w, flusher)
	h.deps.Attach(clientID, sink)
	defer h.deps.Detach(clientID)

	// Initial state so a fresh dashboard is populated before the first
	// submission lands.
	_ = h.deps.SendSnapshot(r.Context(), clientID)

	// Block until the client disconnects or the hub closes the sink
	// (detach, failed write, shutdown).
	select {
	case <-r.Context().Done():
	case <-sink.done:
	}
}

// flushSink adapts the response writer to the hub's sink contract. Writes
// come from multiple goroutines; the mutex also guards the closed flag so no
// write can land after the handler returns.
type flushSink struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool
	done    chan struct{}
}

func newFlushSink(w http.ResponseWriter, flusher http.Flusher) *flushSink {
	return &flushSink{w: w, flusher: flusher, done: make(chan struct{})}
}

func (s *flushSink) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return http.ErrHandlerTimeout
	}
	if _, err := s.w.Write(p); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *flushSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	return nil
}
