package stream

import (
	"context"
	"sync"
	"time"

	"github.com/ranklab/liveboard/pkg/logger"
	"github.com/ranklab/liveboard/pkg/metrics"
)

const defaultHeartbeatInterval = 30 * time.Second

// Sink is a subscriber's output channel. Write must be safe to call from
// multiple goroutines; a failed write marks the subscriber dead.
type Sink interface {
	Write(p []byte) error
	Close() error
}

// subscriber pairs a sink with its heartbeat stop signal.
type subscriber struct {
	id   string
	sink Sink
	stop chan struct{}
	once sync.Once
}

func (s *subscriber) stopHeartbeat() {
	s.once.Do(func() { close(s.stop) })
}

// Hub owns the set of live subscribers and fans events out to them.
// Attach, Detach and Publish are all safe to call concurrently; a failure
// writing to one subscriber never prevents delivery to the others.
type Hub struct {
	mu             sync.RWMutex
	subs           map[string]*subscriber
	heartbeatEvery time.Duration
	wg             sync.WaitGroup
	log            logger.Logger
}

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithHeartbeatInterval sets the per-subscriber heartbeat period.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.heartbeatEvery = d
		}
	}
}

// WithLogger sets a custom logger for the hub.
func WithLogger(log logger.Logger) Option {
	return func(h *Hub) {
		if log != nil {
			h.log = log
		}
	}
}

// NewHub constructs an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		subs:           make(map[string]*subscriber),
		heartbeatEvery: defaultHeartbeatInterval,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = logger.Get().Named("stream")
	}
	return h
}

// Attach registers sink under id and announces the connection. An existing
// subscriber with the same id is replaced; its old sink stays open and
// remains the caller's responsibility. Each subscriber gets its own
// heartbeat timer so one slow connection cannot stall the others' keepalives.
func (h *Hub) Attach(id string, sink Sink) {
	sub := &subscriber{id: id, sink: sink, stop: make(chan struct{})}

	h.mu.Lock()
	if old, ok := h.subs[id]; ok {
		old.stopHeartbeat()
	}
	h.subs[id] = sub
	count := len(h.subs)
	h.mu.Unlock()

	metrics.UpdateSubscriberCount(count)

	if err := h.write(sub, NewSystemMessage("Connected to scoreboard updates")); err != nil {
		h.Detach(id)
		return
	}

	h.wg.Add(1)
	go h.heartbeat(sub)
}

// Detach removes the subscriber and closes its sink. Unknown ids are a no-op.
func (h *Hub) Detach(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	count := len(h.subs)
	h.mu.Unlock()

	if !ok {
		return
	}
	sub.stopHeartbeat()
	_ = sub.sink.Close()
	metrics.UpdateSubscriberCount(count)
}

// Publish delivers ev to every attached subscriber. Subscribers whose sink
// rejects the write are collected during the pass and detached afterwards.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	targets := make([]*subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	var dead []string
	for _, sub := range targets {
		if err := h.write(sub, ev); err != nil {
			h.log.Debug(context.Background(), "dropping subscriber after failed write",
				logger.String("subscriber", sub.id), logger.Error(err))
			dead = append(dead, sub.id)
		}
	}
	for _, id := range dead {
		h.Detach(id)
	}

	metrics.RecordEventPublished(string(ev.Type))
}

// SendTo delivers ev to a single subscriber, detaching it on write failure.
func (h *Hub) SendTo(id string, ev Event) error {
	h.mu.RLock()
	sub, ok := h.subs[id]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	if err := h.write(sub, ev); err != nil {
		h.Detach(id)
		return err
	}
	return nil
}

// SubscriberCount returns the number of attached subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// CloseAll sends a farewell to every subscriber, closes all sinks, and
// clears the subscriber set. Used during shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[string]*subscriber)
	h.mu.Unlock()

	farewell := NewSystemMessage("Server shutting down")
	for _, sub := range subs {
		_ = h.write(sub, farewell)
		sub.stopHeartbeat()
		_ = sub.sink.Close()
	}
	h.wg.Wait()
	metrics.UpdateSubscriberCount(0)
}

// heartbeat writes keepalive events until the subscriber is detached or a
// write fails.
func (h *Hub) heartbeat(sub *subscriber) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.heartbeatEvery)
	defer ticker.Stop()

	for {
		select {
		case <-sub.stop:
			return
		case <-ticker.C:
			if err := h.write(sub, NewHeartbeat()); err != nil {
				h.Detach(sub.id)
				return
			}
		}
	}
}

func (h *Hub) write(sub *subscriber, ev Event) error {
	raw, err := ev.Encode()
	if err != nil {
		return err
	}
	return sub.sink.Write(raw)
}
