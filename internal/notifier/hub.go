package notifier

import (
	"fmt"
	"log"
	"sync"

	"AstroSwap/internal/metrics"
	"AstroSwap/internal/model"
)

// Observer receives pushed events. Deliver must not block; an error
// means the observer is gone and it will be deregistered.
type Observer interface {
	ID() string
	Deliver(evt model.Event) error
}

// SnapshotFunc builds the status event sent to a newly registered observer.
type SnapshotFunc func() model.Event

// Hub fans events out to every registered observer.
type Hub struct {
	mu        sync.RWMutex
	observers map[string]Observer
	snapshot  SnapshotFunc
	metrics   *metrics.Metrics
}

// NewHub creates an empty hub.
func NewHub(m *metrics.Metrics) *Hub {
	if m == nil {
		m = metrics.New("")
	}
	return &Hub{
		observers: make(map[string]Observer),
		metrics:   m,
	}
}

// SetSnapshot installs the function used to greet new observers.
func (h *Hub) SetSnapshot(fn SnapshotFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshot = fn
}

// Register adds an observer. The status snapshot is delivered while the
// registry is locked, so no broadcast can reach the observer before it.
func (h *Hub) Register(o Observer) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.snapshot != nil {
		if err := o.Deliver(h.snapshot()); err != nil {
			return fmt.Errorf("deliver snapshot to %s: %w", o.ID(), err)
		}
	}
	h.observers[o.ID()] = o
	h.metrics.Observers.Set(float64(len(h.observers)))
	log.Printf("[INFO] observer registered: %s (%d connected)", o.ID(), len(h.observers))
	return nil
}

// Unregister removes an observer. Unknown IDs are ignored.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.observers[id]; !ok {
		return
	}
	delete(h.observers, id)
	h.metrics.Observers.Set(float64(len(h.observers)))
	log.Printf("[INFO] observer unregistered: %s (%d connected)", id, len(h.observers))
}

// Broadcast delivers evt to every observer registered at call time.
func (h *Hub) Broadcast(evt model.Event) {
	h.mu.RLock()
	targets := make([]Observer, 0, len(h.observers))
	for _, o := range h.observers {
		targets = append(targets, o)
	}
	h.mu.RUnlock()

	h.metrics.EventsDelivered.WithLabelValues(string(evt.Type)).Inc()
	for _, o := range targets {
		if err := o.Deliver(evt); err != nil {
			log.Printf("[WARN] deliver %s to %s failed, dropping observer: %v", evt.Type, o.ID(), err)
			h.metrics.ObserversDropped.Inc()
			h.Unregister(o.ID())
		}
	}
}

// Count returns the number of registered observers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}
