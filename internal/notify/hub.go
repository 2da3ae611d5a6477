// Package notify delivers ledger events to the listeners of a group, in
// process and over websockets.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mmynk/settlewise/internal/metrics"
	"github.com/mmynk/settlewise/internal/models"
)

// DefaultBuffer is the number of events a listener may fall behind before it is pruned.
const DefaultBuffer = 16

// ErrClosed is returned by Subscribe and Publish once the hub is closed.
var ErrClosed = errors.New("notification hub closed")

// Hub is a per-group broadcast registry. Publish never blocks: a listener
// whose buffer is full is dropped and its channel closed.
type Hub struct {
	mu      sync.Mutex
	groups  map[string]map[*Subscription]struct{}
	closed  bool
	buffer  int
	metrics *metrics.Metrics
}

// Option configures a Hub.
type Option func(*Hub)

// WithBuffer sets the per-listener buffer size.
func WithBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithMetrics records listener counts and prunes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hub) {
		h.metrics = m
	}
}

func New(opts ...Option) *Hub {
	h := &Hub{
		groups: make(map[string]map[*Subscription]struct{}),
		buffer: DefaultBuffer,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscription is one listener on a group's channel.
type Subscription struct {
	hub     *Hub
	groupID string
	events  chan models.Event
}

// Events returns the listener's channel. It is closed when the
// subscription is closed, pruned, or the hub shuts down.
func (s *Subscription) Events() <-chan models.Event {
	return s.events
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s, false)
}

// Subscribe registers a new listener on groupID.
func (h *Hub) Subscribe(groupID string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}

	sub := &Subscription{
		hub:     h,
		groupID: groupID,
		events:  make(chan models.Event, h.buffer),
	}
	listeners, ok := h.groups[groupID]
	if !ok {
		listeners = make(map[*Subscription]struct{})
		h.groups[groupID] = listeners
	}
	listeners[sub] = struct{}{}
	h.metrics.ListenerAdded()

	slog.Debug("Listener subscribed", "group_id", groupID, "listeners", len(listeners))
	return sub, nil
}

// Publish delivers event to every current listener of groupID.
func (h *Hub) Publish(ctx context.Context, groupID string, event models.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}

	for sub := range h.groups[groupID] {
		select {
		case sub.events <- event:
		default:
			h.removeLocked(sub, true)
			slog.Warn("Pruned slow listener", "group_id", groupID, "event", event.Type)
		}
	}
	return nil
}

// Listeners returns the number of listeners on groupID.
func (h *Hub) Listeners(groupID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.groups[groupID])
}

// Close disconnects every listener and rejects further use.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for _, listeners := range h.groups {
		for sub := range listeners {
			h.removeLocked(sub, false)
		}
	}
}

func (h *Hub) remove(sub *Subscription, pruned bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub, pruned)
}

func (h *Hub) removeLocked(sub *Subscription, pruned bool) {
	listeners, ok := h.groups[sub.groupID]
	if !ok {
		return
	}
	if _, ok := listeners[sub]; !ok {
		return
	}
	delete(listeners, sub)
	if len(listeners) == 0 {
		delete(h.groups, sub.groupID)
	}
	close(sub.events)
	h.metrics.ListenerRemoved(pruned)
}
