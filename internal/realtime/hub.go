// Package realtime fans committed issue events out to connected clients.
package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sumire/issuedesk/internal/domain"
)

// Scope selects which sessions receive an event.
type Scope string

const (
	// ScopeScoped delivers an event only to the users in its audience.
	ScopeScoped Scope = "scoped"
	// ScopeGlobal delivers every event to every session.
	ScopeGlobal Scope = "global"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s == ScopeScoped || s == ScopeGlobal
}

// Frame types written to a stream in addition to the event types.
const (
	FrameHello     = "hello"
	FrameResync    = "resync"
	FrameHeartbeat = "heartbeat"
)

const (
	subscriptionBufferSize = 64
	heartbeatInterval      = 30 * time.Second
)

// Frame is one JSON message on an event stream.
type Frame struct {
	Type  string         `json:"type"`
	Issue *domain.Issue  `json:"issue,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// Subscription is one connected session. Events are buffered; when the
// buffer is full further events are dropped and the session is marked for
// resync.
type Subscription struct {
	userID string
	role   domain.Role

	events chan domain.Event
	resync atomic.Bool

	done      chan struct{}
	closeOnce sync.Once
}

// Events returns the buffered event channel.
func (s *Subscription) Events() <-chan domain.Event {
	return s.events
}

// Close detaches the subscription. The hub drops it on the next publish.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Subscription) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Hub is the registry of connected sessions.
type Hub struct {
	scope     Scope
	logger    *slog.Logger
	heartbeat time.Duration

	mu   sync.Mutex
	subs []*Subscription
}

// NewHub creates a Hub that delivers events according to scope.
func NewHub(scope Scope, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if !scope.Valid() {
		scope = ScopeScoped
	}
	return &Hub{scope: scope, logger: logger, heartbeat: heartbeatInterval}
}

// Subscribe registers a session for user.
func (h *Hub) Subscribe(user domain.User) *Subscription {
	sub := &Subscription{
		userID: user.ID,
		role:   user.Role,
		events: make(chan domain.Event, subscriptionBufferSize),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	h.subs = append(h.subs, sub)
	h.mu.Unlock()
	return sub
}

// Unsubscribe closes sub and removes it from the registry.
func (h *Hub) Unsubscribe(sub *Subscription) {
	sub.Close()

	h.mu.Lock()
	defer h.mu.Unlock()
	for i, existing := range h.subs {
		if existing == sub {
			h.subs = append(h.subs[:i], h.subs[i+1:]...)
			return
		}
	}
}

// Close ends every registered session. Their streams return without error.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = nil
	h.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

// Disconnect ends every session of a user and returns how many were closed.
func (h *Hub) Disconnect(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	closed := 0
	for i := len(h.subs) - 1; i >= 0; i-- {
		sub := h.subs[i]
		if sub.userID != userID {
			continue
		}
		sub.Close()
		h.subs = append(h.subs[:i], h.subs[i+1:]...)
		closed++
	}
	return closed
}

// Len returns the number of live sessions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish delivers event to every session in its audience. It never blocks.
func (h *Hub) Publish(event domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Iterate in reverse so removals do not shift unvisited entries.
	for i := len(h.subs) - 1; i >= 0; i-- {
		sub := h.subs[i]
		if sub.closed() {
			h.subs = append(h.subs[:i], h.subs[i+1:]...)
			continue
		}
		if h.scope == ScopeScoped && !event.Audience.Includes(sub.userID, sub.role) {
			continue
		}

		select {
		case sub.events <- event:
		default:
			if !sub.resync.Swap(true) {
				h.logger.Debug("subscriber buffer full, marking for resync", "user_id", sub.userID, "event", event.Type)
			}
		}
	}
}

// Stream writes frames for sub until ctx ends, the subscription is closed or
// send fails. It starts with a hello frame and writes a heartbeat when idle.
func (h *Hub) Stream(ctx context.Context, sub *Subscription, send func(Frame) error) error {
	if err := send(Frame{Type: FrameHello}); err != nil {
		return fmt.Errorf("write hello: %w", err)
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-sub.done:
			return nil

		case event := <-sub.events:
			// Something was dropped, so everything still buffered is
			// incomplete. The client refetches instead.
			if sub.resync.CompareAndSwap(true, false) {
				for len(sub.events) > 0 {
					<-sub.events
				}
				if err := send(Frame{Type: FrameResync}); err != nil {
					return fmt.Errorf("write resync: %w", err)
				}
				continue
			}

			if err := send(Frame{Type: string(event.Type), Issue: event.Issue, Data: event.Data}); err != nil {
				return fmt.Errorf("write %s: %w", event.Type, err)
			}

		case <-ticker.C:
			if err := send(Frame{Type: FrameHeartbeat}); err != nil {
				return fmt.Errorf("write heartbeat: %w", err)
			}
		}
	}
}
