// Package sse implements the board event channel: an in-process
// publish/subscribe hub pushing serialized domain events to live
// subscriber connections, with per-connection topic filtering.
package sse

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/b-bellovic/kadoa-assignemnt/domain"
)

// ErrHubClosed is returned by Subscribe after Shutdown.
var ErrHubClosed = errors.New("event hub closed")

// subscriberBuffer is the per-connection outbound queue. A subscriber that
// falls this far behind is treated as broken and deregistered.
const subscriberBuffer = 16

type connection struct {
	id       string
	userID   string
	topics   map[string]struct{}
	wildcard bool
	ch       chan []byte
}

func (c *connection) wants(types []string) bool {
	if c.wildcard {
		return true
	}
	for _, t := range types {
		if _, ok := c.topics[t]; ok {
			return true
		}
	}
	return false
}

// Subscription is a live connection's handle on the hub. Events arrive
// serialized on C; Close deregisters the connection. Close is safe to call
// more than once and is expected from the transport teardown path.
type Subscription struct {
	ID     string
	Topics []string
	C      <-chan []byte

	hub  *Hub
	once sync.Once
}

// Close deregisters the subscription from the hub.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s.ID)
	})
}

// Publisher forwards emitted events to other hub instances. Implemented by
// the redis relay; nil means single-instance operation.
type Publisher interface {
	Publish(ctx context.Context, origin string, event []byte) error
}

// Hub is the process-wide event channel. It is constructed once and passed
// by reference to every handler that emits or subscribes; there is no
// package-level instance.
type Hub struct {
	id  string
	log *log.Logger

	mu     sync.Mutex
	conns  map[string]*connection
	closed bool

	publisher Publisher
}

// NewHub creates an event hub. logger may be nil, in which case the standard
// logrus logger is used.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Hub{
		id:    uuid.NewString(),
		log:   logger,
		conns: map[string]*connection{},
	}
}

// ID identifies this hub instance in relayed events.
func (h *Hub) ID() string { return h.id }

// SetPublisher attaches a cross-instance publisher. Must be called before
// the hub is shared.
func (h *Hub) SetPublisher(p Publisher) { h.publisher = p }

// Subscribe registers a connection for the given user. An empty topic list
// or the wildcard resolves to all events. The synthetic connection event is
// queued before Subscribe returns, so it is always the first message a
// subscriber observes.
func (h *Hub) Subscribe(userID string, topics []string) (*Subscription, error) {
	resolved := resolveTopics(topics)
	conn := &connection{
		id:     userID + "-" + uuid.NewString(),
		userID: userID,
		topics: make(map[string]struct{}, len(resolved)),
		ch:     make(chan []byte, subscriberBuffer),
	}
	for _, t := range resolved {
		if t == domain.TopicWildcard {
			conn.wildcard = true
		}
		conn.topics[t] = struct{}{}
	}

	var handshake []byte
	established, err := domain.NewEvent(domain.ConnectionEstablished, domain.ConnectionData{
		ConnectionID: conn.id,
		Topics:       resolved,
	})
	if err == nil {
		established.ID = nextEventID()
		handshake, _ = established.MarshalWire()
	}

	// Registration and handshake share the critical section so a concurrent
	// Emit cannot slip its event ahead of the connection event.
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	h.conns[conn.id] = conn
	if handshake != nil {
		conn.ch <- handshake
	}
	h.mu.Unlock()

	h.log.WithField("connection", conn.id).Debug("client connected")

	return &Subscription{ID: conn.id, Topics: resolved, C: conn.ch, hub: h}, nil
}

// Emit publishes a flat event to every matching subscriber and forwards it
// to other instances through the publisher, if any. Delivery is
// at-most-once; a broken subscriber is dropped without affecting the rest.
func (h *Hub) Emit(eventType string, data any) {
	ev, err := domain.NewEvent(eventType, data)
	if err != nil {
		h.log.WithField("type", eventType).Errorf("marshal event: %v", err)
		return
	}
	h.emit(ev, []string{eventType})
}

// EmitNested wraps the event in a board envelope before publishing.
// Subscribers match on the envelope topic, the wildcard, or the inner type.
func (h *Hub) EmitNested(eventType string, data any) {
	inner, err := domain.NewEvent(eventType, data)
	if err != nil {
		h.log.WithField("type", eventType).Errorf("marshal event: %v", err)
		return
	}
	ev, err := domain.Nested(inner)
	if err != nil {
		h.log.WithField("type", eventType).Errorf("wrap event: %v", err)
		return
	}
	h.emit(ev, []string{domain.BoardEnvelope, eventType})
}

func (h *Hub) emit(ev domain.Event, matchTypes []string) {
	ev.ID = nextEventID()
	raw, err := ev.MarshalWire()
	if err != nil {
		h.log.Errorf("marshal event: %v", err)
		return
	}
	h.Deliver(raw, matchTypes)

	if h.publisher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.publisher.Publish(ctx, h.id, raw); err != nil {
			h.log.Errorf("relay publish: %v", err)
		}
	}
}

// Deliver writes raw to every local subscriber whose topic set matches one
// of matchTypes. Used for locally emitted and relayed events alike.
func (h *Hub) Deliver(raw []byte, matchTypes []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.conns {
		if !conn.wants(matchTypes) {
			continue
		}
		select {
		case conn.ch <- raw:
		default:
			// Subscriber is not draining; one failing client must never
			// block delivery to others.
			h.log.WithField("connection", id).Warn("dropping stalled subscriber")
			delete(h.conns, id)
			close(conn.ch)
		}
	}
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conn, ok := h.conns[id]; ok {
		delete(h.conns, id)
		close(conn.ch)
		h.log.WithField("connection", id).Debug("client disconnected")
	}
}

// Len reports the number of registered connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Shutdown closes the hub and all subscriber channels. In-flight writes are
// abandoned, not flushed.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	h.log.Info("cleaning up stream connections")
	for id, conn := range h.conns {
		delete(h.conns, id)
		close(conn.ch)
	}
}

func resolveTopics(topics []string) []string {
	cleaned := make([]string, 0, len(topics))
	for _, t := range topics {
		if t == "" {
			continue
		}
		cleaned = append(cleaned, t)
	}
	if len(cleaned) == 0 {
		return []string{domain.TopicWildcard}
	}
	return cleaned
}

var lastEventID int64

// nextEventID returns a wall-clock-derived token, strictly increasing within
// the process even when the clock does not advance between calls.
func nextEventID() string {
	for {
		now := time.Now().UnixNano()
		last := atomic.LoadInt64(&lastEventID)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastEventID, last, now) {
			return strconv.FormatInt(now, 10)
		}
	}
}
