// Package realtime fans access decisions out to connected monitoring
// clients over WebSocket, with periodic liveness pings so abandoned sockets
// are dropped instead of accumulating.
package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/nferreyra/cerbero/internal/cerbero/types"
	"github.com/nferreyra/cerbero/internal/logging"
)

const (
	// EventConnected is the synthetic event sent on subscription.
	EventConnected = "connected"
	// EventAccess carries one ScanDecision.
	EventAccess = "access_event"

	writeTimeout = 5 * time.Second

	// sendBuffer bounds the per-subscriber outbound queue.  A subscriber
	// that falls this far behind is dropped rather than allowed to stall
	// the fan-out.
	sendBuffer = 32
)

// Event is one message on the monitoring feed.
type Event struct {
	Type      string              `json:"type"`
	Timestamp string              `json:"timestamp"`
	Decision  *types.ScanDecision `json:"decision,omitempty"`
}

type subscriber struct {
	id   string
	conn *websocket.Conn
	send chan Event

	// dropped is closed (once) when the hub evicts the subscriber; the
	// connection's serve loop exits on it.
	dropped  chan struct{}
	dropOnce sync.Once
}

func (s *subscriber) drop() {
	s.dropOnce.Do(func() { close(s.dropped) })
}

// Hub is the single fan-out point.  Delivery is best-effort: per-subscriber
// in-order (one writer per connection), no ordering across subscribers.
type Hub struct {
	heartbeat time.Duration
	logger    logging.Logger

	mu   sync.Mutex
	subs map[string]*subscriber

	cancel context.CancelFunc
	done   chan struct{}
}

func NewHub(heartbeat time.Duration, logger logging.Logger) *Hub {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &Hub{
		heartbeat: heartbeat,
		logger:    logger.With("component", "realtime"),
		subs:      make(map[string]*subscriber),
		done:      make(chan struct{}),
	}
}

// Start begins the heartbeat loop.  Each cycle pings every subscriber; a
// subscriber that cannot answer within the cycle is forcibly dropped.
func (h *Hub) Start(ctx context.Context) {
	ctx, h.cancel = context.WithCancel(ctx)
	go h.loop(ctx)
}

// Stop ends the heartbeat loop and disconnects all subscribers.  A no-op
// when Start was never called.
func (h *Hub) Stop() {
	if h.cancel == nil {
		return
	}
	h.cancel()
	<-h.done

	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		_ = s.conn.Close(websocket.StatusGoingAway, "server shutting down")
		s.drop()
	}
}

func (h *Hub) loop(ctx context.Context) {
	defer close(h.done)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.pingAll(ctx)
		}
	}
}

func (h *Hub) pingAll(ctx context.Context) {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		go func(s *subscriber) {
			pingCtx, cancel := context.WithTimeout(ctx, h.heartbeat)
			defer cancel()
			if err := s.conn.Ping(pingCtx); err != nil {
				h.evict(s, websocket.StatusPolicyViolation, "heartbeat timeout")
			}
		}(s)
	}
}

// Broadcast queues the decision for every subscriber.  Never blocks the
/// caller: a subscriber with a full queue is evicted.
func (h *Hub) Broadcast(d types.ScanDecision) {
	ev := Event{
		Type:      EventAccess,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Decision:  &d,
	}

	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		select {
		case s.send <- ev:
		default:
			h.evict(s, websocket.StatusPolicyViolation, "send queue full")
		}
	}
}

// SubscriberCount reports how many connections are registered.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) add(s *subscriber) {
	h.mu.Lock()
	h.subs[s.id] = s
	n := len(h.subs)
	h.mu.Unlock()
	h.logger.Info(context.Background(), "subscriber connected", "subscriber_id", s.id, "total", n)
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

func (h *Hub) evict(s *subscriber, code websocket.StatusCode, reason string) {
	h.remove(s.id)
	_ = s.conn.Close(code, reason)
	s.drop()
	h.logger.Warn(context.Background(), "subscriber dropped", "subscriber_id", s.id, "reason", reason)
}
