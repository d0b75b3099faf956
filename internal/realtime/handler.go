package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

// Handle upgrades the request and serves the subscription until the client
// goes away, the hub evicts it, or the server shuts down.
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{})
	if err != nil {
		return
	}

	s := &subscriber{
		id:      uuid.NewString(),
		conn:    conn,
		send:    make(chan Event, sendBuffer),
		dropped: make(chan struct{}),
	}
	h.add(s)
	defer func() {
		h.remove(s.id)
		_ = conn.Close(websocket.StatusNormalClosure, "closed")
		s.drop()
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := h.write(ctx, s, Event{
		Type:      EventConnected,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}); err != nil {
		return
	}

	// Read pump: the client sends nothing meaningful, but reading is what
	// lets the library process pong and close control frames.
	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-readErr:
			return
		case <-s.dropped:
			return
		case ev := <-s.send:
			if err := h.write(ctx, s, ev); err != nil {
				return
			}
		}
	}
}

func (h *Hub) write(ctx context.Context, s *subscriber, ev Event) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, s.conn, ev)
}
