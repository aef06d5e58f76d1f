package broadcast

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-monolith/mono/pkg/types"
	"golang.org/x/sync/errgroup"

	"github.com/example/barachat/domain/chat"
)

// sweep is one queued fan-out: an envelope bound for every subscriber of a
// room, optionally excluding one connection (signaling-style "forward to
// others, not sender").
type sweep struct {
	room     string
	envelope chat.Envelope
	exclude  Conn
}

// Hub fans envelopes out to room subscribers. All sweeps drain through a
// single run loop, so successive broadcasts to the same room are delivered
// in submission order.
type Hub struct {
	registry *Registry
	queue    chan sweep
	done     chan struct{}
	logger   types.Logger
}

// NewHub creates a hub over the given registry.
func NewHub(registry *Registry, logger types.Logger) *Hub {
	return &Hub{
		registry: registry,
		queue:    make(chan sweep, 256),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// Run drains the broadcast queue until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-h.queue:
			h.deliver(s)
		}
	}
}

// Wait blocks until the run loop has exited.
func (h *Hub) Wait() {
	<-h.done
}

// Broadcast queues envelope for delivery to every subscriber of room except
// exclude (which may be nil).
func (h *Hub) Broadcast(room string, envelope chat.Envelope, exclude Conn) {
	select {
	case h.queue <- sweep{room: room, envelope: envelope, exclude: exclude}:
	case <-h.done:
	}
}

// deliver serializes the envelope once, writes it to every member of the
// room concurrently, and removes connections whose write failed. A failure
// to deliver to one recipient never aborts delivery to the rest. The sweep
// does not complete until every write has finished, so each connection still
// sees broadcasts in submission order.
func (h *Hub) deliver(s sweep) {
	data, err := json.Marshal(s.envelope)
	if err != nil {
		h.logger.Error("Failed to marshal envelope", "room", s.room, "error", err)
		return
	}

	var (
		mu   sync.Mutex
		dead []Conn
	)
	var g errgroup.Group
	for _, conn := range h.registry.Members(s.room) {
		if conn == s.exclude {
			continue
		}
		g.Go(func() error {
			if err := conn.WriteMessage(TextMessage, data); err != nil {
				h.logger.Debug("Dropping dead connection", "room", s.room, "error", err)
				mu.Lock()
				dead = append(dead, conn)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, conn := range dead {
		h.registry.Unsubscribe(conn, s.room)
		_ = conn.Close()
	}
}
