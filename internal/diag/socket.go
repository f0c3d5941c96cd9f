package diag

import (
	"context"
	"log/slog"
	"net"
	"sync"
)

// EventBroadcaster accepts connections on the consumer event socket and
// fans out session events to every connected subscriber. Delivery is
// in-order per session. Publish writes to subscribers one after another
// while holding a lock, so a subscriber whose socket is not drained delays
// delivery to the others; a subscriber whose write fails is dropped.
type EventBroadcaster struct {
	mu      sync.Mutex
	clients map[net.Conn]struct{}
	logger  *slog.Logger
}

// NewEventBroadcaster creates a broadcaster ready to accept subscribers.
func NewEventBroadcaster(logger *slog.Logger) *EventBroadcaster {
	return &EventBroadcaster{
		clients: make(map[net.Conn]struct{}),
		logger:  logger.With(slog.String("component", "diag.broadcaster")),
	}
}

// Serve accepts connections on ln until ctx is cancelled, registering each
// as an event subscriber. Blocks until ctx is cancelled or ln is closed.
func (b *EventBroadcaster) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		b.mu.Lock()
		b.clients[conn] = struct{}{}
		b.mu.Unlock()

		b.logger.Debug("consumer connected", slog.String("remote", conn.RemoteAddr().String()))
	}
}

// Publish delivers ev to every connected subscriber. A subscriber whose
// write returns an error (e.g. a closed connection) is dropped; a full
// socket buffer blocks the write rather than failing it. Subscribers are
// expected to re-sync their view at startup.
func (b *EventBroadcaster) Publish(ev SessionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for conn := range b.clients {
		if err := EncodeEvent(conn, ev); err != nil {
			conn.Close()
			delete(b.clients, conn)
		}
	}
}

// Close closes all currently connected subscriber sockets.
func (b *EventBroadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for conn := range b.clients {
		conn.Close()
		delete(b.clients, conn)
	}
}
