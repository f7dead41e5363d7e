package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/totegamma/passgate/internal/domain"
)

const defaultHeartbeat = 15 * time.Second

// Conn is one live monitoring subscriber (SSE stream or websocket).
type Conn interface {
	Send(event string, data []byte) error
	Ping() error
	Close() error
}

// Hub keeps the set of connected monitoring clients for this process.
type Hub struct {
	mu      sync.RWMutex
	clients map[Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[Conn]struct{}),
	}
}

// Register adds a client and sends it the connected greeting. A client that
// cannot take the greeting is not registered.
func (h *Hub) Register(conn Conn) error {
	data, err := json.Marshal(domain.Notification{Message: domain.NotifyConnected})
	if err != nil {
		return err
	}
	err = conn.Send(domain.NotifyConnected, data)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	slog.Debug(
		"monitor client connected",
		slog.Int("clients", h.Count()),
		slog.String("module", "hub"),
	)
	return nil
}

func (h *Hub) Unregister(conn Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()

	if ok {
		conn.Close()
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends the notification to every client. Clients whose write
// fails are dropped; the rest still receive it.
func (h *Hub) Broadcast(event string, notification domain.Notification) {
	data, err := json.Marshal(notification)
	if err != nil {
		slog.Error(
			"failed to marshal notification",
			slog.String("error", err.Error()),
			slog.String("module", "hub"),
		)
		return
	}

	for _, conn := range h.snapshot() {
		err := conn.Send(event, data)
		if err != nil {
			slog.Debug(
				"dropping monitor client",
				slog.String("event", event),
				slog.String("error", err.Error()),
				slog.String("module", "hub"),
			)
			h.Unregister(conn)
		}
	}
}

// Run pings every client on each tick until ctx is done.
func (h *Hub) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultHeartbeat
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, conn := range h.snapshot() {
				if err := conn.Ping(); err != nil {
					h.Unregister(conn)
				}
			}
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	for _, conn := range h.snapshot() {
		h.Unregister(conn)
	}
}

func (h *Hub) snapshot() []Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns := make([]Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	return conns
}
