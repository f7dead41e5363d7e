package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var errConnClosed = errors.New("connection closed")

// sseConn writes server-sent event frames to one HTTP response.
type sseConn struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool
	done    chan struct{}
}

func newSSEConn(w http.ResponseWriter) (*sseConn, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("streaming unsupported")
	}
	return &sseConn{
		w:       w,
		flusher: flusher,
		done:    make(chan struct{}),
	}, nil
}

func (c *sseConn) Send(event string, data []byte) error {
	return c.write("event: %s\ndata: %s\n\n", event, data)
}

func (c *sseConn) Ping() error {
	return c.write(": ping\n\n")
}

func (c *sseConn) write(format string, args ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errConnClosed
	}
	_, err := fmt.Fprintf(c.w, format, args...)
	if err != nil {
		return err
	}
	c.flusher.Flush()
	return nil
}

func (c *sseConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

const wsWriteWait = 10 * time.Second

type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// wsConn serializes writes to one websocket; gorilla allows a single
// concurrent writer.
type wsConn struct {
	mu     sync.Mutex
	ws     *websocket.Conn
	closed bool
	done   chan struct{}
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{
		ws:   ws,
		done: make(chan struct{}),
	}
}

func (c *wsConn) Send(event string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errConnClosed
	}
	c.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.ws.WriteJSON(wsFrame{Event: event, Data: data})
}

func (c *wsConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errConnClosed
	}
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

func (c *wsConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	return c.ws.Close()
}
