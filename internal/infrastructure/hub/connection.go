package hub

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const closeGracePeriod = time.Second

// SSEWriter pushes frames into an HTTP response held open by a handler.
// Closing it releases the handler through Done; once closed no byte reaches
// the response, so the handler may return safely.
type SSEWriter struct {
	writer       http.ResponseWriter
	controller   *http.ResponseController
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

var _ Writer = (*SSEWriter)(nil)

// NewSSEWriter wraps w. A zero writeTimeout leaves writes unbounded.
func NewSSEWriter(w http.ResponseWriter, writeTimeout time.Duration) *SSEWriter {
	return &SSEWriter{
		writer:       w,
		controller:   http.NewResponseController(w),
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
	}
}

// Write sends one frame and flushes it to the client.
func (c *SSEWriter) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, ErrWriterClosed
	}

	if c.writeTimeout > 0 {
		if err := c.controller.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return 0, err
		}
		// Streams stay open between events, so the deadline only covers this write.
		defer func() { _ = c.controller.SetWriteDeadline(time.Time{}) }()
	}

	n, err := c.writer.Write(p)
	if err != nil {
		return n, err
	}
	if err := c.controller.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return n, err
	}
	return n, nil
}

// Close marks the stream finished and releases Done. Safe to call repeatedly.
func (c *SSEWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	return nil
}

// Done is closed once the hub has closed this writer.
func (c *SSEWriter) Done() <-chan struct{} {
	return c.done
}

// WebSocketWriter sends each frame as one text message. It is the fallback
// transport for clients whose proxies break event streams.
type WebSocketWriter struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

var _ Writer = (*WebSocketWriter)(nil)

// NewWebSocketWriter wraps an upgraded connection.
func NewWebSocketWriter(conn *websocket.Conn, writeTimeout time.Duration) *WebSocketWriter {
	return &WebSocketWriter{
		conn:         conn,
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
	}
}

func (c *WebSocketWriter) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, ErrWriterClosed
	}

	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close sends a normal-closure frame and closes the socket.
func (c *WebSocketWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)

	_ = c.conn.SetWriteDeadline(time.Now().Add(closeGracePeriod))
	_ = c.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	return c.conn.Close()
}

// Done is closed once the hub has closed this writer.
func (c *WebSocketWriter) Done() <-chan struct{} {
	return c.done
}
