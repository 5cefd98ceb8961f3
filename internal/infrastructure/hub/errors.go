package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"

	"github.com/gorilla/websocket"
)

var (
	ErrHubNotRunning = errors.New("hub is not running")
	ErrHubRunning    = errors.New("hub is already running")
	ErrWriterClosed  = errors.New("writer is closed")
	ErrInvalidField  = errors.New("event field contains a line break")
	ErrInvalidTiming = errors.New("invalid heartbeat/stale timing")
)

// EncodingError reports a payload that could not be serialized into a frame.
type EncodingError struct {
	Event string
	Err   error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode payload of event %q: %v", e.Event, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// IsClientGone reports whether err means the peer went away. Those failures
// are part of the normal connection lifecycle and are not logged as errors.
func IsClientGone(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, ErrWriterClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, http.ErrAbortHandler),
		errors.Is(err, websocket.ErrCloseSent):
		return true
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code == websocket.CloseNormalClosure ||
			closeErr.Code == websocket.CloseGoingAway ||
			closeErr.Code == websocket.CloseAbnormalClosure ||
			closeErr.Code == websocket.CloseNoStatusReceived
	}

	return false
}
