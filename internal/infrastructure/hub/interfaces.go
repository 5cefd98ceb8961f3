package hub

import "io"

// Writer is the transport handle an Entry pushes framed events through
// (SSE response stream, WebSocket, ...). Close must be safe to call more than once.
type Writer interface {
	io.Writer
	io.Closer
}

// Event is one outbound message. It is framed once and then discarded.
type Event struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"event"`
	Payload any    `json:"data"`
}

// Broadcaster is what the heartbeat and the domain event bridge need from the hub.
type Broadcaster interface {
	Broadcast(eventName string, payload any) int
	BroadcastEvent(event Event) int
}

var _ Broadcaster = (*Hub)(nil)
