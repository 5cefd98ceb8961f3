package hub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Event names emitted by the hub itself. Domain collaborators may use any other name.
const (
	EventConnected = "connected"
	EventPing      = "ping"
)

// TimestampFormat is ISO-8601 with millisecond precision.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

const connectedMessage = "SSE connection established"

// Timestamp renders t in UTC using TimestampFormat.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// ConnectedPayload is the acknowledgement sent to a connection right after registration.
type ConnectedPayload struct {
	ClientID  string `json:"clientId"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// PingPayload is the heartbeat payload.
type PingPayload struct {
	Timestamp string `json:"timestamp"`
}

// Frame renders one event in the text/event-stream wire format:
//
//	id: <id>
//	event: <eventName>
//	data: <single-line JSON payload>
//	<blank line>
//
// The id line is omitted when id is empty. Frame has no side effects.
func Frame(eventName string, payload any, id string) ([]byte, error) {
	if strings.ContainsAny(eventName, "\r\n") || strings.ContainsAny(id, "\r\n") {
		return nil, fmt.Errorf("frame event %q: %w", eventName, ErrInvalidField)
	}

	var buf bytes.Buffer
	if id != "" {
		buf.WriteString("id: ")
		buf.WriteString(id)
		buf.WriteByte('\n')
	}
	buf.WriteString("event: ")
	buf.WriteString(eventName)
	buf.WriteString("\ndata: ")

	// Encoder output is compact and newline terminated, which closes the data line.
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, &EncodingError{Event: eventName, Err: err}
	}
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}

// FrameEvent is Frame for an Event value.
func FrameEvent(event Event) ([]byte, error) {
	return Frame(event.Name, event.Payload, event.ID)
}
