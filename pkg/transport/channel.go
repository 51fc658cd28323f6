package transport

import "encoding/json"

// Channel is the narrow contract the session core depends on: send,
// close, and an inbound event stream. Implementations must make sends
// on a closing channel silent no-ops and must deliver exactly one
// terminal event (ClosedEvent or ErrorEvent) per connection.
type Channel interface {
	// SendAudio transmits one outbound PCM chunk, fire-and-forget.
	SendAudio(pcm []byte) error

	// SendFrame transmits one compressed video frame, fire-and-forget.
	SendFrame(image []byte, mimeType string) error

	// Events yields inbound events. The channel is closed after the
	// terminal event has been delivered.
	Events() <-chan Event

	// Close tears down the connection. Idempotent, safe from any state.
	Close() error
}

// Event is an inbound event from the remote service.
type Event interface {
	eventType() string
}

// OpenedEvent is delivered exactly once, after the connection is
// established and acknowledged.
type OpenedEvent struct{}

func (OpenedEvent) eventType() string { return "opened" }

// AudioEvent carries one inbound PCM audio chunk.
type AudioEvent struct {
	Data []byte
}

func (AudioEvent) eventType() string { return "audio" }

// InterruptedEvent signals that the user has started speaking over the
// current output; playback must be truncated immediately.
type InterruptedEvent struct{}

func (InterruptedEvent) eventType() string { return "interrupted" }

// ClosedEvent is a terminal event: the connection ended cleanly.
type ClosedEvent struct {
	Reason string
}

func (ClosedEvent) eventType() string { return "closed" }

// ErrorEvent is a terminal event: the connection failed.
type ErrorEvent struct {
	Err error
}

func (ErrorEvent) eventType() string { return "error" }

// UnknownEvent carries an inbound frame of an unrecognized type.
// Sessions ignore these.
type UnknownEvent struct {
	Type string
	Raw  json.RawMessage
}

func (e UnknownEvent) eventType() string { return e.Type }
