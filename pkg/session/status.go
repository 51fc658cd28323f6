package session

// State is the controller's position in the session lifecycle.
type State int

const (
	// StateIdle is before any connect attempt.
	StateIdle State = iota
	// StateConnecting is while the transport dial is in flight.
	StateConnecting
	// StateConnected is normal duplex operation.
	StateConnected
	// StateDisconnected is terminal for this session instance.
	StateDisconnected
	// StateError is terminal for this session instance.
	StateError
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateDisconnected:
		return "DISCONNECTED"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// StatusKind is what the status callback reports.
type StatusKind string

const (
	StatusConnected    StatusKind = "connected"
	StatusDisconnected StatusKind = "disconnected"
	StatusError        StatusKind = "error"
)

// Status is delivered to the session owner on lifecycle changes.
// Exactly one terminal status (disconnected or error) is delivered per
// connect attempt.
type Status struct {
	Kind      StatusKind
	SessionID string
	Err       error
}

// Terminal reports whether the status ends the session.
func (s Status) Terminal() bool {
	return s.Kind == StatusDisconnected || s.Kind == StatusError
}
