package sightline

import (
	"errors"
	"fmt"
)

// Error is the error type surfaced by session components.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes errors.
type ErrorType string

const (
	// ErrConnection means the transport failed to open or broke mid-session.
	// It is surfaced once via the status callback and is not retried.
	ErrConnection ErrorType = "connection_error"

	// ErrDeviceUnavailable means a capture or output device could not be
	// acquired (permission denied or hardware busy).
	ErrDeviceUnavailable ErrorType = "device_unavailable"

	// ErrMalformedAudio means an audio payload could not be decoded.
	// Recovered locally by skipping the offending chunk.
	ErrMalformedAudio ErrorType = "malformed_audio_data"

	// ErrInvalidConfig means a configuration value failed validation.
	ErrInvalidConfig ErrorType = "invalid_config_error"

	// ErrSessionClosed means an operation was attempted on a session that
	// has already been torn down.
	ErrSessionClosed ErrorType = "session_closed"
)

// NewConnectionError creates a transport-level error.
func NewConnectionError(message string, cause error) *Error {
	return &Error{Type: ErrConnection, Message: message, Cause: cause}
}

// NewDeviceUnavailableError creates a device acquisition error.
func NewDeviceUnavailableError(message string, cause error) *Error {
	return &Error{Type: ErrDeviceUnavailable, Message: message, Cause: cause}
}

// NewMalformedAudioError creates a codec-level decode error.
func NewMalformedAudioError(message string) *Error {
	return &Error{Type: ErrMalformedAudio, Message: message}
}

// NewInvalidConfigError creates a configuration validation error.
func NewInvalidConfigError(message string) *Error {
	return &Error{Type: ErrInvalidConfig, Message: message}
}

// NewSessionClosedError creates a closed-session error.
func NewSessionClosedError(message string) *Error {
	return &Error{Type: ErrSessionClosed, Message: message}
}

// IsType reports whether err is (or wraps) an *Error of the given type.
func IsType(err error, t ErrorType) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Type == t
	}
	return false
}

// IsFatal reports whether the error ends the session.
// Malformed audio is recovered per-chunk; everything else tears down.
func (e *Error) IsFatal() bool {
	switch e.Type {
	case ErrMalformedAudio:
		return false
	default:
		return true
	}
}
