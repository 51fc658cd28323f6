package sightline

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := NewMalformedAudioError("odd-length PCM buffer")
	want := "malformed_audio_data: odd-length PCM buffer"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}

	cause := errors.New("permission denied")
	err = NewDeviceUnavailableError("open microphone", cause)
	want = "device_unavailable: open microphone: permission denied"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewConnectionError("websocket dial failed", cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestIsType(t *testing.T) {
	err := NewConnectionError("dial failed", nil)
	wrapped := fmt.Errorf("start session: %w", err)

	if !IsType(wrapped, ErrConnection) {
		t.Error("expected IsType to match through wrapping")
	}
	if IsType(wrapped, ErrDeviceUnavailable) {
		t.Error("expected IsType to reject a different type")
	}
	if IsType(errors.New("plain"), ErrConnection) {
		t.Error("expected IsType to reject a non-Error")
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		err   *Error
		fatal bool
	}{
		{"malformed audio recovers", NewMalformedAudioError("bad chunk"), false},
		{"connection is fatal", NewConnectionError("dropped", nil), true},
		{"device is fatal", NewDeviceUnavailableError("busy", nil), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.IsFatal() != tt.fatal {
				t.Errorf("expected IsFatal=%v", tt.fatal)
			}
		})
	}
}
