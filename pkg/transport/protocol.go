package transport

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sightline-ai/sightline/pkg/audio"
	"github.com/sightline-ai/sightline/pkg/sightline"
)

// Wire envelope types. All frames are JSON text messages; binary audio
// payloads travel base64-encoded so the transport stays text-safe.
const (
	typeSetup       = "setup"
	typeReady       = "ready"
	typeAudio       = "audio"
	typeImage       = "image"
	typeInterrupted = "interrupted"
	typeClosed      = "closed"
	typeError       = "error"
)

// clientSetup is the first frame sent after the websocket opens.
// The server answers with a ready frame before any media flows.
type clientSetup struct {
	Type         string       `json:"type"`
	Version      string       `json:"version"`
	InputFormat  audio.Format `json:"input_format"`
	OutputFormat audio.Format `json:"output_format"`
}

type clientAudio struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

type clientImage struct {
	Type     string `json:"type"`
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type serverEnvelope struct {
	Type    string `json:"type"`
	Data    string `json:"data,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// decodeServerFrame turns one inbound text frame into an Event.
// A frame that cannot be decoded at the envelope level is a protocol
// error; a frame of an unknown type is surfaced as UnknownEvent.
func decodeServerFrame(data []byte) (Event, error) {
	var env serverEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode server frame: %w", err)
	}
	typ := strings.TrimSpace(env.Type)
	if typ == "" {
		return nil, fmt.Errorf("server frame missing type")
	}

	switch typ {
	case typeAudio:
		pcm, err := audio.DecodeBase64(env.Data)
		if err != nil {
			return nil, err
		}
		return AudioEvent{Data: pcm}, nil
	case typeInterrupted:
		return InterruptedEvent{}, nil
	case typeClosed:
		return ClosedEvent{Reason: env.Reason}, nil
	case typeError:
		msg := strings.TrimSpace(env.Message)
		if msg == "" {
			msg = "remote error"
		}
		if env.Code != "" {
			msg = fmt.Sprintf("%s (code: %s)", msg, env.Code)
		}
		return ErrorEvent{Err: sightline.NewConnectionError(msg, nil)}, nil
	default:
		return UnknownEvent{Type: typ, Raw: append(json.RawMessage(nil), data...)}, nil
	}
}
