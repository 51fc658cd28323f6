package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/sightline-ai/sightline/pkg/audio"
	"github.com/sightline-ai/sightline/pkg/capture"
	"github.com/sightline-ai/sightline/pkg/playback"
	"github.com/sightline-ai/sightline/pkg/sightline"
	"github.com/sightline-ai/sightline/pkg/transport"
)

// Microphone is what the controller needs from the capture side: start
// delivering PCM blocks to a callback, and release the hardware.
// *capture.Microphone satisfies it.
type Microphone interface {
	Start(onBlock func(pcm []byte)) error
	Close() error
}

// Config wires the controller to its collaborators. Dial,
// OpenMicrophone, and OpenOutput are constructors rather than instances
// because each connect attempt acquires fresh resources.
type Config struct {
	// Dial establishes the transport channel for one session.
	Dial func(ctx context.Context) (transport.Channel, error)

	// OpenMicrophone acquires the capture hardware. Called once the
	// channel reports opened; a failure aborts the session.
	OpenMicrophone func() (Microphone, error)

	// OpenOutput acquires the playback device and clock.
	OpenOutput func() (playback.OutputDevice, error)

	// FrameSource, when non-nil, is polled for video frames on
	// FrameInterval. Nil means an audio-only session.
	FrameSource capture.FrameSource

	// FrameInterval is the video sampling period. Zero means
	// capture.DefaultFrameInterval.
	FrameInterval time.Duration

	// FrameMIMEType labels sampled frames. Default: "image/jpeg".
	FrameMIMEType string

	// OutputFormat describes inbound audio. Default: 24 kHz mono 16-bit.
	OutputFormat audio.Format

	// OnStatus, when non-nil, receives lifecycle changes: connected once
	// per successful open, then exactly one terminal status. Called from
	// the session goroutine; it must not block.
	OnStatus func(Status)

	// Logger is the session logger. Nil means slog.Default().
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.FrameInterval <= 0 {
		c.FrameInterval = capture.DefaultFrameInterval
	}
	if c.FrameMIMEType == "" {
		c.FrameMIMEType = "image/jpeg"
	}
	if c.OutputFormat == (audio.Format{}) {
		c.OutputFormat = audio.DefaultOutputFormat()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Validate checks that the required constructors are present.
func (c Config) Validate() error {
	if c.Dial == nil {
		return sightline.NewInvalidConfigError("Dial is required")
	}
	if c.OpenMicrophone == nil {
		return sightline.NewInvalidConfigError("OpenMicrophone is required")
	}
	if c.OpenOutput == nil {
		return sightline.NewInvalidConfigError("OpenOutput is required")
	}
	return c.OutputFormat.Validate()
}
