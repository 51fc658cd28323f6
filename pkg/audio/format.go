package audio

import (
	"time"

	"github.com/sightline-ai/sightline/pkg/sightline"
)

// Format specifies PCM audio shape.
type Format struct {
	// SampleRate in Hz. Common values: 16000, 24000, 44100, 48000.
	SampleRate int `json:"sample_rate"`

	// Channels: 1 for mono, 2 for stereo.
	Channels int `json:"channels"`

	// BitsPerSample: typically 16 for PCM.
	BitsPerSample int `json:"bits_per_sample"`
}

// DefaultInputFormat is the capture-side format: 16 kHz mono 16-bit.
func DefaultInputFormat() Format {
	return Format{SampleRate: 16000, Channels: 1, BitsPerSample: 16}
}

// DefaultOutputFormat is the playback-side format: 24 kHz mono 16-bit.
// Capture and playback devices are configured independently; the
// asymmetric rates are intentional.
func DefaultOutputFormat() Format {
	return Format{SampleRate: 24000, Channels: 1, BitsPerSample: 16}
}

// Validate checks the format for usable values.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return sightline.NewInvalidConfigError("sample rate must be positive")
	}
	if f.Channels != 1 && f.Channels != 2 {
		return sightline.NewInvalidConfigError("channels must be 1 or 2")
	}
	if f.BitsPerSample != 16 {
		return sightline.NewInvalidConfigError("only 16-bit PCM is supported")
	}
	return nil
}

// BytesPerSecond returns the audio byte rate.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * (f.BitsPerSample / 8)
}

// BytesPerFrame returns the byte size of one sample frame across channels.
func (f Format) BytesPerFrame() int {
	return f.Channels * (f.BitsPerSample / 8)
}

// Duration returns the playback duration of the given byte count.
func (f Format) Duration(bytes int) time.Duration {
	bps := f.BytesPerSecond()
	if bps <= 0 || bytes <= 0 {
		return 0
	}
	return time.Duration(bytes) * time.Second / time.Duration(bps)
}

// BytesFor returns the byte count for the given duration, aligned down to
// a whole sample frame.
func (f Format) BytesFor(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	n := int(int64(f.BytesPerSecond()) * int64(d) / int64(time.Second))
	frame := f.BytesPerFrame()
	if frame > 0 {
		n -= n % frame
	}
	return n
}
