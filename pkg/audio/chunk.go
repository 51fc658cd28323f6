package audio

import (
	"time"

	"github.com/sightline-ai/sightline/pkg/sightline"
)

// Chunk is an immutable buffer of PCM samples tagged with its format.
type Chunk struct {
	data   []byte
	format Format
}

// NewChunk copies data into a chunk. The buffer must hold whole sample
// frames for the format.
func NewChunk(data []byte, format Format) (*Chunk, error) {
	frame := format.BytesPerFrame()
	if frame <= 0 || len(data)%frame != 0 {
		return nil, sightline.NewMalformedAudioError("chunk is not a whole number of sample frames")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Chunk{data: buf, format: format}, nil
}

// Data returns the raw PCM bytes. Callers must not modify the result.
func (c *Chunk) Data() []byte {
	return c.data
}

// Format returns the chunk's audio format.
func (c *Chunk) Format() Format {
	return c.format
}

// Len returns the byte length.
func (c *Chunk) Len() int {
	return len(c.data)
}

// Samples returns the number of sample frames in the chunk.
func (c *Chunk) Samples() int {
	return len(c.data) / c.format.BytesPerFrame()
}

// Duration returns the chunk's playback duration.
func (c *Chunk) Duration() time.Duration {
	return c.format.Duration(len(c.data))
}

// Floats decodes the chunk into normalized float samples.
func (c *Chunk) Floats() ([]float32, error) {
	return Decode(c.data)
}
