package playback

import (
	"time"

	"github.com/sightline-ai/sightline/pkg/audio"
)

// OutputDevice abstracts the audio output hardware. Its clock is the
// only timeline the scheduler trusts: Now is the device's playback
// position, monotonically advancing while the device is open.
type OutputDevice interface {
	// Now returns the device clock's current position.
	Now() time.Duration

	// Schedule queues a chunk to begin playing at the given position on
	// the device clock. Once started a source cannot be rescheduled,
	// only stopped.
	Schedule(chunk *audio.Chunk, at time.Duration) (Source, error)

	// Close stops output and releases the device.
	Close() error
}

// Source is one scheduled chunk en route to the output device.
type Source interface {
	// Stop silences the source immediately, whether it is playing or
	// still pending. Stop is idempotent.
	Stop()
}
