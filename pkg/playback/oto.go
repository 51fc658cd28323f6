package playback

import (
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/sightline-ai/sightline/pkg/audio"
	"github.com/sightline-ai/sightline/pkg/sightline"
)

// otoBufferSize keeps hardware latency low; barge-in can only truncate
// audio that has not yet been handed to the device.
const otoBufferSize = 50 * time.Millisecond

// OtoDevice is the real OutputDevice over an oto audio context. It
// implements io.Reader: the oto player pulls PCM continuously, so the
// timeline position advances in real time and doubles as the clock.
type OtoDevice struct {
	mu       sync.Mutex
	timeline *timeline
	player   *oto.Player
	closed   bool
}

var _ OutputDevice = (*OtoDevice)(nil)

// NewOtoDevice opens the output device for the given format and starts
// the pull loop. Acquisition failure surfaces as DeviceUnavailable.
func NewOtoDevice(format audio.Format) (*OtoDevice, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   otoBufferSize,
	})
	if err != nil {
		return nil, sightline.NewDeviceUnavailableError("open audio output", err)
	}
	<-ready

	d := &OtoDevice{timeline: newTimeline(format)}
	d.player = ctx.NewPlayer(d)
	d.player.Play()
	return d, nil
}

// Now returns the device clock position.
func (d *OtoDevice) Now() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timeline.now()
}

// Schedule queues a chunk at the given clock position.
func (d *OtoDevice) Schedule(chunk *audio.Chunk, at time.Duration) (Source, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, sightline.NewSessionClosedError("output device is closed")
	}
	src := d.timeline.scheduleAt(chunk.Data(), at)
	return &otoSource{dev: d, src: src}, nil
}

// Read implements io.Reader for the oto player. Never blocks: gaps in
// the schedule render as silence.
func (d *OtoDevice) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		// Silence lets the player drain gracefully.
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	return d.timeline.read(p), nil
}

// Close releases the output device. Idempotent.
func (d *OtoDevice) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	player := d.player
	d.mu.Unlock()

	if player != nil {
		return player.Close()
	}
	return nil
}

type otoSource struct {
	dev *OtoDevice
	src *timelineSource
}

func (s *otoSource) Stop() {
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	s.src.stopped = true
}
