package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrNoFrame is returned by a FrameSource when no image is available
// this instant (device warming up, no new frame since the last grab).
// The sampler skips the tick; ticks are never queued.
var ErrNoFrame = errors.New("no frame available")

// DefaultFrameInterval is 400ms, i.e. 2.5 frames per second,
// independent of the audio chunk rate.
const DefaultFrameInterval = 400 * time.Millisecond

// FrameSource produces one compressed still image per call.
type FrameSource interface {
	Grab(ctx context.Context) ([]byte, error)
}

// FrameSampler polls a FrameSource on a fixed interval and hands each
// image to a callback. Grab errors skip the tick; they never stop the
// sampler or the session.
type FrameSampler struct {
	source   FrameSource
	interval time.Duration
	log      *slog.Logger

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewFrameSampler creates a sampler. Zero interval means
// DefaultFrameInterval; nil logger means slog.Default().
func NewFrameSampler(source FrameSource, interval time.Duration, logger *slog.Logger) *FrameSampler {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FrameSampler{
		source:   source,
		interval: interval,
		log:      logger,
		done:     make(chan struct{}),
	}
}

// Start begins sampling. onFrame receives the image bytes for each
// successful grab, called from the sampler's goroutine.
func (s *FrameSampler) Start(ctx context.Context, onFrame func(image []byte)) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx, onFrame)
}

func (s *FrameSampler) run(ctx context.Context, onFrame func(image []byte)) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			image, err := s.source.Grab(ctx)
			if errors.Is(err, ErrNoFrame) {
				continue
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.log.Warn("frame grab failed, skipping tick", "error", err)
				continue
			}
			if len(image) > 0 {
				onFrame(image)
			}
		}
	}
}

// Stop halts sampling and waits for the loop to exit. Idempotent.
func (s *FrameSampler) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel == nil {
			// Never started.
			return
		}
		s.cancel()
		<-s.done
	})
}
