package playback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/sightline-ai/sightline/pkg/audio"
	"github.com/sightline-ai/sightline/pkg/sightline"
)

// Scheduler turns a stream of independently-arriving audio chunks into
// gapless, strictly ordered output. It owns the next-start cursor: when
// data arrives faster than real time chunks queue back to back; when
// data arrives late the cursor catches up to the device clock so
// nothing is scheduled in the past.
type Scheduler struct {
	device OutputDevice
	log    *slog.Logger

	mu        sync.Mutex
	nextStart time.Duration
	live      []scheduledSource
	closed    bool
}

type scheduledSource struct {
	source Source
	end    time.Duration
}

// NewScheduler creates a scheduler over the given output device.
// The cursor starts at the device clock's current position.
func NewScheduler(device OutputDevice, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		device:    device,
		log:       logger,
		nextStart: device.Now(),
	}
}

// Enqueue schedules one decoded chunk and returns its start position on
// the device clock. A failure to schedule skips the chunk and leaves
// the cursor unchanged so subsequent chunks still line up with what has
// already played.
func (s *Scheduler) Enqueue(chunk *audio.Chunk) (time.Duration, error) {
	if chunk == nil || chunk.Len() == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, sightline.NewSessionClosedError("scheduler is closed")
	}

	now := s.device.Now()
	start := s.nextStart
	if now > start {
		// The pipeline stalled past the cursor; play immediately
		// rather than in the past.
		start = now
	}

	source, err := s.device.Schedule(chunk, start)
	if err != nil {
		s.log.Warn("skipping chunk, schedule failed", "error", err, "start", start)
		return 0, err
	}

	s.prune(now)
	s.live = append(s.live, scheduledSource{source: source, end: start + chunk.Duration()})
	s.nextStart = start + chunk.Duration()
	return start, nil
}

// Flush implements barge-in: stop every queued and playing source
// immediately, clear the queue, and reset the cursor to the device
// clock. Barge-in latency is bounded by the stop calls alone, not by
// how much audio was queued.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
}

func (s *Scheduler) flushLocked() {
	for _, live := range s.live {
		live.source.Stop()
	}
	s.live = s.live[:0]
	s.nextStart = s.device.Now()
}

// Pending returns the number of live (scheduled or playing) sources.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune(s.device.Now())
	return len(s.live)
}

// NextStart returns the cursor: the device-clock position at which the
// next chunk will begin.
func (s *Scheduler) NextStart() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStart
}

// Close flushes all sources and releases the output device. Idempotent.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.flushLocked()
	s.closed = true
	return s.device.Close()
}

// prune drops sources that have finished playing. Called with s.mu held.
func (s *Scheduler) prune(now time.Duration) {
	kept := s.live[:0]
	for _, live := range s.live {
		if live.end > now {
			kept = append(kept, live)
		}
	}
	s.live = kept
}
