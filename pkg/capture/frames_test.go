package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// scriptedSource returns each result in order, then ErrNoFrame forever.
type scriptedSource struct {
	mu      sync.Mutex
	results []grabResult
	calls   int
}

type grabResult struct {
	image []byte
	err   error
}

func (s *scriptedSource) Grab(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.results) == 0 {
		return nil, ErrNoFrame
	}
	r := s.results[0]
	s.results = s.results[1:]
	return r.image, r.err
}

func (s *scriptedSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestFrameSamplerDeliversFrames(t *testing.T) {
	src := &scriptedSource{results: []grabResult{
		{image: []byte{0xFF, 0xD8, 0x01}},
		{err: ErrNoFrame},
		{err: errors.New("device glitch")},
		{image: []byte{0xFF, 0xD8, 0x02}},
	}}

	frames := make(chan []byte, 8)
	s := NewFrameSampler(src, 5*time.Millisecond, nil)
	s.Start(context.Background(), func(image []byte) {
		frames <- image
	})
	defer s.Stop()

	var got [][]byte
	deadline := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case f := <-frames:
			got = append(got, f)
		case <-deadline:
			t.Fatalf("timed out, delivered %d frames", len(got))
		}
	}

	// The ErrNoFrame tick and the error tick were skipped, not queued
	// and not fatal.
	if got[0][2] != 0x01 || got[1][2] != 0x02 {
		t.Errorf("frames delivered out of order: %v", got)
	}
}

func TestFrameSamplerStop(t *testing.T) {
	src := &scriptedSource{}
	s := NewFrameSampler(src, 5*time.Millisecond, nil)
	s.Start(context.Background(), func([]byte) {})

	// Let it tick a few times, then stop.
	time.Sleep(25 * time.Millisecond)
	s.Stop()
	calls := src.callCount()

	time.Sleep(25 * time.Millisecond)
	if src.callCount() != calls {
		t.Error("sampler kept grabbing after Stop")
	}

	// Idempotent.
	s.Stop()
}

func TestFrameSamplerStopBeforeStart(t *testing.T) {
	s := NewFrameSampler(&scriptedSource{}, time.Second, nil)
	s.Stop() // must not hang
}

func TestFrameSamplerDefaults(t *testing.T) {
	s := NewFrameSampler(&scriptedSource{}, 0, nil)
	if s.interval != DefaultFrameInterval {
		t.Errorf("expected default interval %v, got %v", DefaultFrameInterval, s.interval)
	}
}
