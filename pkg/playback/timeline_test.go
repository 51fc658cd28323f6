package playback

import (
	"bytes"
	"testing"
	"time"

	"github.com/sightline-ai/sightline/pkg/audio"
)

func TestTimelineSilenceThenData(t *testing.T) {
	f := audio.Format{SampleRate: 1000, Channels: 1, BitsPerSample: 16} // 2000 bytes/sec
	tl := newTimeline(f)

	// Schedule 4 bytes at t=2ms (byte offset 4).
	tl.scheduleAt([]byte{1, 2, 3, 4}, 2*time.Millisecond)

	p := make([]byte, 8)
	tl.read(p)
	want := []byte{0, 0, 0, 0, 1, 2, 3, 4}
	if !bytes.Equal(p, want) {
		t.Errorf("expected %v, got %v", want, p)
	}
	if tl.now() != 4*time.Millisecond {
		t.Errorf("expected clock at 4ms, got %v", tl.now())
	}
}

func TestTimelineSpansReads(t *testing.T) {
	f := audio.Format{SampleRate: 1000, Channels: 1, BitsPerSample: 16}
	tl := newTimeline(f)
	tl.scheduleAt([]byte{1, 2, 3, 4, 5, 6}, 1*time.Millisecond) // offset 2

	first := make([]byte, 4)
	tl.read(first)
	if !bytes.Equal(first, []byte{0, 0, 1, 2}) {
		t.Errorf("first read: got %v", first)
	}

	second := make([]byte, 4)
	tl.read(second)
	if !bytes.Equal(second, []byte{3, 4, 5, 6}) {
		t.Errorf("second read: got %v", second)
	}

	// Past the source: silence again.
	third := make([]byte, 2)
	tl.read(third)
	if !bytes.Equal(third, []byte{0, 0}) {
		t.Errorf("third read: got %v", third)
	}
}

func TestTimelineBackToBackSources(t *testing.T) {
	f := audio.Format{SampleRate: 1000, Channels: 1, BitsPerSample: 16}
	tl := newTimeline(f)
	tl.scheduleAt([]byte{1, 1}, 0)
	tl.scheduleAt([]byte{2, 2}, 1*time.Millisecond)
	tl.scheduleAt([]byte{3, 3}, 2*time.Millisecond)

	p := make([]byte, 6)
	tl.read(p)
	want := []byte{1, 1, 2, 2, 3, 3}
	if !bytes.Equal(p, want) {
		t.Errorf("expected gapless %v, got %v", want, p)
	}
}

func TestTimelineStoppedSourceIsSilent(t *testing.T) {
	f := audio.Format{SampleRate: 1000, Channels: 1, BitsPerSample: 16}
	tl := newTimeline(f)
	src := tl.scheduleAt([]byte{9, 9, 9, 9}, 0)
	src.stopped = true

	p := make([]byte, 4)
	tl.read(p)
	if !bytes.Equal(p, []byte{0, 0, 0, 0}) {
		t.Errorf("expected silence from stopped source, got %v", p)
	}
}

func TestTimelineScheduledInPastPlaysRemainder(t *testing.T) {
	f := audio.Format{SampleRate: 1000, Channels: 1, BitsPerSample: 16}
	tl := newTimeline(f)

	// Consume 4 bytes, then schedule a source starting at offset 2:
	// its first 2 bytes are already in the past and are skipped.
	tl.read(make([]byte, 4))
	tl.scheduleAt([]byte{1, 2, 3, 4}, 1*time.Millisecond)

	p := make([]byte, 2)
	tl.read(p)
	if !bytes.Equal(p, []byte{3, 4}) {
		t.Errorf("expected remainder {3 4}, got %v", p)
	}
}
