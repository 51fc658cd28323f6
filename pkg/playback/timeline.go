package playback

import (
	"time"

	"github.com/sightline-ai/sightline/pkg/audio"
)

// timeline maps scheduled sources onto a continuous byte stream: gaps
// render as silence, scheduled data is copied in at its byte offset.
// The position only advances as the consumer reads, so the read side
// (the hardware player) is the clock.
type timeline struct {
	format  audio.Format
	pos     int64 // bytes consumed so far
	sources []*timelineSource
}

type timelineSource struct {
	start   int64 // byte offset on the timeline
	data    []byte
	stopped bool
}

func newTimeline(format audio.Format) *timeline {
	return &timeline{format: format}
}

func (t *timeline) now() time.Duration {
	return t.format.Duration(int(t.pos))
}

// scheduleAt places data at the given clock position, aligned down to a
// whole sample frame.
func (t *timeline) scheduleAt(data []byte, at time.Duration) *timelineSource {
	start := int64(t.format.BytesFor(at))
	src := &timelineSource{start: start, data: data}
	t.sources = append(t.sources, src)
	return src
}

// read fills p from the timeline and advances the position. Regions with
// no scheduled source are silence.
func (t *timeline) read(p []byte) int {
	for i := range p {
		p[i] = 0
	}

	winStart := t.pos
	winEnd := t.pos + int64(len(p))

	kept := t.sources[:0]
	for _, src := range t.sources {
		if src.stopped {
			continue
		}
		srcEnd := src.start + int64(len(src.data))
		if srcEnd <= winStart {
			// Fully in the past; drop it.
			continue
		}
		kept = append(kept, src)
		if src.start >= winEnd {
			continue
		}

		from := winStart
		if src.start > from {
			from = src.start
		}
		to := winEnd
		if srcEnd < to {
			to = srcEnd
		}
		copy(p[from-winStart:to-winStart], src.data[from-src.start:to-src.start])
	}
	t.sources = kept

	t.pos = winEnd
	return len(p)
}
