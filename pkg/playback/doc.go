// Package playback schedules decoded audio chunks for gapless,
// jitter-tolerant output. The Scheduler owns the next-start cursor and
// the barge-in flush; OutputDevice abstracts the hardware so tests can
// drive the clock by hand.
package playback
