// Package session is the coordination layer: it wires the transport
// channel, microphone capture, frame sampling, and the playback
// scheduler into one lifecycle. The controller guarantees ordered
// teardown on every exit path (local stop, remote close, transport
// error) and delivers exactly one terminal status per connect attempt.
package session
