package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/sightline-ai/sightline/pkg/audio"
	"github.com/sightline-ai/sightline/pkg/capture"
	"github.com/sightline-ai/sightline/pkg/playback"
	"github.com/sightline-ai/sightline/pkg/sightline"
	"github.com/sightline-ai/sightline/pkg/transport"
)

// Controller owns the session lifecycle: it dials the transport, starts
// capture when the channel opens, feeds inbound audio to the playback
// scheduler, and tears everything down in a fixed order on any exit
// path. One Controller runs at most one live session; Start while a
// session is live tears the old one down first.
type Controller struct {
	cfg Config
	log *slog.Logger

	mu   sync.Mutex
	live *liveSession
}

// New creates a controller. The config is validated up front so a
// miswired controller fails at construction, not mid-session.
func New(cfg Config) (*Controller, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Controller{cfg: cfg, log: cfg.Logger}, nil
}

// Start establishes a new session: acquires the output device, dials
// the transport, and hands inbound events to the session goroutine.
// Capture does not begin until the channel reports opened. A failure
// during Start releases everything acquired so far and delivers a
// terminal error status.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	prev := c.live
	c.live = nil
	c.mu.Unlock()
	if prev != nil {
		prev.teardown(Status{Kind: StatusDisconnected, SessionID: prev.id})
	}

	s := &liveSession{
		cfg: c.cfg,
		id:  uuid.NewString(),
	}
	s.log = c.log.With("session_id", s.id)
	s.state.Store(int32(StateConnecting))

	device, err := c.cfg.OpenOutput()
	if err != nil {
		s.log.Error("output device unavailable", "error", err)
		c.fail(s, err)
		return err
	}
	s.scheduler = playback.NewScheduler(device, s.log)

	ch, err := c.cfg.Dial(ctx)
	if err != nil {
		s.log.Error("dial failed", "error", err)
		_ = s.scheduler.Close()
		c.fail(s, err)
		return err
	}
	s.channel = ch

	c.mu.Lock()
	c.live = s
	c.mu.Unlock()

	go s.run()
	return nil
}

// fail records a connect attempt that never produced a running
// session. The dead session is retained so State and SessionID keep
// reporting the attempt's terminal error instead of reverting to idle.
func (c *Controller) fail(s *liveSession, err error) {
	s.tornDown.Store(true)
	s.inactive.Store(true)
	s.deliverTerminal(StateError, Status{Kind: StatusError, SessionID: s.id, Err: err})

	c.mu.Lock()
	c.live = s
	c.mu.Unlock()
}

// Stop ends the live session, if any, and delivers a disconnected
// status. Safe to call from any state, including concurrently with a
// remote close; whichever path runs first wins and the other is a
// no-op.
func (c *Controller) Stop() {
	c.mu.Lock()
	s := c.live
	c.mu.Unlock()
	if s != nil {
		s.teardown(Status{Kind: StatusDisconnected, SessionID: s.id})
	}
}

// SendFrame transmits one compressed video frame on the live session,
// for owners that source frames themselves instead of configuring a
// FrameSource.
func (c *Controller) SendFrame(image []byte, mimeType string) error {
	c.mu.Lock()
	s := c.live
	c.mu.Unlock()
	if s == nil || !s.active() {
		return sightline.NewSessionClosedError("no live session")
	}
	return s.channel.SendFrame(image, mimeType)
}

// State reports the live session's state, or the terminal state of the
// last session. StateIdle before any Start.
func (c *Controller) State() State {
	c.mu.Lock()
	s := c.live
	c.mu.Unlock()
	if s == nil {
		return StateIdle
	}
	return State(s.state.Load())
}

// SessionID returns the most recent session's identifier, or "" before
// the first Start.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.live == nil {
		return ""
	}
	return c.live.id
}

// liveSession is one connect attempt's worth of resources. channel and
// scheduler are set before run() starts; mic and sampler are acquired
// by the session goroutine and published under mu so teardown, which
// may run on any goroutine, always sees what has been acquired.
type liveSession struct {
	cfg Config
	id  string
	log *slog.Logger

	channel   transport.Channel
	scheduler *playback.Scheduler

	mu            sync.Mutex
	mic           Microphone
	sampler       *capture.FrameSampler
	opening       bool
	pendingState  State
	pendingStatus *Status

	state        atomic.Int32
	inactive     atomic.Bool
	tornDown     atomic.Bool
	terminalOnce sync.Once
}

func (s *liveSession) active() bool {
	return !s.inactive.Load()
}

// run is the session goroutine: the single consumer of transport
// events. It drains the event stream to completion even after teardown
// so the transport's read loop is never wedged.
func (s *liveSession) run() {
	for ev := range s.channel.Events() {
		if !s.active() {
			continue
		}
		switch e := ev.(type) {
		case transport.OpenedEvent:
			s.onOpen()
		case transport.AudioEvent:
			s.onAudio(e.Data)
		case transport.InterruptedEvent:
			s.log.Debug("interrupted, flushing playback")
			s.scheduler.Flush()
		case transport.ClosedEvent:
			s.log.Info("session closed by remote", "reason", e.Reason)
			s.teardown(Status{Kind: StatusDisconnected, SessionID: s.id})
		case transport.ErrorEvent:
			s.log.Error("transport failed", "error", e.Err)
			s.teardown(Status{Kind: StatusError, SessionID: s.id, Err: e.Err})
		case transport.UnknownEvent:
			s.log.Debug("ignoring unknown event", "type", e.Type)
		}
	}
	// The event stream ended without a terminal event reaching us; make
	// sure the session still winds down exactly once.
	s.teardown(Status{Kind: StatusDisconnected, SessionID: s.id})
}

// onOpen transitions to connected: microphone capture and, when
// configured, the video frame timer begin here, never earlier. A
// microphone failure at this point aborts the session.
//
// A Stop may land at any point while resources are being acquired, so
// each resource is published under mu only after re-checking the
// inactive flag; a resource acquired by a dead session is released on
// the spot. While opening is set, teardown defers its terminal status
// to finishOpen, so a connected status can never follow the terminal
// one.
func (s *liveSession) onOpen() {
	s.mu.Lock()
	if s.inactive.Load() {
		s.mu.Unlock()
		return
	}
	s.opening = true
	s.mu.Unlock()
	defer s.finishOpen()

	mic, err := s.cfg.OpenMicrophone()
	if err != nil {
		s.log.Error("microphone unavailable", "error", err)
		s.teardown(Status{Kind: StatusError, SessionID: s.id, Err: err})
		return
	}
	if err := mic.Start(s.onBlock); err != nil {
		_ = mic.Close()
		s.log.Error("microphone start failed", "error", err)
		s.teardown(Status{Kind: StatusError, SessionID: s.id, Err: err})
		return
	}
	s.mu.Lock()
	if s.inactive.Load() {
		s.mu.Unlock()
		// Torn down mid-acquisition; teardown saw no mic, release here.
		_ = mic.Close()
		return
	}
	s.mic = mic
	s.mu.Unlock()

	if s.cfg.FrameSource != nil {
		sampler := capture.NewFrameSampler(s.cfg.FrameSource, s.cfg.FrameInterval, s.log)
		sampler.Start(context.Background(), s.onFrame)
		s.mu.Lock()
		if s.inactive.Load() {
			s.mu.Unlock()
			sampler.Stop()
			return
		}
		s.sampler = sampler
		s.mu.Unlock()
	}

	s.mu.Lock()
	if s.inactive.Load() {
		s.mu.Unlock()
		return
	}
	s.state.Store(int32(StateConnected))
	s.mu.Unlock()

	s.log.Info("session connected")
	if s.cfg.OnStatus != nil {
		s.cfg.OnStatus(Status{Kind: StatusConnected, SessionID: s.id})
	}
}

// finishOpen clears the opening flag and delivers a terminal status
// that arrived while onOpen was still acquiring resources.
func (s *liveSession) finishOpen() {
	s.mu.Lock()
	s.opening = false
	status := s.pendingStatus
	state := s.pendingState
	s.pendingStatus = nil
	s.mu.Unlock()
	if status != nil {
		s.deliverTerminal(state, *status)
	}
}

// onBlock runs on the microphone delivery goroutine.
func (s *liveSession) onBlock(pcm []byte) {
	if !s.active() {
		return
	}
	if err := s.channel.SendAudio(pcm); err != nil {
		s.log.Warn("audio send failed", "error", err)
	}
}

// onFrame runs on the frame sampler goroutine.
func (s *liveSession) onFrame(image []byte) {
	if !s.active() {
		return
	}
	if err := s.channel.SendFrame(image, s.cfg.FrameMIMEType); err != nil {
		s.log.Warn("frame send failed", "error", err)
	}
}

// onAudio schedules one inbound chunk. Malformed audio is logged and
// skipped; it never ends the session.
func (s *liveSession) onAudio(data []byte) {
	chunk, err := audio.NewChunk(data, s.cfg.OutputFormat)
	if err != nil {
		s.log.Warn("skipping malformed audio chunk", "error", err, "bytes", len(data))
		return
	}
	start, err := s.scheduler.Enqueue(chunk)
	if err != nil {
		return
	}
	s.log.Debug("scheduled chunk", "start", start, "duration", chunk.Duration())
}

// teardown winds the session down in a fixed order: mark inactive,
// close the transport, release capture, release playback, then deliver
// the terminal status. Runs at most once; a concurrent second call
// returns immediately after observing the inactive flag.
func (s *liveSession) teardown(status Status) {
	if !s.tornDown.CompareAndSwap(false, true) {
		return
	}
	s.inactive.Store(true)

	if err := s.channel.Close(); err != nil {
		s.log.Warn("transport close failed", "error", err)
	}
	s.mu.Lock()
	mic := s.mic
	sampler := s.sampler
	s.mu.Unlock()
	if mic != nil {
		if err := mic.Close(); err != nil {
			s.log.Warn("microphone close failed", "error", err)
		}
	}
	if sampler != nil {
		sampler.Stop()
	}
	if err := s.scheduler.Close(); err != nil {
		s.log.Warn("playback close failed", "error", err)
	}

	state := StateDisconnected
	if status.Kind == StatusError {
		state = StateError
	}
	s.log.Info("session ended", "state", state.String())

	s.mu.Lock()
	if s.opening {
		// The session goroutine is mid-acquisition in onOpen; it
		// delivers the status after releasing whatever it acquired.
		s.pendingState = state
		st := status
		s.pendingStatus = &st
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.deliverTerminal(state, status)
}

// deliverTerminal sets the terminal state and delivers the status
// exactly once, even when a Start failure and a teardown race.
func (s *liveSession) deliverTerminal(state State, status Status) {
	s.terminalOnce.Do(func() {
		s.state.Store(int32(state))
		if s.cfg.OnStatus != nil {
			s.cfg.OnStatus(status)
		}
	})
}
