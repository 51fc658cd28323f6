package transport

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sightline-ai/sightline/pkg/audio"
	"github.com/sightline-ai/sightline/pkg/sightline"
)

const (
	defaultDialTimeout = 15 * time.Second
	defaultEventBuffer = 256
	closeWriteTimeout  = 2 * time.Second
)

// Config configures a websocket channel.
type Config struct {
	// URL of the duplex endpoint. http(s) schemes are rewritten to ws(s).
	URL string

	// APIKey, when set, is sent as a bearer token on the upgrade request.
	APIKey string

	// Header carries extra upgrade-request headers.
	Header http.Header

	// InputFormat and OutputFormat are announced in the setup frame.
	InputFormat  audio.Format
	OutputFormat audio.Format

	// DialTimeout bounds connect when the caller's context has no
	// deadline. Default: 15s.
	DialTimeout time.Duration

	// EventBuffer sizes the inbound event channel. Default: 256.
	EventBuffer int

	// Logger is used for recovered faults. Nil means slog.Default().
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.DialTimeout <= 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = defaultEventBuffer
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// WebSocketChannel is a Channel over one persistent websocket connection.
//
// Inbound events flow read loop -> queue -> pump goroutine -> events
// channel. The queue is bounded for audio only: control events
// (opened, interruption, terminal) are always queued because
// correctness depends on them, so the read loop never blocks on a
// slow consumer and never discards a control event.
type WebSocketChannel struct {
	conn *websocket.Conn
	log  *slog.Logger

	events chan Event
	done   chan struct{}
	wake   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	queueMu     sync.Mutex
	queue       []Event
	queuedAudio int
	maxAudio    int
	queueClosed bool

	terminalOnce sync.Once
	dropped      atomic.Int64
}

var _ Channel = (*WebSocketChannel)(nil)

// Dial opens the duplex connection: one attempt, no retry. It sends the
// setup frame and waits for the server's ready frame before returning,
// so a non-nil channel is ready to carry media in both directions.
func Dial(ctx context.Context, cfg Config) (*WebSocketChannel, error) {
	cfg = cfg.withDefaults()

	wsURL, err := websocketURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	headers := make(http.Header)
	for k, v := range cfg.Header {
		headers[k] = v
	}
	if cfg.APIKey != "" {
		headers.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, sightline.NewConnectionError(
				"websocket dial failed (status "+resp.Status+")", err)
		}
		return nil, sightline.NewConnectionError("websocket dial failed", err)
	}

	setup := clientSetup{
		Type:         typeSetup,
		Version:      sightline.Version,
		InputFormat:  cfg.InputFormat,
		OutputFormat: cfg.OutputFormat,
	}
	if err := conn.WriteJSON(setup); err != nil {
		_ = conn.Close()
		return nil, sightline.NewConnectionError("send setup frame", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(cfg.DialTimeout))
	messageType, payload, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, sightline.NewConnectionError("read setup ack", err)
	}
	_ = conn.SetReadDeadline(time.Time{})
	if messageType != websocket.TextMessage {
		_ = conn.Close()
		return nil, sightline.NewConnectionError("unexpected first frame type", nil)
	}

	first, err := decodeServerFrame(payload)
	if err != nil {
		_ = conn.Close()
		return nil, sightline.NewConnectionError("decode setup ack", err)
	}
	switch e := first.(type) {
	case UnknownEvent:
		if e.Type != typeReady {
			_ = conn.Close()
			return nil, sightline.NewConnectionError("expected ready frame, got "+e.Type, nil)
		}
	case ErrorEvent:
		_ = conn.Close()
		return nil, e.Err
	default:
		_ = conn.Close()
		return nil, sightline.NewConnectionError("expected ready frame", nil)
	}

	ch := &WebSocketChannel{
		conn:     conn,
		log:      cfg.Logger,
		events:   make(chan Event, cfg.EventBuffer),
		done:     make(chan struct{}),
		wake:     make(chan struct{}, 1),
		maxAudio: cfg.EventBuffer,
	}
	ch.enqueue(OpenedEvent{})
	go ch.pump()
	go ch.readLoop()
	return ch, nil
}

// Events yields inbound events.
func (c *WebSocketChannel) Events() <-chan Event {
	if c == nil {
		return nil
	}
	return c.events
}

// SendAudio transmits one PCM chunk. On a closing or closed channel it
// is a silent no-op so capture callbacks never observe transport errors.
func (c *WebSocketChannel) SendAudio(pcm []byte) error {
	if c == nil || len(pcm) == 0 {
		return nil
	}
	return c.writeJSON(clientAudio{Type: typeAudio, Data: audio.EncodeBase64(pcm)})
}

// SendFrame transmits one compressed video frame.
func (c *WebSocketChannel) SendFrame(image []byte, mimeType string) error {
	if c == nil || len(image) == 0 {
		return nil
	}
	if strings.TrimSpace(mimeType) == "" {
		mimeType = "image/jpeg"
	}
	return c.writeJSON(clientImage{
		Type:     typeImage,
		MimeType: mimeType,
		Data:     audio.EncodeBase64(image),
	})
}

func (c *WebSocketChannel) writeJSON(v any) error {
	if c.closed.Load() {
		return nil
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed.Load() {
		return nil
	}
	if err := c.conn.WriteJSON(v); err != nil {
		if c.closed.Load() {
			return nil
		}
		return sightline.NewConnectionError("websocket write", err)
	}
	return nil
}

// Close tears down the connection. Idempotent; waits for the read loop
// to exit, at which point the terminal event is queued for delivery.
func (c *WebSocketChannel) Close() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeWriteTimeout))
		c.writeMu.Unlock()
		_ = c.conn.Close()
	})
	<-c.done
	return nil
}

// DroppedEvents reports how many inbound audio events were discarded
// because the consumer fell behind.
func (c *WebSocketChannel) DroppedEvents() int64 {
	return c.dropped.Load()
}

func (c *WebSocketChannel) readLoop() {
	defer close(c.done)
	defer c.closeQueue()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				c.emitTerminal(ClosedEvent{Reason: "closed by client"})
			} else if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.emitTerminal(ClosedEvent{Reason: "closed by remote"})
			} else {
				c.emitTerminal(ErrorEvent{Err: sightline.NewConnectionError("websocket read", err)})
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		event, err := decodeServerFrame(data)
		if err != nil {
			if sightline.IsType(err, sightline.ErrMalformedAudio) {
				// Bad payload in one frame; skip it, the stream survives.
				c.log.Warn("skipping malformed inbound frame", "error", err)
				continue
			}
			c.emitTerminal(ErrorEvent{Err: sightline.NewConnectionError("protocol error", err)})
			return
		}

		switch e := event.(type) {
		case ClosedEvent:
			c.emitTerminal(e)
			return
		case ErrorEvent:
			c.emitTerminal(e)
			return
		default:
			c.enqueue(event)
		}
	}
}

// emitTerminal delivers exactly one terminal event per connection.
func (c *WebSocketChannel) emitTerminal(event Event) {
	c.terminalOnce.Do(func() {
		c.enqueue(event)
	})
}

// enqueue hands an inbound event to the pump. Only audio is bounded:
// past an EventBuffer-deep backlog new audio events are dropped and
// counted, the scheduler recovers via its catch-up path. Everything
// else is queued unconditionally.
func (c *WebSocketChannel) enqueue(event Event) {
	c.queueMu.Lock()
	if c.queueClosed {
		c.queueMu.Unlock()
		return
	}
	if _, isAudio := event.(AudioEvent); isAudio {
		if c.queuedAudio >= c.maxAudio {
			c.queueMu.Unlock()
			c.dropped.Add(1)
			c.log.Warn("dropping inbound audio event, consumer is behind")
			return
		}
		c.queuedAudio++
	}
	c.queue = append(c.queue, event)
	c.queueMu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *WebSocketChannel) closeQueue() {
	c.queueMu.Lock()
	c.queueClosed = true
	c.queueMu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// pump drains the queue into the consumer-facing channel. It is the
// only writer to c.events and closes it once the queue is closed and
// fully drained, i.e. after the terminal event has gone out.
func (c *WebSocketChannel) pump() {
	defer close(c.events)
	for {
		c.queueMu.Lock()
		for len(c.queue) == 0 {
			closed := c.queueClosed
			c.queueMu.Unlock()
			if closed {
				return
			}
			<-c.wake
			c.queueMu.Lock()
		}
		event := c.queue[0]
		c.queue[0] = nil
		c.queue = c.queue[1:]
		if _, isAudio := event.(AudioEvent); isAudio {
			c.queuedAudio--
		}
		c.queueMu.Unlock()

		c.events <- event
	}
}

func websocketURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", sightline.NewInvalidConfigError("invalid endpoint URL")
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// already a websocket scheme.
	default:
		return "", sightline.NewInvalidConfigError("endpoint URL must use http(s) or ws(s)")
	}
	return u.String(), nil
}
