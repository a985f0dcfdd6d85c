package live

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Client is the session protocol client. It owns at most one Channel at
// a time, drives the handshake state machine and re-emits classified
// inbound frames as typed events, in arrival order, on a single event
// channel consumed by a dispatch loop.
type Client struct {
	cfg    Config
	logger Logger
	dial   ChannelFactory

	ctx    context.Context
	cancel context.CancelFunc
	events chan Event

	mu    sync.Mutex
	ch    Channel
	state SessionState

	emitMu sync.RWMutex
	closed bool
}

// New creates a client with a no-op logger and the websocket transport.
func New(cfg Config) *Client {
	return NewWithLogger(cfg, &NoOpLogger{})
}

// NewWithLogger creates a client with a custom logger.
// If logger is nil, a no-op logger is used.
func NewWithLogger(cfg Config, logger Logger) *Client {
	return NewWithChannelFactory(cfg, logger, NewWebsocketChannel)
}

// NewWithChannelFactory creates a client with a custom transport. The
// factory is invoked once per connection attempt.
func NewWithChannelFactory(cfg Config, logger Logger, dial ChannelFactory) *Client {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		cfg:    cfg,
		logger: logger,
		dial:   dial,
		ctx:    ctx,
		cancel: cancel,
		events: make(chan Event, 1024),
		state:  StateDisconnected,
	}
}

// Events returns the typed event stream. Events are never reordered
// relative to frame arrival.
func (c *Client) Events() <-chan Event {
	return c.events
}

// State returns a snapshot of the current session state.
func (c *Client) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect opens exactly one Channel and resolves once the transport
// reports open. Setup completion is signaled separately through
// EventSetupComplete; the auth frame and the setup frame are transmitted,
// in that order, before any other outbound frame.
func (c *Client) Connect(ctx context.Context, session SessionConfig) error {
	if c.cfg.BearerToken == "" {
		return ErrMissingToken
	}

	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return fmt.Errorf("%w: state is %s", ErrAlreadyConnected, c.state)
	}
	c.state = StateConnecting
	c.mu.Unlock()

	ch := c.dial()
	if err := ch.Open(ctx, c.cfg.ServiceURL); err != nil {
		_ = ch.Close()
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		c.logger.Error("channel open failed", "url", c.cfg.ServiceURL, "error", err)
		c.emitLog(fmt.Sprintf("channel open failed: %v", err))
		if errors.Is(err, ErrChannelOpen) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrChannelOpen, err)
	}

	c.mu.Lock()
	c.ch = ch
	c.state = StateAwaitingSetup
	c.mu.Unlock()

	c.logger.Info("channel open", "model", session.Model)
	c.emit(Event{Type: EventOpen})

	auth, err := EncodeAuth(c.cfg.BearerToken)
	if err == nil {
		err = ch.Send(ctx, auth)
	}
	if err == nil {
		var setup []byte
		setup, err = EncodeSetup(session)
		if err == nil {
			err = ch.Send(ctx, setup)
		}
	}
	if err != nil {
		c.logger.Error("handshake send failed", "error", err)
		c.teardown(ch, err)
		return fmt.Errorf("%w: handshake: %v", ErrChannelOpen, err)
	}

	go c.readLoop(ch)
	return nil
}

// Disconnect closes the current channel. It is idempotent: with no
// current channel it reports "nothing to disconnect" and succeeds.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	ch := c.ch
	if ch == nil {
		c.mu.Unlock()
		c.logger.Info("disconnect: nothing to disconnect")
		return nil
	}
	c.ch = nil
	c.state = StateClosing
	c.mu.Unlock()

	_ = ch.Close()

	c.mu.Lock()
	c.state = StateDisconnected
	c.mu.Unlock()

	c.logger.Info("disconnected")
	c.emit(Event{Type: EventClose})
	return nil
}

// Close tears the client down for good: the channel is closed and the
// event stream ends. The client must not be reused afterwards.
func (c *Client) Close() {
	_ = c.Disconnect()
	c.cancel()
	// Taking the write lock waits out any in-flight emit, so no sender
	// can hit the channel once it is closed.
	c.emitMu.Lock()
	c.closed = true
	c.emitMu.Unlock()
	close(c.events)
}

// SendContent wraps parts into a client_content frame and transmits it
// immediately. Readiness is a precondition: outside StateReady the call
// fails fast and no frame is transmitted.
func (c *Client) SendContent(ctx context.Context, parts []Part, turnComplete bool) error {
	ch, err := c.readyChannel()
	if err != nil {
		return err
	}
	frame, err := EncodeClientContent(parts, turnComplete)
	if err != nil {
		return err
	}
	return ch.Send(ctx, frame)
}

// SendRealtimeInput transmits raw media chunks for low-latency ingestion.
// The audio/image classification below is telemetry only; the protocol
// does not branch on it.
func (c *Client) SendRealtimeInput(ctx context.Context, chunks []MediaChunk) error {
	ch, err := c.readyChannel()
	if err != nil {
		return err
	}

	hasAudio, hasImage := false, false
	for _, chunk := range chunks {
		if strings.HasPrefix(chunk.MIMEType, "audio") {
			hasAudio = true
		}
		if strings.HasPrefix(chunk.MIMEType, "image") {
			hasImage = true
		}
	}
	c.logger.Debug("sending realtime input", "chunks", len(chunks), "audio", hasAudio, "image", hasImage)

	frame, err := EncodeRealtimeInput(chunks)
	if err != nil {
		return err
	}
	return ch.Send(ctx, frame)
}

// SendToolResponse transmits function responses correlated by call id.
func (c *Client) SendToolResponse(ctx context.Context, responses []FunctionResponse) error {
	ch, err := c.readyChannel()
	if err != nil {
		return err
	}
	frame, err := EncodeToolResponse(responses)
	if err != nil {
		return err
	}
	return ch.Send(ctx, frame)
}

// teardown closes a partially-established channel after a handshake
// failure and returns the client to Disconnected, unless a newer channel
// already took over.
func (c *Client) teardown(ch Channel, err error) {
	_ = ch.Close()
	c.mu.Lock()
	if c.ch == ch {
		c.ch = nil
		c.state = StateDisconnected
	}
	c.mu.Unlock()
	c.emit(Event{Type: EventClose, Data: err.Error()})
}

func (c *Client) readyChannel() (Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ch == nil {
		return nil, ErrNotConnected
	}
	if c.state != StateReady {
		return nil, fmt.Errorf("%w: state is %s", ErrNotReady, c.state)
	}
	return c.ch, nil
}

// readLoop consumes inbound frames from one channel instance for its
// whole lifetime. All state transitions triggered by inbound traffic
// happen here, in arrival order.
func (c *Client) readLoop(ch Channel) {
	for {
		data, err := ch.Receive(c.ctx)
		if err != nil {
			c.handleClosed(ch, err)
			return
		}

		msg, err := DecodeInbound(data)
		if err != nil {
			// Protocol errors never terminate the session.
			c.logger.Warn("dropping inbound frame", "error", err)
			c.emitLog(fmt.Sprintf("dropped inbound frame: %v", err))
			continue
		}

		if !c.owns(ch) {
			// A newer connection superseded this channel mid-read.
			return
		}
		c.handleInbound(msg)
	}
}

func (c *Client) owns(ch Channel) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ch == ch
}

// handleClosed runs when a channel's read side ends. Only the currently
// owned channel may transition state; a superseded channel's delayed
// close must not tear down a newer connection.
func (c *Client) handleClosed(ch Channel, err error) {
	c.mu.Lock()
	if c.ch != ch {
		c.mu.Unlock()
		c.logger.Debug("ignoring close of superseded channel")
		return
	}
	c.ch = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	c.logger.Warn("channel closed", "error", err)
	c.emit(Event{Type: EventClose, Data: err.Error()})
}

func (c *Client) handleInbound(msg *Inbound) {
	switch msg.Type {
	case InboundSetupComplete:
		c.mu.Lock()
		c.state = StateReady
		c.mu.Unlock()
		c.logger.Info("setup complete")
		c.emit(Event{Type: EventSetupComplete})

	case InboundServerContent:
		content := msg.Content
		if content.Interrupted {
			c.logger.Info("model turn interrupted")
			// Superseded audio buffered in the stream must not reach the
			// render path; clear it so the interruption is observed first.
			c.drainAudioEvents()
			c.emit(Event{Type: EventInterrupted})
		}
		// Text parts first, then audio parts, each preserving the order
		// they were extracted from the turn.
		if len(content.Texts) > 0 {
			c.emit(Event{Type: EventContent, Data: content.Texts})
		}
		for _, blob := range content.Audio {
			c.emit(Event{Type: EventAudio, Data: blob.Data})
		}
		if content.TurnComplete {
			c.emit(Event{Type: EventTurnComplete})
		}

	case InboundToolCall:
		c.logger.Info("tool call received", "calls", len(msg.ToolCall.FunctionCalls))
		c.emit(Event{Type: EventToolCall, Data: msg.ToolCall})

	case InboundToolCallCancellation:
		c.logger.Info("tool call cancellation", "ids", msg.Cancellation.IDs)
		c.emit(Event{Type: EventToolCallCancellation, Data: msg.Cancellation})
	}
}

// drainAudioEvents removes buffered audio events from the stream so a
// pending interruption is the next thing a slow consumer observes.
// Control events are re-inserted in their original order.
func (c *Client) drainAudioEvents() {
	c.emitMu.RLock()
	defer c.emitMu.RUnlock()
	if c.closed {
		return
	}

	var control []Event
DrainLoop:
	for {
		select {
		case ev := <-c.events:
			if ev.Type != EventAudio {
				control = append(control, ev)
			}
		default:
			break DrainLoop
		}
	}
	for _, ev := range control {
		select {
		case c.events <- ev:
		default:
			// The channel was just drained, so there is space unless a
			// producer raced us; control events outrank audio, keep going.
		}
	}
}

// emit delivers an event to the stream. Events are FIFO and never
// dropped; delivery blocks until there is room or the client is closed.
func (c *Client) emit(event Event) {
	c.emitMu.RLock()
	defer c.emitMu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.events <- event:
	case <-c.ctx.Done():
	}
}

// emitLog surfaces a log line as a first-class event. Log events are
// best effort: if the stream is saturated they are dropped rather than
// stalling the read loop.
func (c *Client) emitLog(msg string) {
	c.emitMu.RLock()
	defer c.emitMu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.events <- Event{Type: EventLog, Data: msg}:
	default:
	}
}
