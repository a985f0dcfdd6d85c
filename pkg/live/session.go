package live

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/sonavox-ai/livebridge/pkg/audio"
)

// ToolHandler executes one server-requested function call and returns
// the response payload to send back.
type ToolHandler func(call FunctionCall) (map[string]interface{}, error)

// Session is the consumer-facing facade: it composes the protocol client
// and the audio output scheduler, routes audio events into the scheduler
// and text events into an accumulating response buffer, and stops
// playback on interruption.
type Session struct {
	ID     string
	client *Client
	sched  *audio.Scheduler
	logger Logger

	mu           sync.Mutex
	connected    bool
	ready        bool
	text         strings.Builder
	pendingReset bool
	toolHandler  ToolHandler
}

// NewSession creates a session with a no-op logger.
func NewSession(cfg Config) *Session {
	return NewSessionWithLogger(cfg, &NoOpLogger{})
}

// NewSessionWithLogger creates a session with a custom logger.
func NewSessionWithLogger(cfg Config, logger Logger) *Session {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	s := newSessionWithClient(NewWithLogger(cfg, logger), logger)
	go s.loop()
	return s
}

// newSessionWithClient wires a session around an existing client. The
// caller is responsible for driving events (used directly by tests).
func newSessionWithClient(client *Client, logger Logger) *Session {
	return &Session{
		ID:     "sess_" + uuid.NewString(),
		client: client,
		sched:  audio.NewScheduler(),
		logger: logger,
	}
}

// Connect opens the channel and performs the auth + setup handshake.
// It resolves once the channel is open; readiness to send content is
// observable via Ready().
func (s *Session) Connect(ctx context.Context, config SessionConfig) error {
	return s.client.Connect(ctx, config)
}

// Disconnect closes the connection. Idempotent.
func (s *Session) Disconnect() error {
	return s.client.Disconnect()
}

// Close shuts the session down for good.
func (s *Session) Close() {
	s.client.Close()
}

// Send transmits one user text turn. Before setup completes this is an
// observable no-op: it returns sent=false with no error.
func (s *Session) Send(ctx context.Context, text string) (bool, error) {
	if !s.Ready() {
		s.logger.Debug("send skipped: not ready")
		return false, nil
	}
	if err := s.client.SendContent(ctx, []Part{TextPart(text)}, true); err != nil {
		return false, err
	}
	return true, nil
}

// SendAudio streams one captured PCM chunk as realtime input. Chunks
// arriving before readiness are dropped silently; microphone capture
// typically starts before the handshake finishes.
func (s *Session) SendAudio(ctx context.Context, pcm []byte) error {
	if !s.Ready() {
		return nil
	}
	chunk := MediaChunk{MIMEType: "audio/pcm", Data: pcm}
	return s.client.SendRealtimeInput(ctx, []MediaChunk{chunk})
}

// SetToolHandler registers the callback invoked for each server tool
// call. Responses are transmitted automatically, correlated by call id.
func (s *Session) SetToolHandler(h ToolHandler) {
	s.mu.Lock()
	s.toolHandler = h
	s.mu.Unlock()
}

// Scheduler exposes the audio output scheduler so a render sink can be
// attached (the sink pulls via Render on its own cadence).
func (s *Session) Scheduler() *audio.Scheduler {
	return s.sched
}

func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Text returns the accumulated text of the current model response. The
// buffer resets at the start of the first model turn after a completed
// one, so a finished response stays readable until the next begins.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String()
}

// Volume returns the playback level of the most recently rendered block.
func (s *Session) Volume() float64 {
	return s.sched.Level()
}

func (s *Session) loop() {
	for event := range s.client.Events() {
		s.handleEvent(event)
	}
}

func (s *Session) handleEvent(event Event) {
	switch event.Type {
	case EventOpen:
		s.mu.Lock()
		s.connected = true
		s.mu.Unlock()

	case EventSetupComplete:
		s.mu.Lock()
		s.ready = true
		s.mu.Unlock()

	case EventContent:
		texts, ok := event.Data.([]string)
		if !ok {
			return
		}
		s.mu.Lock()
		if s.pendingReset {
			s.text.Reset()
			s.pendingReset = false
		}
		for _, t := range texts {
			s.text.WriteString(t)
		}
		s.mu.Unlock()

	case EventTurnComplete:
		s.mu.Lock()
		s.pendingReset = true
		s.mu.Unlock()

	case EventAudio:
		if pcm, ok := event.Data.([]byte); ok {
			s.sched.Enqueue(pcm)
		}

	case EventInterrupted:
		s.sched.Stop()

	case EventToolCall:
		toolCall, ok := event.Data.(*ToolCall)
		if !ok {
			return
		}
		s.mu.Lock()
		handler := s.toolHandler
		s.mu.Unlock()
		if handler == nil {
			s.logger.Warn("tool call received with no handler registered")
			return
		}
		// Handlers may do real work; keep the dispatch loop free.
		go s.runToolCalls(handler, toolCall.FunctionCalls)

	case EventToolCallCancellation:
		if cancel, ok := event.Data.(*ToolCallCancellation); ok {
			s.logger.Info("tool calls cancelled", "ids", cancel.IDs)
		}

	case EventClose:
		s.mu.Lock()
		s.connected = false
		s.ready = false
		s.mu.Unlock()

	case EventLog:
		if msg, ok := event.Data.(string); ok {
			s.logger.Debug(msg)
		}
	}
}

func (s *Session) runToolCalls(handler ToolHandler, calls []FunctionCall) {
	responses := make([]FunctionResponse, 0, len(calls))
	for _, call := range calls {
		result, err := handler(call)
		if err != nil {
			s.logger.Error("tool handler failed", "name", call.Name, "error", err)
			result = map[string]interface{}{"error": err.Error()}
		}
		responses = append(responses, FunctionResponse{ID: call.ID, Response: result})
	}
	if err := s.client.SendToolResponse(context.Background(), responses); err != nil {
		s.logger.Error("tool response send failed", "error", err)
	}
}
