package live

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func newTestSession(t *testing.T, fake *fakeChannel) *Session {
	t.Helper()
	s := newSessionWithClient(newTestClient(t, fake), &NoOpLogger{})
	go s.loop()
	return s
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSessionTextAccumulatesWithinResponse(t *testing.T) {
	s := newSessionWithClient(newTestClient(t), &NoOpLogger{})

	s.handleEvent(Event{Type: EventContent, Data: []string{"Hello"}})
	s.handleEvent(Event{Type: EventContent, Data: []string{", ", "world"}})

	if s.Text() != "Hello, world" {
		t.Errorf("expected accumulated text, got %q", s.Text())
	}
}

func TestSessionTextResetsAtNextTurn(t *testing.T) {
	s := newSessionWithClient(newTestClient(t), &NoOpLogger{})

	s.handleEvent(Event{Type: EventContent, Data: []string{"First answer"}})
	s.handleEvent(Event{Type: EventTurnComplete})

	// The finished response stays readable until the next turn starts.
	if s.Text() != "First answer" {
		t.Errorf("expected text to survive turn completion, got %q", s.Text())
	}

	s.handleEvent(Event{Type: EventContent, Data: []string{"Second"}})
	if s.Text() != "Second" {
		t.Errorf("expected reset at start of new turn, got %q", s.Text())
	}
}

func TestSessionRoutesAudioToScheduler(t *testing.T) {
	s := newSessionWithClient(newTestClient(t), &NoOpLogger{})

	s.handleEvent(Event{Type: EventAudio, Data: []byte{1, 2, 3, 4}})
	if s.Scheduler().QueuedBytes() != 4 {
		t.Errorf("expected 4 queued bytes, got %d", s.Scheduler().QueuedBytes())
	}
}

func TestSessionInterruptionClearsQueue(t *testing.T) {
	s := newSessionWithClient(newTestClient(t), &NoOpLogger{})

	s.handleEvent(Event{Type: EventAudio, Data: make([]byte, 4096)})
	s.handleEvent(Event{Type: EventAudio, Data: make([]byte, 4096)})
	s.handleEvent(Event{Type: EventInterrupted})

	if s.Scheduler().QueuedBytes() != 0 {
		t.Errorf("expected empty queue after interruption, got %d", s.Scheduler().QueuedBytes())
	}
}

func TestSessionSendBeforeReadyIsNoOp(t *testing.T) {
	fake := newFakeChannel()
	s := newTestSession(t, fake)

	if err := s.Connect(context.Background(), DefaultSessionConfig("m")); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "connected", s.Connected)

	sent, err := s.Send(context.Background(), "too early")
	if err != nil {
		t.Fatalf("pre-ready send must not error, got %v", err)
	}
	if sent {
		t.Error("pre-ready send must report not-ready")
	}
	if len(fake.sentFrames()) != 2 {
		t.Errorf("no frame beyond handshake may be sent, got %d", len(fake.sentFrames()))
	}

	fake.push(`{"setupComplete":{}}`)
	waitFor(t, "ready", s.Ready)

	sent, err = s.Send(context.Background(), "hello")
	if err != nil || !sent {
		t.Fatalf("expected send to succeed when ready, sent=%v err=%v", sent, err)
	}
	frames := fake.sentFrames()
	if !bytes.Contains(frames[len(frames)-1], []byte("client_content")) {
		t.Errorf("expected client_content frame, got %s", frames[len(frames)-1])
	}
}

func TestSessionToolHandlerAnswersCalls(t *testing.T) {
	fake := newFakeChannel()
	s := newTestSession(t, fake)
	s.SetToolHandler(func(call FunctionCall) (map[string]interface{}, error) {
		if call.Name != "lookup" {
			t.Errorf("unexpected tool name %q", call.Name)
		}
		return map[string]interface{}{"answer": 42}, nil
	})

	if err := s.Connect(context.Background(), DefaultSessionConfig("m")); err != nil {
		t.Fatal(err)
	}
	fake.push(`{"setupComplete":{}}`)
	waitFor(t, "ready", s.Ready)

	fake.push(`{"toolCall":{"functionCalls":[{"id":"c9","name":"lookup","args":{"q":"x"}}]}}`)

	waitFor(t, "tool response frame", func() bool {
		frames := fake.sentFrames()
		return len(frames) > 0 && bytes.Contains(frames[len(frames)-1], []byte("tool_response"))
	})
	frames := fake.sentFrames()
	last := frames[len(frames)-1]
	if !bytes.Contains(last, []byte(`"c9"`)) {
		t.Errorf("tool response must correlate by call id, got %s", last)
	}
}

func TestSessionDisconnectClearsReadiness(t *testing.T) {
	fake := newFakeChannel()
	s := newTestSession(t, fake)

	if err := s.Connect(context.Background(), DefaultSessionConfig("m")); err != nil {
		t.Fatal(err)
	}
	fake.push(`{"setupComplete":{}}`)
	waitFor(t, "ready", s.Ready)

	if err := s.Disconnect(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "not connected", func() bool { return !s.Connected() && !s.Ready() })
}
