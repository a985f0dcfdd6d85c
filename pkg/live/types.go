package live

import "time"

type Logger interface {
	Debug(msg string, args ...interface{})

	Info(msg string, args ...interface{})

	Warn(msg string, args ...interface{})

	Error(msg string, args ...interface{})
}

type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string, args ...interface{}) {}
func (n *NoOpLogger) Info(msg string, args ...interface{})  {}
func (n *NoOpLogger) Warn(msg string, args ...interface{})  {}
func (n *NoOpLogger) Error(msg string, args ...interface{}) {}

// SessionState is the protocol client's connection lifecycle state.
// Exactly one writer (the Client) mutates it; everyone else observes
// snapshots through emitted events.
type SessionState string

const (
	StateDisconnected  SessionState = "DISCONNECTED"
	StateConnecting    SessionState = "CONNECTING"
	StateAwaitingSetup SessionState = "AWAITING_SETUP"
	StateReady         SessionState = "READY"
	StateClosing       SessionState = "CLOSING"
)

type EventType string

const (
	EventOpen          EventType = "OPEN"
	EventSetupComplete EventType = "SETUP_COMPLETE"
	// EventContent carries the text parts of one model turn (payload is []string)
	EventContent EventType = "CONTENT"
	// EventAudio carries one decoded PCM chunk (payload is []byte)
	EventAudio                EventType = "AUDIO_CHUNK"
	EventTurnComplete         EventType = "TURN_COMPLETE"
	EventInterrupted          EventType = "INTERRUPTED"
	EventToolCall             EventType = "TOOL_CALL"
	EventToolCallCancellation EventType = "TOOL_CALL_CANCELLATION"
	EventClose                EventType = "CLOSE"
	EventLog                  EventType = "LOG"
)

type Event struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type Voice string

const (
	VoiceAoede  Voice = "Aoede"
	VoicePuck   Voice = "Puck"
	VoiceCharon Voice = "Charon"
	VoiceKore   Voice = "Kore"
	VoiceFenrir Voice = "Fenrir"
)

const (
	ModalityAudio = "AUDIO"
	ModalityText  = "TEXT"
)

// Output audio is fixed-format: 16-bit signed little-endian mono PCM.
const (
	SampleRate   = 24000
	Channels     = 1
	BytesPerSamp = 2
)

// PCMDuration converts a byte count of session-format PCM into the wall
// time it takes to play.
func PCMDuration(bytes int) time.Duration {
	return time.Duration(bytes) * time.Second / time.Duration(SampleRate*Channels*BytesPerSamp)
}

// Config carries per-client settings that stay fixed across connection
// attempts. SessionConfig carries the per-connection model parameters.
type Config struct {
	// ServiceURL is the websocket endpoint of the bidirectional
	// generation service.
	ServiceURL string
	// BearerToken is sent as the first frame after the channel opens.
	BearerToken string
}

func DefaultConfig() Config {
	return Config{
		ServiceURL: "wss://us-central1-aiplatform.googleapis.com/ws/google.cloud.aiplatform.v1beta1.LlmBidiService/BidiGenerateContent",
	}
}

// SessionConfig is immutable once a connection attempt starts.
type SessionConfig struct {
	// Model is the full model resource path, e.g.
	// "projects/p/locations/us-central1/publishers/google/models/gemini-2.0-flash-exp".
	Model              string
	ResponseModalities []string
	VoiceName          Voice
}

func DefaultSessionConfig(model string) SessionConfig {
	return SessionConfig{
		Model:              model,
		ResponseModalities: []string{ModalityAudio},
		VoiceName:          VoiceAoede,
	}
}

// Part is one outbound content fragment: text, or inline binary media
// with a declared media type. Exactly one of the two forms should be set.
type Part struct {
	Text       string
	MIMEType   string
	InlineData []byte
}

func TextPart(text string) Part {
	return Part{Text: text}
}

// MediaChunk is one realtime-input fragment (raw bytes; the codec handles
// base64 encoding on the wire).
type MediaChunk struct {
	MIMEType string
	Data     []byte
}

// FunctionCall is a server request to invoke a client-side capability.
// Args is left as raw JSON so callers decode into their own shapes.
type FunctionCall struct {
	ID   string
	Name string
	Args map[string]interface{}
}

// FunctionResponse answers a FunctionCall, correlated by call ID.
type FunctionResponse struct {
	ID       string
	Response map[string]interface{}
}

// ToolCall groups the function calls delivered in one inbound frame.
type ToolCall struct {
	FunctionCalls []FunctionCall
}

// ToolCallCancellation revokes previously issued calls by ID.
type ToolCallCancellation struct {
	IDs []string
}

// AudioBlob is one decoded inline-audio part from a model turn.
type AudioBlob struct {
	MIMEType string
	Data     []byte
}

// ServerContent is the classified payload of one serverContent frame.
// Texts and Audio each preserve the relative order of extraction.
type ServerContent struct {
	Texts        []string
	Audio        []AudioBlob
	TurnComplete bool
	Interrupted  bool
}

type InboundType string

const (
	InboundSetupComplete        InboundType = "SETUP_COMPLETE"
	InboundServerContent        InboundType = "SERVER_CONTENT"
	InboundToolCall             InboundType = "TOOL_CALL"
	InboundToolCallCancellation InboundType = "TOOL_CALL_CANCELLATION"
)

// Inbound is the tagged union produced by DecodeInbound. Exactly the
// field matching Type is populated.
type Inbound struct {
	Type         InboundType
	Content      *ServerContent
	ToolCall     *ToolCall
	Cancellation *ToolCallCancellation
}
