package live

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Wire codec for the bidirectional generation protocol. Outbound frames
// use snake_case field names; inbound frames arrive in camelCase.

type wireAuth struct {
	BearerToken string `json:"bearer_token"`
}

type wirePrebuiltVoice struct {
	VoiceName string `json:"voice_name"`
}

type wireVoiceConfig struct {
	PrebuiltVoiceConfig wirePrebuiltVoice `json:"prebuilt_voice_config"`
}

type wireSpeechConfig struct {
	VoiceConfig wireVoiceConfig `json:"voice_config"`
}

type wireGenerationConfig struct {
	ResponseModalities []string          `json:"response_modalities"`
	SpeechConfig       *wireSpeechConfig `json:"speech_config,omitempty"`
}

type wireSetup struct {
	Setup struct {
		Model            string               `json:"model"`
		GenerationConfig wireGenerationConfig `json:"generation_config"`
	} `json:"setup"`
}

type wireOutPart struct {
	Text       string       `json:"text,omitempty"`
	InlineData *wireOutBlob `json:"inline_data,omitempty"`
}

type wireOutBlob struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type wireTurn struct {
	Role  string        `json:"role"`
	Parts []wireOutPart `json:"parts"`
}

type wireClientContent struct {
	ClientContent struct {
		Turns        []wireTurn `json:"turns"`
		TurnComplete bool       `json:"turn_complete"`
	} `json:"client_content"`
}

type wireRealtimeInput struct {
	RealtimeInput struct {
		MediaChunks []wireOutBlob `json:"media_chunks"`
	} `json:"realtime_input"`
}

type wireFunctionResponse struct {
	ID       string                 `json:"id"`
	Response map[string]interface{} `json:"response"`
}

type wireToolResponse struct {
	ToolResponse struct {
		FunctionResponses []wireFunctionResponse `json:"function_responses"`
	} `json:"tool_response"`
}

// EncodeAuth builds the bearer-token frame that must be the first frame
// sent after the channel opens.
func EncodeAuth(token string) ([]byte, error) {
	return json.Marshal(wireAuth{BearerToken: token})
}

// EncodeSetup builds the capability/setup handshake frame.
func EncodeSetup(cfg SessionConfig) ([]byte, error) {
	var frame wireSetup
	frame.Setup.Model = cfg.Model
	frame.Setup.GenerationConfig.ResponseModalities = cfg.ResponseModalities
	if cfg.VoiceName != "" {
		frame.Setup.GenerationConfig.SpeechConfig = &wireSpeechConfig{
			VoiceConfig: wireVoiceConfig{
				PrebuiltVoiceConfig: wirePrebuiltVoice{VoiceName: string(cfg.VoiceName)},
			},
		}
	}
	return json.Marshal(frame)
}

// EncodeClientContent wraps user parts into a single-turn client_content
// frame.
func EncodeClientContent(parts []Part, turnComplete bool) ([]byte, error) {
	outParts := make([]wireOutPart, 0, len(parts))
	for _, p := range parts {
		if p.InlineData != nil {
			outParts = append(outParts, wireOutPart{
				InlineData: &wireOutBlob{
					MIMEType: p.MIMEType,
					Data:     base64.StdEncoding.EncodeToString(p.InlineData),
				},
			})
			continue
		}
		outParts = append(outParts, wireOutPart{Text: p.Text})
	}

	var frame wireClientContent
	frame.ClientContent.Turns = []wireTurn{{Role: "user", Parts: outParts}}
	frame.ClientContent.TurnComplete = turnComplete
	return json.Marshal(frame)
}

// EncodeRealtimeInput base64-encodes raw media chunks into a
// realtime_input frame.
func EncodeRealtimeInput(chunks []MediaChunk) ([]byte, error) {
	var frame wireRealtimeInput
	frame.RealtimeInput.MediaChunks = make([]wireOutBlob, 0, len(chunks))
	for _, c := range chunks {
		frame.RealtimeInput.MediaChunks = append(frame.RealtimeInput.MediaChunks, wireOutBlob{
			MIMEType: c.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(c.Data),
		})
	}
	return json.Marshal(frame)
}

// EncodeToolResponse builds a tool_response frame correlated by call id.
func EncodeToolResponse(responses []FunctionResponse) ([]byte, error) {
	var frame wireToolResponse
	frame.ToolResponse.FunctionResponses = make([]wireFunctionResponse, 0, len(responses))
	for _, r := range responses {
		frame.ToolResponse.FunctionResponses = append(frame.ToolResponse.FunctionResponses, wireFunctionResponse{
			ID:       r.ID,
			Response: r.Response,
		})
	}
	return json.Marshal(frame)
}

type wireInPart struct {
	Text       string `json:"text"`
	InlineData *struct {
		MIMEType string `json:"mimeType"`
		Data     string `json:"data"`
	} `json:"inlineData"`
}

type wireInbound struct {
	SetupComplete json.RawMessage `json:"setupComplete"`
	ServerContent *struct {
		ModelTurn *struct {
			Parts []wireInPart `json:"parts"`
		} `json:"modelTurn"`
		TurnComplete bool `json:"turnComplete"`
		Interrupted  bool `json:"interrupted"`
	} `json:"serverContent"`
	ToolCall *struct {
		FunctionCalls []struct {
			ID   string                 `json:"id"`
			Name string                 `json:"name"`
			Args map[string]interface{} `json:"args"`
		} `json:"functionCalls"`
	} `json:"toolCall"`
	ToolCallCancellation *struct {
		IDs []string `json:"ids"`
	} `json:"toolCallCancellation"`
}

// DecodeInbound classifies one inbound frame. Classification is checked
// in a fixed order: setupComplete, serverContent, toolCall,
// toolCallCancellation. Frames that parse as none of these yield
// ErrUnrecognizedFrame; callers log and drop them without changing state.
func DecodeInbound(data []byte) (*Inbound, error) {
	var raw wireInbound
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedFrame, err)
	}

	switch {
	case raw.SetupComplete != nil:
		return &Inbound{Type: InboundSetupComplete}, nil

	case raw.ServerContent != nil:
		content := &ServerContent{
			TurnComplete: raw.ServerContent.TurnComplete,
			Interrupted:  raw.ServerContent.Interrupted,
		}
		if raw.ServerContent.ModelTurn != nil {
			for _, p := range raw.ServerContent.ModelTurn.Parts {
				if p.InlineData != nil {
					// Only audio payloads are recognized as playable media.
					if !strings.HasPrefix(p.InlineData.MIMEType, "audio") {
						continue
					}
					pcm, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
					if err != nil {
						return nil, fmt.Errorf("%w: inline audio: %v", ErrUnrecognizedFrame, err)
					}
					content.Audio = append(content.Audio, AudioBlob{
						MIMEType: p.InlineData.MIMEType,
						Data:     pcm,
					})
					continue
				}
				if p.Text != "" {
					content.Texts = append(content.Texts, p.Text)
				}
			}
		}
		return &Inbound{Type: InboundServerContent, Content: content}, nil

	case raw.ToolCall != nil:
		tc := &ToolCall{}
		for _, fc := range raw.ToolCall.FunctionCalls {
			tc.FunctionCalls = append(tc.FunctionCalls, FunctionCall{
				ID:   fc.ID,
				Name: fc.Name,
				Args: fc.Args,
			})
		}
		return &Inbound{Type: InboundToolCall, ToolCall: tc}, nil

	case raw.ToolCallCancellation != nil:
		return &Inbound{
			Type:         InboundToolCallCancellation,
			Cancellation: &ToolCallCancellation{IDs: raw.ToolCallCancellation.IDs},
		}, nil
	}

	return nil, ErrUnrecognizedFrame
}
