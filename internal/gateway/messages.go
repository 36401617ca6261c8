package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/neutralbridge/concierge/domain/entities"
)

// MessageType defines the type of WebSocket control message
type MessageType string

// Supported message types
const (
	MessageTypeListeningStart MessageType = "listening_start"
	MessageTypeAudioChunk     MessageType = "audio_chunk"
	MessageTypeListeningEnd   MessageType = "listening_end"
	MessageTypeSpeakingStart  MessageType = "speaking_start"
	MessageTypeSpeakingEnd    MessageType = "speaking_end"
	MessageTypeTrigger        MessageType = "ui_trigger"
	MessageTypeError          MessageType = "error"
)

// BaseMessage defines the common structure for all control messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// ListeningStartMessage opens one capture turn. Audio itself travels as
// binary frames between listening_start and listening_end.
type ListeningStartMessage struct {
	BaseMessage
	SampleRate int    `json:"sample_rate,omitempty"`
	Language   string `json:"language,omitempty"`
}

// AudioChunkMessage carries one base64 capture frame. Widgets that
// cannot send binary frames use this envelope instead.
type AudioChunkMessage struct {
	BaseMessage
	AudioChunk string `json:"audio_chunk"`
	Seq        uint64 `json:"seq,omitempty"`
}

// SpeakingStartMessage announces the reply text before the audio frames
// start. A trigger, when present, rides along in wire shape.
type SpeakingStartMessage struct {
	BaseMessage
	SessionID string          `json:"session_id"`
	Text      string          `json:"text"`
	Trigger   json.RawMessage `json:"ui_trigger,omitempty"`
}

// SpeakingEndMessage closes the reply audio stream
type SpeakingEndMessage struct {
	BaseMessage
	SessionID string `json:"session_id"`
}

// ErrorMessage reports a turn-level failure to the widget
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

func nowTimestamp() string {
	return time.Now().Format(time.RFC3339)
}

// ParseControlMessage decodes an inbound text frame. Only the listening
// control pair is accepted from widgets.
func ParseControlMessage(data []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypeListeningStart:
		var msg ListeningStartMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid listening_start message: %w", err)
		}
		return &msg, nil
	case MessageTypeAudioChunk:
		var msg AudioChunkMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid audio_chunk message: %w", err)
		}
		if msg.AudioChunk == "" {
			return nil, fmt.Errorf("audio_chunk is required")
		}
		return &msg, nil
	case MessageTypeListeningEnd:
		var msg BaseMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid listening_end message: %w", err)
		}
		return &msg, nil
	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

// CreateSpeakingStart builds the reply announcement for one turn
func CreateSpeakingStart(sessionID, text string, trigger *entities.UITrigger) *SpeakingStartMessage {
	msg := &SpeakingStartMessage{
		BaseMessage: BaseMessage{Type: MessageTypeSpeakingStart, Timestamp: nowTimestamp()},
		SessionID:   sessionID,
		Text:        text,
	}
	if trigger != nil {
		if wire, err := trigger.MarshalWire(); err == nil {
			msg.Trigger = wire
		}
	}
	return msg
}

// CreateSpeakingEnd builds the end-of-reply marker
func CreateSpeakingEnd(sessionID string) *SpeakingEndMessage {
	return &SpeakingEndMessage{
		BaseMessage: BaseMessage{Type: MessageTypeSpeakingEnd, Timestamp: nowTimestamp()},
		SessionID:   sessionID,
	}
}

// CreateErrorMessage builds a standardized error message
func CreateErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: BaseMessage{Type: MessageTypeError, Timestamp: nowTimestamp()},
		Code:        code,
		Message:     message,
	}
}
