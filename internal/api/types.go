package api

import (
	"encoding/json"
	"time"
)

// GenerateRequest is the payload for the text generation endpoint
type GenerateRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
}

// GenerateResponse carries the model's reply text
type GenerateResponse struct {
	Text string `json:"text"`
}

// VoiceRequest is the payload for one voice turn
type VoiceRequest struct {
	AudioChunk string `json:"audioChunk"`
	SessionID  string `json:"sessionId,omitempty"`
	Seq        uint64 `json:"seq,omitempty"`
}

// VoiceResponse carries the reply text, the synthesized speech as a
// base64 PCM16 payload, and the optional UI trigger in wire shape.
type VoiceResponse struct {
	Text          string          `json:"text,omitempty"`
	AudioResponse string          `json:"audioResponse,omitempty"`
	UITrigger     json.RawMessage `json:"uiTrigger,omitempty"`
	SessionID     string          `json:"sessionId,omitempty"`
}

// WidgetSessionRequest asks for a widget token
type WidgetSessionRequest struct {
	WidgetID string `json:"widget_id,omitempty"`
}

// WidgetSessionResponse carries the issued widget token
type WidgetSessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	WidgetID  string    `json:"widget_id"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}
