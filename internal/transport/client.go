// Package transport is the client side of the proxy boundary: it carries
// prompts and encoded audio chunks to the concierge server over HTTP and
// decodes the responses. One attempt per call, no retries.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/neutralbridge/concierge/domain/entities"
	"github.com/neutralbridge/concierge/domain/faults"
	"github.com/neutralbridge/concierge/internal/audio"
	"github.com/neutralbridge/concierge/internal/session"
)

const defaultTimeout = 30 * time.Second

// Client talks to the concierge proxy endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a transport client for the given base URL.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
}

type generateResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

type voiceRequest struct {
	AudioChunk string `json:"audioChunk"`
	SessionID  string `json:"sessionId,omitempty"`
	Seq        uint64 `json:"seq,omitempty"`
}

type voiceResponse struct {
	Text          string          `json:"text,omitempty"`
	AudioResponse string          `json:"audioResponse,omitempty"`
	UITrigger     json.RawMessage `json:"uiTrigger,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// ForwardPrompt sends a text prompt through the proxy and returns the
// model's reply text.
func (c *Client) ForwardPrompt(ctx context.Context, prompt, model string) (string, error) {
	var out generateResponse
	if err := c.post(ctx, "/api/v1/generate", generateRequest{Prompt: prompt, Model: model}, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

// ForwardAudioChunk sends one encoded chunk and decodes the envelope into
// a ModelResponse. The audio payload is base64-reversed here; trigger
// objects are decoded but otherwise not interpreted.
func (c *Client) ForwardAudioChunk(ctx context.Context, req session.ChunkRequest) (*entities.ModelResponse, error) {
	var out voiceResponse
	err := c.post(ctx, "/api/v1/voice", voiceRequest{
		AudioChunk: string(req.Chunk),
		SessionID:  req.SessionID,
		Seq:        req.Seq,
	}, &out)
	if err != nil {
		return nil, err
	}

	resp := &entities.ModelResponse{Text: out.Text}
	if out.AudioResponse != "" {
		pcm, err := audio.DecodeToPCM16(audio.EncodedChunk(out.AudioResponse))
		if err != nil {
			return nil, err
		}
		resp.Audio = pcm
	}
	if len(out.UITrigger) > 0 && string(out.UITrigger) != "null" {
		trigger, err := entities.DecodeTrigger(out.UITrigger)
		if err != nil {
			c.logger.Warn("Dropping malformed trigger from proxy", zap.Error(err))
		} else {
			resp.Trigger = trigger
		}
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return faults.Upstream(0, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return faults.Upstream(httpResp.StatusCode, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		var errBody struct {
			Error string `json:"error"`
		}
		message := httpResp.Status
		if json.Unmarshal(raw, &errBody) == nil && errBody.Error != "" {
			message = errBody.Error
		}
		return &faults.UpstreamError{Status: httpResp.StatusCode, Message: message}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
