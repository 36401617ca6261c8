package genlang

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/neutralbridge/concierge/domain/repositories"
)

// GeminiLLM implements the LargeLanguageModel interface using Google's
// Gemini API.
type GeminiLLM struct {
	client *genai.Client
	config GeminiConfig
	logger *zap.Logger
}

// Ensure GeminiLLM implements the LargeLanguageModel interface
var _ repositories.LargeLanguageModel = (*GeminiLLM)(nil)

// NewGeminiLLM creates a new Gemini adapter. The credential must already
// be present; callers gate on configuration before constructing.
func NewGeminiLLM(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiLLM, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if config.Model == "" {
		config.Model = defaultModel
	}

	return &GeminiLLM{
		client: client,
		config: config,
		logger: logger,
	}, nil
}

// Generate forwards a single prompt and returns the model's reply text.
// The optional model override selects a non-default upstream model for
// this call only.
func (g *GeminiLLM) Generate(ctx context.Context, prompt string, model string) (string, error) {
	if model == "" {
		model = g.config.Model
	}

	session, err := newGeminiChatSession(g.client, g.config, g.logger, nil)
	if err != nil {
		return "", err
	}
	session.model = model

	reply, err := session.SendMessage(ctx, repositories.ChatMessage{
		Role:    repositories.UserRole,
		Content: prompt,
	})
	if err != nil {
		return "", err
	}
	return reply.Content, nil
}

// GenerateChat creates a chat session seeded with history
func (g *GeminiLLM) GenerateChat(ctx context.Context, history []repositories.ChatMessage) (repositories.ChatSession, error) {
	return newGeminiChatSession(g.client, g.config, g.logger, history)
}
