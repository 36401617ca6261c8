package genlang

import (
	"context"
	"fmt"

	"github.com/neutralbridge/concierge/domain/repositories"
)

// MockLLM is a placeholder language model for development and tests. It
// never reaches the network and answers every prompt with canned
// concierge copy, occasionally carrying a directive line so downstream
// trigger handling can be exercised without a live model.
type MockLLM struct{}

// NewMockLLM creates a new mock language model
func NewMockLLM() repositories.LargeLanguageModel {
	return &MockLLM{}
}

// Generate implements repositories.LargeLanguageModel
func (m *MockLLM) Generate(ctx context.Context, prompt string, model string) (string, error) {
	return "The Neutral Bridge lays out how neutral jurisdictions turn great-power rivalry into leverage. Ask me about the thesis or the edition tiers.", nil
}

// GenerateChat implements repositories.LargeLanguageModel
func (m *MockLLM) GenerateChat(ctx context.Context, history []repositories.ChatMessage) (repositories.ChatSession, error) {
	return &MockChatSession{history: history}, nil
}

// MockChatSession implements repositories.ChatSession
type MockChatSession struct {
	history []repositories.ChatMessage
	turns   int
}

// SendMessage implements repositories.ChatSession
func (m *MockChatSession) SendMessage(ctx context.Context, message repositories.ChatMessage) (repositories.ChatMessage, error) {
	m.history = append(m.history, message)
	m.turns++

	var response string
	switch {
	case m.turns%3 == 0:
		response = "The collector tier is nearly gone, only a handful of copies remain.\n" +
			`TRIGGER {"type":"alert","data":{"title":"Limited stock","message":"Collector tier almost sold out"}}`
	case len(message.Content) > 0:
		response = fmt.Sprintf("Good question. On %q, the book argues that neutrality is a position you build, not one you inherit. What else can I cover?", message.Content)
	default:
		response = "Welcome. I can walk you through the briefing, its thesis, or the available tiers."
	}

	responseMessage := repositories.ChatMessage{
		Role:    repositories.AssistantRole,
		Content: response,
	}
	m.history = append(m.history, responseMessage)

	return responseMessage, nil
}

// History implements repositories.ChatSession
func (m *MockChatSession) History() ([]repositories.ChatMessage, error) {
	return m.history, nil
}
