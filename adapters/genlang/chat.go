package genlang

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/neutralbridge/concierge/domain/faults"
	"github.com/neutralbridge/concierge/domain/repositories"
)

// geminiChatSession implements the ChatSession interface
type geminiChatSession struct {
	client          *genai.Client
	logger          *zap.Logger
	model           string
	temperature     float32
	topP            float32
	topK            float32
	maxOutputTokens int
	timeoutSeconds  int
	safetySettings  []*genai.SafetySetting
	systemPrompt    string
	history         []*genai.Content
}

func newGeminiChatSession(client *genai.Client, config GeminiConfig, logger *zap.Logger, history []repositories.ChatMessage) (*geminiChatSession, error) {
	model := config.Model
	if model == "" {
		model = defaultModel
	}
	temperature := config.Temperature
	if temperature == 0 {
		temperature = float32(defaultTemperature)
	}
	topP := config.TopP
	if topP == 0 {
		topP = float32(defaultTopP)
	}
	topK := config.TopK
	if topK == 0 {
		topK = float32(defaultTopK)
	}
	maxOutputTokens := config.MaxOutputTokens
	if maxOutputTokens == 0 {
		maxOutputTokens = defaultMaxTokens
	}
	timeoutSeconds := config.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = defaultTimeoutSeconds
	}

	return &geminiChatSession{
		client:          client,
		logger:          logger,
		model:           model,
		temperature:     temperature,
		topP:            topP,
		topK:            topK,
		maxOutputTokens: maxOutputTokens,
		timeoutSeconds:  timeoutSeconds,
		safetySettings:  defaultSafetySettings,
		systemPrompt:    conciergeSystemPrompt,
		history:         toGeminiHistory(history),
	}, nil
}

// SendMessage sends a message and gets a response, updating the history.
// Exactly one attempt: upstream failures propagate as UpstreamError, they
// are never retried here.
func (s *geminiChatSession) SendMessage(ctx context.Context, message repositories.ChatMessage) (repositories.ChatMessage, error) {
	var contents []*genai.Content
	contents = append(contents, genai.NewContentFromText(s.systemPrompt, genai.RoleUser))
	contents = append(contents, s.history...)

	userContent := genai.NewContentFromText(message.Content, genai.RoleUser)
	contents = append(contents, userContent)

	config := &genai.GenerateContentConfig{
		SafetySettings:  s.safetySettings,
		Temperature:     genai.Ptr(s.temperature),
		TopP:            genai.Ptr(s.topP),
		TopK:            genai.Ptr(s.topK),
		MaxOutputTokens: int32(s.maxOutputTokens),
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.timeoutSeconds)*time.Second)
	defer cancel()

	response, err := s.client.Models.GenerateContent(ctx, s.model, contents, config)
	if err != nil {
		s.logger.Error("Gemini request failed", zap.Error(err))
		return repositories.ChatMessage{}, faults.Upstream(0, err)
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil || len(response.Candidates[0].Content.Parts) == 0 {
		s.logger.Warn("No content generated in chat session")
		return s.fallbackResponse(), nil
	}

	var responseText string
	for _, part := range response.Candidates[0].Content.Parts {
		if part.Text != "" {
			responseText += part.Text
		}
	}
	if responseText == "" {
		s.logger.Warn("Empty response in chat session")
		return s.fallbackResponse(), nil
	}

	responseContent := genai.NewContentFromText(responseText, genai.RoleModel)
	s.history = append(s.history, userContent, responseContent)

	s.logger.Info("Chat turn processed",
		zap.String("model", s.model),
		zap.Int("history_length", len(s.history)))

	return repositories.ChatMessage{
		Role:    repositories.AssistantRole,
		Content: responseText,
	}, nil
}

// History returns the current conversation history
func (s *geminiChatSession) History() ([]repositories.ChatMessage, error) {
	return fromGeminiHistory(s.history), nil
}

func (s *geminiChatSession) fallbackResponse() repositories.ChatMessage {
	index := int(time.Now().UnixNano()) % len(fallbackReplies)
	content := fallbackReplies[index]
	s.history = append(s.history, genai.NewContentFromText(content, genai.RoleModel))
	return repositories.ChatMessage{
		Role:    repositories.AssistantRole,
		Content: content,
	}
}

func toGeminiHistory(messages []repositories.ChatMessage) []*genai.Content {
	var contents []*genai.Content
	for _, msg := range messages {
		role := genai.Role(genai.RoleUser)
		if msg.Role == repositories.AssistantRole {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	return contents
}

func fromGeminiHistory(contents []*genai.Content) []repositories.ChatMessage {
	var messages []repositories.ChatMessage
	for _, content := range contents {
		role := repositories.UserRole
		if content.Role == genai.RoleModel {
			role = repositories.AssistantRole
		}

		var text string
		for _, part := range content.Parts {
			if part.Text != "" {
				text += part.Text
			}
		}
		if text != "" {
			messages = append(messages, repositories.ChatMessage{
				Role:    role,
				Content: text,
			})
		}
	}
	return messages
}
