package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/neutralbridge/concierge/domain/entities"
	"github.com/neutralbridge/concierge/domain/faults"
	"github.com/neutralbridge/concierge/domain/repositories"
	"github.com/neutralbridge/concierge/internal/audio"
)

// transcriptionLanguage is the only language the concierge speaks.
const transcriptionLanguage = "en-US"

// AssistantService orchestrates one conversation turn: transcribe the
// visitor's audio, ask the language model with the session transcript as
// context, peel off any UI directive, and synthesize the spoken reply.
type AssistantService struct {
	llm      repositories.LargeLanguageModel
	stt      repositories.SpeechToText
	tts      repositories.TextToSpeech
	sessions repositories.SessionRepository
	logger   *zap.Logger

	logTranscripts bool
}

// NewAssistantService creates a new assistant service. tts may be nil, in
// which case replies are text-only.
func NewAssistantService(
	llm repositories.LargeLanguageModel,
	stt repositories.SpeechToText,
	tts repositories.TextToSpeech,
	sessions repositories.SessionRepository,
	logger *zap.Logger,
) *AssistantService {
	return &AssistantService{
		llm:      llm,
		stt:      stt,
		tts:      tts,
		sessions: sessions,
		logger:   logger,
	}
}

// LogTranscripts includes what the visitor said in turn logs. Off by
// default so visitor speech stays out of the logs. Set before serving.
func (s *AssistantService) LogTranscripts(enabled bool) {
	s.logTranscripts = enabled
}

// Generate forwards a bare text prompt to the language model. Used by the
// text endpoint; no session transcript is involved.
func (s *AssistantService) Generate(ctx context.Context, prompt string, model string) (string, error) {
	if prompt == "" {
		return "", faults.Validation("prompt", "must not be empty")
	}
	return s.llm.Generate(ctx, prompt, model)
}

// ProcessAudioChunk runs the full voice turn for one widget and returns
// the reply text, optional synthesized audio, and optional UI trigger.
func (s *AssistantService) ProcessAudioChunk(ctx context.Context, widgetID string, chunk audio.EncodedChunk) (*entities.ModelResponse, error) {
	if chunk == "" {
		return nil, faults.Validation("audioChunk", "must not be empty")
	}

	started := time.Now()

	audioData, err := audio.DecodeToPCM16(chunk)
	if err != nil {
		return nil, err
	}

	audioConfig := repositories.AudioConfig{
		SampleRate: audio.CaptureSampleRate,
		Encoding:   "LINEAR16",
		Language:   transcriptionLanguage,
	}

	transcription, err := s.stt.TranscribeAudio(ctx, audioData, audioConfig)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	if s.logTranscripts {
		s.logger.Info("Transcription completed",
			zap.String("widgetID", widgetID),
			zap.String("text", transcription))
	}

	session, err := s.continuableSession(ctx, widgetID)
	if err != nil {
		return nil, err
	}

	chatSession, err := s.llm.GenerateChat(ctx, historyFromSession(session))
	if err != nil {
		return nil, fmt.Errorf("failed to open chat session: %w", err)
	}

	reply, err := chatSession.SendMessage(ctx, repositories.ChatMessage{
		Role:    repositories.UserRole,
		Content: transcription,
	})
	if err != nil {
		return nil, err
	}

	trigger, text := entities.ParseTriggerDirective(reply.Content)

	turnMs := time.Since(started).Milliseconds()
	session.AddMessage(entities.MessageRoleUser, transcription, 0)
	session.AddMessage(entities.MessageRoleAssistant, text, turnMs)
	if err := s.sessions.Update(ctx, session); err != nil {
		s.logger.Warn("Failed to persist session transcript", zap.Error(err))
	}

	response := &entities.ModelResponse{
		Text:    text,
		Trigger: trigger,
	}

	if s.tts != nil && text != "" {
		response.Audio = s.synthesize(ctx, text)
	}

	s.logger.Info("Voice turn completed",
		zap.String("sessionID", session.ID),
		zap.Int64("durationMs", turnMs),
		zap.Bool("hasAudio", response.HasAudio()),
		zap.Bool("hasTrigger", trigger != nil))

	return response, nil
}

// continuableSession returns the widget's live session, starting a fresh
// one when none exists or the last went stale.
func (s *AssistantService) continuableSession(ctx context.Context, widgetID string) (*entities.Session, error) {
	session, err := s.sessions.GetLastByWidgetID(ctx, widgetID)
	if err == nil && session.CanContinue() {
		return session, nil
	}
	if err != nil && !errors.Is(err, repositories.ErrSessionNotFound) {
		return nil, err
	}

	session = entities.NewSession(widgetID)
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	s.logger.Info("Started new session",
		zap.String("sessionID", session.ID),
		zap.String("widgetID", widgetID))
	return session, nil
}

// synthesize collects the streamed speech for one reply into a single
// PCM16 payload. Synthesis failures degrade to a text-only reply rather
// than failing the turn.
func (s *AssistantService) synthesize(ctx context.Context, text string) []byte {
	audioChan, err := s.tts.ConvertTextToSpeech(ctx, text)
	if err != nil {
		s.logger.Warn("Text-to-speech failed, replying text-only", zap.Error(err))
		return nil
	}

	var speech []byte
	for chunk := range audioChan {
		speech = append(speech, chunk...)
	}
	return speech
}

func historyFromSession(session *entities.Session) []repositories.ChatMessage {
	history := make([]repositories.ChatMessage, 0, len(session.Messages))
	for _, msg := range session.Messages {
		role := repositories.UserRole
		if msg.Role == entities.MessageRoleAssistant {
			role = repositories.AssistantRole
		}
		history = append(history, repositories.ChatMessage{
			Role:    role,
			Content: msg.Content,
		})
	}
	return history
}
