package stt

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/neutralbridge/concierge/domain/repositories"
)

// MockSpeechToText is a placeholder transcriber for development and
// tests. It never touches the network and fabricates a transcript
// sized to the audio it was fed.
type MockSpeechToText struct {
	logger *zap.Logger
}

// MockSpeechToTextStream is a mock implementation of streaming speech recognition
type MockSpeechToTextStream struct {
	logger        *zap.Logger
	audioReceived bool
	transcription string
}

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(logger *zap.Logger) repositories.SpeechToText {
	return &MockSpeechToText{
		logger: logger,
	}
}

// InitTranscribeStreaming creates a new mock streaming session
func (s *MockSpeechToText) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	s.logger.Info("Initializing mock streaming transcription",
		zap.Int("sampleRate", config.SampleRate),
		zap.String("encoding", config.Encoding),
		zap.String("language", config.Language))

	return &MockSpeechToTextStream{
		logger: s.logger,
	}, nil
}

// Stream implements mock streaming audio processing
func (m *MockSpeechToTextStream) Stream(data []byte) error {
	m.logger.Info("Processing mock audio chunk", zap.Int("size", len(data)))

	if len(data) > 0 {
		m.audioReceived = true
		m.transcription = mockTranscript(len(data))
	}

	return nil
}

// End returns the mock transcription result
func (m *MockSpeechToTextStream) End() (string, error) {
	m.logger.Info("Ending mock transcription stream", zap.String("result", m.transcription))

	if !m.audioReceived {
		return "", fmt.Errorf("no audio data received")
	}

	if m.transcription == "" {
		return "", fmt.Errorf("no speech detected in audio")
	}

	return m.transcription, nil
}

// TranscribeAudio implements repositories.SpeechToText
func (s *MockSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	s.logger.Info("Processing speech-to-text",
		zap.Int("audioSize", len(audioData)),
		zap.Int("sampleRate", config.SampleRate),
		zap.String("encoding", config.Encoding))

	return mockTranscript(len(audioData)), nil
}

func mockTranscript(size int) string {
	switch {
	case size > 10000:
		return "Tell me about the thesis of the book and which edition I should order."
	case size > 5000:
		return "What does the collector tier include?"
	case size > 1000:
		return "What is this book about?"
	default:
		return "Hello"
	}
}
