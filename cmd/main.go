package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/neutralbridge/concierge/adapters/genlang"
	"github.com/neutralbridge/concierge/adapters/memory"
	"github.com/neutralbridge/concierge/adapters/stt"
	"github.com/neutralbridge/concierge/adapters/tts"
	"github.com/neutralbridge/concierge/domain/repositories"
	"github.com/neutralbridge/concierge/internal/api"
	"github.com/neutralbridge/concierge/internal/auth"
	"github.com/neutralbridge/concierge/internal/config"
	"github.com/neutralbridge/concierge/internal/gateway"
	"github.com/neutralbridge/concierge/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load(logger)
	auth.SetSecret(cfg.JWTSecret)

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	ctx := context.Background()

	// Initialize adapters. Missing credentials fall back to mocks so the
	// widget can be developed against a running server; the generate and
	// voice endpoints still answer a configuration error in that state
	// unless mocks are explicitly requested.
	var llmService repositories.LargeLanguageModel
	var ready func() error
	useMocks := os.Getenv("USE_MOCK_ADAPTERS") == "true"

	if cfg.GeminiAPIKey != "" && !useMocks {
		gemini, err := genlang.NewGeminiLLM(ctx, genlang.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Gemini adapter", zap.Error(err))
		}
		llmService = gemini
	} else {
		llmService = genlang.NewMockLLM()
		if !useMocks {
			ready = cfg.RequireGeminiKey
		}
		logger.Warn("Using mock language model")
	}

	var speechToText repositories.SpeechToText
	if useMocks {
		speechToText = stt.NewMockSpeechToText(logger)
	} else {
		speechToText = &stt.GoogleSpeechToText{}
	}

	var textToSpeech repositories.TextToSpeech
	if cfg.ElevenLabsAPIKey != "" {
		elevenLabs, err := tts.NewElevenLabsTTS(tts.ElevenLabsConfig{
			APIKey:  cfg.ElevenLabsAPIKey,
			VoiceID: cfg.ElevenLabsVoice,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Eleven Labs adapter", zap.Error(err))
		}
		textToSpeech = elevenLabs
	} else {
		logger.Warn("No speech synthesizer configured, replies will be text-only")
	}

	sessions := memory.NewSessionRepository(logger)

	// Initialize usecase services
	assistant := usecase.NewAssistantService(llmService, speechToText, textToSpeech, sessions, logger)

	// Initialize WebSocket hub
	hub := gateway.NewHub(llmService, textToSpeech, speechToText, sessions, logger)

	if cfg.EnableTranscripts {
		assistant.LogTranscripts(true)
		hub.LogTranscripts(true)
	}

	go hub.Run()

	// Initialize API routes
	api.InitRoutes(e, assistant, hub, ready, logger)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Concierge server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
