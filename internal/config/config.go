package config

import (
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/neutralbridge/concierge/domain/faults"
)

// Config holds application configuration read from the environment.
type Config struct {
	Port string

	// GeminiAPIKey is the upstream generative-language credential. Its
	// absence is not fatal at startup: the transport reports a
	// configuration error on the first request that needs it.
	GeminiAPIKey string
	GeminiModel  string

	ElevenLabsAPIKey string
	ElevenLabsVoice  string

	JWTSecret string

	// EnableTranscripts includes what the visitor said in the turn
	// logs. Off by default so visitor speech stays out of the logs.
	EnableTranscripts bool
}

// Load reads environment variables, merging in a .env file when present.
// Missing credentials warn instead of failing; defaults are applied for
// everything operational.
func Load(logger *zap.Logger) Config {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded", zap.Error(err))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey == "" {
		logger.Warn("GEMINI_API_KEY not set - generate requests will fail with a configuration error")
	}

	geminiModel := os.Getenv("GEMINI_MODEL")
	if geminiModel == "" {
		geminiModel = "gemini-2.0-flash"
	}

	elevenKey := os.Getenv("ELEVENLABS_API_KEY")
	if elevenKey == "" {
		logger.Warn("ELEVENLABS_API_KEY not set - voice replies will be text-only")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Warn("JWT_SECRET not set - using an ephemeral development secret")
	}

	return Config{
		Port:              port,
		GeminiAPIKey:      geminiKey,
		GeminiModel:       geminiModel,
		ElevenLabsAPIKey:  elevenKey,
		ElevenLabsVoice:   os.Getenv("ELEVENLABS_VOICE_ID"),
		JWTSecret:         jwtSecret,
		EnableTranscripts: os.Getenv("ENABLE_TRANSCRIPTS") == "true",
	}
}

// RequireGeminiKey returns a ConfigurationError when the upstream
// credential is missing. Called per request so the gap surfaces as a
// structured 500, never as a startup crash.
func (c Config) RequireGeminiKey() error {
	if c.GeminiAPIKey == "" {
		return faults.Configuration("GEMINI_API_KEY")
	}
	return nil
}
