package config

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/neutralbridge/concierge/domain/faults"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMINI_MODEL", "")

	cfg := Load(zap.NewNop())
	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if cfg.GeminiModel != "gemini-2.0-flash" {
		t.Errorf("Expected default model, got %s", cfg.GeminiModel)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("GEMINI_API_KEY", "key-123")
	t.Setenv("ENABLE_TRANSCRIPTS", "true")

	cfg := Load(zap.NewNop())
	if cfg.Port != "9999" {
		t.Errorf("Expected port 9999, got %s", cfg.Port)
	}
	if cfg.GeminiAPIKey != "key-123" {
		t.Errorf("Expected credential from env, got %s", cfg.GeminiAPIKey)
	}
	if !cfg.EnableTranscripts {
		t.Error("Expected transcripts enabled")
	}
}

func TestRequireGeminiKey(t *testing.T) {
	cfg := Config{GeminiAPIKey: "abc"}
	if err := cfg.RequireGeminiKey(); err != nil {
		t.Errorf("Expected configured credential to pass, got %v", err)
	}

	cfg = Config{}
	err := cfg.RequireGeminiKey()
	if err == nil {
		t.Fatal("Expected configuration error for missing credential")
	}
	var confErr *faults.ConfigurationError
	if !errors.As(err, &confErr) {
		t.Errorf("Expected ConfigurationError, got %T", err)
	}
}
