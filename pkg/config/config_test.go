package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsWithoutConfigFile(t *testing.T) {
	cfg, err := loadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Languages.SourceCode != "ar" || cfg.Languages.TargetName != "French" {
		t.Fatalf("language defaults = %+v", cfg.Languages)
	}
	if cfg.Models.Transcription != "whisper-large-v3-turbo" {
		t.Fatalf("transcription model = %q", cfg.Models.Transcription)
	}
	if cfg.Adapters.Translation != "google" || cfg.Adapters.Article != "google" {
		t.Fatalf("adapter defaults = %+v", cfg.Adapters)
	}
	if cfg.Limits.MaxWindowSeconds != 1800 {
		t.Fatalf("max window = %d", cfg.Limits.MaxWindowSeconds)
	}
	if cfg.DataDir != cfg.ConfigDir {
		t.Fatalf("data dir = %q, want the config dir", cfg.DataDir)
	}
}

func TestFileConfigIsLoaded(t *testing.T) {
	dir := t.TempDir()
	content := `
api_keys:
  groq: file-groq-key
  google: file-google-key
languages:
  source_code: tr
  source_name: Turkish
models:
  translation: gemini-2.5-pro
adapters:
  article: anthropic
limits:
  max_window_seconds: 600
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadFrom(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.GroqAPIKey != "file-groq-key" {
		t.Fatalf("groq key = %q", cfg.GroqAPIKey)
	}
	if cfg.Languages.SourceCode != "tr" || cfg.Languages.SourceName != "Turkish" {
		t.Fatalf("languages = %+v", cfg.Languages)
	}
	// Unset fields still get defaults.
	if cfg.Languages.TargetCode != "fr" {
		t.Fatalf("target code = %q", cfg.Languages.TargetCode)
	}
	if cfg.Models.Translation != "gemini-2.5-pro" {
		t.Fatalf("translation model = %q", cfg.Models.Translation)
	}
	if cfg.Adapters.Article != "anthropic" || cfg.Adapters.Translation != "google" {
		t.Fatalf("adapters = %+v", cfg.Adapters)
	}
	if cfg.Limits.MaxWindowSeconds != 600 {
		t.Fatalf("max window = %d", cfg.Limits.MaxWindowSeconds)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	content := "api_keys:\n  groq: file-key\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("GROQ_API_KEY", "env-key")
	cfg, err := loadFrom(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GroqAPIKey != "env-key" {
		t.Fatalf("groq key = %q, want the env value", cfg.GroqAPIKey)
	}
}

func TestTokenPricingFallsBackToDefault(t *testing.T) {
	cfg := &Config{Pricing: Pricing{Tokens: map[string]TokenPricing{
		"gemini-2.5-flash": {InputPerM: 0.30, OutputPerM: 2.50},
		"default":          {InputPerM: 1.00, OutputPerM: 5.00},
	}}}

	known, ok := cfg.TokenPricing("gemini-2.5-flash")
	if !ok || known.InputPerM != 0.30 {
		t.Fatalf("known model pricing = %+v, %v", known, ok)
	}

	fallback, ok := cfg.TokenPricing("some-new-model")
	if !ok || fallback.InputPerM != 1.00 {
		t.Fatalf("fallback pricing = %+v, %v", fallback, ok)
	}

	_, ok = (&Config{}).TokenPricing("anything")
	if ok {
		t.Fatal("pricing reported for an empty table")
	}
}

func TestHasAdapter(t *testing.T) {
	cfg := &Config{GroqAPIKey: "k", GoogleAPIKey: ""}
	if !cfg.HasAdapter("groq") {
		t.Fatal("groq adapter not reported")
	}
	if cfg.HasAdapter("google") {
		t.Fatal("google adapter reported without a key")
	}
	if cfg.HasAdapter("nonsense") {
		t.Fatal("unknown adapter reported")
	}
}
