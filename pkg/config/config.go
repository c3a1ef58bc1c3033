// Package config loads minbar's configuration from ~/.minbar/config.yaml
// with environment variables taking precedence for API keys.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	GroqAPIKey      string
	GoogleAPIKey    string
	AnthropicAPIKey string
	OpenAIAPIKey    string

	Languages Languages
	Models    Models
	Adapters  Adapters
	Pricing   Pricing
	Limits    Limits

	DataDir     string
	CookiesFile string
	ConfigDir   string
}

// Languages names the translation pair. Code is the ISO code handed to the
// transcription service; Name is the human name used in prompts.
type Languages struct {
	SourceCode string `yaml:"source_code"`
	SourceName string `yaml:"source_name"`
	TargetCode string `yaml:"target_code"`
	TargetName string `yaml:"target_name"`
}

// Models selects the model for each pipeline stage.
type Models struct {
	Transcription string `yaml:"transcription"`
	Translation   string `yaml:"translation"`
	Article       string `yaml:"article"`
}

// Adapters selects the text-generation provider per stage: google,
// anthropic, or openai.
type Adapters struct {
	Translation string `yaml:"translation"`
	Article     string `yaml:"article"`
}

// Pricing holds the cost tables used to price external calls.
type Pricing struct {
	TranscriptionPerSecond float64                 `yaml:"transcription_per_second"`
	Tokens                 map[string]TokenPricing `yaml:"tokens"`
}

// TokenPricing defines per-1M-token pricing for one model.
type TokenPricing struct {
	InputPerM  float64 `yaml:"input_per_1m"`
	OutputPerM float64 `yaml:"output_per_1m"`
}

// Limits bounds what the acquisition step accepts.
type Limits struct {
	MaxWindowSeconds  int      `yaml:"max_window_seconds"`
	MaxFileSizeBytes  int64    `yaml:"max_file_size_bytes"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

// FileConfig represents the structure of ~/.minbar/config.yaml.
type FileConfig struct {
	APIKeys     APIKeysConfig `yaml:"api_keys"`
	Languages   Languages     `yaml:"languages"`
	Models      Models        `yaml:"models"`
	Adapters    Adapters      `yaml:"adapters"`
	Pricing     Pricing       `yaml:"pricing"`
	Limits      Limits        `yaml:"limits"`
	DataDir     string        `yaml:"data_dir"`
	CookiesFile string        `yaml:"cookies_file"`
}

// APIKeysConfig holds API key configuration from file.
type APIKeysConfig struct {
	Groq      string `yaml:"groq"`
	Google    string `yaml:"google"`
	Anthropic string `yaml:"anthropic"`
	OpenAI    string `yaml:"openai"`
}

// Load reads configuration from the config file and environment variables.
// Environment variables take precedence over file configuration.
func Load() (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	return loadFrom(configDir)
}

func loadFrom(configDir string) (*Config, error) {
	fileConfig := loadFileConfig(filepath.Join(configDir, "config.yaml"))

	cfg := &Config{
		GroqAPIKey:      getEnvOrDefault("GROQ_API_KEY", fileConfig.APIKeys.Groq),
		GoogleAPIKey:    getEnvOrDefault("GEMINI_API_KEY", fileConfig.APIKeys.Google),
		AnthropicAPIKey: getEnvOrDefault("ANTHROPIC_API_KEY", fileConfig.APIKeys.Anthropic),
		OpenAIAPIKey:    getEnvOrDefault("OPENAI_API_KEY", fileConfig.APIKeys.OpenAI),
		Languages:       fileConfig.Languages,
		Models:          fileConfig.Models,
		Adapters:        fileConfig.Adapters,
		Pricing:         fileConfig.Pricing,
		Limits:          fileConfig.Limits,
		DataDir:         fileConfig.DataDir,
		CookiesFile:     getEnvOrDefault("YOUTUBE_COOKIES_FILE", fileConfig.CookiesFile),
		ConfigDir:       configDir,
	}

	applyDefaults(cfg)
	return cfg, nil
}

// TokenPricing returns the pricing for a model, falling back to the
// "default" entry when the model has no row of its own.
func (c *Config) TokenPricing(model string) (TokenPricing, bool) {
	if c.Pricing.Tokens == nil {
		return TokenPricing{}, false
	}
	if entry, ok := c.Pricing.Tokens[model]; ok {
		return entry, true
	}
	if entry, ok := c.Pricing.Tokens["default"]; ok {
		return entry, true
	}
	return TokenPricing{}, false
}

// HasAdapter returns true if the API key for the given adapter is configured.
func (c *Config) HasAdapter(name string) bool {
	switch name {
	case "groq":
		return c.GroqAPIKey != ""
	case "google":
		return c.GoogleAPIKey != ""
	case "anthropic":
		return c.AnthropicAPIKey != ""
	case "openai":
		return c.OpenAIAPIKey != ""
	default:
		return false
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Languages.SourceCode == "" {
		cfg.Languages.SourceCode = "ar"
	}
	if cfg.Languages.SourceName == "" {
		cfg.Languages.SourceName = "Arabic"
	}
	if cfg.Languages.TargetCode == "" {
		cfg.Languages.TargetCode = "fr"
	}
	if cfg.Languages.TargetName == "" {
		cfg.Languages.TargetName = "French"
	}
	if cfg.Models.Transcription == "" {
		cfg.Models.Transcription = "whisper-large-v3-turbo"
	}
	if cfg.Models.Translation == "" {
		cfg.Models.Translation = "gemini-2.5-flash"
	}
	if cfg.Models.Article == "" {
		cfg.Models.Article = "gemini-2.5-pro"
	}
	if cfg.Adapters.Translation == "" {
		cfg.Adapters.Translation = "google"
	}
	if cfg.Adapters.Article == "" {
		cfg.Adapters.Article = "google"
	}
	if cfg.Pricing.TranscriptionPerSecond == 0 {
		cfg.Pricing.TranscriptionPerSecond = 0.0000111
	}
	if cfg.Pricing.Tokens == nil {
		cfg.Pricing.Tokens = map[string]TokenPricing{
			"gemini-2.5-flash": {InputPerM: 0.30, OutputPerM: 2.50},
			"gemini-2.5-pro":   {InputPerM: 1.25, OutputPerM: 10.00},
		}
	}
	if cfg.Limits.MaxWindowSeconds == 0 {
		cfg.Limits.MaxWindowSeconds = 30 * 60
	}
	if cfg.Limits.MaxFileSizeBytes == 0 {
		cfg.Limits.MaxFileSizeBytes = 500 * 1024 * 1024
	}
	if len(cfg.Limits.AllowedExtensions) == 0 {
		cfg.Limits.AllowedExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".webm", ".m4v"}
	}
	if cfg.DataDir == "" {
		cfg.DataDir = cfg.ConfigDir
	}
}

// loadFileConfig reads the config file, returning empty config if not found.
func loadFileConfig(path string) *FileConfig {
	cfg := &FileConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg // Return empty config if file doesn't exist
	}

	_ = yaml.Unmarshal(data, cfg) // Ignore parse errors, use defaults
	return cfg
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise returns the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}

func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".minbar")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return configDir, nil
}
