package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port          string `env:"PORT" envDefault:"8080"`
	AllowedOrigin string `env:"ALLOWED_ORIGIN" envDefault:"*"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"LOG_FORMAT" envDefault:"text"`
	// Base URL of the marketplace REST API (notifications, invoices, reviews, ...)
	MarketplaceURL string `env:"MARKETPLACE_API_URL" envDefault:"http://localhost:3000/api"`
	// Transcript archive: postgres when DatabaseURL is set, JSON files when TranscriptDir is set
	DatabaseURL   string `env:"DB_URL"`
	TranscriptDir string `env:"TRANSCRIPT_DIR"`
	// Completion cache
	RedisURL string        `env:"REDIS_URL"`
	CacheTTL time.Duration `env:"COMPLETION_CACHE_TTL" envDefault:"10m"`
	// Per-provider-call timeout; there is no deadline across the whole chain
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"10s"`
	ProvidersFile   string        `env:"PROVIDERS_FILE"`
	PromptsFile     string        `env:"PROMPTS_FILE"`
	MetricsEnabled  bool          `env:"METRICS_ENABLED" envDefault:"true"`
	// Idle conversations are dropped after this long
	ConversationTTL time.Duration `env:"CONVERSATION_TTL" envDefault:"2h"`

	Providers ProviderKeys
}

// ProviderKeys carries the secrets and switches for the generation providers.
type ProviderKeys struct {
	HuggingFaceAPIKey  string `env:"HUGGINGFACE_API_KEY"`
	HuggingFaceEnabled bool   `env:"HUGGINGFACE_ENABLED" envDefault:"true"`
	GroqAPIKey         string `env:"GROQ_API_KEY"`
	GroqEnabled        bool   `env:"GROQ_ENABLED" envDefault:"false"`
	OllamaURL          string `env:"OLLAMA_URL" envDefault:"http://localhost:11434/api/generate"`
	OllamaEnabled      bool   `env:"OLLAMA_ENABLED" envDefault:"false"`
	TogetherAPIKey     string `env:"TOGETHER_API_KEY"`
	TogetherEnabled    bool   `env:"TOGETHER_ENABLED" envDefault:"false"`
	OpenAIAPIKey       string `env:"OPENAI_API_KEY"`
	OpenAIEnabled      bool   `env:"OPENAI_ENABLED" envDefault:"false"`
}

// Load reads .env (when present) and parses the environment into a Config.
func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.ProviderTimeout <= 0 {
		return Config{}, fmt.Errorf("PROVIDER_TIMEOUT must be positive, got %s", cfg.ProviderTimeout)
	}
	return cfg, nil
}

// NewLogger builds the process logger from the configured level and format.
// Unknown levels fall back to info.
func (c Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(strings.TrimSpace(c.LogLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if strings.EqualFold(c.LogFormat, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if err != nil && c.LogLevel != "" {
		log.Warnf("unknown LOG_LEVEL %q, using info", c.LogLevel)
	}
	return log
}

// Warnings lists configuration gaps worth surfacing at startup.
func (c Config) Warnings() []string {
	var out []string
	p := c.Providers
	if p.GroqEnabled && p.GroqAPIKey == "" {
		out = append(out, "GROQ_ENABLED is set but GROQ_API_KEY is empty; groq will be skipped")
	}
	if p.TogetherEnabled && p.TogetherAPIKey == "" {
		out = append(out, "TOGETHER_ENABLED is set but TOGETHER_API_KEY is empty; together will be skipped")
	}
	if p.OpenAIEnabled && p.OpenAIAPIKey == "" {
		out = append(out, "OPENAI_ENABLED is set but OPENAI_API_KEY is empty; openai will be skipped")
	}
	if c.DatabaseURL == "" && c.TranscriptDir == "" {
		out = append(out, "neither DB_URL nor TRANSCRIPT_DIR is set; transcripts will not be archived")
	}
	return out
}
