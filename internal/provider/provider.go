package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"estate-assistant-backend/internal/config"
)

type Kind string

const (
	KindHuggingFace Kind = "huggingface"
	KindGroq        Kind = "groq"
	KindOllama      Kind = "ollama"
	KindTogether    Kind = "together"
	KindOpenAI      Kind = "openai"
)

var (
	ErrDisabled        = errors.New("provider disabled")
	ErrMissingKey      = errors.New("provider api key missing")
	ErrEmptyCompletion = errors.New("empty completion")
	ErrUnknownKind     = errors.New("unknown provider kind")
)

// Config is the static description of one chain entry.
type Config struct {
	Name        string  `yaml:"name"`
	Kind        Kind    `yaml:"kind"`
	Endpoint    string  `yaml:"endpoint"`
	Model       string  `yaml:"model"`
	Enabled     bool    `yaml:"enabled"`
	APIKey      string  `yaml:"-"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
}

// RequiresKey reports whether the provider refuses anonymous calls.
func (c Config) RequiresKey() bool {
	switch c.Kind {
	case KindGroq, KindTogether, KindOpenAI:
		return true
	default:
		return false
	}
}

// Ready returns ErrDisabled or ErrMissingKey when the provider must be skipped.
func (c Config) Ready() error {
	if !c.Enabled {
		return ErrDisabled
	}
	if c.RequiresKey() && strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingKey
	}
	return nil
}

// Prompt is what the chain sends. Chat-style providers get System and User as
// separate messages; single-string providers only see User.
type Prompt struct {
	System string
	User   string
}

type Provider interface {
	Config() Config
	Complete(ctx context.Context, p Prompt) (string, error)
}

// New builds the adapter for cfg.Kind.
func New(cfg Config, httpClient *http.Client) (Provider, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	if cfg.Name == "" {
		cfg.Name = string(cfg.Kind)
	}
	switch cfg.Kind {
	case KindHuggingFace:
		return &huggingFace{cfg: cfg, http: httpClient}, nil
	case KindGroq, KindOpenAI:
		return newChatCompletion(cfg, httpClient), nil
	case KindOllama:
		return &ollama{cfg: cfg, http: httpClient}, nil
	case KindTogether:
		return &together{cfg: cfg, http: httpClient}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

// Declared returns the default chain in attempt order.
func Declared(keys config.ProviderKeys) []Config {
	return []Config{
		{
			Name: "huggingface", Kind: KindHuggingFace,
			Endpoint: "https://api-inference.huggingface.co/models/", Model: "microsoft/DialoGPT-large",
			Enabled: keys.HuggingFaceEnabled, APIKey: keys.HuggingFaceAPIKey,
			MaxTokens: 200, Temperature: 0.7,
		},
		{
			Name: "groq", Kind: KindGroq,
			Endpoint: "https://api.groq.com/openai/v1/chat/completions", Model: "llama3-8b-8192",
			Enabled: keys.GroqEnabled, APIKey: keys.GroqAPIKey,
			MaxTokens: 200, Temperature: 0.7,
		},
		{
			Name: "ollama", Kind: KindOllama,
			Endpoint: keys.OllamaURL, Model: "llama2",
			Enabled: keys.OllamaEnabled,
			MaxTokens: 200, Temperature: 0.7,
		},
		{
			Name: "together", Kind: KindTogether,
			Endpoint: "https://api.together.xyz/inference", Model: "togethercomputer/llama-2-7b-chat",
			Enabled: keys.TogetherEnabled, APIKey: keys.TogetherAPIKey,
			MaxTokens: 200, Temperature: 0.7,
		},
		{
			Name: "openai", Kind: KindOpenAI,
			Endpoint: "https://api.openai.com/v1/chat/completions", Model: "gpt-3.5-turbo",
			Enabled: keys.OpenAIEnabled, APIKey: keys.OpenAIAPIKey,
			MaxTokens: 200, Temperature: 0.7,
		},
	}
}

// Build turns configs into adapters, preserving order.
func Build(cfgs []Config, httpClient *http.Client) ([]Provider, error) {
	out := make([]Provider, 0, len(cfgs))
	for _, c := range cfgs {
		p, err := New(c, httpClient)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// StatusError is a non-2xx provider response.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status=%d body=%s", e.Provider, e.Code, e.Body)
}

const maxBody = 1 << 20

// postJSON sends body as JSON and decodes a 2xx response into out.
func postJSON(ctx context.Context, client *http.Client, name, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Provider: name, Code: resp.StatusCode, Body: truncate(string(raw), 200)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func bearer(key string) map[string]string {
	if key == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + key}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
