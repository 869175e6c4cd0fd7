package provider

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"estate-assistant-backend/internal/config"
)

type chainFile struct {
	Providers []Config `yaml:"providers"`
}

// LoadConfigs reads a YAML chain declaration. The file order is the attempt
// order. API keys never come from the file; they are taken from keys by kind.
func LoadConfigs(path string, keys config.ProviderKeys) ([]Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read providers file: %w", err)
	}
	var f chainFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("failed to parse providers file %s: %w", path, err)
	}
	if len(f.Providers) == 0 {
		return nil, fmt.Errorf("providers file %s declares no providers", path)
	}
	for i := range f.Providers {
		c := &f.Providers[i]
		switch c.Kind {
		case KindHuggingFace:
			c.APIKey = keys.HuggingFaceAPIKey
		case KindGroq:
			c.APIKey = keys.GroqAPIKey
		case KindTogether:
			c.APIKey = keys.TogetherAPIKey
		case KindOpenAI:
			c.APIKey = keys.OpenAIAPIKey
		case KindOllama:
		default:
			return nil, fmt.Errorf("providers file %s entry %d: %w: %q", path, i, ErrUnknownKind, c.Kind)
		}
		if c.Name == "" {
			c.Name = string(c.Kind)
		}
		if c.MaxTokens <= 0 {
			c.MaxTokens = 200
		}
		if c.Temperature == 0 {
			c.Temperature = 0.7
		}
	}
	return f.Providers, nil
}
