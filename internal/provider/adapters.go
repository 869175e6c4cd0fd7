package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// huggingFace talks to the hosted inference API: one prompt string in,
// generated_text out. The key is optional.
type huggingFace struct {
	cfg  Config
	http *http.Client
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float32 `json:"temperature"`
	DoSample       bool    `json:"do_sample"`
	ReturnFullText bool    `json:"return_full_text"`
}

type hfGenerated struct {
	GeneratedText string `json:"generated_text"`
}

func (h *huggingFace) Config() Config { return h.cfg }

func (h *huggingFace) Complete(ctx context.Context, p Prompt) (string, error) {
	body := hfRequest{
		Inputs: p.User,
		Parameters: hfParameters{
			MaxNewTokens:   h.cfg.MaxTokens,
			Temperature:    h.cfg.Temperature,
			DoSample:       true,
			ReturnFullText: false,
		},
	}
	var raw json.RawMessage
	if err := postJSON(ctx, h.http, h.cfg.Name, h.cfg.Endpoint+h.cfg.Model, bearer(h.cfg.APIKey), body, &raw); err != nil {
		return "", err
	}
	// The API answers with either a list or a single object.
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []hfGenerated
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
		if len(list) == 0 {
			return "", nil
		}
		return list[0].GeneratedText, nil
	}
	var one hfGenerated
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return one.GeneratedText, nil
}

// chatCompletion covers the OpenAI-compatible endpoints (groq, openai).
type chatCompletion struct {
	cfg    Config
	client *openai.Client
}

func newChatCompletion(cfg Config, httpClient *http.Client) *chatCompletion {
	oc := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSuffix(strings.TrimRight(cfg.Endpoint, "/"), "/chat/completions"); base != "" {
		oc.BaseURL = base
	}
	oc.HTTPClient = httpClient
	return &chatCompletion{cfg: cfg, client: openai.NewClientWithConfig(oc)}
}

func (c *chatCompletion) Config() Config { return c.cfg }

func (c *chatCompletion) Complete(ctx context.Context, p Prompt) (string, error) {
	var msgs []openai.ChatCompletionMessage
	if p.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: p.System})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: p.User})
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    msgs,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", &StatusError{Provider: c.cfg.Name, Code: apiErr.HTTPStatusCode, Body: apiErr.Message}
		}
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// ollama is the local daemon's generate endpoint.
type ollama struct {
	cfg  Config
	http *http.Client
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

func (o *ollama) Config() Config { return o.cfg }

func (o *ollama) Complete(ctx context.Context, p Prompt) (string, error) {
	body := ollamaRequest{
		Model:  o.cfg.Model,
		Prompt: p.User,
		Stream: false,
		Options: ollamaOptions{
			Temperature: o.cfg.Temperature,
			NumPredict:  o.cfg.MaxTokens,
		},
	}
	var out ollamaResponse
	if err := postJSON(ctx, o.http, o.cfg.Name, o.cfg.Endpoint, nil, body, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

// together is a single-string completion endpoint with a nested output shape.
type together struct {
	cfg  Config
	http *http.Client
}

type togetherRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float32 `json:"temperature"`
}

type togetherResponse struct {
	Output struct {
		Choices []struct {
			Text string `json:"text"`
		} `json:"choices"`
	} `json:"output"`
}

func (t *together) Config() Config { return t.cfg }

func (t *together) Complete(ctx context.Context, p Prompt) (string, error) {
	body := togetherRequest{
		Model:       t.cfg.Model,
		Prompt:      p.User,
		MaxTokens:   t.cfg.MaxTokens,
		Temperature: t.cfg.Temperature,
	}
	var out togetherResponse
	if err := postJSON(ctx, t.http, t.cfg.Name, t.cfg.Endpoint, bearer(t.cfg.APIKey), body, &out); err != nil {
		return "", err
	}
	if len(out.Output.Choices) == 0 {
		return "", nil
	}
	return out.Output.Choices[0].Text, nil
}
