package types

import "estate-assistant-backend/internal/chat"

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	SessionID string         `json:"sessionId"`
	Messages  []chat.Message `json:"messages"`
	Session   chat.Session   `json:"session"`
}

type SessionResponse struct {
	SessionID string       `json:"sessionId"`
	Session   chat.Session `json:"session"`
	Visible   bool         `json:"visible"`
	Typing    bool         `json:"typing"`
}

type ActionRequest struct {
	Action chat.Action `json:"action"`
}

type ActionResponse struct {
	SessionID string         `json:"sessionId"`
	Messages  []chat.Message `json:"messages"`
	// Navigate is set when the action asked the host to change route.
	Navigate string       `json:"navigate,omitempty"`
	Session  chat.Session `json:"session"`
}

type VisibilityRequest struct {
	Op string `json:"op"`
}

type VisibilityResponse struct {
	Visible bool `json:"visible"`
}

type HealthResponse struct {
	Status    string   `json:"status"`
	Providers []string `json:"providers,omitempty"`
	Database  string   `json:"database,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
