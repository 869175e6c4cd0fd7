package provider

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// PromptSpec is the YAML-loadable prompt configuration.
type PromptSpec struct {
	// System is sent as the system message to chat-style providers.
	System string `yaml:"system"`
	// Template renders the single prompt string from PromptInput.
	Template string `yaml:"template"`
	// RecentTurns is how many trailing messages are embedded as context.
	RecentTurns int `yaml:"recent_turns"`

	tmpl *template.Template
}

// PromptInput feeds Template.
type PromptInput struct {
	UserContext string
	Recent      string
	Question    string
}

const defaultSystem = `You are a comprehensive real estate AI assistant. You help with property search, investment advice, booking management, market analysis, and general real estate questions. Be helpful, professional, and provide detailed, actionable responses.`

const defaultTemplate = `You are an expert real estate AI assistant with comprehensive knowledge of property markets, investment strategies, buying/selling processes, and market analysis.

CORE EXPERTISE:
- Property valuation and market analysis
- Investment strategies and ROI calculations
- Home buying/selling processes and best practices
- Mortgage and financing guidance
- Neighborhood analysis and location insights
- Legal considerations and documentation
- Market trends and forecasting
- Property management and rental strategies

RESPONSE STYLE:
- Provide detailed, actionable advice
- Use specific examples and numbers when helpful
- Be conversational but professional
- Give comprehensive answers that educate the user
- Include both pros and cons when discussing strategies
- Mention important considerations and potential risks

CONVERSATION CONTEXT:
- User context: {{.UserContext}}
- Recent conversation: {{.Recent}}

USER QUESTION: "{{.Question}}"

Provide a comprehensive, helpful response that directly answers their question with expert real estate knowledge:`

func DefaultPromptSpec() PromptSpec {
	spec, err := newPromptSpec(PromptSpec{System: defaultSystem, Template: defaultTemplate, RecentTurns: 2})
	if err != nil {
		panic(err)
	}
	return spec
}

// LoadPromptSpec reads a YAML prompt spec. Missing fields keep their defaults.
func LoadPromptSpec(path string) (PromptSpec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return PromptSpec{}, fmt.Errorf("failed to read prompt spec: %w", err)
	}
	var spec PromptSpec
	if err := yaml.Unmarshal(b, &spec); err != nil {
		return PromptSpec{}, fmt.Errorf("failed to parse prompt spec %s: %w", path, err)
	}
	if strings.TrimSpace(spec.System) == "" {
		spec.System = defaultSystem
	}
	if strings.TrimSpace(spec.Template) == "" {
		spec.Template = defaultTemplate
	}
	if spec.RecentTurns <= 0 {
		spec.RecentTurns = 2
	}
	return newPromptSpec(spec)
}

func newPromptSpec(spec PromptSpec) (PromptSpec, error) {
	t, err := template.New("prompt").Option("missingkey=error").Parse(spec.Template)
	if err != nil {
		return PromptSpec{}, fmt.Errorf("failed to parse prompt template: %w", err)
	}
	spec.tmpl = t
	return spec, nil
}

// Render builds the Prompt for one question.
func (s PromptSpec) Render(in PromptInput) (Prompt, error) {
	if s.tmpl == nil {
		var err error
		if s, err = newPromptSpec(s); err != nil {
			return Prompt{}, err
		}
	}
	var b bytes.Buffer
	if err := s.tmpl.Execute(&b, in); err != nil {
		return Prompt{}, fmt.Errorf("failed to render prompt: %w", err)
	}
	return Prompt{System: s.System, User: b.String()}, nil
}
