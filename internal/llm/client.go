// Package llm defines the chat-model capability the agents run on, with an
// OpenAI-compatible HTTP client and a Gemini client behind one interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoAPIKey is returned when a provider is selected without credentials.
var ErrNoAPIKey = errors.New("API key not configured")

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one turn of a conversation.
// Tool results carry the originating call's ID in ToolCallID and the tool name in Name.
type Message struct {
	Role       string
	Content    string
	Name       string
	ToolCallID string
	ToolCalls  []ToolCall
}

// ToolDef describes a function the model may call. Parameters is a JSON schema object.
type ToolDef struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is a function invocation requested by the model. Arguments is raw JSON.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Request is a single chat turn.
type Request struct {
	Messages    []Message
	Tools       []ToolDef
	Temperature float64
	MaxTokens   int
}

// Usage reports token counts when the provider returns them.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is the model's reply: either content, tool calls, or both.
type Response struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        Usage
}

// Client is a chat model.
type Client interface {
	Chat(ctx context.Context, req Request) (*Response, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider string        // groq, openai, openrouter or gemini
	APIKey   string        // provider key
	BaseURL  string        // overrides the provider's default endpoint
	Model    string        // overrides the provider's default model
	Timeout  time.Duration // per-request timeout
}

// Provider defaults.
var providers = map[string]OpenAIConfig{
	"groq":       {BaseURL: "https://api.groq.com/openai/v1", Model: "llama3-8b-8192"},
	"openai":     {BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini"},
	"openrouter": {BaseURL: "https://openrouter.ai/api/v1", Model: "meta-llama/llama-3.1-8b-instruct"},
}

// DefaultGeminiModel is used when no model is configured for gemini.
const DefaultGeminiModel = "gemini-2.0-flash"

// New builds the client cfg describes.
func New(ctx context.Context, cfg Config) (Client, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		name = "groq"
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrNoAPIKey)
	}

	if name == "gemini" {
		model := cfg.Model
		if model == "" {
			model = DefaultGeminiModel
		}
		return NewGeminiClient(ctx, cfg.APIKey, model)
	}

	oc, ok := providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown LLM provider %q (want groq, openai, openrouter or gemini)", cfg.Provider)
	}
	oc.APIKey = cfg.APIKey
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.Model != "" {
		oc.Model = cfg.Model
	}
	oc.Timeout = cfg.Timeout
	return NewOpenAIClient(oc), nil
}
