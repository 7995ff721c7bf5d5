package providers

import (
	"context"
	"strings"
)

// Model binds a provider to one model name and its sampling options.
type Model struct {
	Provider    LLMProvider
	Name        string
	MaxTokens   int
	Temperature float64
}

func NewModel(p LLMProvider, name string, maxTokens int, temperature float64) *Model {
	if strings.TrimSpace(name) == "" {
		name = p.GetDefaultModel()
	}
	return &Model{Provider: p, Name: name, MaxTokens: maxTokens, Temperature: temperature}
}

// Chat sends messages with the bound model and options.
func (m *Model) Chat(ctx context.Context, messages []Message) (*LLMResponse, error) {
	opts := map[string]any{"temperature": m.Temperature}
	if m.MaxTokens > 0 {
		opts["max_tokens"] = m.MaxTokens
	}
	return m.Provider.Chat(ctx, messages, m.Name, opts)
}

// WithMaxTokens returns a copy bound to a different completion limit.
func (m *Model) WithMaxTokens(n int) *Model {
	out := *m
	out.MaxTokens = n
	return &out
}
