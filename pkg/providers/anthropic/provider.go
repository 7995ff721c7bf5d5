// Package anthropicprovider adapts the Anthropic Messages API.
package anthropicprovider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/sulla-ai/sulla-desktop-sub001/pkg/providers/protocoltypes"
)

type (
	LLMResponse = protocoltypes.LLMResponse
	UsageInfo   = protocoltypes.UsageInfo
	Message     = protocoltypes.Message
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultModel     = "claude-sonnet-4-5"
	defaultMaxTokens = 4096
)

var ErrEmptyConversation = errors.New("anthropic: no user or assistant messages")

type Provider struct {
	client  anthropic.Client
	baseURL string
}

type settings struct {
	timeout time.Duration
}

type Option func(*settings)

func WithRequestTimeout(timeout time.Duration) Option {
	return func(s *settings) { s.timeout = timeout }
}

func NewProvider(apiKey, apiBase, proxy string, opts ...Option) *Provider {
	var st settings
	for _, opt := range opts {
		if opt != nil {
			opt(&st)
		}
	}

	p := &Provider{baseURL: normalizeBaseURL(apiBase)}
	p.client = anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(p.baseURL),
		option.WithHTTPClient(protocoltypes.NewHTTPClient("anthropic", proxy, st.timeout)),
		option.WithMaxRetries(0),
	)
	return p
}

func (p *Provider) Chat(
	ctx context.Context,
	messages []Message,
	model string,
	options map[string]any,
) (*LLMResponse, error) {
	params, err := buildParams(messages, model, options)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("claude API call: %w", err)
	}
	return parseResponse(resp), nil
}

func (p *Provider) GetDefaultModel() string {
	return defaultModel
}

func (p *Provider) BaseURL() string {
	return p.baseURL
}

// buildParams lifts system messages into the system prompt and merges
// consecutive same-role turns, which the Messages API rejects.
func buildParams(messages []Message, model string, options map[string]any) (anthropic.MessageNewParams, error) {
	var system []anthropic.TextBlockParam
	var out []anthropic.MessageParam
	var lastRole string

	for _, msg := range messages {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		switch msg.Role {
		case "system":
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
			continue
		case "assistant":
			if lastRole == "assistant" {
				appendText(&out[len(out)-1], msg.Content)
				continue
			}
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
			lastRole = "assistant"
		default:
			if lastRole == "user" {
				appendText(&out[len(out)-1], msg.Content)
				continue
			}
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
			lastRole = "user"
		}
	}
	if len(out) == 0 {
		return anthropic.MessageNewParams{}, ErrEmptyConversation
	}

	o := protocoltypes.ParseCallOptions(options)
	maxTokens := int64(defaultMaxTokens)
	if o.MaxTokens > 0 {
		maxTokens = int64(o.MaxTokens)
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  out,
		MaxTokens: maxTokens,
	}
	if len(system) > 0 {
		params.System = system
	}
	if o.HasTemperature {
		params.Temperature = anthropic.Float(o.Temperature)
	}
	return params, nil
}

func appendText(m *anthropic.MessageParam, text string) {
	m.Content = append(m.Content, anthropic.NewTextBlock(text))
}

func parseResponse(resp *anthropic.Message) *LLMResponse {
	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.AsText().Text)
		}
	}

	finishReason := "stop"
	if resp.StopReason == anthropic.StopReasonMaxTokens {
		finishReason = "length"
	}

	return &LLMResponse{
		Content:      content.String(),
		FinishReason: finishReason,
		Usage: &UsageInfo{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}
}

func normalizeBaseURL(apiBase string) string {
	base := strings.TrimRight(strings.TrimSpace(apiBase), "/")
	base = strings.TrimSuffix(base, "/v1")
	if base == "" {
		return defaultBaseURL
	}
	return base
}
