// Package openai_sdk adapts OpenAI-compatible chat completion endpoints.
package openai_sdk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/sulla-ai/sulla-desktop-sub001/pkg/providers/protocoltypes"
)

type (
	LLMResponse = protocoltypes.LLMResponse
	UsageInfo   = protocoltypes.UsageInfo
	Message     = protocoltypes.Message
)

const defaultModel = "gpt-4o-mini"

var ErrNoChoices = errors.New("OpenAI API returned no choices")

type Provider struct {
	apiBase string
	client  openai.Client
}

type settings struct {
	timeout time.Duration
}

type Option func(*settings)

func WithRequestTimeout(timeout time.Duration) Option {
	return func(s *settings) { s.timeout = timeout }
}

// NewProvider targets any OpenAI-compatible base URL with SDK retries off.
func NewProvider(apiKey, apiBase, proxy string, opts ...Option) *Provider {
	var st settings
	for _, opt := range opts {
		if opt != nil {
			opt(&st)
		}
	}

	p := &Provider{apiBase: strings.TrimRight(apiBase, "/")}
	reqOpts := []option.RequestOption{
		option.WithBaseURL(p.apiBase),
		option.WithHTTPClient(protocoltypes.NewHTTPClient("openai", proxy, st.timeout)),
		option.WithMaxRetries(0),
	}
	if apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(apiKey))
	}
	p.client = openai.NewClient(reqOpts...)
	return p
}

func (p *Provider) GetDefaultModel() string {
	return defaultModel
}

func (p *Provider) Chat(
	ctx context.Context,
	messages []Message,
	model string,
	options map[string]any,
) (*LLMResponse, error) {
	if strings.TrimSpace(p.apiBase) == "" {
		return nil, fmt.Errorf("API base not configured")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}

	params := openai.ChatCompletionNewParams{
		Model:    normalizeModel(model),
		Messages: buildChatMessages(messages),
	}
	applyOptions(&params, options)

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("OpenAI API request failed (status=%d): %w", apiErr.StatusCode, err)
		}
		return nil, fmt.Errorf("OpenAI API request failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}

	choice := resp.Choices[0]
	return &LLMResponse{
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage:        mapUsage(resp.Usage),
	}, nil
}

func normalizeModel(model string) string {
	trimmed := strings.TrimSpace(model)
	if strings.HasPrefix(strings.ToLower(trimmed), "openai/") {
		return trimmed[len("openai/"):]
	}
	return trimmed
}

func buildChatMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			out = append(out, openai.SystemMessage(msg.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

func applyOptions(params *openai.ChatCompletionNewParams, options map[string]any) {
	o := protocoltypes.ParseCallOptions(options)
	if o.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Opt(int64(o.MaxTokens))
	}
	if o.HasTemperature {
		params.Temperature = openai.Opt(o.Temperature)
	}
}

func mapUsage(usage openai.CompletionUsage) *UsageInfo {
	if usage.TotalTokens == 0 && usage.PromptTokens == 0 && usage.CompletionTokens == 0 {
		return nil
	}
	return &UsageInfo{
		PromptTokens:     int(usage.PromptTokens),
		CompletionTokens: int(usage.CompletionTokens),
		TotalTokens:      int(usage.TotalTokens),
	}
}
