package providers

import (
	"fmt"
	"strings"

	"github.com/sulla-ai/sulla-desktop-sub001/pkg/config"
	anthropicprovider "github.com/sulla-ai/sulla-desktop-sub001/pkg/providers/anthropic"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/providers/openai_sdk"
)

const defaultOpenAIBase = "https://api.openai.com/v1"

// CreateProvider builds the provider selected by llm.provider.
func CreateProvider(cfg *config.Config) (LLMProvider, error) {
	llm := cfg.LLM
	name := strings.ToLower(strings.TrimSpace(llm.Provider))

	switch name {
	case "", "openai", "openai-compatible", "ollama", "vllm":
		base := llm.BaseURL
		if base == "" {
			if name == "ollama" {
				base = "http://localhost:11434/v1"
			} else {
				base = defaultOpenAIBase
			}
		}
		if llm.APIKey == "" && base == defaultOpenAIBase {
			return nil, fmt.Errorf("%w for provider %q", ErrMissingAPIKey, "openai")
		}
		return openai_sdk.NewProvider(llm.APIKey, base, llm.Proxy,
			openai_sdk.WithRequestTimeout(cfg.RequestTimeout())), nil
	case "anthropic", "claude":
		if llm.APIKey == "" {
			return nil, fmt.Errorf("%w for provider %q", ErrMissingAPIKey, "anthropic")
		}
		base := llm.BaseURL
		if base == defaultOpenAIBase {
			base = ""
		}
		return anthropicprovider.NewProvider(llm.APIKey, base, llm.Proxy,
			anthropicprovider.WithRequestTimeout(cfg.RequestTimeout())), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, llm.Provider)
	}
}

// CreateModel builds the provider and binds the configured model to it.
func CreateModel(cfg *config.Config) (*Model, error) {
	p, err := CreateProvider(cfg)
	if err != nil {
		return nil, err
	}
	return NewModel(p, cfg.LLM.Model, cfg.LLM.MaxTokens, cfg.LLM.Temperature), nil
}
