package agent

import (
	"context"

	"github.com/sulla-ai/sulla-desktop-sub001/pkg/providers"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/thread"
)

// LanguageModel is the chat collaborator used by the background services
// and the reply node. It may fail, return malformed text, or be slow.
type LanguageModel interface {
	Chat(ctx context.Context, messages []providers.Message) (*providers.LLMResponse, error)
}

func toProviderMessages(msgs []thread.ChatMessage) []providers.Message {
	out := make([]providers.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, providers.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}
