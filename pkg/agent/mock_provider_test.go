package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/sulla-ai/sulla-desktop-sub001/pkg/providers"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/thread"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testDigest = "- 🔴 user is planning a trip to Lisbon\n- 🟡 prefers window seats\n- ⚪ mentioned liking tea"

// mockModel is a scripted LanguageModel. When gate is set, Chat blocks
// until gate is closed or ctx ends.
type mockModel struct {
	mu        sync.Mutex
	calls     int
	responses []string
	err       error
	panicWith any
	gate      chan struct{}
	entered   chan struct{}
	lastMsgs  []providers.Message
}

func (m *mockModel) Chat(ctx context.Context, messages []providers.Message) (*providers.LLMResponse, error) {
	m.mu.Lock()
	m.calls++
	idx := m.calls - 1
	m.lastMsgs = messages
	entered, gate := m.entered, m.gate
	m.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	if m.err != nil {
		return nil, m.err
	}
	content := "Mock response"
	if len(m.responses) > 0 {
		if idx >= len(m.responses) {
			idx = len(m.responses) - 1
		}
		content = m.responses[idx]
	}
	return &providers.LLMResponse{Content: content, FinishReason: "stop"}, nil
}

func (m *mockModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockModel) lastMessages() []providers.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastMsgs
}

// blockingModel returns a model that signals on entered and waits for
// release to be closed.
func blockingModel(responses ...string) (*mockModel, chan struct{}) {
	release := make(chan struct{})
	return &mockModel{
		responses: responses,
		gate:      release,
		entered:   make(chan struct{}, 16),
	}, release
}

// buildThread returns a thread with a system prompt followed by total-1
// messages alternating user and assistant, user first.
func buildThread(id string, total int) *thread.ThreadState {
	st := thread.NewWithSystemPrompt(id, "You are a helpful assistant.")
	for i := 1; i < total; i++ {
		role := thread.RoleUser
		if i%2 == 0 {
			role = thread.RoleAssistant
		}
		st.Append(thread.NewMessage(role, fmt.Sprintf("%s message %d", role, i)))
	}
	return st
}

func messageIDs(msgs []thread.ChatMessage) []string {
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	return ids
}

func bigText(n int) string {
	return strings.Repeat("a", n)
}
