package agent

import (
	"context"
	"errors"

	"github.com/sulla-ai/sulla-desktop-sub001/pkg/injection"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/logger"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/thread"
)

var ErrTokenCeiling = errors.New("conversation exceeds the token ceiling")

// ReplyNode answers the latest user message and appends the reply.
type ReplyNode struct {
	model LanguageModel
}

func NewReplyNode(model LanguageModel) *ReplyNode {
	return &ReplyNode{model: model}
}

func (r *ReplyNode) Name() string { return "reply" }

func (r *ReplyNode) Execute(ctx context.Context, st *thread.ThreadState) Result {
	snap := st.Snapshot()
	diag := snap.Metadata.InputHandler
	if diag.TokenBudgetExceeded {
		return Result{Decision: Decision{Type: DecisionEnd, Reason: ErrTokenCeiling.Error()}, State: st}
	}

	msgs := toProviderMessages(snap.Messages)
	if diag.InjectionDetected {
		if i := snap.LatestUserIndex(); i >= 0 {
			msgs[i].Content = injection.WrapInBoundary(msgs[i].Content)
		}
	}

	resp, err := r.model.Chat(ctx, msgs)
	if err != nil {
		logger.ErrorCF("reply", "Reply failed", map[string]any{
			"thread_id": st.ID(),
			"error":     err.Error(),
		})
		return Result{Decision: Decision{Type: DecisionEnd, Reason: err.Error()}, State: st}
	}
	st.Append(thread.NewMessage(thread.RoleAssistant, resp.Content))
	return next(st)
}
