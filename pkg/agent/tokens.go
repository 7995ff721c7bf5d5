package agent

import (
	"unicode/utf8"

	"github.com/sulla-ai/sulla-desktop-sub001/pkg/thread"
)

// EstimateMessageTokens uses 2.5 characters per token.
func EstimateMessageTokens(m thread.ChatMessage) int {
	return utf8.RuneCountInString(m.Content) * 2 / 5
}

func EstimateTokens(msgs []thread.ChatMessage) int {
	total := 0
	for _, m := range msgs {
		total += EstimateMessageTokens(m)
	}
	return total
}

type budgetResult struct {
	Messages []thread.ChatMessage
	Before   int
	After    int
	Dropped  int
	Exceeded bool
}

// enforceTokenBudget drops the oldest droppable messages until the estimate
// fits max. Raw messages go before summary messages. System messages and
// the latest user message are never dropped.
func enforceTokenBudget(msgs []thread.ChatMessage, max int) budgetResult {
	before := EstimateTokens(msgs)
	res := budgetResult{Messages: msgs, Before: before, After: before}
	if max <= 0 || before <= max {
		return res
	}

	latestUser := thread.LatestIndex(msgs, thread.RoleUser)
	droppable := func(i int) bool {
		return i != latestUser && msgs[i].Role != thread.RoleSystem
	}

	drop := make(map[int]bool)
	total := before
	for _, wantSummary := range []bool{false, true} {
		for i := range msgs {
			if total <= max {
				break
			}
			if msgs[i].Summary != wantSummary || !droppable(i) {
				continue
			}
			drop[i] = true
			total -= EstimateMessageTokens(msgs[i])
		}
	}

	kept := make([]thread.ChatMessage, 0, len(msgs)-len(drop))
	for i, m := range msgs {
		if !drop[i] {
			kept = append(kept, m)
		}
	}
	res.Messages = kept
	res.After = total
	res.Dropped = len(drop)
	res.Exceeded = total > max
	return res
}
