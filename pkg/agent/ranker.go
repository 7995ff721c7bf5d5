package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sulla-ai/sulla-desktop-sub001/pkg/memory"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/providers"
)

// Ranker chooses which observations survive a trim. Implementations return
// at most budget entries in their original chronological order.
type Ranker interface {
	Select(ctx context.Context, entries []memory.Entry, budget int) ([]memory.Entry, error)
}

// FIFORanker evicts the oldest entries.
type FIFORanker struct{}

func (FIFORanker) Select(_ context.Context, entries []memory.Entry, budget int) ([]memory.Entry, error) {
	return memory.EvictOldest(append([]memory.Entry(nil), entries...), budget), nil
}

// LLMRanker asks the language model to order entries by importance.
type LLMRanker struct {
	Model LanguageModel
}

const rankPrompt = `You maintain a short list of durable facts about a conversation.
Each fact has an id and a priority tag: 🔴 critical, 🟡 useful, ⚪ minor.
Rank the facts from most to least important to keep, weighing the tag,
specificity, and whether a fact is superseded by another.
Reply with a JSON array of ids only, for example ["a1b2","c3d4"].`

func (r LLMRanker) Select(ctx context.Context, entries []memory.Entry, budget int) ([]memory.Entry, error) {
	if len(entries) <= budget {
		return entries, nil
	}

	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s %s %s\n", e.ID, e.Priority, e.Content)
	}
	resp, err := r.Model.Chat(ctx, []providers.Message{
		{Role: "system", Content: rankPrompt},
		{Role: "user", Content: fmt.Sprintf("Keep the best %d of these %d facts:\n%s", budget, len(entries), sb.String())},
	})
	if err != nil {
		return nil, fmt.Errorf("rank observations: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: empty response", ErrRankingUnusable)
	}
	ids, err := parseRanking(resp.Content)
	if err != nil {
		return nil, err
	}
	return selectRanked(entries, ids, budget)
}

// parseRanking extracts a JSON array of ids, tolerating code fences and
// prose around the array.
func parseRanking(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON array", ErrRankingUnusable)
	}
	var ids []string
	if err := json.Unmarshal([]byte(text[start:end+1]), &ids); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRankingUnusable, err)
	}
	return ids, nil
}

// selectRanked keeps ranked ids first, then fills remaining slots by
// priority and recency. Unknown and duplicate ids are ignored; a ranking
// naming no known id is unusable.
func selectRanked(entries []memory.Entry, ids []string, budget int) ([]memory.Entry, error) {
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		index[e.ID] = i
	}

	keep := make(map[int]bool, budget)
	for _, id := range ids {
		if len(keep) >= budget {
			break
		}
		if i, ok := index[strings.TrimSpace(id)]; ok {
			keep[i] = true
		}
	}
	if len(keep) == 0 {
		return nil, fmt.Errorf("%w: no known ids", ErrRankingUnusable)
	}

	if len(keep) < budget {
		rest := make([]int, 0, len(entries))
		for i := range entries {
			if !keep[i] {
				rest = append(rest, i)
			}
		}
		sort.SliceStable(rest, func(a, b int) bool {
			ea, eb := entries[rest[a]], entries[rest[b]]
			if ea.Priority != eb.Priority {
				return ea.Priority > eb.Priority
			}
			return rest[a] > rest[b]
		})
		for _, i := range rest {
			if len(keep) >= budget {
				break
			}
			keep[i] = true
		}
	}

	out := make([]memory.Entry, 0, len(keep))
	for i, e := range entries {
		if keep[i] {
			out = append(out, e)
		}
	}
	return out, nil
}
