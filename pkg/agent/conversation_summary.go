package agent

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sulla-ai/sulla-desktop-sub001/pkg/logger"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/memory"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/providers"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/ratelimit"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/thread"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/utils"
)

type SummaryOptions struct {
	Fraction float64
	MinBatch int
	Timeout  time.Duration
}

func DefaultSummaryOptions() SummaryOptions {
	return SummaryOptions{
		Fraction: DefaultSummaryFraction,
		MinBatch: DefaultMinSummaryBatch,
		Timeout:  SummarizationTimeout,
	}
}

func (o SummaryOptions) withDefaults() SummaryOptions {
	d := DefaultSummaryOptions()
	if o.Fraction <= 0 || o.Fraction > 1 {
		o.Fraction = d.Fraction
	}
	if o.MinBatch <= 0 {
		o.MinBatch = d.MinBatch
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	return o
}

// ConversationSummaryService compacts the oldest part of a long
// conversation into one summary message, in the background.
type ConversationSummaryService struct {
	model LanguageModel
	opts  SummaryOptions
	bg    *dispatcher
}

func NewConversationSummaryService(model LanguageModel, opts SummaryOptions, limiter *ratelimit.Limiter) *ConversationSummaryService {
	opts = opts.withDefaults()
	return &ConversationSummaryService{
		model: model,
		opts:  opts,
		bg:    newDispatcher("summary", opts.Timeout, limiter),
	}
}

// TriggerBackgroundSummarization starts a summary run for st and returns
// immediately. It reports false when a run for the same thread is already
// in flight.
func (s *ConversationSummaryService) TriggerBackgroundSummarization(ctx context.Context, st *thread.ThreadState) (bool, error) {
	if st == nil {
		return false, ErrNilState
	}
	return s.bg.dispatch(ctx, st.ID(), func(ctx context.Context) error {
		return s.run(ctx, st)
	}), nil
}

// Wait blocks until every in-flight run has finished.
func (s *ConversationSummaryService) Wait() { s.bg.wait() }

func (s *ConversationSummaryService) State(threadID string) RunState {
	return s.bg.guard.state(threadID)
}

func (s *ConversationSummaryService) LastRun(threadID string) (thread.RunReport, bool) {
	return s.bg.guard.lastRun(threadID)
}

func (s *ConversationSummaryService) run(ctx context.Context, st *thread.ThreadState) error {
	snap := st.Snapshot()
	batch := selectSummaryBatch(snap.Messages, s.opts.Fraction)
	if len(batch) < s.opts.MinBatch {
		return fmt.Errorf("%w: %d < %d", ErrBatchTooSmall, len(batch), s.opts.MinBatch)
	}

	if err := s.bg.throttle(ctx, st.ID()); err != nil {
		return err
	}
	digest, err := s.summarize(ctx, batch)
	if err != nil {
		return err
	}

	ids := make([]string, len(batch))
	for i, m := range batch {
		ids[i] = m.ID
	}
	content := fmt.Sprintf("[Summary of %d earlier messages]\n%s", len(batch), digest)

	return st.Update(func(d *thread.Data) error {
		spliced, summary, err := spliceSummary(d.Messages, ids, content)
		if err != nil {
			return err
		}
		d.Messages = spliced
		d.Metadata.ConversationSummaries = append(d.Metadata.ConversationSummaries, thread.ConversationSummary{
			ID:                  uuid.NewString(),
			CreatedAt:           summary.CreatedAt,
			CoveredMessageCount: len(ids),
			Text:                digest,
			MessageID:           summary.ID,
		})
		logger.InfoCF("summary", "Conversation compacted", map[string]any{
			"thread_id":      st.ID(),
			"covered":        len(ids),
			"messages_after": len(spliced),
		})
		return nil
	})
}

const summaryPrompt = `You compress chat history into durable notes.
Write one bullet per fact, decision, preference, or open task from the
transcript below. Start every bullet with "- " and a priority tag:
🔴 critical, 🟡 useful, ⚪ minor. Do not add commentary.`

func (s *ConversationSummaryService) summarize(ctx context.Context, batch []thread.ChatMessage) (string, error) {
	var sb strings.Builder
	for _, m := range batch {
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
	}

	logger.DebugCF("summary", "Requesting digest", map[string]any{
		"messages": len(batch),
		"preview":  utils.Truncate(sb.String(), 200),
	})

	resp, err := s.model.Chat(ctx, []providers.Message{
		{Role: "system", Content: summaryPrompt},
		{Role: "user", Content: sb.String()},
	})
	if err != nil {
		return "", fmt.Errorf("summarize conversation: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", ErrEmptyDigest
	}

	entries := memory.ParseDigest(resp.Content)
	if len(entries) == 0 {
		return "", ErrMalformedDigest
	}
	var out strings.Builder
	for i, e := range entries {
		if i > 0 {
			out.WriteByte('\n')
		}
		fmt.Fprintf(&out, "- %s %s", e.Priority, e.Content)
	}
	return out.String(), nil
}

// selectSummaryBatch returns the oldest contiguous run of eligible
// messages, sized to fraction of all eligible messages. System messages,
// earlier summaries and the latest user message are never eligible.
func selectSummaryBatch(msgs []thread.ChatMessage, fraction float64) []thread.ChatMessage {
	latestUser := thread.LatestIndex(msgs, thread.RoleUser)
	eligible := func(i int) bool {
		return i != latestUser && msgs[i].Role != thread.RoleSystem && !msgs[i].Summary
	}

	total := 0
	first := -1
	for i := range msgs {
		if eligible(i) {
			total++
			if first < 0 {
				first = i
			}
		}
	}
	size := int(math.Floor(float64(total) * fraction))
	if first < 0 || size == 0 {
		return nil
	}

	batch := make([]thread.ChatMessage, 0, size)
	for i := first; i < len(msgs) && len(batch) < size && eligible(i); i++ {
		batch = append(batch, msgs[i])
	}
	return batch
}

// spliceSummary replaces the contiguous run ids with one summary message.
// It fails with ErrBatchChanged when the run is no longer intact.
func spliceSummary(msgs []thread.ChatMessage, ids []string, content string) ([]thread.ChatMessage, thread.ChatMessage, error) {
	start := -1
	for i, m := range msgs {
		if m.ID == ids[0] {
			start = i
			break
		}
	}
	if start < 0 || start+len(ids) > len(msgs) {
		return nil, thread.ChatMessage{}, ErrBatchChanged
	}
	for k, id := range ids {
		if msgs[start+k].ID != id {
			return nil, thread.ChatMessage{}, ErrBatchChanged
		}
	}

	summary := thread.NewSummaryMessage(content)
	out := make([]thread.ChatMessage, 0, len(msgs)-len(ids)+1)
	out = append(out, msgs[:start]...)
	out = append(out, summary)
	out = append(out, msgs[start+len(ids):]...)
	return out, summary, nil
}
