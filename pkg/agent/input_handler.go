package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sulla-ai/sulla-desktop-sub001/pkg/config"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/injection"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/logger"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/thread"
)

type GateOptions struct {
	MaxMessages         int
	MaxContextTokens    int
	RateLimitWindow     time.Duration
	RateLimitBurst      int
	TimestampRingSize   int
	SpamRatio           float64
	SpamMinTokens       int
	RepetitionMinPhrase int
	RepetitionMinCount  int
}

func DefaultGateOptions() GateOptions {
	return GateOptions{
		MaxMessages:         DefaultMaxMessages,
		MaxContextTokens:    DefaultMaxContextTokens,
		RateLimitWindow:     DefaultRateLimitWindow,
		RateLimitBurst:      DefaultRateLimitBurst,
		TimestampRingSize:   DefaultTimestampRingSize,
		SpamRatio:           DefaultSpamRatio,
		SpamMinTokens:       DefaultSpamMinTokens,
		RepetitionMinPhrase: DefaultRepetitionMinPhrase,
		RepetitionMinCount:  DefaultRepetitionMinCount,
	}
}

// GateOptionsFromConfig maps the gate section, keeping defaults for unset
// values.
func GateOptionsFromConfig(c config.GateConfig) GateOptions {
	o := DefaultGateOptions()
	setInt := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}
	setInt(&o.MaxMessages, c.MaxMessages)
	setInt(&o.MaxContextTokens, c.MaxContextTokens)
	setInt(&o.RateLimitBurst, c.RateLimitBurst)
	setInt(&o.TimestampRingSize, c.TimestampRingSize)
	setInt(&o.SpamMinTokens, c.SpamMinTokens)
	setInt(&o.RepetitionMinPhrase, c.RepetitionMinPhrase)
	setInt(&o.RepetitionMinCount, c.RepetitionMinCount)
	if c.RateLimitWindowMS > 0 {
		o.RateLimitWindow = time.Duration(c.RateLimitWindowMS) * time.Millisecond
	}
	if c.SpamRatio > 0 && c.SpamRatio < 1 {
		o.SpamRatio = c.SpamRatio
	}
	return o
}

// SummaryTrigger is the conversation summary side of the gate.
type SummaryTrigger interface {
	TriggerBackgroundSummarization(ctx context.Context, st *thread.ThreadState) (bool, error)
	LastRun(threadID string) (thread.RunReport, bool)
}

// TrimTrigger is the observational memory side of the gate.
type TrimTrigger interface {
	TriggerBackgroundTrimming(ctx context.Context, st *thread.ThreadState) (bool, error)
	LastRun(threadID string) (thread.RunReport, bool)
}

// InputHandlerNode is the synchronous gate every turn passes through before
// any LLM call. It annotates, starts background compaction, and enforces
// the token ceiling; it never stops the pipeline.
type InputHandlerNode struct {
	opts      GateOptions
	defender  *injection.Defender
	summaries SummaryTrigger
	trimmer   TrimTrigger
	now       func() time.Time
}

// NewInputHandlerNode wires the gate. Nil collaborators disable the
// corresponding step.
func NewInputHandlerNode(opts GateOptions, defender *injection.Defender, summaries SummaryTrigger, trimmer TrimTrigger) *InputHandlerNode {
	return &InputHandlerNode{
		opts:      opts,
		defender:  defender,
		summaries: summaries,
		trimmer:   trimmer,
		now:       time.Now,
	}
}

func (n *InputHandlerNode) Name() string { return "input_handler" }

// Execute always returns a next decision with the same state.
func (n *InputHandlerNode) Execute(ctx context.Context, st *thread.ThreadState) Result {
	if st == nil {
		return next(st)
	}
	now := n.now()
	diag := thread.InputDiagnostics{ProcessedAt: now.UTC()}

	var userText, assistantText, memoryBlob string
	var messageCount int
	_ = st.Update(func(d *thread.Data) error {
		if i := d.LatestUserIndex(); i >= 0 {
			clean, res := SanitizeInput(d.Messages[i].Content)
			switch res {
			case SanitizeChanged:
				d.Messages[i] = d.Messages[i].WithContent(clean)
				diag.Sanitized = true
			case SanitizeSkippedEmpty:
				diag.SanitizeSkippedEmpty = true
			}
			userText = d.Messages[i].Content
		}
		if i := thread.LatestIndex(d.Messages, thread.RoleAssistant); i >= 0 {
			assistantText = d.Messages[i].Content
		}
		d.Metadata.InputTimestamps = pushTimestamp(d.Metadata.InputTimestamps, now.UnixMilli(), n.opts.TimestampRingSize)
		diag.RateLimited, diag.RateLimitReason = detectBurst(d.Metadata.InputTimestamps, n.opts.RateLimitWindow, n.opts.RateLimitBurst)
		messageCount = len(d.Messages)
		memoryBlob = d.Metadata.ObservationalMemory
		return nil
	})

	if n.defender != nil {
		res := n.defender.Detect(userText)
		diag.InjectionDetected = res.Detected
		diag.InjectionPatterns = res.MatchedPatterns
	}
	diag.SpamDetected = detectSpam(userText, n.opts.SpamRatio, n.opts.SpamMinTokens)
	diag.RepetitionDetected = detectRepetition(assistantText, n.opts.RepetitionMinPhrase, n.opts.RepetitionMinCount)

	if n.summaries != nil && messageCount > n.opts.MaxMessages {
		diag.SummaryServiceTriggered = n.fire(st.ID(), "summary", func() (bool, error) {
			return n.summaries.TriggerBackgroundSummarization(ctx, st)
		})
	}
	if n.trimmer != nil && hasObservations(memoryBlob) {
		diag.BackgroundTrimmingTriggered = n.fire(st.ID(), "trim", func() (bool, error) {
			return n.trimmer.TriggerBackgroundTrimming(ctx, st)
		})
	}
	n.attachLastRuns(st.ID(), &diag)

	_ = st.Update(func(d *thread.Data) error {
		res := enforceTokenBudget(d.Messages, n.opts.MaxContextTokens)
		d.Messages = res.Messages
		diag.TokensBefore = res.Before
		diag.TokensAfter = res.After
		diag.DroppedMessages = res.Dropped
		diag.TokenBudgetExceeded = res.Exceeded
		d.Metadata.InputHandler = diag
		return nil
	})

	n.logFlags(st.ID(), diag)
	return next(st)
}

// fire calls a background trigger, absorbing errors and panics. The flag
// is recorded whenever the trigger was invoked.
func (n *InputHandlerNode) fire(threadID, name string, trigger func() (bool, error)) (triggered bool) {
	triggered = true
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCF("input_handler", "Background trigger panicked", map[string]any{
				"thread_id": threadID,
				"service":   name,
				"panic":     fmt.Sprint(r),
			})
		}
	}()
	started, err := trigger()
	if err != nil {
		logger.WarnCF("input_handler", "Background trigger failed", map[string]any{
			"thread_id": threadID,
			"service":   name,
			"error":     err.Error(),
		})
	}
	logger.DebugCF("input_handler", "Background trigger fired", map[string]any{
		"thread_id": threadID,
		"service":   name,
		"started":   started,
	})
	return triggered
}

func (n *InputHandlerNode) attachLastRuns(threadID string, diag *thread.InputDiagnostics) {
	if n.summaries != nil {
		if r, ok := n.summaries.LastRun(threadID); ok {
			diag.LastSummaryRun = &r
		}
	}
	if n.trimmer != nil {
		if r, ok := n.trimmer.LastRun(threadID); ok {
			diag.LastTrimRun = &r
		}
	}
}

func (n *InputHandlerNode) logFlags(threadID string, diag thread.InputDiagnostics) {
	if !diag.InjectionDetected && !diag.RateLimited && !diag.SpamDetected && !diag.SanitizeSkippedEmpty &&
		!diag.RepetitionDetected && !diag.TokenBudgetExceeded && diag.DroppedMessages == 0 {
		return
	}
	logger.WarnCF("input_handler", "Turn flagged", map[string]any{
		"thread_id":        threadID,
		"injection":        diag.InjectionPatterns,
		"rate_limited":     diag.RateLimitReason,
		"spam":             diag.SpamDetected,
		"repetition":       diag.RepetitionDetected,
		"sanitize_skipped": diag.SanitizeSkippedEmpty,
		"dropped_messages": diag.DroppedMessages,
		"tokens_after":     diag.TokensAfter,
		"over_budget":      diag.TokenBudgetExceeded,
	})
}

func hasObservations(blob string) bool {
	b := strings.TrimSpace(blob)
	return b != "" && b != "[]" && b != "null"
}
