package agent

import (
	"context"
	"fmt"

	"github.com/sulla-ai/sulla-desktop-sub001/pkg/config"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/injection"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/logger"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/memory"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/ratelimit"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/settings"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/thread"
)

// Runtime bundles the gate and the two background services built from one
// configuration.
type Runtime struct {
	Gate      *InputHandlerNode
	Summaries *ConversationSummaryService
	Trimmer   *ObservationalSummaryService
	Memory    *memory.Store
	reply     LanguageModel
}

// Models lets callers give each background service its own token limits.
// Reply is optional and only used by Pipeline.
type Models struct {
	Summary LanguageModel
	Ranking LanguageModel
	Reply   LanguageModel
}

func NewRuntime(cfg *config.Config, models Models, store settings.Store) (*Runtime, error) {
	defender, err := injection.NewDefender(injection.Config{
		Enabled:        true,
		CustomPatterns: cfg.Gate.InjectionPatterns,
	})
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		CallsPerMinute: cfg.RateLimits.BackgroundCallsPerMinute,
		Burst:          cfg.RateLimits.Burst,
	})
	mem := memory.NewStore(store, cfg.Trim.MemoryCap)

	rt := &Runtime{Memory: mem, reply: models.Reply}

	if cfg.Summary.Enabled && models.Summary != nil {
		rt.Summaries = NewConversationSummaryService(models.Summary, SummaryOptions{
			Fraction: cfg.Summary.Fraction,
			MinBatch: cfg.Summary.MinBatch,
			Timeout:  cfg.SummaryTimeout(),
		}, limiter)
	}
	if cfg.Trim.Enabled {
		var ranker Ranker
		if cfg.Trim.UseLLMRanker && models.Ranking != nil {
			ranker = LLMRanker{Model: models.Ranking}
		}
		rt.Trimmer = NewObservationalSummaryService(ranker, mem, TrimOptions{
			Budget:  cfg.Trim.Budget,
			Timeout: cfg.TrimTimeout(),
		}, limiter)
	}

	// typed nils would defeat the gate's nil checks
	var summaries SummaryTrigger
	if rt.Summaries != nil {
		summaries = rt.Summaries
	}
	var trimmer TrimTrigger
	if rt.Trimmer != nil {
		trimmer = rt.Trimmer
	}
	rt.Gate = NewInputHandlerNode(GateOptionsFromConfig(cfg.Gate), defender, summaries, trimmer)
	return rt, nil
}

// Pipeline returns the gate followed by a reply node when a reply model
// was configured.
func (rt *Runtime) Pipeline() *Pipeline {
	if rt.reply == nil {
		return NewPipeline(rt.Gate)
	}
	return NewPipeline(rt.Gate, NewReplyNode(rt.reply))
}

// Sweep applies the gate's trigger conditions to st outside a turn. It
// reports which services were started.
func (rt *Runtime) Sweep(ctx context.Context, st *thread.ThreadState) (summary, trim bool) {
	if err := rt.Memory.Hydrate(ctx, st); err != nil {
		logger.WarnCF("agent", "Memory hydration failed", map[string]any{
			"thread_id": st.ID(),
			"error":     err.Error(),
		})
	}
	snap := st.Snapshot()
	if rt.Summaries != nil && len(snap.Messages) > rt.Gate.opts.MaxMessages {
		summary, _ = rt.Summaries.TriggerBackgroundSummarization(ctx, st)
	}
	if rt.Trimmer != nil && hasObservations(snap.Metadata.ObservationalMemory) {
		trim, _ = rt.Trimmer.TriggerBackgroundTrimming(ctx, st)
	}
	return summary, trim
}

// Wait drains both background services.
func (rt *Runtime) Wait() {
	if rt.Summaries != nil {
		rt.Summaries.Wait()
	}
	if rt.Trimmer != nil {
		rt.Trimmer.Wait()
	}
}

// WaitContext is Wait bounded by ctx.
func (rt *Runtime) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		rt.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for background runs: %w", ctx.Err())
	}
}
