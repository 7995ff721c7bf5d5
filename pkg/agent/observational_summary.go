package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/sulla-ai/sulla-desktop-sub001/pkg/logger"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/memory"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/ratelimit"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/thread"
)

type TrimOptions struct {
	// Budget is the entry count trimming brings the memory down to.
	Budget  int
	Timeout time.Duration
}

func DefaultTrimOptions() TrimOptions {
	return TrimOptions{Budget: DefaultTrimBudget, Timeout: TrimTimeout}
}

// ObservationalSummaryService keeps observational memory under budget.
// Trims for one thread never overlap; a trim may run alongside a
// conversation summary for the same thread.
type ObservationalSummaryService struct {
	ranker   Ranker
	fallback Ranker
	store    *memory.Store
	opts     TrimOptions
	bg       *dispatcher
}

// NewObservationalSummaryService builds the trimmer. A nil ranker means
// FIFO eviction only; a nil store keeps results in thread metadata only.
func NewObservationalSummaryService(ranker Ranker, store *memory.Store, opts TrimOptions, limiter *ratelimit.Limiter) *ObservationalSummaryService {
	d := DefaultTrimOptions()
	if opts.Budget <= 0 {
		opts.Budget = d.Budget
	}
	if opts.Timeout <= 0 {
		opts.Timeout = d.Timeout
	}
	if store == nil {
		store = memory.NewStore(nil, DefaultObservationalMemoryCap)
	}
	return &ObservationalSummaryService{
		ranker:   ranker,
		fallback: FIFORanker{},
		store:    store,
		opts:     opts,
		bg:       newDispatcher("trim", opts.Timeout, limiter),
	}
}

// TriggerBackgroundTrimming starts a trim for st and returns immediately.
// It reports false when a trim for the same thread is already in flight.
func (s *ObservationalSummaryService) TriggerBackgroundTrimming(ctx context.Context, st *thread.ThreadState) (bool, error) {
	if st == nil {
		return false, ErrNilState
	}
	return s.bg.dispatch(ctx, st.ID(), func(ctx context.Context) error {
		return s.run(ctx, st)
	}), nil
}

func (s *ObservationalSummaryService) Wait() { s.bg.wait() }

func (s *ObservationalSummaryService) State(threadID string) RunState {
	return s.bg.guard.state(threadID)
}

func (s *ObservationalSummaryService) LastRun(threadID string) (thread.RunReport, bool) {
	return s.bg.guard.lastRun(threadID)
}

func (s *ObservationalSummaryService) run(ctx context.Context, st *thread.ThreadState) error {
	blob := st.Metadata().ObservationalMemory
	entries, ok := memory.ParseLenient(blob)
	if !ok {
		logger.WarnCF("trim", "Observational memory unreadable, treating as empty", map[string]any{
			"thread_id": st.ID(),
		})
	}
	if len(entries) <= s.opts.Budget {
		return fmt.Errorf("%w: %d <= %d", ErrUnderBudget, len(entries), s.opts.Budget)
	}

	kept, err := s.rank(ctx, st.ID(), entries)
	if err != nil {
		return err
	}
	next, err := memory.Encode(kept)
	if err != nil {
		return err
	}

	// FIFO eviction can commit after a ranking call used up the deadline.
	swapped, err := s.store.Replace(context.WithoutCancel(ctx), st, blob, next)
	if !swapped {
		if err != nil {
			return err
		}
		return ErrMemoryChanged
	}

	logger.InfoCF("trim", "Observational memory trimmed", map[string]any{
		"thread_id": st.ID(),
		"before":    len(entries),
		"after":     len(kept),
	})
	if err != nil {
		logger.WarnCF("trim", "Trimmed memory not persisted", map[string]any{
			"thread_id": st.ID(),
			"error":     err.Error(),
		})
	}
	return nil
}

// rank asks the configured ranker first and falls back to FIFO eviction
// when it is missing, throttled or fails.
func (s *ObservationalSummaryService) rank(ctx context.Context, threadID string, entries []memory.Entry) ([]memory.Entry, error) {
	if s.ranker != nil {
		err := s.bg.throttle(ctx, threadID)
		if err == nil {
			var kept []memory.Entry
			kept, err = s.ranker.Select(ctx, entries, s.opts.Budget)
			if err == nil && len(kept) <= s.opts.Budget {
				return kept, nil
			}
			if err == nil {
				err = fmt.Errorf("%w: %d entries over budget", ErrRankingUnusable, len(kept))
			}
		}
		logger.WarnCF("trim", "Ranking failed, falling back to FIFO eviction", map[string]any{
			"thread_id": threadID,
			"error":     err.Error(),
		})
	}
	return s.fallback.Select(ctx, entries, s.opts.Budget)
}
