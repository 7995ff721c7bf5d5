package agent

import "errors"

var (
	ErrNilState = errors.New("thread state is nil")

	// ErrBatchTooSmall and ErrUnderBudget end a run without mutation and
	// are not failures.
	ErrBatchTooSmall = errors.New("not enough eligible messages to summarize")
	ErrUnderBudget   = errors.New("observational memory under budget")

	ErrEmptyDigest     = errors.New("language model returned an empty digest")
	ErrMalformedDigest = errors.New("language model digest has no priority-tagged lines")
	ErrBatchChanged    = errors.New("summarized messages changed during the run")
	ErrMemoryChanged   = errors.New("observational memory changed during the run")
	ErrRankingUnusable = errors.New("ranking response unusable")
	ErrThrottled       = errors.New("background llm call throttled")
)

// isSkip reports whether err ends a run as a quiet no-op.
func isSkip(err error) bool {
	return errors.Is(err, ErrBatchTooSmall) || errors.Is(err, ErrUnderBudget)
}
