package agent

import (
	"time"

	"github.com/sulla-ai/sulla-desktop-sub001/pkg/memory"
)

// Input gate defaults. All of them can be overridden through GateOptions.
const (
	// DefaultMaxMessages is the message count above which the conversation
	// summary service is triggered.
	DefaultMaxMessages = 80

	// DefaultMaxContextTokens is the hard ceiling enforced on every turn.
	DefaultMaxContextTokens = 24000

	DefaultRateLimitWindow   = 400 * time.Millisecond
	DefaultRateLimitBurst    = 3
	DefaultTimestampRingSize = 20

	// DefaultSpamRatio is the share a single token must exceed for a
	// message to be flagged as spam.
	DefaultSpamRatio     = 0.70
	DefaultSpamMinTokens = 5

	DefaultRepetitionMinPhrase = 20
	DefaultRepetitionMinCount  = 3

	// RepetitionScanRunes bounds how much of the assistant message the
	// repetition heuristic looks at.
	RepetitionScanRunes = 4000

	// RepetitionMaxPeriod is the longest repeated block looked for.
	RepetitionMaxPeriod = 400

	// RepetitionSlackDivisor sets the mismatches tolerated between copies
	// of a block: one per this many runes of block length.
	RepetitionSlackDivisor = 10
)

// Background compaction defaults.
const (
	DefaultSummaryFraction = 0.25
	DefaultMinSummaryBatch = 4

	// SummarizationTimeout bounds one conversation summary run, LLM call
	// included.
	SummarizationTimeout = 120 * time.Second

	SummarizeMaxTokens   = 1024
	SummarizeTemperature = 0.3

	DefaultTrimBudget             = 40
	DefaultObservationalMemoryCap = memory.DefaultCap

	TrimTimeout     = 60 * time.Second
	RankMaxTokens   = 512
	RankTemperature = 0.0
)
