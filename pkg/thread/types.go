package thread

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is immutable once created. Compaction replaces messages with
// new ones instead of editing them.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	// Summary marks a synthetic message produced by conversation
	// summarization. Such messages are never summarized again.
	Summary bool `json:"_conversationSummary,omitempty"`
}

func NewMessage(role Role, content string) ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

func NewSummaryMessage(content string) ChatMessage {
	m := NewMessage(RoleAssistant, content)
	m.Summary = true
	return m
}

// WithContent returns a copy carrying new content and a fresh ID.
func (m ChatMessage) WithContent(content string) ChatMessage {
	out := NewMessage(m.Role, content)
	out.Summary = m.Summary
	return out
}

// ConversationSummary records one compaction event.
type ConversationSummary struct {
	ID                  string    `json:"id"`
	CreatedAt           time.Time `json:"createdAt"`
	CoveredMessageCount int       `json:"coveredMessageCount"`
	Text                string    `json:"text"`
	MessageID           string    `json:"messageId"`
}

// RunReport is the outcome of the most recent background run of a service.
type RunReport struct {
	Outcome  string    `json:"outcome"`
	Reason   string    `json:"reason,omitempty"`
	Finished time.Time `json:"finished"`
}

// InputDiagnostics is written once per turn by the input handler and
// replaced wholesale on the next turn.
type InputDiagnostics struct {
	Sanitized                   bool       `json:"sanitized"`
	SanitizeSkippedEmpty        bool       `json:"sanitizeSkippedEmpty,omitempty"`
	InjectionDetected           bool       `json:"injectionDetected"`
	InjectionPatterns           []string   `json:"injectionPatterns,omitempty"`
	RateLimited                 bool       `json:"rateLimited"`
	RateLimitReason             string     `json:"rateLimitReason,omitempty"`
	SpamDetected                bool       `json:"spamDetected"`
	RepetitionDetected          bool       `json:"repetitionDetected"`
	SummaryServiceTriggered     bool       `json:"summaryServiceTriggered"`
	BackgroundTrimmingTriggered bool       `json:"backgroundTrimmingTriggered"`
	TokensBefore                int        `json:"tokensBefore"`
	TokensAfter                 int        `json:"tokensAfter"`
	TokenBudgetExceeded         bool       `json:"tokenBudgetExceeded"`
	DroppedMessages             int        `json:"droppedMessages,omitempty"`
	LastSummaryRun              *RunReport `json:"lastSummaryRun,omitempty"`
	LastTrimRun                 *RunReport `json:"lastTrimRun,omitempty"`
	ProcessedAt                 time.Time  `json:"processedAt"`
}

type Metadata struct {
	ConversationSummaries []ConversationSummary `json:"conversationSummaries"`
	// ObservationalMemory is a JSON array of memory entries, kept as the
	// raw blob so the persisted contract stays a string.
	ObservationalMemory string           `json:"observationalMemory"`
	InputHandler        InputDiagnostics `json:"inputHandler"`
	// InputTimestamps holds arrival times in unix milliseconds.
	InputTimestamps []int64 `json:"_inputTimestamps"`
}

// Data is a detached copy of a thread's mutable fields.
type Data struct {
	Messages []ChatMessage
	Metadata Metadata
}

func (d Data) clone() Data {
	out := Data{Metadata: d.Metadata}
	out.Messages = make([]ChatMessage, len(d.Messages))
	copy(out.Messages, d.Messages)
	if d.Metadata.ConversationSummaries != nil {
		out.Metadata.ConversationSummaries = make([]ConversationSummary, len(d.Metadata.ConversationSummaries))
		copy(out.Metadata.ConversationSummaries, d.Metadata.ConversationSummaries)
	}
	if d.Metadata.InputTimestamps != nil {
		out.Metadata.InputTimestamps = make([]int64, len(d.Metadata.InputTimestamps))
		copy(out.Metadata.InputTimestamps, d.Metadata.InputTimestamps)
	}
	diag := d.Metadata.InputHandler
	if diag.InjectionPatterns != nil {
		diag.InjectionPatterns = append([]string(nil), diag.InjectionPatterns...)
	}
	if diag.LastSummaryRun != nil {
		r := *diag.LastSummaryRun
		diag.LastSummaryRun = &r
	}
	if diag.LastTrimRun != nil {
		r := *diag.LastTrimRun
		diag.LastTrimRun = &r
	}
	out.Metadata.InputHandler = diag
	return out
}

// LatestUserIndex returns the index of the most recent user message or -1.
func (d Data) LatestUserIndex() int {
	return LatestIndex(d.Messages, RoleUser)
}

// LatestIndex returns the index of the most recent message with role or -1.
func LatestIndex(messages []ChatMessage, role Role) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == role {
			return i
		}
	}
	return -1
}

// HasSystemPrompt reports whether messages[0] is a system message.
func HasSystemPrompt(messages []ChatMessage) bool {
	return len(messages) > 0 && messages[0].Role == RoleSystem
}
