// Package memory implements observational memory: a short, bounded,
// priority-tagged list of durable facts kept next to the chat history and
// persisted as a JSON array.
package memory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Priority ranks an observation. Higher values are kept longer.
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
)

const (
	emojiHigh   = "🔴"
	emojiMedium = "🟡"
	emojiLow    = "⚪"
)

// String returns the emoji tag used in prompts and persisted JSON.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return emojiHigh
	case PriorityMedium:
		return emojiMedium
	default:
		return emojiLow
	}
}

// ParsePriority accepts the emoji tags and the words high, medium and low.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case emojiHigh, "high", "critical":
		return PriorityHigh, nil
	case emojiMedium, "medium", "normal":
		return PriorityMedium, nil
	case emojiLow, "low", "":
		return PriorityLow, nil
	default:
		return PriorityLow, fmt.Errorf("unknown priority %q", s)
	}
}

// MarshalJSON implements json.Marshaler
func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON implements json.Unmarshaler. Unknown tags decode as low
// priority so one odd entry never invalidates the whole list.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*p = clampPriority(Priority(n))
		return nil
	}
	parsed, _ := ParsePriority(s)
	*p = parsed
	return nil
}

func clampPriority(p Priority) Priority {
	if p < PriorityLow {
		return PriorityLow
	}
	if p > PriorityHigh {
		return PriorityHigh
	}
	return p
}

// Entry is one observation.
type Entry struct {
	ID        string    `json:"id"`
	Priority  Priority  `json:"priority"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewID returns a 4-character token.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:4]
}

func NewEntry(p Priority, content string) Entry {
	return Entry{
		ID:        NewID(),
		Priority:  clampPriority(p),
		Content:   strings.TrimSpace(content),
		Timestamp: time.Now().UTC(),
	}
}

// String renders the entry the way prompts list it.
func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s %s", e.ID, e.Priority, e.Content)
}
