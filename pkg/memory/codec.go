package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DefaultCap bounds the number of stored observations.
const DefaultCap = 50

var (
	ErrRoundTrip    = errors.New("observational memory failed JSON round-trip check")
	ErrEmptyContent = errors.New("observation content is empty")
)

// Parse decodes a JSON blob. An empty blob is an empty list.
func Parse(blob string) ([]Entry, error) {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return []Entry{}, nil
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(blob), &entries); err != nil {
		return nil, fmt.Errorf("parse observational memory: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// ParseLenient is Parse with corruption recovery: a blob that does not
// decode is treated as an empty list.
func ParseLenient(blob string) ([]Entry, bool) {
	entries, err := Parse(blob)
	if err != nil {
		return []Entry{}, false
	}
	return entries, true
}

// Encode serializes entries and re-parses the result; the blob is returned
// only when the decoded list matches the input exactly.
func Encode(entries []Entry) (string, error) {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("encode observational memory: %w", err)
	}
	blob := string(data)

	decoded, err := Parse(blob)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRoundTrip, err)
	}
	if len(decoded) != len(entries) {
		return "", fmt.Errorf("%w: %d entries decoded, %d encoded", ErrRoundTrip, len(decoded), len(entries))
	}
	for i := range entries {
		if decoded[i].ID != entries[i].ID ||
			decoded[i].Content != entries[i].Content ||
			decoded[i].Priority != entries[i].Priority ||
			!decoded[i].Timestamp.Equal(entries[i].Timestamp) {
			return "", fmt.Errorf("%w: entry %q changed", ErrRoundTrip, entries[i].ID)
		}
	}
	return blob, nil
}

// Append adds e and evicts the oldest entries beyond limit. An entry whose
// content matches an existing one (case-insensitively) replaces it instead
// of adding a duplicate.
func Append(entries []Entry, e Entry, limit int) ([]Entry, error) {
	e.Content = strings.TrimSpace(e.Content)
	if e.Content == "" {
		return entries, ErrEmptyContent
	}
	if e.ID == "" {
		e.ID = NewID()
	}
	if limit <= 0 {
		limit = DefaultCap
	}

	out := make([]Entry, 0, len(entries)+1)
	for _, existing := range entries {
		if strings.EqualFold(existing.Content, e.Content) {
			if existing.Priority > e.Priority {
				e.Priority = existing.Priority
			}
			continue
		}
		out = append(out, existing)
	}
	out = append(out, e)
	return EvictOldest(out, limit), nil
}

// EvictOldest drops entries from the front until at most limit remain.
func EvictOldest(entries []Entry, limit int) []Entry {
	if limit < 0 {
		limit = 0
	}
	if len(entries) <= limit {
		return entries
	}
	out := make([]Entry, limit)
	copy(out, entries[len(entries)-limit:])
	return out
}

var digestLine = regexp.MustCompile(`^\s*(?:[-*•]\s*)?(🔴|🟡|⚪)\s*(.+?)\s*$`)

// ParseDigest extracts priority-tagged bullet lines ("- 🔴 text") from LLM
// output. Lines without a priority tag are ignored.
func ParseDigest(text string) []Entry {
	var out []Entry
	for _, line := range strings.Split(text, "\n") {
		m := digestLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		p, _ := ParsePriority(m[1])
		out = append(out, NewEntry(p, m[2]))
	}
	return out
}

// Render lists entries one per line for prompts and CLI output.
func Render(entries []Entry) string {
	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
