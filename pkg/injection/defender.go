// Package injection flags prompt-injection phrasing in user input. Matches
// are annotations; nothing here blocks or rewrites a message.
package injection

import (
	"fmt"
	"regexp"
	"sync"
)

type pattern struct {
	name string
	re   *regexp.Regexp
}

// defaultPatterns is the fixed phrase set. Names are what diagnostics report.
var defaultPatterns = []struct{ name, expr string }{
	{"ignore_previous_instructions", `(?i)\bignore\s+(all\s+)?(the\s+)?(previous|prior|above)\s+(instructions|prompts?|rules)`},
	{"disregard_instructions", `(?i)\bdisregard\s+(all\s+|any\s+)?(previous|prior|your)\s+(instructions|rules)`},
	{"forget_instructions", `(?i)\bforget\s+(everything|all\s+(previous|prior)\s+instructions)`},
	{"reveal_system_prompt", `(?i)\b(reveal|show|print|repeat)\s+(me\s+)?(your|the)\s+(system\s+prompt|hidden\s+instructions)`},
	{"new_instructions", `(?i)\bnew\s+instructions?\s*:`},
	{"role_override", `(?i)\byou\s+are\s+now\s+(a|an|in)\b`},
	{"developer_mode", `(?i)\b(developer|debug|admin|sudo)\s+mode\b`},
	{"do_anything_now", `(?i)\bdo\s+anything\s+now\b|\bDAN\s+(mode|prompt)\b`},
	{"chat_template_token", `<\|(im_start|im_end|system|endoftext)\|>`},
	{"role_tag", `(?i)<\s*/?\s*(system|assistant)\s*>`},
}

// Config holds defender settings.
type Config struct {
	Enabled        bool
	CustomPatterns []string
}

func DefaultConfig() Config {
	return Config{Enabled: true}
}

// Result is the outcome of one Detect call.
type Result struct {
	Detected        bool     `json:"detected"`
	MatchedPatterns []string `json:"matched_patterns,omitempty"`
}

// Defender holds the compiled pattern set.
type Defender struct {
	config   Config
	patterns []pattern
	mu       sync.RWMutex
}

// NewDefender compiles the default set plus cfg.CustomPatterns. Custom
// patterns that do not compile are returned as an error alongside a usable
// defender that skips them.
func NewDefender(cfg Config) (*Defender, error) {
	d := &Defender{config: cfg}
	for _, p := range defaultPatterns {
		d.patterns = append(d.patterns, pattern{name: p.name, re: regexp.MustCompile(p.expr)})
	}

	var firstErr error
	for i, expr := range cfg.CustomPatterns {
		if err := d.add(fmt.Sprintf("custom_%d", i), expr); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return d, firstErr
}

// Detect reports which patterns match input.
func (d *Defender) Detect(input string) Result {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.config.Enabled || input == "" {
		return Result{}
	}
	var matched []string
	for _, p := range d.patterns {
		if p.re.MatchString(input) {
			matched = append(matched, p.name)
		}
	}
	return Result{Detected: len(matched) > 0, MatchedPatterns: matched}
}

// AddCustomPattern adds a named detection pattern.
func (d *Defender) AddCustomPattern(name, expr string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.add(name, expr)
}

func (d *Defender) add(name, expr string) error {
	re, err := regexp.Compile(expr)
	if err != nil {
		return fmt.Errorf("compile injection pattern %q: %w", name, err)
	}
	d.patterns = append(d.patterns, pattern{name: name, re: re})
	return nil
}

func (d *Defender) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.config.Enabled = enabled
}

func (d *Defender) IsEnabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config.Enabled
}

// WrapInBoundary wraps user input in tags so a model can tell user content
// apart from instructions.
func WrapInBoundary(input string) string {
	return "<user_input>\n" + input + "\n</user_input>"
}
