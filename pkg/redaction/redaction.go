// Package redaction masks credentials and personal data before they reach
// log sinks. Prompts and user messages are logged at debug level, so every
// string that passes through pkg/logger is filtered here first.
package redaction

import (
	"regexp"
	"strings"
	"sync/atomic"
)

// Config holds redaction configuration.
type Config struct {
	Enabled bool `json:"enabled" env:"THREADGATE_REDACTION_ENABLED"`

	// RedactSecrets covers API keys, bearer tokens, JWTs and password assignments.
	RedactSecrets bool `json:"redact_secrets"`

	// RedactEmails masks the local part of email addresses.
	RedactEmails bool `json:"redact_emails"`

	CustomPatterns []string `json:"custom_patterns,omitempty"`

	Replacement string `json:"replacement"`
}

// DefaultConfig returns the default redaction configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		RedactSecrets: true,
		RedactEmails:  true,
		Replacement:   "[REDACTED]",
	}
}

type rule struct {
	re *regexp.Regexp
	// group is the submatch replaced; 0 replaces the whole match.
	group int
}

var (
	secretRules = []rule{
		{re: regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret)\s*[=:]\s*['"]?([a-zA-Z0-9_\-]{20,})['"]?`), group: 2},
		{re: regexp.MustCompile(`(?i)(auth[_-]?token|access[_-]?token|refresh[_-]?token)\s*[=:]\s*['"]?([a-zA-Z0-9_\-\.]{20,})['"]?`), group: 2},
		{re: regexp.MustCompile(`(?i)bearer\s+([a-zA-Z0-9_\-\.]{20,})`), group: 1},
		{re: regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[=:]\s*['"]?([^'"\s]{4,})['"]?`), group: 2},
		{re: regexp.MustCompile(`sk-ant-[a-zA-Z0-9\-]{20,}`)},
		{re: regexp.MustCompile(`sk-[a-zA-Z0-9\-]{20,}`)},
		{re: regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`)},
		{re: regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
		{re: regexp.MustCompile(`"(?:api_key|apikey|secret|password|token|private_key)"\s*:\s*"([^"]+)"`), group: 1},
	}
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	sensitiveKeys = []string{
		"password", "passwd", "secret", "token", "api_key", "apikey",
		"private_key", "credential", "authorization",
	}
)

// Redactor applies redaction rules to strings and log fields.
type Redactor struct {
	config Config
	custom []*regexp.Regexp
}

// NewRedactor creates a Redactor. Invalid custom patterns are skipped.
func NewRedactor(config Config) *Redactor {
	r := &Redactor{config: config}
	if config.Replacement == "" {
		r.config.Replacement = "[REDACTED]"
	}
	for _, pattern := range config.CustomPatterns {
		if re, err := regexp.Compile(pattern); err == nil {
			r.custom = append(r.custom, re)
		}
	}
	return r
}

// Redact applies all configured rules to input.
func (r *Redactor) Redact(input string) string {
	if !r.config.Enabled || input == "" {
		return input
	}

	result := input
	if r.config.RedactSecrets {
		for _, rl := range secretRules {
			result = r.apply(result, rl)
		}
	}
	if r.config.RedactEmails {
		result = emailPattern.ReplaceAllStringFunc(result, maskEmail)
	}
	for _, re := range r.custom {
		result = re.ReplaceAllString(result, r.config.Replacement)
	}
	return result
}

func (r *Redactor) apply(input string, rl rule) string {
	return rl.re.ReplaceAllStringFunc(input, func(match string) string {
		if rl.group == 0 {
			return r.config.Replacement
		}
		sub := rl.re.FindStringSubmatch(match)
		if len(sub) <= rl.group || sub[rl.group] == "" {
			return match
		}
		return strings.Replace(match, sub[rl.group], r.config.Replacement, 1)
	})
}

// maskEmail keeps the first character of the local part and the domain.
func maskEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return "[REDACTED]"
	}
	return email[:1] + "***" + email[at:]
}

// RedactFields returns a copy of fields with sensitive keys replaced and
// string values redacted. Boolean values are never secrets and pass through.
func (r *Redactor) RedactFields(fields map[string]any) map[string]any {
	if !r.config.Enabled || fields == nil {
		return fields
	}

	result := make(map[string]any, len(fields))
	for k, v := range fields {
		if _, flag := v.(bool); !flag && isSensitiveKey(strings.ToLower(k)) {
			result[k] = r.config.Replacement
			continue
		}
		switch val := v.(type) {
		case string:
			result[k] = r.Redact(val)
		case map[string]any:
			result[k] = r.RedactFields(val)
		default:
			result[k] = v
		}
	}
	return result
}

func isSensitiveKey(key string) bool {
	// token counts are numbers worth keeping
	if strings.HasPrefix(key, "tokens_") || strings.HasSuffix(key, "_tokens") {
		return false
	}
	for _, sk := range sensitiveKeys {
		if strings.Contains(key, sk) {
			return true
		}
	}
	return false
}

var global atomic.Pointer[Redactor]

func init() {
	global.Store(NewRedactor(DefaultConfig()))
}

// Redact applies redaction using the global redactor.
func Redact(input string) string {
	return global.Load().Redact(input)
}

// RedactFields redacts fields using the global redactor.
func RedactFields(fields map[string]any) map[string]any {
	return global.Load().RedactFields(fields)
}

// SetGlobalConfig replaces the global redactor.
func SetGlobalConfig(config Config) {
	global.Store(NewRedactor(config))
}
