package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/sulla-ai/sulla-desktop-sub001/pkg/redaction"
)

type LLMConfig struct {
	Provider              string  `json:"provider" env:"THREADGATE_LLM_PROVIDER"`
	Model                 string  `json:"model" env:"THREADGATE_LLM_MODEL"`
	APIKey                string  `json:"api_key" env:"THREADGATE_LLM_API_KEY"`
	BaseURL               string  `json:"base_url" env:"THREADGATE_LLM_BASE_URL"`
	Proxy                 string  `json:"proxy" env:"THREADGATE_LLM_PROXY"`
	MaxTokens             int     `json:"max_tokens" env:"THREADGATE_LLM_MAX_TOKENS"`
	Temperature           float64 `json:"temperature" env:"THREADGATE_LLM_TEMPERATURE"`
	RequestTimeoutSeconds int     `json:"request_timeout_seconds" env:"THREADGATE_LLM_REQUEST_TIMEOUT_SECONDS"`
}

// GateConfig tunes the synchronous input handler.
type GateConfig struct {
	MaxMessages         int      `json:"max_messages" env:"THREADGATE_GATE_MAX_MESSAGES"`
	MaxContextTokens    int      `json:"max_context_tokens" env:"THREADGATE_GATE_MAX_CONTEXT_TOKENS"`
	RateLimitWindowMS   int      `json:"rate_limit_window_ms" env:"THREADGATE_GATE_RATE_LIMIT_WINDOW_MS"`
	RateLimitBurst      int      `json:"rate_limit_burst" env:"THREADGATE_GATE_RATE_LIMIT_BURST"`
	TimestampRingSize   int      `json:"timestamp_ring_size" env:"THREADGATE_GATE_TIMESTAMP_RING_SIZE"`
	SpamRatio           float64  `json:"spam_ratio" env:"THREADGATE_GATE_SPAM_RATIO"`
	SpamMinTokens       int      `json:"spam_min_tokens" env:"THREADGATE_GATE_SPAM_MIN_TOKENS"`
	RepetitionMinPhrase int      `json:"repetition_min_phrase" env:"THREADGATE_GATE_REPETITION_MIN_PHRASE"`
	RepetitionMinCount  int      `json:"repetition_min_count" env:"THREADGATE_GATE_REPETITION_MIN_COUNT"`
	InjectionPatterns   []string `json:"injection_patterns,omitempty" env:"THREADGATE_GATE_INJECTION_PATTERNS" envSeparator:";"`
}

type SummaryConfig struct {
	Enabled        bool    `json:"enabled" env:"THREADGATE_SUMMARY_ENABLED"`
	Fraction       float64 `json:"fraction" env:"THREADGATE_SUMMARY_FRACTION"`
	MinBatch       int     `json:"min_batch" env:"THREADGATE_SUMMARY_MIN_BATCH"`
	TimeoutSeconds int     `json:"timeout_seconds" env:"THREADGATE_SUMMARY_TIMEOUT_SECONDS"`
	MaxTokens      int     `json:"max_tokens" env:"THREADGATE_SUMMARY_MAX_TOKENS"`
}

type TrimConfig struct {
	Enabled        bool `json:"enabled" env:"THREADGATE_TRIM_ENABLED"`
	Budget         int  `json:"budget" env:"THREADGATE_TRIM_BUDGET"`
	MemoryCap      int  `json:"memory_cap" env:"THREADGATE_TRIM_MEMORY_CAP"`
	TimeoutSeconds int  `json:"timeout_seconds" env:"THREADGATE_TRIM_TIMEOUT_SECONDS"`
	UseLLMRanker   bool `json:"use_llm_ranker" env:"THREADGATE_TRIM_USE_LLM_RANKER"`
}

// SettingsConfig selects the key/value backend: memory, file, sqlite or redis.
type SettingsConfig struct {
	Backend       string `json:"backend" env:"THREADGATE_SETTINGS_BACKEND"`
	Path          string `json:"path" env:"THREADGATE_SETTINGS_PATH"`
	RedisAddr     string `json:"redis_addr" env:"THREADGATE_SETTINGS_REDIS_ADDR"`
	RedisPassword string `json:"redis_password" env:"THREADGATE_SETTINGS_REDIS_PASSWORD"`
	RedisDB       int    `json:"redis_db" env:"THREADGATE_SETTINGS_REDIS_DB"`
	KeyPrefix     string `json:"key_prefix" env:"THREADGATE_SETTINGS_KEY_PREFIX"`
}

type ThreadsConfig struct {
	Dir          string `json:"dir" env:"THREADGATE_THREADS_DIR"`
	SystemPrompt string `json:"system_prompt" env:"THREADGATE_THREADS_SYSTEM_PROMPT"`
}

type ObservabilityConfig struct {
	Enabled      bool    `json:"enabled" env:"THREADGATE_OTEL_ENABLED"`
	ServiceName  string  `json:"service_name" env:"THREADGATE_OTEL_SERVICE_NAME"`
	OTLPEndpoint string  `json:"otlp_endpoint" env:"THREADGATE_OTEL_ENDPOINT"`
	Insecure     bool    `json:"insecure" env:"THREADGATE_OTEL_INSECURE"`
	SampleRatio  float64 `json:"sample_ratio" env:"THREADGATE_OTEL_SAMPLE_RATIO"`
}

type LogConfig struct {
	Level     string           `json:"level" env:"THREADGATE_LOG_LEVEL"`
	File      string           `json:"file" env:"THREADGATE_LOG_FILE"`
	Redaction redaction.Config `json:"redaction"`
}

// RateLimitsConfig throttles LLM calls made by background services, per thread.
type RateLimitsConfig struct {
	BackgroundCallsPerMinute int `json:"background_calls_per_minute" env:"THREADGATE_RATE_LIMITS_BACKGROUND_CALLS_PER_MINUTE"`
	Burst                    int `json:"burst" env:"THREADGATE_RATE_LIMITS_BURST"`
}

type Config struct {
	LLM           LLMConfig           `json:"llm"`
	Gate          GateConfig          `json:"gate"`
	Summary       SummaryConfig       `json:"summary"`
	Trim          TrimConfig          `json:"trim"`
	Settings      SettingsConfig      `json:"settings"`
	Threads       ThreadsConfig       `json:"threads"`
	Observability ObservabilityConfig `json:"observability"`
	Log           LogConfig           `json:"log"`
	RateLimits    RateLimitsConfig    `json:"rate_limits"`
	mu            sync.RWMutex
}

func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:              "openai",
			Model:                 "gpt-4o-mini",
			BaseURL:               "https://api.openai.com/v1",
			MaxTokens:             1024,
			Temperature:           0.3,
			RequestTimeoutSeconds: 120,
		},
		Gate: GateConfig{
			MaxMessages:         80,
			MaxContextTokens:    24000,
			RateLimitWindowMS:   400,
			RateLimitBurst:      3,
			TimestampRingSize:   20,
			SpamRatio:           0.70,
			SpamMinTokens:       5,
			RepetitionMinPhrase: 20,
			RepetitionMinCount:  3,
		},
		Summary: SummaryConfig{
			Enabled:        true,
			Fraction:       0.25,
			MinBatch:       4,
			TimeoutSeconds: 120,
			MaxTokens:      1024,
		},
		Trim: TrimConfig{
			Enabled:        true,
			Budget:         40,
			MemoryCap:      50,
			TimeoutSeconds: 60,
			UseLLMRanker:   true,
		},
		Settings: SettingsConfig{
			Backend:   "file",
			Path:      "~/.threadgate/settings.json",
			RedisAddr: "127.0.0.1:6379",
			KeyPrefix: "threadgate:",
		},
		Threads: ThreadsConfig{
			Dir:          "~/.threadgate/threads",
			SystemPrompt: "You are a helpful assistant.",
		},
		Observability: ObservabilityConfig{
			Enabled:     false,
			ServiceName: "threadgate",
			SampleRatio: 0.1,
		},
		Log: LogConfig{
			Level:     "INFO",
			Redaction: redaction.DefaultConfig(),
		},
		RateLimits: RateLimitsConfig{
			BackgroundCallsPerMinute: 12,
			Burst:                    2,
		},
	}
}

// LoadConfig reads path (a missing file yields defaults) and then applies
// THREADGATE_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

func (c *Config) ThreadsPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ExpandHome(c.Threads.Dir)
}

func (c *Config) SettingsPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ExpandHome(c.Settings.Path)
}

func (c *Config) RequestTimeout() time.Duration {
	return seconds(c.LLM.RequestTimeoutSeconds)
}

func (c *Config) SummaryTimeout() time.Duration {
	return seconds(c.Summary.TimeoutSeconds)
}

func (c *Config) TrimTimeout() time.Duration {
	return seconds(c.Trim.TimeoutSeconds)
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func ExpandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
