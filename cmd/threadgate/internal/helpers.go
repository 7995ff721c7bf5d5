package internal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/sulla-ai/sulla-desktop-sub001/internal/infra"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/agent"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/config"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/logger"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/observability"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/providers"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/settings"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/thread"
)

const Logo = "🧵"

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

// GetConfigPath honours THREADGATE_CONFIG, falling back to config.json
// in the threadgate home directory.
func GetConfigPath() string {
	if p := os.Getenv("THREADGATE_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(infra.ResolveHomeDir(), "config.json")
}

func LoadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(GetConfigPath())
	if err != nil {
		return nil, err
	}
	if err := configureLogging(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configureLogging(cfg *config.Config) error {
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.ConfigureRedaction(cfg.Log.Redaction)
	if cfg.Log.File == "" {
		return nil
	}
	path := config.ExpandHome(cfg.Log.File)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	return logger.EnableFileLogging(path)
}

// FormatVersion returns the version string with optional git commit
func FormatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

// FormatBuildInfo returns build time and go version info
func FormatBuildInfo() (string, string) {
	build := buildTime
	goVer := goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	return build, goVer
}

// Env is everything a command needs to drive threads: configuration,
// persisted threads, the settings backend and, when requested, the gate
// runtime.
type Env struct {
	Config   *config.Config
	Threads  *thread.Manager
	Settings settings.Store
	Runtime  *agent.Runtime

	shutdown observability.ShutdownFunc
}

// Options selects which parts of Env are built.
type Options struct {
	// Runtime builds the gate and background services.
	Runtime bool
	// Reply adds a reply model to the runtime pipeline.
	Reply bool
}

func OpenEnv(ctx context.Context, opts Options) (*Env, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	shutdown, err := observability.Init(ctx, cfg.Observability)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	env := &Env{Config: cfg, shutdown: shutdown}

	env.Threads, err = thread.NewManager(cfg.ThreadsPath())
	if err != nil {
		env.Close(ctx)
		return nil, err
	}
	env.Settings, err = settings.Open(ctx, cfg)
	if err != nil {
		env.Close(ctx)
		return nil, fmt.Errorf("open settings: %w", err)
	}

	if opts.Runtime {
		models, err := BuildModels(cfg, opts.Reply)
		if err != nil {
			env.Close(ctx)
			return nil, err
		}
		env.Runtime, err = agent.NewRuntime(cfg, models, env.Settings)
		if err != nil {
			env.Close(ctx)
			return nil, err
		}
	}
	return env, nil
}

// BuildModels binds the configured LLM once per role. Without an API key
// the gate still runs: summarization is skipped and trimming falls back to
// FIFO. A reply model is mandatory when reply is set.
func BuildModels(cfg *config.Config, reply bool) (agent.Models, error) {
	base, err := providers.CreateModel(cfg)
	if err != nil {
		if errors.Is(err, providers.ErrMissingAPIKey) && !reply {
			logger.WarnCF("cli", "No LLM API key configured, background services run without a model", nil)
			return agent.Models{}, nil
		}
		return agent.Models{}, fmt.Errorf("create model: %w", err)
	}

	ranking := base.WithMaxTokens(agent.RankMaxTokens)
	ranking.Temperature = agent.RankTemperature

	summaryTokens := cfg.Summary.MaxTokens
	if summaryTokens <= 0 {
		summaryTokens = agent.SummarizeMaxTokens
	}
	summary := base.WithMaxTokens(summaryTokens)
	summary.Temperature = agent.SummarizeTemperature

	models := agent.Models{Summary: summary, Ranking: ranking}
	if reply {
		models.Reply = base
	}
	return models, nil
}

// GetThread returns the stored thread, creating it with the configured
// system prompt, and pulls persisted observational memory into it.
func (e *Env) GetThread(ctx context.Context, id string) *thread.ThreadState {
	st := e.Threads.GetOrCreate(id, e.Config.Threads.SystemPrompt)
	if e.Runtime != nil {
		if err := e.Runtime.Memory.Hydrate(ctx, st); err != nil {
			logger.WarnCF("cli", "Memory hydration failed", map[string]any{
				"thread_id": id,
				"error":     err.Error(),
			})
		}
	}
	return st
}

// Close drains background runs bounded by ctx, then flushes threads,
// settings and traces. Errors are logged; Close always releases everything.
func (e *Env) Close(ctx context.Context) {
	if e.Runtime != nil {
		if err := e.Runtime.WaitContext(ctx); err != nil {
			logger.WarnCF("cli", "Background runs still in flight at exit", map[string]any{"error": err.Error()})
		}
	}
	if e.Threads != nil {
		if err := e.Threads.SaveAll(); err != nil {
			logger.ErrorCF("cli", "Failed to save threads", map[string]any{"error": err.Error()})
		}
	}
	if e.Settings != nil {
		if err := e.Settings.Close(); err != nil {
			logger.WarnCF("cli", "Failed to close settings store", map[string]any{"error": err.Error()})
		}
	}
	if e.shutdown != nil {
		if err := e.shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.WarnCF("cli", "Trace shutdown failed", map[string]any{"error": err.Error()})
		}
	}
	logger.Sync()
}

// DrainTimeout bounds how long a command waits for background runs. With
// wait set it covers the slowest service; otherwise runs get a short grace
// period before the process exits.
func DrainTimeout(cfg *config.Config, wait bool) time.Duration {
	if !wait {
		return drainGrace
	}
	d := cfg.SummaryTimeout()
	if t := cfg.TrimTimeout(); t > d {
		d = t
	}
	if d <= 0 {
		d = agent.SummarizationTimeout
	}
	return d + drainGrace
}

const drainGrace = 2 * time.Second
