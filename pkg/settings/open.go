package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/sulla-ai/sulla-desktop-sub001/pkg/config"
)

// Open builds the backend selected by cfg.Settings.Backend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Settings.Backend))
	switch backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.SettingsPath())
	case "sqlite":
		return NewSQLiteStore(cfg.SettingsPath())
	case "redis":
		return NewRedisStore(ctx, RedisOptions{
			Addr:     cfg.Settings.RedisAddr,
			Password: cfg.Settings.RedisPassword,
			DB:       cfg.Settings.RedisDB,
			Prefix:   cfg.Settings.KeyPrefix,
		})
	default:
		return nil, fmt.Errorf("unknown settings backend %q", cfg.Settings.Backend)
	}
}
