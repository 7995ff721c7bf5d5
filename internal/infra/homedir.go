package infra

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveHomeDir returns the directory holding threadgate's config and
// data. THREADGATE_HOME wins when set; otherwise ~/.threadgate.
func ResolveHomeDir() string {
	if envHome := strings.TrimSpace(os.Getenv("THREADGATE_HOME")); envHome != "" {
		return envHome
	}
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return filepath.Join(os.TempDir(), ".threadgate")
	}
	return filepath.Join(home, ".threadgate")
}
