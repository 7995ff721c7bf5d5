package infra

import (
	"path/filepath"
	"testing"
)

func TestResolveHomeDir(t *testing.T) {
	t.Setenv("HOME", "/tmp/home")
	t.Setenv("THREADGATE_HOME", "")

	if got, want := ResolveHomeDir(), filepath.Join("/tmp/home", ".threadgate"); got != want {
		t.Fatalf("ResolveHomeDir() = %q, want %q", got, want)
	}

	t.Setenv("THREADGATE_HOME", "  /srv/threadgate ")
	if got := ResolveHomeDir(); got != "/srv/threadgate" {
		t.Fatalf("ResolveHomeDir() = %q, want /srv/threadgate", got)
	}
}
