package agent

import (
	"sync"

	"github.com/sulla-ai/sulla-desktop-sub001/pkg/thread"
)

// RunState is the lifecycle of one background run:
// Idle -> Running -> (Committed | Aborted) -> Idle.
type RunState int

const (
	RunIdle RunState = iota
	RunRunning
	RunCommitted
	RunAborted
)

func (s RunState) String() string {
	switch s {
	case RunRunning:
		return "running"
	case RunCommitted:
		return "committed"
	case RunAborted:
		return "aborted"
	default:
		return "idle"
	}
}

// runGuard is a per-key single-flight gate that also remembers how the
// last run for each key ended.
type runGuard struct {
	inflight sync.Map // map[string]struct{}

	mu   sync.Mutex
	last map[string]thread.RunReport
}

func newRunGuard() *runGuard {
	return &runGuard{last: make(map[string]thread.RunReport)}
}

// acquire returns false when a run for key is already in flight.
func (g *runGuard) acquire(key string) bool {
	_, loaded := g.inflight.LoadOrStore(key, struct{}{})
	return !loaded
}

func (g *runGuard) release(key string, report thread.RunReport) {
	g.mu.Lock()
	g.last[key] = report
	g.mu.Unlock()
	g.inflight.Delete(key)
}

func (g *runGuard) state(key string) RunState {
	if _, ok := g.inflight.Load(key); ok {
		return RunRunning
	}
	return RunIdle
}

func (g *runGuard) lastRun(key string) (thread.RunReport, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.last[key]
	return r, ok
}
