package agent

import (
	"context"
	"time"

	"github.com/sulla-ai/sulla-desktop-sub001/pkg/logger"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/thread"
)

type DecisionType string

const (
	DecisionNext DecisionType = "next"
	DecisionEnd  DecisionType = "end"
)

type Decision struct {
	Type   DecisionType `json:"type"`
	Reason string       `json:"reason,omitempty"`
}

type Result struct {
	Decision Decision
	State    *thread.ThreadState
}

func next(st *thread.ThreadState) Result {
	return Result{Decision: Decision{Type: DecisionNext}, State: st}
}

// Node is one step of a turn.
type Node interface {
	Name() string
	Execute(ctx context.Context, st *thread.ThreadState) Result
}

// Pipeline runs nodes in order until one returns a decision other than next.
type Pipeline struct {
	nodes []Node
}

func NewPipeline(nodes ...Node) *Pipeline {
	return &Pipeline{nodes: nodes}
}

func (p *Pipeline) Run(ctx context.Context, st *thread.ThreadState) Result {
	res := next(st)
	for _, n := range p.nodes {
		if err := ctx.Err(); err != nil {
			return Result{Decision: Decision{Type: DecisionEnd, Reason: err.Error()}, State: st}
		}
		start := time.Now()
		res = n.Execute(ctx, st)
		logger.DebugCF("pipeline", "Node finished", map[string]any{
			"node":        n.Name(),
			"thread_id":   st.ID(),
			"decision":    string(res.Decision.Type),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if res.Decision.Type != DecisionNext {
			return res
		}
	}
	return res
}
