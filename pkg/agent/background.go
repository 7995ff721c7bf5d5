package agent

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sulla-ai/sulla-desktop-sub001/pkg/logger"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/observability"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/ratelimit"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/thread"
)

// dispatcher runs fire-and-forget jobs keyed by thread ID, at most one per
// key at a time.
type dispatcher struct {
	name    string
	timeout time.Duration
	limiter *ratelimit.Limiter
	tracer  trace.Tracer
	guard   *runGuard
	wg      sync.WaitGroup
}

func newDispatcher(name string, timeout time.Duration, limiter *ratelimit.Limiter) *dispatcher {
	return &dispatcher{
		name:    name,
		timeout: timeout,
		limiter: limiter,
		tracer:  observability.Tracer("threadgate/agent"),
		guard:   newRunGuard(),
	}
}

// dispatch starts job in its own goroutine unless a run for key is already
// in flight, in which case it returns false and does nothing. The job runs
// detached from parent's cancellation but keeps its values.
func (d *dispatcher) dispatch(parent context.Context, key string, job func(ctx context.Context) error) bool {
	if !d.guard.acquire(key) {
		logger.DebugCF(d.name, "Run already in flight, skipping trigger", map[string]any{"thread_id": key})
		return false
	}

	d.wg.Add(1)
	ctx := context.WithoutCancel(parent)
	go func() {
		defer d.wg.Done()

		report := thread.RunReport{Outcome: RunAborted.String()}
		defer func() {
			report.Finished = time.Now().UTC()
			d.guard.release(key, report)
		}()
		defer func() {
			if r := recover(); r != nil {
				report.Outcome = RunAborted.String()
				report.Reason = fmt.Sprintf("panic: %v", r)
				logger.ErrorCF(d.name, "Background run panicked", map[string]any{
					"thread_id": key,
					"panic":     fmt.Sprint(r),
					"stack":     string(debug.Stack()),
				})
			}
		}()

		if d.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.timeout)
			defer cancel()
		}
		ctx, span := d.tracer.Start(ctx, d.name+".run", trace.WithAttributes(attribute.String("thread.id", key)))
		defer span.End()

		start := time.Now()
		err := job(ctx)
		fields := map[string]any{
			"thread_id":   key,
			"duration_ms": time.Since(start).Milliseconds(),
		}

		switch {
		case err == nil:
			report.Outcome = RunCommitted.String()
			span.SetStatus(codes.Ok, "")
			logger.InfoCF(d.name, "Background run committed", fields)
		case isSkip(err):
			report.Reason = err.Error()
			span.SetAttributes(attribute.String("run.skip", err.Error()))
			logger.DebugCF(d.name, "Background run skipped", fields)
		default:
			report.Reason = err.Error()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			fields["error"] = err.Error()
			logger.WarnCF(d.name, "Background run aborted", fields)
		}
		span.SetAttributes(attribute.String("run.outcome", report.Outcome))
	}()
	return true
}

// throttle waits for the per-thread background LLM budget.
func (d *dispatcher) throttle(ctx context.Context, key string) error {
	if err := d.limiter.Wait(ctx, key); err != nil {
		return errors.Join(ErrThrottled, err)
	}
	return nil
}

func (d *dispatcher) wait() { d.wg.Wait() }
