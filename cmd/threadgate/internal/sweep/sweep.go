package sweep

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/adhocore/gronx"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sulla-ai/sulla-desktop-sub001/cmd/threadgate/internal"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/logger"
)

// stats counts what one pass started.
type stats struct {
	threads   int
	summaries atomic.Int32
	trims     atomic.Int32
}

func sweepCmd(cmd *cobra.Command, schedule string, concurrency int) error {
	if schedule != "" {
		gron := gronx.New()
		if !gron.IsValid(schedule) {
			return fmt.Errorf("invalid cron expression %q", schedule)
		}
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := internal.OpenEnv(ctx, internal.Options{Runtime: true})
	if err != nil {
		return err
	}
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), internal.DrainTimeout(env.Config, true))
		defer cancel()
		env.Close(drainCtx)
	}()

	out := cmd.OutOrStdout()
	if schedule == "" {
		return sweepOnce(ctx, out, env, concurrency)
	}

	for {
		next, err := nextRun(schedule, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Next sweep at %s\n", next.Local().Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		if err := sweepOnce(ctx, out, env, concurrency); err != nil {
			logger.ErrorCF("sweep", "Sweep failed", map[string]any{"error": err.Error()})
		}
	}
}

func nextRun(schedule string, after time.Time) (time.Time, error) {
	next, err := gronx.NextTickAfter(schedule, after, false)
	if err != nil {
		return time.Time{}, fmt.Errorf("compute next run for %q: %w", schedule, err)
	}
	return next, nil
}

// sweepOnce triggers both services for every stored thread, waits for the
// runs and saves the threads.
func sweepOnce(ctx context.Context, out io.Writer, env *internal.Env, concurrency int) error {
	ids := env.Threads.List()
	s := &stats{threads: len(ids)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			st, err := env.Threads.Get(id)
			if err != nil {
				// deleted since List
				return nil
			}
			summary, trim := env.Runtime.Sweep(gctx, st)
			if summary {
				s.summaries.Add(1)
			}
			if trim {
				s.trims.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	env.Runtime.Wait()
	if err := env.Threads.SaveAll(); err != nil {
		return fmt.Errorf("save threads: %w", err)
	}

	fmt.Fprintf(out, "Swept %d thread(s): %d summarization(s), %d trim(s) started\n",
		s.threads, s.summaries.Load(), s.trims.Load())
	logger.InfoCF("sweep", "Sweep finished", map[string]any{
		"threads":   s.threads,
		"summaries": s.summaries.Load(),
		"trims":     s.trims.Load(),
	})
	return nil
}
