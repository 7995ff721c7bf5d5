package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sulla-ai/sulla-desktop-sub001/cmd/threadgate/internal"
)

var errTrimDisabled = errors.New("trimming is disabled in the configuration")

func newTrimCommand(threadID func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "trim",
		Short: "Trim observations down to the configured budget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			env, err := internal.OpenEnv(ctx, internal.Options{Runtime: true})
			if err != nil {
				return err
			}
			defer env.Close(context.WithoutCancel(ctx))

			trimmer := env.Runtime.Trimmer
			if trimmer == nil {
				return errTrimDisabled
			}
			st := env.GetThread(ctx, threadID())
			before := len(env.Runtime.Memory.Entries(st))

			started, err := trimmer.TriggerBackgroundTrimming(ctx, st)
			if err != nil {
				return err
			}
			if !started {
				return fmt.Errorf("a trim is already running for thread %s", st.ID())
			}
			trimmer.Wait()

			out := cmd.OutOrStdout()
			report, _ := trimmer.LastRun(st.ID())
			after := len(env.Runtime.Memory.Entries(st))
			fmt.Fprintf(out, "%s: %d -> %d observation(s)", report.Outcome, before, after)
			if report.Reason != "" {
				fmt.Fprintf(out, " (%s)", report.Reason)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}
