package memory

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sulla-ai/sulla-desktop-sub001/cmd/threadgate/internal"
)

func newListCommand(threadID func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List observations of a thread",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			env, err := internal.OpenEnv(ctx, internal.Options{Runtime: true})
			if err != nil {
				return err
			}
			defer env.Close(context.WithoutCancel(ctx))

			entries := env.Runtime.Memory.Entries(env.GetThread(ctx, threadID()))
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No observations.")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %s\n", e.Timestamp.Local().Format("2006-01-02 15:04"), e)
			}
			fmt.Fprintf(out, "\n%d observation(s), cap %d\n", len(entries), env.Runtime.Memory.Limit())
			return nil
		},
	}
}
