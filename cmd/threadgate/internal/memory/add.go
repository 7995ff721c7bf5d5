package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sulla-ai/sulla-desktop-sub001/cmd/threadgate/internal"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/memory"
)

func newAddCommand(threadID func() string) *cobra.Command {
	var priority string

	cmd := &cobra.Command{
		Use:   "add <observation>",
		Short: "Add an observation to a thread",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := memory.ParsePriority(priority)
			if err != nil {
				return err
			}
			content := strings.TrimSpace(strings.Join(args, " "))

			ctx := cmd.Context()
			env, err := internal.OpenEnv(ctx, internal.Options{Runtime: true})
			if err != nil {
				return err
			}
			defer env.Close(context.WithoutCancel(ctx))

			e, err := env.Runtime.Memory.Add(ctx, env.GetThread(ctx, threadID()), p, content)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Added %s\n", e)
			return nil
		},
	}

	cmd.Flags().StringVarP(&priority, "priority", "p", "medium", "Priority: high, medium or low")

	return cmd
}
