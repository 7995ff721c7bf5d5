package threads

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sulla-ai/sulla-desktop-sub001/cmd/threadgate/internal"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/memory"
)

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored threads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			env, err := internal.OpenEnv(ctx, internal.Options{})
			if err != nil {
				return err
			}
			defer env.Close(context.WithoutCancel(ctx))

			ids := env.Threads.List()
			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, "No threads.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tMESSAGES\tSUMMARIES\tOBSERVATIONS\tUPDATED")
			for _, id := range ids {
				st, err := env.Threads.Get(id)
				if err != nil {
					continue
				}
				snap := st.Snapshot()
				entries, _ := memory.ParseLenient(snap.Metadata.ObservationalMemory)
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", id, len(snap.Messages),
					len(snap.Metadata.ConversationSummaries), len(entries),
					st.UpdatedAt().Local().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}
