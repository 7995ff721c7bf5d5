package threads

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sulla-ai/sulla-desktop-sub001/cmd/threadgate/internal"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/thread"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/utils"
)

const previewLen = 100

func newShowCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show the messages and diagnostics of a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := internal.OpenEnv(ctx, internal.Options{})
			if err != nil {
				return err
			}
			defer env.Close(context.WithoutCancel(ctx))

			st, err := env.Threads.Get(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			printThread(out, st)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the stored thread as JSON")

	return cmd
}

func printThread(out io.Writer, st *thread.ThreadState) {
	snap := st.Snapshot()
	fmt.Fprintf(out, "Thread %s (%d messages)\n\n", st.ID(), len(snap.Messages))
	for _, m := range snap.Messages {
		tag := string(m.Role)
		if m.Summary {
			tag += " [summary]"
		}
		fmt.Fprintf(out, "  %-20s %s\n", tag, utils.Truncate(m.Content, previewLen))
	}

	diag := snap.Metadata.InputHandler
	fmt.Fprintf(out, "\nLast turn: tokens %d -> %d", diag.TokensBefore, diag.TokensAfter)
	if diag.TokenBudgetExceeded {
		fmt.Fprint(out, " (over ceiling)")
	}
	fmt.Fprintln(out)
	if r := diag.LastSummaryRun; r != nil {
		fmt.Fprintf(out, "Last summary run: %s %s\n", r.Outcome, r.Reason)
	}
	if r := diag.LastTrimRun; r != nil {
		fmt.Fprintf(out, "Last trim run: %s %s\n", r.Outcome, r.Reason)
	}
	fmt.Fprintf(out, "Summaries: %d\n", len(snap.Metadata.ConversationSummaries))
}
