package run

import (
	"github.com/spf13/cobra"
)

func NewRunCommand() *cobra.Command {
	var (
		threadID string
		message  string
		wait     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Pass one message through the input gate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTurn(cmd.Context(), cmd.OutOrStdout(), threadID, message, wait)
		},
	}

	cmd.Flags().StringVarP(&threadID, "thread", "t", "cli:default", "Thread ID")
	cmd.Flags().StringVarP(&message, "message", "m", "", "User message to append")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for background compaction before exiting")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}
