package memory

import (
	"github.com/spf13/cobra"
)

func NewMemoryCommand() *cobra.Command {
	var threadID string

	cmd := &cobra.Command{
		Use:     "memory",
		Aliases: []string{"mem"},
		Short:   "Inspect and edit observational memory",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVarP(&threadID, "thread", "t", "cli:default", "Thread ID")
	thread := func() string { return threadID }

	cmd.AddCommand(
		newListCommand(thread),
		newAddCommand(thread),
		newTrimCommand(thread),
	)

	return cmd
}
