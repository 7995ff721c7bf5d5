package chat

import (
	"github.com/spf13/cobra"
)

func NewChatCommand() *cobra.Command {
	var threadID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat interactively through the gate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return chatCmd(cmd.Context(), threadID)
		},
	}

	cmd.Flags().StringVarP(&threadID, "thread", "t", "cli:default", "Thread ID")

	return cmd
}
