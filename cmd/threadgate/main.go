package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sulla-ai/sulla-desktop-sub001/cmd/threadgate/internal"
	"github.com/sulla-ai/sulla-desktop-sub001/cmd/threadgate/internal/chat"
	"github.com/sulla-ai/sulla-desktop-sub001/cmd/threadgate/internal/memory"
	"github.com/sulla-ai/sulla-desktop-sub001/cmd/threadgate/internal/run"
	"github.com/sulla-ai/sulla-desktop-sub001/cmd/threadgate/internal/sweep"
	"github.com/sulla-ai/sulla-desktop-sub001/cmd/threadgate/internal/threads"
	"github.com/sulla-ai/sulla-desktop-sub001/cmd/threadgate/internal/version"
)

func NewThreadgateCommand() *cobra.Command {
	short := fmt.Sprintf("%s threadgate - conversation gate and memory compaction (%s)", internal.Logo, internal.FormatVersion())

	cmd := &cobra.Command{
		Use:          "threadgate",
		Short:        short,
		Example:      "threadgate run --thread demo --message \"hello\"",
		SilenceUsage: true,
	}

	cmd.AddCommand(
		run.NewRunCommand(),
		chat.NewChatCommand(),
		memory.NewMemoryCommand(),
		threads.NewThreadsCommand(),
		sweep.NewSweepCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewThreadgateCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
