package sweep

import (
	"github.com/spf13/cobra"
)

func NewSweepCommand() *cobra.Command {
	var (
		schedule    string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run background compaction over every stored thread",
		Example: `threadgate sweep
threadgate sweep --schedule "*/15 * * * *" --concurrency 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return sweepCmd(cmd, schedule, concurrency)
		},
	}

	cmd.Flags().StringVarP(&schedule, "schedule", "s", "", "Cron expression; repeat the sweep on this schedule")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 4, "Threads swept in parallel")

	return cmd
}
