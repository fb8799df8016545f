package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/herald/cmd/herald/commands"
	"github.com/teranos/herald/logger"
)

var rootCmd = &cobra.Command{
	Use:   "herald",
	Short: "herald - relay job lifecycles into Slack threads",
	Long: `herald relays the lifecycle of an asynchronous job (start, progress,
wait, terminal) into a single running Slack thread: exactly one thread per
job, noisy progress updates coalesced into a readable stream, and an
inactivity watchdog that surfaces stalled jobs.

Lifecycle commands:
  start     - Create the job and anchor its thread
  update    - Post (or coalesce) a progress message
  wait      - Announce that the job is blocked on input
  complete  - Mark the job completed (terminal)
  fail      - Mark the job failed (terminal)

Other commands:
  jobs      - Inspect and administer the job ledger
  serve     - Expose the lifecycle operations as MCP tools over stdio

Examples:
  herald start deploy-42 --title "Deploy payments"
  herald update deploy-42 "Building images..." --upsert
  herald wait deploy-42 "waiting for approval"
  herald complete deploy-42 "Rolled out to production"
  herald jobs ls`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON lines on stderr")

	rootCmd.AddCommand(commands.StartCmd)
	rootCmd.AddCommand(commands.UpdateCmd)
	rootCmd.AddCommand(commands.WaitCmd)
	rootCmd.AddCommand(commands.CompleteCmd)
	rootCmd.AddCommand(commands.FailCmd)
	rootCmd.AddCommand(commands.JobsCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
