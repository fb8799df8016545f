package commands

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/herald/errors"
	"github.com/teranos/herald/ledger"
)

// JobsCmd groups ledger administration
var JobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and administer the job ledger",
	Long: `Inspect and administer the job ledger.

Commands:
  herald jobs ls              # List tracked jobs
  herald jobs ls --active     # Only non-terminal jobs
  herald jobs rm <job-id>     # Forget a job (administrative)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// JobsLsCmd lists tracked jobs
var JobsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List tracked jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		activeOnly, _ := cmd.Flags().GetBool("active")

		led, cleanup, err := openLedger()
		if err != nil {
			return err
		}
		defer cleanup()

		states := led.List()
		if activeOnly {
			filtered := states[:0]
			for _, s := range states {
				if !s.Status.IsTerminal() {
					filtered = append(filtered, s)
				}
			}
			states = filtered
		}

		if len(states) == 0 {
			pterm.Info.Println("No jobs tracked")
			return nil
		}

		rows := pterm.TableData{{"JOB", "STATUS", "CHANNEL", "THREAD", "UPDATED", "TITLE"}}
		for _, s := range states {
			thread := s.ThreadHandle
			if thread == "" {
				thread = "(deferred)"
			}
			rows = append(rows, []string{
				s.JobID,
				statusLabel(s.Status),
				s.Channel,
				thread,
				s.UpdatedAt.Local().Format(time.DateTime),
				s.Title,
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

// JobsRmCmd removes a job from the ledger
var JobsRmCmd = &cobra.Command{
	Use:   "rm <job-id>",
	Short: "Forget a job (administrative, does not post)",
	Long: `Remove a job from the ledger. This is purely administrative: nothing
is posted and the Slack thread is left as it is. The job id becomes
available for a fresh start afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		led, cleanup, err := openLedger()
		if err != nil {
			return err
		}
		defer cleanup()

		if !led.Delete(args[0]) {
			return errors.Newf("job not found: %s", args[0])
		}
		fmt.Printf("Removed job %s\n", args[0])
		return nil
	},
}

func statusLabel(s ledger.Status) string {
	switch s {
	case ledger.StatusCompleted:
		return pterm.Green(string(s))
	case ledger.StatusFailed:
		return pterm.Red(string(s))
	case ledger.StatusInProgress:
		return pterm.LightCyan(string(s))
	default:
		return string(s)
	}
}

func init() {
	JobsLsCmd.Flags().Bool("active", false, "Only show non-terminal jobs")
	JobsCmd.AddCommand(JobsLsCmd)
	JobsCmd.AddCommand(JobsRmCmd)
}
