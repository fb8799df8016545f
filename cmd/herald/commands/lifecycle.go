package commands

import (
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teranos/herald/engine"
	"github.com/teranos/herald/logger"
)

// StartCmd creates a job and anchors its conversation thread
var StartCmd = &cobra.Command{
	Use:   "start [job-id]",
	Short: "Start tracking a job and anchor its Slack thread",
	Long: `Start tracking a job: creates the job in the ledger and posts the
top-level message anchoring its thread. Exactly one thread exists per job;
starting the same job again returns the original thread and posts nothing.

When job-id is omitted a fresh identifier is generated and printed in the
result.

Examples:
  herald start deploy-42 --title "Deploy payments"
  herald start --title "Nightly backfill" --channel C042XYZ
  herald start batch-7 --silent              # defer the anchor post`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jobID := ""
		if len(args) == 1 {
			jobID = args[0]
		}
		if jobID == "" {
			jobID = uuid.NewString()
			logger.Logger.Infow("Generated job id", "job_id", jobID)
		}

		title, _ := cmd.Flags().GetString("title")
		channelID, _ := cmd.Flags().GetString("channel")
		metadata, _ := cmd.Flags().GetStringToString("meta")

		var silent *bool
		if cmd.Flags().Changed("silent") {
			v, _ := cmd.Flags().GetBool("silent")
			silent = &v
		}

		eng, cleanup, err := buildEngine()
		if err != nil {
			return err
		}
		defer cleanup()

		result, err := eng.Start(cmd.Context(), engine.StartRequest{
			JobID:    jobID,
			Title:    title,
			Channel:  channelID,
			Metadata: metadata,
			Mention:  mentionFlag(cmd),
			Silent:   silent,
		})
		if err != nil {
			return err
		}
		return printResult(result)
	},
}

// UpdateCmd posts a progress message into a job's thread
var UpdateCmd = &cobra.Command{
	Use:   "update <job-id> <message>",
	Short: "Post a progress message into the job's thread",
	Long: `Post a progress message into the job's thread and move the job to
in_progress. With --upsert the current progress reply is edited in place
instead of a new reply being posted, keeping the thread compact under
high-frequency updates.

A non-terminal update arms the inactivity watchdog: if the job goes quiet
for the configured delay, a stalled notice is posted. Use --watchdog-ms 0
to skip arming it for this call.

Examples:
  herald update deploy-42 "Building images..."
  herald update deploy-42 "Still building (3/7)..." --upsert
  herald update deploy-42 "Here is the summary" --level response`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("level")
		upsert, _ := cmd.Flags().GetBool("upsert")
		thread, _ := cmd.Flags().GetString("thread")
		title, _ := cmd.Flags().GetString("title")
		channelID, _ := cmd.Flags().GetString("channel")
		watchdogMs, _ := cmd.Flags().GetInt("watchdog-ms")

		eng, cleanup, err := buildEngine()
		if err != nil {
			return err
		}
		defer cleanup()

		result, err := eng.Update(cmd.Context(), engine.UpdateRequest{
			JobID:        args[0],
			Message:      args[1],
			Level:        level,
			ThreadHandle: thread,
			Title:        title,
			Channel:      channelID,
			Upsert:       upsert,
			Mention:      mentionFlag(cmd),
			NoWatchdog:   watchdogMs == 0,
			WatchdogMs:   maxInt(watchdogMs, 0),
		})
		if err != nil {
			return err
		}
		return printResult(result)
	},
}

// WaitCmd announces that the job is blocked on external input
var WaitCmd = &cobra.Command{
	Use:   "wait <job-id> [reason...]",
	Short: "Announce that the job is waiting on input",
	Long: `Post a waiting notice into the job's thread. Waiting is a message,
not a state: the job's status is left untouched. The notice overwrites a
pending coalesced progress reply when one exists and stands on its own
afterwards.

Example:
  herald wait deploy-42 "needs production approval"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cleanup, err := buildEngine()
		if err != nil {
			return err
		}
		defer cleanup()

		result, err := eng.Wait(cmd.Context(), engine.WaitRequest{
			JobID:   args[0],
			Reason:  strings.Join(args[1:], " "),
			Mention: mentionFlag(cmd),
		})
		if err != nil {
			return err
		}
		return printResult(result)
	},
}

// CompleteCmd marks the job completed
var CompleteCmd = &cobra.Command{
	Use:   "complete <job-id> [summary...]",
	Short: "Mark the job completed and post a completion message",
	Long: `Mark the job completed. Completed is terminal: any later lifecycle
call for this job is absorbed without posting. Completing an already
terminal job reports "already terminal" and is not an error.

Example:
  herald complete deploy-42 "Rolled out to production" --suggest "tag the release"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		suggestions, _ := cmd.Flags().GetStringArray("suggest")

		eng, cleanup, err := buildEngine()
		if err != nil {
			return err
		}
		defer cleanup()

		result, err := eng.Complete(cmd.Context(), engine.CompleteRequest{
			JobID:       args[0],
			Summary:     strings.Join(args[1:], " "),
			Suggestions: suggestions,
			Mention:     mentionFlag(cmd),
		})
		if err != nil {
			return err
		}
		return printResult(result)
	},
}

// FailCmd marks the job failed
var FailCmd = &cobra.Command{
	Use:   "fail <job-id> <error-summary>",
	Short: "Mark the job failed and post a failure message",
	Long: `Mark the job failed. Failed is terminal: any later lifecycle call
for this job is absorbed without posting.

Example:
  herald fail deploy-42 "migrations failed" --logs "kubectl logs deploy/api"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		logsHint, _ := cmd.Flags().GetString("logs")

		eng, cleanup, err := buildEngine()
		if err != nil {
			return err
		}
		defer cleanup()

		result, err := eng.Fail(cmd.Context(), engine.FailRequest{
			JobID:        args[0],
			ErrorSummary: args[1],
			LogsHint:     logsHint,
			Mention:      mentionFlag(cmd),
		})
		if err != nil {
			return err
		}
		return printResult(result)
	},
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func init() {
	StartCmd.Flags().String("title", "", "Human-readable job label")
	StartCmd.Flags().String("channel", "", "Destination channel")
	StartCmd.Flags().StringToString("meta", nil, "Metadata shown on the anchor message (key=value, repeatable)")
	StartCmd.Flags().Bool("mention", true, "Request a mention on the anchor message")
	StartCmd.Flags().Bool("silent", false, "Defer the anchor post until the first real content")

	UpdateCmd.Flags().String("level", "", "Message level: progress, info, warn, error, or response")
	UpdateCmd.Flags().Bool("upsert", false, "Edit the current progress reply in place")
	UpdateCmd.Flags().String("thread", "", "Explicit thread handle, overrides the ledger")
	UpdateCmd.Flags().String("title", "", "Title for lazy thread creation")
	UpdateCmd.Flags().String("channel", "", "Channel for lazy thread creation")
	UpdateCmd.Flags().Bool("mention", false, "Request a mention")
	UpdateCmd.Flags().Int("watchdog-ms", -1, "Watchdog delay in ms (0 disables, -1 uses the configured default)")

	WaitCmd.Flags().Bool("mention", true, "Request a mention")

	CompleteCmd.Flags().StringArray("suggest", nil, "Suggested next step (repeatable)")
	CompleteCmd.Flags().Bool("mention", true, "Request a mention")

	FailCmd.Flags().String("logs", "", "Hint to where logs or diagnostics live")
	FailCmd.Flags().Bool("mention", true, "Request a mention")
}
