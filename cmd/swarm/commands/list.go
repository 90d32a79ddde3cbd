package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/chair4ce/swarm/internal/boardview"
	"github.com/chair4ce/swarm/internal/timespec"
)

var (
	listSince  string
	listUntil  string
	listOutput string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List blackboard tasks",
	Long: `List tasks on the configured backend with per-task counts.

Examples:
  swarm list
  swarm list --since 1h
  swarm list --output jsonl`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listSince, "since", "", "Only tasks created after this time (duration or RFC3339)")
	listCmd.Flags().StringVar(&listUntil, "until", "", "Only tasks created before this time (duration or RFC3339)")
	listCmd.Flags().StringVar(&listOutput, "output", "default", "Output format: default or jsonl")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sinceMS, untilMS, err := timespec.ParseRange(listSince, listUntil)
	if err != nil {
		return err
	}

	taskIDs, err := listTaskIDs(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	filters := &boardview.FilterCriteria{
		SinceTimestampMs: sinceMS,
		UntilTimestampMs: untilMS,
	}

	summaries, err := boardview.Summarize(cmd.Context(), taskIDs, boardOpener(cfg), filters)
	if err != nil {
		return err
	}

	if boardview.OutputFormat(listOutput) == boardview.OutputFormatJSONL {
		return boardview.FormatTaskJSONL(os.Stdout, summaries)
	}

	boardview.FormatTaskTable(os.Stdout, summaries)
	return nil
}
