package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/chair4ce/swarm/internal/boardview"
)

var getOutput string

var getCmd = &cobra.Command{
	Use:   "get <task-id>",
	Short: "Show a task's message log and state",
	Long: `Show the full derived state of one task: the message log in append
order, plus the synthesis once present.

Examples:
  swarm get research-1756600000000
  swarm get research-1756600000000 --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	getCmd.Flags().StringVar(&getOutput, "output", "default", "Output format: default or json")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	board, err := openBoard(cfg, args[0])
	if err != nil {
		return err
	}
	defer board.Close()

	state, err := board.GetState(cmd.Context())
	if err != nil {
		return err
	}

	if getOutput == "json" {
		return boardview.FormatStateJSON(os.Stdout, state)
	}

	boardview.FormatMessages(os.Stdout, state)
	return nil
}
