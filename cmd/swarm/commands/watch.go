package commands

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chair4ce/swarm/internal/boardview"
	"github.com/chair4ce/swarm/internal/config"
	"github.com/chair4ce/swarm/internal/printer"
	"github.com/chair4ce/swarm/internal/watch"
	"github.com/chair4ce/swarm/pkg/blackboard"
)

var watchTimeout time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <task-id>",
	Short: "Follow a task until it completes",
	Long: `Follow a task's messages until the task posts its DONE marker.

On the redis backend this subscribes to the task's push channel and
prints every message live. The file backend has no push channel, so the
board is polled until the task is done, then its final state is printed.

Examples:
  swarm watch research-1756600000000
  swarm watch research-1756600000000 --timeout 5m`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchTimeout, "timeout", 10*time.Minute, "Give up after this long (file backend polling)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Backend != config.BackendRedis {
		return watchByPolling(cmd, cfg, args[0])
	}

	board, err := blackboard.NewRedisBoard(redisOptions(cfg), args[0])
	if err != nil {
		return err
	}
	defer board.Close()

	sub, err := board.Subscribe(cmd.Context())
	if err != nil {
		return err
	}
	defer sub.Close()

	printer.Detail("Watching task %s (Ctrl-C to stop)\n\n", args[0])
	return watch.Follow(cmd.Context(), sub, os.Stdout)
}

// watchByPolling covers the file backend: no push channel, so poll until
// the DONE marker lands and then print the final log.
func watchByPolling(cmd *cobra.Command, cfg *config.SwarmConfig, taskID string) error {
	board, err := blackboard.NewFileBoard(cfg.StateDir, taskID)
	if err != nil {
		return err
	}
	defer board.Close()

	printer.Detail("Polling task %s until done (timeout %s)\n\n", taskID, watchTimeout)

	state, err := watch.WaitForDone(cmd.Context(), board, watchTimeout)
	if err != nil {
		return err
	}

	boardview.FormatMessages(os.Stdout, state)
	return nil
}
