package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chair4ce/swarm/internal/printer"
)

const configTemplate = `version: "1.0"

# Blackboard backend: "file" (durable local snapshots, poll-on-read) or
# "redis" (remote log with push notifications).
backend: file

# state_dir: /tmp/swarm-blackboard

# redis:
#   addr: localhost:6379

coordinator:
  max_rounds: 3
  convergence_threshold: 2
  max_workers: 8
  settle_delay: 500ms

# dispatcher:
#   url: http://127.0.0.1:8787
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold a swarm.yml in the current directory",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat("swarm.yml"); err == nil {
		return printer.Error(
			"swarm.yml already exists",
			"Refusing to overwrite an existing configuration.",
			[]string{"Remove or rename the existing file first"})
	}

	if err := os.WriteFile("swarm.yml", []byte(configTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write swarm.yml: %w", err)
	}

	printer.Success("Created swarm.yml\n")
	return nil
}
