package commands

import (
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/chair4ce/swarm/internal/config"
	"github.com/chair4ce/swarm/internal/printer"
	"github.com/chair4ce/swarm/internal/timespec"
	"github.com/chair4ce/swarm/pkg/blackboard"
)

var cleanupOlderThan string

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove old blackboard tasks",
	Long: `Remove tasks older than the given age from the configured backend.
This is the only operation that ever deletes blackboard data; normal
operation is strictly append-only.

Examples:
  swarm cleanup --older-than 1h
  swarm cleanup --older-than 2026-08-30T00:00:00Z`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().StringVar(&cleanupOlderThan, "older-than", "1h", "Age cutoff (duration or RFC3339)")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	maxAge, err := timespec.ParseAge(cleanupOlderThan)
	if err != nil {
		return err
	}

	var cleaned int
	if cfg.Backend == config.BackendRedis {
		rdb := redis.NewClient(redisOptions(cfg))
		defer rdb.Close()
		cleaned, err = blackboard.CleanupRedis(cmd.Context(), rdb, maxAge)
	} else {
		cleaned, err = blackboard.CleanupFiles(cfg.StateDir, maxAge)
	}
	if err != nil {
		return err
	}

	printer.Success("Removed %d task(s) older than %s\n", cleaned, cleanupOlderThan)
	return nil
}
