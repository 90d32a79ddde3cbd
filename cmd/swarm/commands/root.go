package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "swarm",
	Short: "Swarm - blackboard-coordinated research workers",
	Long: `Swarm coordinates autonomous research workers through a shared
blackboard: an append-only log of findings, questions and claims with
derived read views.

A convergence controller drives bounded rounds of search, follow-up and
analysis against the board, stopping when new findings plateau. State
lives on local disk or in Redis, selected explicitly in swarm.yml.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once from main.main().
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "swarm.yml", "Path to swarm.yml")
}
