package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chair4ce/swarm/internal/coordinator"
	"github.com/chair4ce/swarm/internal/dispatch"
	"github.com/chair4ce/swarm/internal/printer"
)

var (
	researchTopic     string
	researchRounds    int
	researchThreshold int
)

var researchCmd = &cobra.Command{
	Use:   "research <subject> [subject...]",
	Short: "Run a swarm research task",
	Long: `Run a convergence-controlled research task over the blackboard.

Round 1 fans out one search per subject; later rounds follow up on the
open questions the analysis phase raised. The run stops when no new
findings arrive for the configured number of rounds, or when the round
budget is exhausted, and ends with a synthesis of everything found.

Requires a running swarm daemon (dispatcher.url in swarm.yml).

Examples:
  swarm research OpenAI Anthropic --topic "AI products 2026"
  swarm research "quantum error correction" --rounds 5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func init() {
	researchCmd.Flags().StringVar(&researchTopic, "topic", "latest news and information", "Research topic appended to every search")
	researchCmd.Flags().IntVar(&researchRounds, "rounds", 0, "Max rounds (default from swarm.yml or 3)")
	researchCmd.Flags().IntVar(&researchThreshold, "threshold", 0, "Convergence threshold (default from swarm.yml or 2)")
	rootCmd.AddCommand(researchCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Dispatcher == nil || cfg.Dispatcher.URL == "" {
		return printer.Error(
			"No dispatcher configured",
			"Research needs an execution daemon to run search and analysis workers.",
			[]string{
				"Set dispatcher.url in swarm.yml (e.g. http://127.0.0.1:8787)",
				"Start the daemon before running research",
			})
	}

	taskID := fmt.Sprintf("research-%d", time.Now().UnixMilli())
	board, err := openBoard(cfg, taskID)
	if err != nil {
		return err
	}
	defer board.Close()

	opts := coordinator.Options{
		MaxRounds:            researchRounds,
		ConvergenceThreshold: researchThreshold,
		Subjects:             args,
		SettleDelay:          cfg.SettleDelayDuration(),
	}
	if opts.MaxRounds == 0 {
		opts.MaxRounds = cfg.Coordinator.MaxRounds
	}
	if opts.ConvergenceThreshold == 0 {
		opts.ConvergenceThreshold = cfg.Coordinator.ConvergenceThreshold
	}

	printer.Info("Researching %d subjects: %s\n", len(args), strings.Join(args, ", "))
	printer.Info("Topic: %s\n", researchTopic)
	printer.Detail("Task: %s (backend: %s)\n\n", taskID, cfg.Backend)

	dispatcher := dispatch.NewParallel(dispatch.NewHTTP(cfg.Dispatcher.URL).Execute, cfg.Coordinator.MaxWorkers)
	coord := coordinator.New(board, dispatcher, opts)
	result, err := coord.Research(cmd.Context(), researchTopic)
	if err != nil {
		return printer.Error("Research failed", err.Error(), nil)
	}

	printer.Success("Complete: %d findings in %d rounds\n\n", result.Stats.TotalFindings, result.Stats.Rounds)
	printer.Info("%s\n", result.Synthesis)

	return nil
}
