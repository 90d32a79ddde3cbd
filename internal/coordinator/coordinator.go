// Package coordinator drives bounded rounds of fan-out search, follow-up
// search on open questions and analysis over a shared blackboard, stopping
// when the stream of new findings plateaus.
package coordinator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/chair4ce/swarm/internal/dispatch"
	"github.com/chair4ce/swarm/pkg/blackboard"
)

// Defaults applied by New when an option is zero.
const (
	DefaultMaxRounds            = 3
	DefaultConvergenceThreshold = 2
	DefaultSettleDelay          = 500 * time.Millisecond
)

// Bounds on per-round work.
const (
	initialSearchCount  = 3 // results requested per subject search
	followUpSearchCount = 2 // results requested per question search
	findingsPerSearch   = 2 // top items posted per successful subject search
	recentQuestions     = 3 // most recent open questions followed up per round
	recentFindings      = 5 // most recent findings summarised for analysis
	questionsPerRound   = 2 // questions accepted from one analysis response
	minQuestionLen      = 10
)

// Options configures one coordinator run.
type Options struct {
	MaxRounds            int
	ConvergenceThreshold int           // rounds without new findings before stopping
	Subjects             []string      // round-1 search subjects; defaults to the topic
	SettleDelay          time.Duration // realtime only: wait for pushes before the convergence check
}

// Stats summarises a completed run.
type Stats struct {
	Rounds           int    `json:"rounds"`
	TotalFindings    int    `json:"totalFindings"`
	Questions        int    `json:"questions"`
	RealtimeMessages int    `json:"realtimeMessages,omitempty"`
	Backend          string `json:"backend"`
}

// Result is what a run hands back to the caller.
type Result struct {
	Synthesis string               `json:"synthesis"`
	Findings  []blackboard.Finding `json:"findings"`
	Stats     Stats                `json:"stats"`
}

// Coordinator orchestrates one research task over a blackboard. It is
// deliberately not reentrant: one instance drives exactly one task from
// start to finish.
type Coordinator struct {
	board      blackboard.Board
	dispatcher dispatch.Dispatcher
	opts       Options

	mu      sync.Mutex
	started bool
}

// New creates a coordinator for a single task. The board must already be
// bound to the task's ID.
func New(board blackboard.Board, dispatcher dispatch.Dispatcher, opts Options) *Coordinator {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = DefaultMaxRounds
	}
	if opts.ConvergenceThreshold <= 0 {
		opts.ConvergenceThreshold = DefaultConvergenceThreshold
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}

	return &Coordinator{
		board:      board,
		dispatcher: dispatcher,
		opts:       opts,
	}
}

// Research runs the full round loop for topic and returns the synthesis,
// the gathered findings and run statistics.
//
// If the board supports push subscriptions the realtime path is used:
// convergence checks read a live mirror instead of re-querying the
// backend. Otherwise each round polls the board's derived state.
//
// Partial completion - hitting MaxRounds before the convergence threshold
// - is normal termination, not an error. Only total unavailability of the
// execution engine aborts the run, in which case no DONE marker is
// written.
func (c *Coordinator) Research(ctx context.Context, topic string) (*Result, error) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil, fmt.Errorf("coordinator already ran a task; create a new instance per task")
	}
	c.started = true
	c.mu.Unlock()

	if sub, ok := c.board.(blackboard.Subscriber); ok {
		return c.researchRealtime(ctx, topic, sub)
	}
	return c.researchPolling(ctx, topic)
}

// researchPolling is the poll-on-read variant: every convergence check
// rebuilds derived state from the backend.
func (c *Coordinator) researchPolling(ctx context.Context, topic string) (*Result, error) {
	subjects := c.subjects(topic)
	log.Printf("[Coordinator] Starting swarm research on %q (subjects: %d, max rounds: %d)",
		topic, len(subjects), c.opts.MaxRounds)

	round := 0
	noNewFindings := 0
	previousCount := 0

	for round < c.opts.MaxRounds && noNewFindings < c.opts.ConvergenceThreshold {
		round++
		log.Printf("[Coordinator] Round %d/%d", round, c.opts.MaxRounds)

		if round == 1 {
			if err := c.initialSearch(ctx, topic, subjects); err != nil {
				return nil, err
			}
		} else {
			boardCtx, err := c.board.GetContext(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to read board context: %w", err)
			}
			if err := c.followUpSearch(ctx, topic, lastN(boardCtx.OpenQuestions, recentQuestions)); err != nil {
				return nil, err
			}
		}

		boardCtx, err := c.board.GetContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read board context: %w", err)
		}
		if err := c.analyzeAndQuestion(ctx, topic, boardCtx.Findings); err != nil {
			return nil, err
		}

		state, err := c.board.GetState(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read board state: %w", err)
		}

		currentCount := len(state.Findings)
		if currentCount == previousCount {
			noNewFindings++
			log.Printf("[Coordinator] No new findings (%d/%d)", noNewFindings, c.opts.ConvergenceThreshold)
		} else {
			noNewFindings = 0
			log.Printf("[Coordinator] %d new findings", currentCount-previousCount)
		}
		previousCount = currentCount
	}

	return c.finish(ctx, topic, round, "file", 0)
}

// finish runs the terminal synthesis, marks the task done and assembles
// the result from the board's final state.
func (c *Coordinator) finish(ctx context.Context, topic string, rounds int, backend string, realtimeMessages int) (*Result, error) {
	boardCtx, err := c.board.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read board context: %w", err)
	}

	log.Printf("[Coordinator] Synthesizing %d findings", len(boardCtx.Findings))
	synthesis, err := c.synthesize(ctx, topic, boardCtx.Findings)
	if err != nil {
		return nil, err
	}

	if err := c.board.PostSynthesis(ctx, synthesis); err != nil {
		return nil, fmt.Errorf("failed to post synthesis: %w", err)
	}
	if err := c.board.MarkDone(ctx, synthesis); err != nil {
		return nil, fmt.Errorf("failed to mark task done: %w", err)
	}

	state, err := c.board.GetState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}

	stats := Stats{
		Rounds:           rounds,
		TotalFindings:    len(state.Findings),
		Questions:        len(state.Questions),
		RealtimeMessages: realtimeMessages,
		Backend:          backend,
	}

	log.Printf("[Coordinator] Swarm complete: %d findings in %d rounds", stats.TotalFindings, stats.Rounds)

	return &Result{
		Synthesis: synthesis,
		Findings:  state.Findings,
		Stats:     stats,
	}, nil
}

// subjects returns the configured round-1 subjects, defaulting to the
// topic itself.
func (c *Coordinator) subjects(topic string) []string {
	if len(c.opts.Subjects) > 0 {
		return c.opts.Subjects
	}
	return []string{topic}
}

// lastN returns the up-to-n most recent entries of items.
func lastN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}
