// Package boardview renders blackboard tasks for the CLI: summaries across
// tasks and the message log of a single task.
package boardview

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/chair4ce/swarm/pkg/blackboard"
)

// Opener opens a read view of one task on the configured backend.
type Opener func(taskID string) (blackboard.Board, error)

// TaskSummary is one row of the task listing.
type TaskSummary struct {
	TaskID      string `json:"taskId"`
	Status      string `json:"status"`
	Findings    int    `json:"findings"`
	Questions   int    `json:"questions"`
	Claims      int    `json:"claims"`
	Messages    int    `json:"messages"`
	CreatedAtMs int64  `json:"createdAtMs"`
}

// FilterCriteria defines time filtering for the task listing. Both bounds
// are ANDed; zero means no bound.
type FilterCriteria struct {
	SinceTimestampMs int64
	UntilTimestampMs int64
}

func (fc *FilterCriteria) matches(s TaskSummary) bool {
	if fc.SinceTimestampMs > 0 && s.CreatedAtMs < fc.SinceTimestampMs {
		return false
	}
	if fc.UntilTimestampMs > 0 && s.CreatedAtMs > fc.UntilTimestampMs {
		return false
	}
	return true
}

// Summarize opens each task, derives its state and reduces it to a summary
// row. Malformed tasks are skipped with a warning to stderr. Rows are
// sorted by creation time for stable output.
func Summarize(ctx context.Context, taskIDs []string, open Opener, filters *FilterCriteria) ([]TaskSummary, error) {
	var summaries []TaskSummary

	for _, taskID := range taskIDs {
		board, err := open(taskID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping task %s: %v\n", taskID, err)
			continue
		}

		state, err := board.GetState(ctx)
		board.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping malformed task %s: %v\n", taskID, err)
			continue
		}

		summary := TaskSummary{
			TaskID:    state.TaskID,
			Status:    state.Status,
			Findings:  len(state.Findings),
			Questions: len(state.Questions),
			Claims:    len(state.Claims),
			Messages:  len(state.Messages),
		}
		if len(state.Messages) > 0 {
			summary.CreatedAtMs = state.Messages[0].CreatedAtMs
		}

		if filters != nil && !filters.matches(summary) {
			continue
		}

		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAtMs < summaries[j].CreatedAtMs
	})

	return summaries, nil
}
