package boardview

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/chair4ce/swarm/pkg/blackboard"
)

// OutputFormat specifies how listing and get output is rendered.
type OutputFormat string

const (
	// OutputFormatDefault uses a table format with truncated content.
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete records as line-delimited JSON.
	OutputFormatJSONL OutputFormat = "jsonl"
)

// FormatTaskTable writes task summaries as a formatted table.
// Returns the number of tasks formatted.
func FormatTaskTable(w io.Writer, summaries []TaskSummary) int {
	if len(summaries) == 0 {
		fmt.Fprintf(w, "No tasks found\n")
		return 0
	}

	fmt.Fprintf(w, "%-28s %-8s %-9s %-10s %-7s %-9s %s\n",
		"TASK", "STATUS", "FINDINGS", "QUESTIONS", "CLAIMS", "MESSAGES", "AGE")
	fmt.Fprintf(w, "%-28s %-8s %-9s %-10s %-7s %-9s %s\n",
		"----------------------------", "--------", "---------", "----------", "-------", "---------", "--------")

	for _, s := range summaries {
		fmt.Fprintf(w, "%-28s %-8s %-9d %-10d %-7d %-9d %s\n",
			truncate(s.TaskID, 28), s.Status, s.Findings, s.Questions, s.Claims, s.Messages,
			formatAge(s.CreatedAtMs))
	}

	noun := "task"
	if len(summaries) != 1 {
		noun = "tasks"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(summaries), noun)

	return len(summaries)
}

// FormatTaskJSONL writes task summaries as line-delimited JSON.
func FormatTaskJSONL(w io.Writer, summaries []TaskSummary) error {
	for _, s := range summaries {
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to marshal task summary: %w", err)
		}
		fmt.Fprintln(w, string(data))
	}
	return nil
}

// FormatMessages writes a task's message log as a table.
func FormatMessages(w io.Writer, state *blackboard.TaskState) {
	fmt.Fprintf(w, "Task %s (%s):\n\n", state.TaskID, state.Status)

	if len(state.Messages) == 0 {
		fmt.Fprintf(w, "No messages\n")
		return
	}

	fmt.Fprintf(w, "%-5s %-10s %-18s %-8s %s\n", "SEQ", "TYPE", "FROM", "AGE", "CONTENT")
	fmt.Fprintf(w, "%-5s %-10s %-18s %-8s %s\n", "-----", "----------", "------------------", "--------", "----------------------------------------")

	for _, m := range state.Messages {
		fmt.Fprintf(w, "%-5d %-10s %-18s %-8s %s\n",
			m.Seq, m.Type, truncate(m.WorkerID, 18), formatAge(m.CreatedAtMs), truncate(m.Content, 60))
	}

	if state.Synthesis != nil {
		fmt.Fprintf(w, "\nSynthesis:\n%s\n", state.Synthesis.Content)
	}
}

// FormatStateJSON writes the full task state as indented JSON.
func FormatStateJSON(w io.Writer, state *blackboard.TaskState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal task state: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatAge(createdAtMs int64) string {
	if createdAtMs == 0 {
		return "-"
	}
	age := time.Since(time.UnixMilli(createdAtMs))
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd", int(age.Hours()/24))
	}
}
