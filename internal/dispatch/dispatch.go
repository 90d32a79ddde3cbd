// Package dispatch defines the boundary with the external execution engine
// that actually runs search and analysis work. The coordinator only ever
// hands it a batch and waits for every item to settle.
package dispatch

import (
	"context"
	"errors"
)

// ErrUnavailable means the execution engine itself cannot be reached.
// It is fatal to a coordinator run, unlike a single failed batch item.
var ErrUnavailable = errors.New("dispatcher unavailable")

// NodeType selects which kind of worker executes a task.
type NodeType string

const (
	NodeSearch  NodeType = "search"
	NodeAnalyze NodeType = "analyze"
)

// Options tunes a single task.
type Options struct {
	Count int `json:"count,omitempty"` // max search results to return
}

// Task describes one item of a fan-out batch.
type Task struct {
	NodeType    NodeType          `json:"nodeType"`
	Tool        string            `json:"tool,omitempty"`
	Input       string            `json:"input,omitempty"`
	Instruction string            `json:"instruction,omitempty"`
	Options     Options           `json:"options,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// SearchItem is one hit returned by a search task.
type SearchItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Result is the outcome of one batch item. A failed item carries
// Success=false and contributes nothing to the round; it never aborts the
// batch.
type Result struct {
	Success  bool         `json:"success"`
	Error    string       `json:"error,omitempty"`
	Search   []SearchItem `json:"results,omitempty"`
	Response string       `json:"response,omitempty"`
}

// Batch is the settled outcome of a fan-out, one result per task in task
// order.
type Batch struct {
	Results []Result `json:"results"`
}

// Dispatcher executes a batch of independent tasks concurrently and
// returns once every item has settled (join-all, not a race). The only
// error it returns is total unavailability of the engine; per-item
// failures are reported inside the batch.
type Dispatcher interface {
	ExecuteParallel(ctx context.Context, tasks []Task) (*Batch, error)
}
