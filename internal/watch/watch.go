// Package watch renders a task's message feed live and provides polling
// helpers for the file backend, which has no push channel.
package watch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/chair4ce/swarm/pkg/blackboard"
)

var markers = map[blackboard.MessageType]*color.Color{
	blackboard.MessageTypeFinding:    color.New(color.FgGreen),
	blackboard.MessageTypeQuestion:   color.New(color.FgYellow),
	blackboard.MessageTypeClaim:      color.New(color.FgCyan),
	blackboard.MessageTypeSynthesize: color.New(color.FgMagenta),
	blackboard.MessageTypeDone:       color.New(color.FgGreen, color.Bold),
}

// Follow prints every pushed message until the task is done, the
// subscription closes or the context is cancelled. Subscription errors are
// printed and skipped.
func Follow(ctx context.Context, sub *blackboard.Subscription, w io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-sub.Events():
			if !ok {
				return nil
			}
			printMessage(w, msg)
			if msg.Type == blackboard.MessageTypeDone {
				return nil
			}

		case err, ok := <-sub.Errors():
			if !ok {
				return nil
			}
			fmt.Fprintf(w, "subscription error: %v\n", err)
		}
	}
}

func printMessage(w io.Writer, msg *blackboard.Message) {
	c, ok := markers[msg.Type]
	if !ok {
		c = color.New()
	}
	ts := time.UnixMilli(msg.CreatedAtMs).Format("15:04:05")
	c.Fprintf(w, "%s %-10s %-18s %s\n", ts, msg.Type, msg.WorkerID, msg.Content)
}

// WaitForDone polls the board for a DONE marker. Used with the file
// backend, which cannot push. Polls every 200ms until done or timeout.
func WaitForDone(ctx context.Context, board blackboard.Board, timeout time.Duration) (*blackboard.TaskState, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for task completion after %v", timeout)

		case <-ticker.C:
			state, err := board.GetState(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to read board state: %w", err)
			}
			if state.Status == blackboard.StatusDone {
				return state, nil
			}
		}
	}
}
