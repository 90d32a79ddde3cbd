package blackboard

import "context"

// Board is the facade workers use to coordinate through the blackboard.
// Both backends implement it; callers never need to know which is in use.
//
// All write operations are independent appends - they signal their own
// success or failure but never block on other workers.
type Board interface {
	// PostFinding appends a FINDING authored by workerID. Metadata is
	// free-form; a "source" key records provenance.
	PostFinding(ctx context.Context, workerID, finding string, metadata map[string]string) error

	// PostQuestion appends a QUESTION authored by workerID.
	PostQuestion(ctx context.Context, workerID, question string, metadata map[string]string) error

	// Claim attempts to take ownership of a named subtask. Returns true if
	// the claim was acquired, false if the subtask is already claimed.
	// A false return is not an error.
	//
	// This is a check-then-append sequence, not an atomic compare-and-swap:
	// two workers claiming the same subtask near-simultaneously can both
	// succeed. The window is narrow and rework is cheap at the worker
	// counts this system targets, so the race is accepted rather than
	// closed.
	Claim(ctx context.Context, workerID, subtask string) (bool, error)

	// Complete transitions a claim to complete, recording the result.
	// Returns false without modifying anything unless workerID is the
	// recorded owner. This is an authorization check, not a lock release:
	// claims are never returned to the unclaimed pool.
	Complete(ctx context.Context, workerID, subtask, result string) (bool, error)

	// PostSynthesis appends the coordinator's SYNTHESIZE message.
	PostSynthesis(ctx context.Context, synthesis string) error

	// MarkDone appends a DONE marker. Calling it again appends another
	// DONE message but the derived status remains "done".
	MarkDone(ctx context.Context, finalResult string) error

	// GetContext returns the reduced view sized for an analysis prompt.
	GetContext(ctx context.Context) (*Context, error)

	// GetState returns the full derived view including raw messages.
	GetState(ctx context.Context) (*TaskState, error)

	// Messages returns the full message log in append order.
	Messages(ctx context.Context) ([]Message, error)

	// Close releases the backend connection. The board must not be used
	// after Close.
	Close() error
}

// Subscriber is the optional realtime capability. Only the Redis backend
// implements it; the file backend is poll-on-read.
type Subscriber interface {
	// Subscribe opens a push channel delivering every new message appended
	// to this task, in insertion order, at-least-once. Caller must Close
	// the subscription when done.
	Subscribe(ctx context.Context) (*Subscription, error)
}
