package blackboard

import "fmt"

// WorkerCoordinator is the author recorded on messages posted by the
// convergence controller itself rather than by an individual worker.
const WorkerCoordinator = "coordinator"

// Task status values derived from the message log.
const (
	StatusActive = "active"
	StatusDone   = "done"
)

// MessageType classifies a blackboard message.
type MessageType string

const (
	// MessageTypeFinding records one atomic fact discovered by a worker.
	MessageTypeFinding MessageType = "FINDING"

	// MessageTypeQuestion records an open information gap.
	MessageTypeQuestion MessageType = "QUESTION"

	// MessageTypeClaim records a worker taking ownership of a named subtask.
	MessageTypeClaim MessageType = "CLAIM"

	// MessageTypeSynthesize carries the coordinator's rolled-up narrative
	// over all findings. At most one is expected per task.
	MessageTypeSynthesize MessageType = "SYNTHESIZE"

	// MessageTypeDone marks the task terminal. Duplicate DONE appends are
	// tolerated; the derived status stays "done".
	MessageTypeDone MessageType = "DONE"
)

// Validate checks if the MessageType is a valid enum value.
func (mt MessageType) Validate() error {
	switch mt {
	case MessageTypeFinding, MessageTypeQuestion, MessageTypeClaim,
		MessageTypeSynthesize, MessageTypeDone:
		return nil
	default:
		return fmt.Errorf("unknown message type: %q", mt)
	}
}

// Message is the atomic unit of the blackboard log. Messages are immutable
// once appended; Seq is the append order within the task.
type Message struct {
	TaskID      string            `json:"task_id"`
	WorkerID    string            `json:"worker_id"`
	Type        MessageType       `json:"msg_type"`
	Content     string            `json:"content"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Seq         int64             `json:"seq"`
	CreatedAtMs int64             `json:"created_at_ms"`
}

// Validate checks if the Message has valid field values.
func (m *Message) Validate() error {
	if m.TaskID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}

	if m.WorkerID == "" {
		return fmt.Errorf("worker ID cannot be empty")
	}

	if err := m.Type.Validate(); err != nil {
		return fmt.Errorf("invalid message type: %w", err)
	}

	return nil
}

// Finding is the derived view of a FINDING message.
type Finding struct {
	WorkerID    string `json:"workerId"`
	Finding     string `json:"finding"`
	Source      string `json:"source,omitempty"`
	CreatedAtMs int64  `json:"timestamp"`
}

// Question is the derived view of a QUESTION message. Answered is a view
// attribute only - the raw log never marks a question answered; answering
// is implicit via later findings that reference the question text.
type Question struct {
	WorkerID    string `json:"workerId"`
	Question    string `json:"question"`
	Answered    bool   `json:"answered"`
	CreatedAtMs int64  `json:"timestamp"`
}

// Claim statuses. Claims are never released back to unclaimed; the only
// transition is in_progress -> complete, driven by the owning worker.
const (
	ClaimStatusInProgress = "in_progress"
	ClaimStatusComplete   = "complete"
)

// ClaimRecord tracks ownership of a named subtask. At most one record
// exists per (task, subtask).
type ClaimRecord struct {
	WorkerID      string `json:"workerId"`
	ClaimedAtMs   int64  `json:"claimedAt"`
	Status        string `json:"status"`
	Result        string `json:"result,omitempty"`
	CompletedAtMs int64  `json:"completedAt,omitempty"`
}

// Synthesis is the coordinator-authored summary over all findings.
type Synthesis struct {
	Content     string `json:"content"`
	CreatedAtMs int64  `json:"timestamp"`
}

// TaskState is the full derived view of a task, computed by replaying the
// message log (Redis backend) or read from the persisted document (file
// backend). It is rebuilt on every read; callers own the returned value.
type TaskState struct {
	TaskID    string                 `json:"taskId"`
	Status    string                 `json:"status"`
	Findings  []Finding              `json:"findings"`
	Questions []Question             `json:"questions"`
	Claims    map[string]ClaimRecord `json:"claims"`
	Messages  []Message              `json:"messages"`
	Synthesis *Synthesis             `json:"synthesis,omitempty"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// Context is the reduced view of a task sized for direct inclusion in a
// downstream analysis prompt.
type Context struct {
	Findings      []string `json:"findings"`
	OpenQuestions []string `json:"openQuestions"`
	ClaimedTasks  []string `json:"claimedTasks"`
	Status        string   `json:"status"`
	MessageCount  int      `json:"messageCount"`
}
