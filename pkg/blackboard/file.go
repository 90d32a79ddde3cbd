package blackboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultStateDir is where task documents live when no directory is
// configured.
const DefaultStateDir = "/tmp/swarm-blackboard"

// taskDocument is the on-disk shape of one task: the message log plus the
// derived views, persisted together so other processes can read a complete
// snapshot.
type taskDocument struct {
	TaskID      string                 `json:"taskId"`
	Created     int64                  `json:"created"`
	Updated     int64                  `json:"updated,omitempty"`
	Status      string                 `json:"status"`
	Findings    []Finding              `json:"findings"`
	Questions   []Question             `json:"questions"`
	Claims      map[string]ClaimRecord `json:"claims"`
	Messages    []Message              `json:"messages"`
	Synthesis   *Synthesis             `json:"synthesis"`
	FinalResult string                 `json:"finalResult,omitempty"`
	CompletedAt int64                  `json:"completedAt,omitempty"`
	Metadata    map[string]string      `json:"metadata"`
}

func newTaskDocument(taskID string) *taskDocument {
	return &taskDocument{
		TaskID:    taskID,
		Created:   time.Now().UnixMilli(),
		Status:    StatusActive,
		Findings:  []Finding{},
		Questions: []Question{},
		Claims:    make(map[string]ClaimRecord),
		Messages:  []Message{},
		Metadata:  make(map[string]string),
	}
}

// FileBoard is the durable local backend: one JSON document per task,
// loaded fully, mutated and rewritten on every append. Each write reloads
// from disk first to pick up concurrent writers from other processes,
// which narrows - but does not eliminate - lost updates between processes.
// Within one process the board serialises writes with a mutex.
type FileBoard struct {
	taskID    string
	stateFile string

	mu sync.Mutex
}

// NewFileBoard creates a file-backed board for the given task. The state
// directory is created if missing. A missing task file is not an error -
// it reads as an empty, active task.
func NewFileBoard(stateDir, taskID string) (*FileBoard, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task ID cannot be empty")
	}

	if stateDir == "" {
		stateDir = DefaultStateDir
	}

	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	return &FileBoard{
		taskID:    taskID,
		stateFile: filepath.Join(stateDir, taskID+".json"),
	}, nil
}

// TaskID returns the task this board is bound to.
func (b *FileBoard) TaskID() string {
	return b.taskID
}

// Close releases the board. The file backend holds no connection, so this
// is a no-op that exists to satisfy Board.
func (b *FileBoard) Close() error {
	return nil
}

// load reads the task document from disk. A missing file yields a fresh
// empty document; any other read or decode failure is an error.
func (b *FileBoard) load() (*taskDocument, error) {
	data, err := os.ReadFile(b.stateFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return newTaskDocument(b.taskID), nil
		}
		return nil, fmt.Errorf("failed to read task file: %w", err)
	}

	var doc taskDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse task file: %w", err)
	}

	if doc.Claims == nil {
		doc.Claims = make(map[string]ClaimRecord)
	}

	return &doc, nil
}

// save rewrites the task document to disk.
func (b *FileBoard) save(doc *taskDocument) error {
	doc.Updated = time.Now().UnixMilli()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode task file: %w", err)
	}

	if err := os.WriteFile(b.stateFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write task file: %w", err)
	}

	return nil
}

// appendMessage builds the message with the next sequence number and adds
// it to the document's log. The caller saves.
func (doc *taskDocument) appendMessage(workerID string, msgType MessageType, content string, metadata map[string]string) Message {
	msg := Message{
		TaskID:      doc.TaskID,
		WorkerID:    workerID,
		Type:        msgType,
		Content:     content,
		Metadata:    metadata,
		Seq:         int64(len(doc.Messages)) + 1,
		CreatedAtMs: time.Now().UnixMilli(),
	}
	doc.Messages = append(doc.Messages, msg)
	return msg
}

// PostFinding appends a FINDING and its derived view entry.
func (b *FileBoard) PostFinding(ctx context.Context, workerID, finding string, metadata map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc, err := b.load()
	if err != nil {
		return err
	}

	msg := doc.appendMessage(workerID, MessageTypeFinding, finding, metadata)
	doc.Findings = append(doc.Findings, Finding{
		WorkerID:    workerID,
		Finding:     finding,
		Source:      metadata["source"],
		CreatedAtMs: msg.CreatedAtMs,
	})

	return b.save(doc)
}

// PostQuestion appends a QUESTION and its derived view entry.
func (b *FileBoard) PostQuestion(ctx context.Context, workerID, question string, metadata map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc, err := b.load()
	if err != nil {
		return err
	}

	msg := doc.appendMessage(workerID, MessageTypeQuestion, question, metadata)
	doc.Questions = append(doc.Questions, Question{
		WorkerID:    workerID,
		Question:    question,
		CreatedAtMs: msg.CreatedAtMs,
	})

	return b.save(doc)
}

// Claim attempts to take ownership of subtask. See Board.Claim for the
// race semantics: the reload-before-write narrows the cross-process window
// but two processes can still both observe the subtask unclaimed.
func (b *FileBoard) Claim(ctx context.Context, workerID, subtask string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc, err := b.load()
	if err != nil {
		return false, err
	}

	if _, claimed := doc.Claims[subtask]; claimed {
		return false, nil
	}

	msg := doc.appendMessage(workerID, MessageTypeClaim, subtask, nil)
	doc.Claims[subtask] = ClaimRecord{
		WorkerID:    workerID,
		ClaimedAtMs: msg.CreatedAtMs,
		Status:      ClaimStatusInProgress,
	}

	if err := b.save(doc); err != nil {
		return false, err
	}

	return true, nil
}

// Complete marks a claimed subtask complete if workerID is the owner.
func (b *FileBoard) Complete(ctx context.Context, workerID, subtask, result string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc, err := b.load()
	if err != nil {
		return false, err
	}

	claim, exists := doc.Claims[subtask]
	if !exists || claim.WorkerID != workerID {
		return false, nil
	}

	claim.Status = ClaimStatusComplete
	claim.Result = result
	claim.CompletedAtMs = time.Now().UnixMilli()
	doc.Claims[subtask] = claim

	if err := b.save(doc); err != nil {
		return false, err
	}

	return true, nil
}

// PostSynthesis appends the coordinator's SYNTHESIZE message.
func (b *FileBoard) PostSynthesis(ctx context.Context, synthesis string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc, err := b.load()
	if err != nil {
		return err
	}

	msg := doc.appendMessage(WorkerCoordinator, MessageTypeSynthesize, synthesis, nil)
	doc.Synthesis = &Synthesis{
		Content:     synthesis,
		CreatedAtMs: msg.CreatedAtMs,
	}

	return b.save(doc)
}

// MarkDone appends a DONE marker and flips the task status. Idempotent at
// the state level: a second call appends another DONE message but the
// status is already "done".
func (b *FileBoard) MarkDone(ctx context.Context, finalResult string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc, err := b.load()
	if err != nil {
		return err
	}

	doc.appendMessage(WorkerCoordinator, MessageTypeDone, finalResult, nil)
	doc.Status = StatusDone
	doc.FinalResult = finalResult
	if doc.CompletedAt == 0 {
		doc.CompletedAt = time.Now().UnixMilli()
	}

	return b.save(doc)
}

// GetContext returns the reduced prompt-sized view.
func (b *FileBoard) GetContext(ctx context.Context) (*Context, error) {
	state, err := b.GetState(ctx)
	if err != nil {
		return nil, err
	}
	return ContextFromState(state), nil
}

// GetState returns the full derived view from the persisted document.
func (b *FileBoard) GetState(ctx context.Context) (*TaskState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc, err := b.load()
	if err != nil {
		return nil, err
	}

	return &TaskState{
		TaskID:    doc.TaskID,
		Status:    doc.Status,
		Findings:  doc.Findings,
		Questions: doc.Questions,
		Claims:    doc.Claims,
		Messages:  doc.Messages,
		Synthesis: doc.Synthesis,
		Metadata:  doc.Metadata,
	}, nil
}

// Messages returns the message log in append order.
func (b *FileBoard) Messages(ctx context.Context) ([]Message, error) {
	state, err := b.GetState(ctx)
	if err != nil {
		return nil, err
	}
	return state.Messages, nil
}

// ListTaskFiles returns the task IDs of all task documents under stateDir.
// A missing directory reads as no tasks.
func ListTaskFiles(stateDir string) ([]string, error) {
	if stateDir == "" {
		stateDir = DefaultStateDir
	}

	entries, err := os.ReadDir(stateDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state directory: %w", err)
	}

	var taskIDs []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		taskIDs = append(taskIDs, strings.TrimSuffix(name, ".json"))
	}

	return taskIDs, nil
}

// CleanupFiles removes task documents older than maxAge from stateDir.
// Age is judged by file modification time. Returns the number removed.
func CleanupFiles(stateDir string, maxAge time.Duration) (int, error) {
	if stateDir == "" {
		stateDir = DefaultStateDir
	}

	entries, err := os.ReadDir(stateDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read state directory: %w", err)
	}

	now := time.Now()
	cleaned := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if now.Sub(info.ModTime()) > maxAge {
			if err := os.Remove(filepath.Join(stateDir, entry.Name())); err != nil {
				return cleaned, fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
			}
			cleaned++
		}
	}

	return cleaned, nil
}
