package blackboard

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupFileBoard creates a file-backed board in a temp directory.
func setupFileBoard(t *testing.T) *FileBoard {
	board, err := NewFileBoard(t.TempDir(), "test-task")
	require.NoError(t, err)
	t.Cleanup(func() { board.Close() })
	return board
}

func TestNewFileBoard(t *testing.T) {
	t.Run("creates board and state directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "state")
		board, err := NewFileBoard(dir, "task-1")
		require.NoError(t, err)
		assert.Equal(t, "task-1", board.TaskID())

		_, err = os.Stat(dir)
		assert.NoError(t, err)
	})

	t.Run("rejects empty task ID", func(t *testing.T) {
		_, err := NewFileBoard(t.TempDir(), "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "task ID cannot be empty")
	})
}

func TestFileBoardMissingFileIsEmptyState(t *testing.T) {
	board := setupFileBoard(t)
	ctx := context.Background()

	state, err := board.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, state.Status)
	assert.Empty(t, state.Findings)
	assert.Empty(t, state.Messages)
}

func TestFileBoardPostFinding(t *testing.T) {
	board := setupFileBoard(t)
	ctx := context.Background()

	err := board.PostFinding(ctx, "worker-1", "gophers can swim", map[string]string{"source": "https://example.com"})
	require.NoError(t, err)

	state, err := board.GetState(ctx)
	require.NoError(t, err)
	require.Len(t, state.Findings, 1)
	assert.Equal(t, "worker-1", state.Findings[0].WorkerID)
	assert.Equal(t, "gophers can swim", state.Findings[0].Finding)
	assert.Equal(t, "https://example.com", state.Findings[0].Source)

	require.Len(t, state.Messages, 1)
	assert.Equal(t, MessageTypeFinding, state.Messages[0].Type)
	assert.Equal(t, int64(1), state.Messages[0].Seq)
}

func TestFileBoardAppendOrder(t *testing.T) {
	board := setupFileBoard(t)
	ctx := context.Background()

	require.NoError(t, board.PostFinding(ctx, "w1", "first", nil))
	require.NoError(t, board.PostQuestion(ctx, "w2", "why?", nil))
	require.NoError(t, board.PostFinding(ctx, "w1", "second", nil))

	messages, err := board.Messages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 3)

	for i := 1; i < len(messages); i++ {
		assert.GreaterOrEqual(t, messages[i].Seq, messages[i-1].Seq)
		assert.GreaterOrEqual(t, messages[i].CreatedAtMs, messages[i-1].CreatedAtMs)
	}

	// Replaying the log reproduces the persisted derived views.
	state, err := board.GetState(ctx)
	require.NoError(t, err)
	replayed := ReplayState("test-task", messages)
	assert.Equal(t, len(state.Findings), len(replayed.Findings))
	assert.Equal(t, state.Findings[0].Finding, replayed.Findings[0].Finding)
	assert.Equal(t, state.Questions[0].Question, replayed.Questions[0].Question)
}

func TestFileBoardClaim(t *testing.T) {
	board := setupFileBoard(t)
	ctx := context.Background()

	t.Run("first claim wins", func(t *testing.T) {
		ok, err := board.Claim(ctx, "worker-1", "fetch-docs")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("second claim is rejected", func(t *testing.T) {
		ok, err := board.Claim(ctx, "worker-2", "fetch-docs")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("same worker cannot reclaim", func(t *testing.T) {
		ok, err := board.Claim(ctx, "worker-1", "fetch-docs")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("different subtask is independent", func(t *testing.T) {
		ok, err := board.Claim(ctx, "worker-2", "scan-issues")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestFileBoardComplete(t *testing.T) {
	board := setupFileBoard(t)
	ctx := context.Background()

	ok, err := board.Claim(ctx, "worker-1", "fetch-docs")
	require.NoError(t, err)
	require.True(t, ok)

	t.Run("non-owner cannot complete", func(t *testing.T) {
		ok, err := board.Complete(ctx, "worker-2", "fetch-docs", "stolen")
		require.NoError(t, err)
		assert.False(t, ok)

		state, err := board.GetState(ctx)
		require.NoError(t, err)
		assert.Equal(t, ClaimStatusInProgress, state.Claims["fetch-docs"].Status)
	})

	t.Run("owner completes", func(t *testing.T) {
		ok, err := board.Complete(ctx, "worker-1", "fetch-docs", "42 docs")
		require.NoError(t, err)
		assert.True(t, ok)

		state, err := board.GetState(ctx)
		require.NoError(t, err)
		claim := state.Claims["fetch-docs"]
		assert.Equal(t, ClaimStatusComplete, claim.Status)
		assert.Equal(t, "42 docs", claim.Result)
		assert.NotZero(t, claim.CompletedAtMs)
	})

	t.Run("unknown subtask is a no-op", func(t *testing.T) {
		ok, err := board.Complete(ctx, "worker-1", "nope", "")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestFileBoardMarkDoneIdempotent(t *testing.T) {
	board := setupFileBoard(t)
	ctx := context.Background()

	require.NoError(t, board.PostSynthesis(ctx, "the summary"))
	require.NoError(t, board.MarkDone(ctx, "the summary"))
	require.NoError(t, board.MarkDone(ctx, "the summary"))

	state, err := board.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, state.Status)
	require.NotNil(t, state.Synthesis)
	assert.Equal(t, "the summary", state.Synthesis.Content)

	// Both DONE appends are in the log even though status flipped once.
	var doneCount int
	for _, m := range state.Messages {
		if m.Type == MessageTypeDone {
			doneCount++
		}
	}
	assert.Equal(t, 2, doneCount)
}

func TestFileBoardGetContext(t *testing.T) {
	board := setupFileBoard(t)
	ctx := context.Background()

	require.NoError(t, board.PostFinding(ctx, "w1", "fact one", nil))
	require.NoError(t, board.PostFinding(ctx, "w1", "fact two", nil))
	require.NoError(t, board.PostQuestion(ctx, "w2", "what about three?", nil))
	ok, err := board.Claim(ctx, "w1", "b-task")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = board.Claim(ctx, "w2", "a-task")
	require.NoError(t, err)
	require.True(t, ok)

	boardCtx, err := board.GetContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fact one", "fact two"}, boardCtx.Findings)
	assert.Equal(t, []string{"what about three?"}, boardCtx.OpenQuestions)
	assert.Equal(t, []string{"a-task", "b-task"}, boardCtx.ClaimedTasks)
	assert.Equal(t, StatusActive, boardCtx.Status)
	assert.Equal(t, 5, boardCtx.MessageCount)
}

func TestFileBoardStateDerivationIdempotent(t *testing.T) {
	board := setupFileBoard(t)
	ctx := context.Background()

	require.NoError(t, board.PostFinding(ctx, "w1", "alpha", nil))
	require.NoError(t, board.PostQuestion(ctx, "w2", "beta question", nil))

	first, err := board.GetState(ctx)
	require.NoError(t, err)
	second, err := board.GetState(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.Findings, second.Findings)
	assert.Equal(t, first.Questions, second.Questions)
	assert.Equal(t, first.Claims, second.Claims)
	assert.Equal(t, first.Messages, second.Messages)
}

func TestFileBoardPicksUpExternalWrites(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	writer, err := NewFileBoard(dir, "shared-task")
	require.NoError(t, err)
	reader, err := NewFileBoard(dir, "shared-task")
	require.NoError(t, err)

	require.NoError(t, writer.PostFinding(ctx, "w1", "written elsewhere", nil))

	state, err := reader.GetState(ctx)
	require.NoError(t, err)
	require.Len(t, state.Findings, 1)
	assert.Equal(t, "written elsewhere", state.Findings[0].Finding)
}

func TestListTaskFiles(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	for _, id := range []string{"task-a", "task-b"} {
		board, err := NewFileBoard(dir, id)
		require.NoError(t, err)
		require.NoError(t, board.PostFinding(ctx, "w", "x", nil))
	}

	ids, err := ListTaskFiles(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"task-a", "task-b"}, ids)

	t.Run("missing directory is empty", func(t *testing.T) {
		ids, err := ListTaskFiles(filepath.Join(dir, "nope"))
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func TestCleanupFiles(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	board, err := NewFileBoard(dir, "old-task")
	require.NoError(t, err)
	require.NoError(t, board.PostFinding(ctx, "w", "x", nil))

	// Age the file by rewinding its modification time.
	oldPath := filepath.Join(dir, "old-task.json")
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, past, past))

	fresh, err := NewFileBoard(dir, "fresh-task")
	require.NoError(t, err)
	require.NoError(t, fresh.PostFinding(ctx, "w", "y", nil))

	cleaned, err := CleanupFiles(dir, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, cleaned)

	_, err = os.Stat(oldPath)
	assert.True(t, os.IsNotExist(err))

	ids, err := ListTaskFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh-task"}, ids)
}
