package blackboard

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(seq int64, workerID string, msgType MessageType, content string) Message {
	return Message{
		TaskID:      "replay-task",
		WorkerID:    workerID,
		Type:        msgType,
		Content:     content,
		Seq:         seq,
		CreatedAtMs: 1000 + seq,
	}
}

func TestReplayState(t *testing.T) {
	t.Run("empty log is an active empty task", func(t *testing.T) {
		state := ReplayState("replay-task", nil)
		assert.Equal(t, "replay-task", state.TaskID)
		assert.Equal(t, StatusActive, state.Status)
		assert.Empty(t, state.Findings)
		assert.Empty(t, state.Questions)
		assert.Empty(t, state.Claims)
		assert.Nil(t, state.Synthesis)
	})

	t.Run("derives findings and questions in order", func(t *testing.T) {
		state := ReplayState("replay-task", []Message{
			msg(1, "w1", MessageTypeFinding, "alpha"),
			msg(2, "w2", MessageTypeQuestion, "why alpha?"),
			msg(3, "w1", MessageTypeFinding, "beta"),
		})

		require.Len(t, state.Findings, 2)
		assert.Equal(t, "alpha", state.Findings[0].Finding)
		assert.Equal(t, "beta", state.Findings[1].Finding)

		require.Len(t, state.Questions, 1)
		assert.Equal(t, "why alpha?", state.Questions[0].Question)
		assert.False(t, state.Questions[0].Answered)
	})

	t.Run("finding source comes from metadata", func(t *testing.T) {
		m := msg(1, "w1", MessageTypeFinding, "sourced")
		m.Metadata = map[string]string{"source": "https://example.com"}

		state := ReplayState("replay-task", []Message{m})
		require.Len(t, state.Findings, 1)
		assert.Equal(t, "https://example.com", state.Findings[0].Source)
	})

	t.Run("earliest claim wins", func(t *testing.T) {
		state := ReplayState("replay-task", []Message{
			msg(1, "w1", MessageTypeClaim, "fetch-docs"),
			msg(2, "w2", MessageTypeClaim, "fetch-docs"),
		})

		require.Len(t, state.Claims, 1)
		claim := state.Claims["fetch-docs"]
		assert.Equal(t, "w1", claim.WorkerID)
		assert.Equal(t, ClaimStatusInProgress, claim.Status)
	})

	t.Run("synthesis and done", func(t *testing.T) {
		state := ReplayState("replay-task", []Message{
			msg(1, WorkerCoordinator, MessageTypeSynthesize, "the summary"),
			msg(2, WorkerCoordinator, MessageTypeDone, "the summary"),
			msg(3, WorkerCoordinator, MessageTypeDone, "the summary"),
		})

		require.NotNil(t, state.Synthesis)
		assert.Equal(t, "the summary", state.Synthesis.Content)
		assert.Equal(t, StatusDone, state.Status)
	})

	t.Run("replay is deterministic", func(t *testing.T) {
		log := []Message{
			msg(1, "w1", MessageTypeFinding, "alpha"),
			msg(2, "w2", MessageTypeClaim, "sub"),
			msg(3, "w2", MessageTypeQuestion, "open?"),
		}

		first := ReplayState("replay-task", log)
		second := ReplayState("replay-task", log)
		assert.Equal(t, first.Findings, second.Findings)
		assert.Equal(t, first.Questions, second.Questions)
		assert.Equal(t, first.Claims, second.Claims)
		assert.Equal(t, first.Status, second.Status)
	})
}

func TestContextFromState(t *testing.T) {
	state := ReplayState("replay-task", []Message{
		msg(1, "w1", MessageTypeFinding, "alpha"),
		msg(2, "w1", MessageTypeFinding, "beta"),
		msg(3, "w2", MessageTypeQuestion, "open?"),
		msg(4, "w2", MessageTypeClaim, "zeta-task"),
		msg(5, "w1", MessageTypeClaim, "alpha-task"),
	})

	boardCtx := ContextFromState(state)
	assert.Equal(t, []string{"alpha", "beta"}, boardCtx.Findings)
	assert.Equal(t, []string{"open?"}, boardCtx.OpenQuestions)
	assert.Equal(t, []string{"alpha-task", "zeta-task"}, boardCtx.ClaimedTasks, "claimed tasks are sorted")
	assert.Equal(t, StatusActive, boardCtx.Status)
	assert.Equal(t, 5, boardCtx.MessageCount)

	t.Run("answered questions are excluded", func(t *testing.T) {
		state.Questions[0].Answered = true
		boardCtx := ContextFromState(state)
		assert.Empty(t, boardCtx.OpenQuestions)
	})
}

func TestMessageValidate(t *testing.T) {
	valid := msg(1, "w1", MessageTypeFinding, "ok")

	t.Run("valid message", func(t *testing.T) {
		m := valid
		assert.NoError(t, m.Validate())
	})

	t.Run("missing task ID", func(t *testing.T) {
		m := valid
		m.TaskID = ""
		assert.Error(t, m.Validate())
	})

	t.Run("missing worker ID", func(t *testing.T) {
		m := valid
		m.WorkerID = ""
		assert.Error(t, m.Validate())
	})

	t.Run("unknown type", func(t *testing.T) {
		m := valid
		m.Type = "GOSSIP"
		err := m.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown message type")
	})
}

// asStoredHash mimics what go-redis hands back from HGetAll: every field
// flattened to a string.
func asStoredHash(hash map[string]interface{}) map[string]string {
	stored := make(map[string]string, len(hash))
	for k, v := range hash {
		stored[k] = fmt.Sprint(v)
	}
	return stored
}

func TestMessageHashRoundTrip(t *testing.T) {
	original := msg(7, "w1", MessageTypeFinding, "round trip")
	original.Metadata = map[string]string{"source": "https://example.com", "tool": "web_search"}

	hash, err := MessageToHash(&original)
	require.NoError(t, err)

	restored, err := HashToMessage(asStoredHash(hash))
	require.NoError(t, err)
	assert.Equal(t, &original, restored)

	t.Run("nil metadata survives", func(t *testing.T) {
		bare := msg(8, "w2", MessageTypeDone, "fin")
		hash, err := MessageToHash(&bare)
		require.NoError(t, err)
		restored, err := HashToMessage(asStoredHash(hash))
		require.NoError(t, err)
		assert.Equal(t, &bare, restored)
	})

	t.Run("garbage seq is rejected", func(t *testing.T) {
		_, err := HashToMessage(map[string]string{"seq": "not-a-number", "created_at_ms": "0"})
		assert.Error(t, err)
	})
}
