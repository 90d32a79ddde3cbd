package watch

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chair4ce/swarm/pkg/blackboard"
)

func setupBoard(t *testing.T) *blackboard.RedisBoard {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	board, err := blackboard.NewRedisBoard(&redis.Options{Addr: mr.Addr()}, "watch-test")
	require.NoError(t, err)
	t.Cleanup(func() { board.Close() })
	return board
}

func TestFollowUntilDone(t *testing.T) {
	board := setupBoard(t)
	ctx := context.Background()

	sub, err := board.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	var buf bytes.Buffer
	followErr := make(chan error, 1)
	go func() {
		followErr <- Follow(ctx, sub, &buf)
	}()

	require.NoError(t, board.PostFinding(ctx, "w1", "live finding", nil))
	require.NoError(t, board.PostQuestion(ctx, "w2", "live question?", nil))
	require.NoError(t, board.MarkDone(ctx, "fin"))

	select {
	case err := <-followErr:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for Follow to return on DONE")
	}

	out := buf.String()
	assert.Contains(t, out, "live finding")
	assert.Contains(t, out, "live question?")
	assert.Contains(t, out, "DONE")
}

func TestFollowStopsOnCancel(t *testing.T) {
	board := setupBoard(t)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := board.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	var buf bytes.Buffer
	followErr := make(chan error, 1)
	go func() {
		followErr <- Follow(ctx, sub, &buf)
	}()

	cancel()

	select {
	case err := <-followErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for Follow to return on cancel")
	}
}

func TestFollowStopsWhenSubscriptionCloses(t *testing.T) {
	board := setupBoard(t)
	ctx := context.Background()

	sub, err := board.Subscribe(ctx)
	require.NoError(t, err)

	var buf bytes.Buffer
	followErr := make(chan error, 1)
	go func() {
		followErr <- Follow(ctx, sub, &buf)
	}()

	sub.Close()

	select {
	case err := <-followErr:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for Follow to return on close")
	}
}

func TestWaitForDone(t *testing.T) {
	board := setupBoard(t)
	ctx := context.Background()

	t.Run("returns once the task is done", func(t *testing.T) {
		go func() {
			time.Sleep(300 * time.Millisecond)
			board.MarkDone(ctx, "fin")
		}()

		state, err := WaitForDone(ctx, board, 5*time.Second)
		require.NoError(t, err)
		assert.Equal(t, blackboard.StatusDone, state.Status)
	})

	t.Run("times out on a quiet board", func(t *testing.T) {
		quiet := setupBoard(t)
		_, err := WaitForDone(ctx, quiet, 500*time.Millisecond)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout waiting for task completion")
	})
}
