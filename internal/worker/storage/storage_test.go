package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/booking-dispatch/internal/worker/domain"
)

func newTestStorage(t *testing.T) (*Storage, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStorage(rdb, time.Minute, time.Hour, logger), mr
}

func TestStorage_ClaimTask(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStorage(t)

	require.NoError(t, s.ClaimTask(ctx, "t-1", "worker-a"))

	err := s.ClaimTask(ctx, "t-1", "worker-b")
	assert.ErrorIs(t, err, domain.ErrTaskAlreadyClaimed)

	status, err := s.TaskStatus(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "RUNNING:worker-a", status)
	assert.Equal(t, time.Minute, mr.TTL("task:t-1"))
}

func TestStorage_CompleteTask(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStorage(t)

	require.NoError(t, s.ClaimTask(ctx, "t-1", "worker-a"))
	require.NoError(t, s.CompleteTask(ctx, "t-1"))

	status, err := s.TaskStatus(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, status)
	assert.Equal(t, time.Hour, mr.TTL("task:t-1"))

	// redelivery inside the window is refused
	assert.ErrorIs(t, s.ClaimTask(ctx, "t-1", "worker-b"), domain.ErrTaskAlreadyClaimed)

	// and accepted once it passed
	mr.FastForward(time.Hour + time.Second)
	assert.NoError(t, s.ClaimTask(ctx, "t-1", "worker-b"))
}

func TestStorage_ReleaseTask(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage(t)

	require.NoError(t, s.ClaimTask(ctx, "t-1", "worker-a"))
	require.NoError(t, s.ReleaseTask(ctx, "t-1"))

	status, err := s.TaskStatus(ctx, "t-1")
	require.NoError(t, err)
	assert.Empty(t, status)
	assert.NoError(t, s.ClaimTask(ctx, "t-1", "worker-b"))
}

func TestStorage_UpdateTaskHeartbeat(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStorage(t)

	require.NoError(t, s.ClaimTask(ctx, "t-1", "worker-a"))
	mr.FastForward(50 * time.Second)
	require.NoError(t, s.UpdateTaskHeartbeat(ctx, "t-1"))
	assert.Equal(t, time.Minute, mr.TTL("task:t-1"))

	// missing claim is logged, not an error
	assert.NoError(t, s.UpdateTaskHeartbeat(ctx, "t-404"))
}
