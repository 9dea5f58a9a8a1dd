package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/cuongbtq/booking-dispatch/internal/worker/domain"
)

const keyPrefix = "task:"

// Storage keeps task claims in Redis. A claim is a SETNX key that lives for
// claimTTL while the task runs (renewed by heartbeats) and for dedupTTL once
// the task completed, so redeliveries inside that window are dropped.
type Storage struct {
	rdb      *goredis.Client
	claimTTL time.Duration
	dedupTTL time.Duration
	logger   *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(rdb *goredis.Client, claimTTL, dedupTTL time.Duration, logger *slog.Logger) *Storage {
	return &Storage{
		rdb:      rdb,
		claimTTL: claimTTL,
		dedupTTL: dedupTTL,
		logger:   logger,
	}
}

func key(taskID string) string {
	return keyPrefix + taskID
}

// ClaimTask takes the task for workerID, or returns ErrTaskAlreadyClaimed
func (s *Storage) ClaimTask(ctx context.Context, taskID, workerID string) error {
	ok, err := s.rdb.SetNX(ctx, key(taskID), domain.TaskStatusRunning+":"+workerID, s.claimTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to claim task: %w", err)
	}
	if !ok {
		s.logger.Warn("Failed to claim task - already claimed",
			slog.String("task_id", taskID),
			slog.String("worker_id", workerID),
		)
		return domain.ErrTaskAlreadyClaimed
	}

	s.logger.Debug("Task claimed successfully",
		slog.String("task_id", taskID),
		slog.String("worker_id", workerID),
	)
	return nil
}

// CompleteTask keeps the claim for the de-duplication window
func (s *Storage) CompleteTask(ctx context.Context, taskID string) error {
	if err := s.rdb.Set(ctx, key(taskID), domain.TaskStatusCompleted, s.dedupTTL).Err(); err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	return nil
}

// ReleaseTask drops the claim so a requeued delivery can take it again
func (s *Storage) ReleaseTask(ctx context.Context, taskID string) error {
	if err := s.rdb.Del(ctx, key(taskID)).Err(); err != nil {
		return fmt.Errorf("failed to release task: %w", err)
	}
	return nil
}

// UpdateTaskHeartbeat extends the claim of a running task
func (s *Storage) UpdateTaskHeartbeat(ctx context.Context, taskID string) error {
	ok, err := s.rdb.Expire(ctx, key(taskID), s.claimTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to update task heartbeat: %w", err)
	}
	if !ok {
		s.logger.Warn("Task heartbeat update - claim is gone",
			slog.String("task_id", taskID),
		)
	}
	return nil
}

// TaskStatus returns the claim value, or "" when the task is unclaimed
func (s *Storage) TaskStatus(ctx context.Context, taskID string) (string, error) {
	v, err := s.rdb.Get(ctx, key(taskID)).Result()
	if err == goredis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get task status: %w", err)
	}
	return v, nil
}
