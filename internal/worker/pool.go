package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/booking-dispatch/internal/worker/domain"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop is the main processing loop for each worker goroutine
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Debug("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-w.stopChan:
			w.logger.Debug("Worker goroutine stopping - stopChan closed",
				slog.String("worker_name", workerName),
			)
			return

		case <-ctx.Done():
			w.logger.Debug("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case msg, ok := <-w.jobsChan:
			if !ok {
				return
			}
			w.handleMessage(ctx, workerName, msg)
		}
	}
}

// handleMessage runs one task and settles its delivery
func (w *Worker) handleMessage(ctx context.Context, workerName string, msg *domain.TaskMessage) {
	err := w.processTask(ctx, msg)
	if err == nil {
		if ackErr := msg.Delivery.Ack(false); ackErr != nil {
			w.logger.Error("Failed to ACK message",
				slog.String("worker_name", workerName),
				slog.String("task_id", msg.Task.ID),
				slog.String("error", ackErr.Error()),
			)
		}
		return
	}

	requeue := w.shouldRequeueJob(err)
	level := slog.LevelError
	if errors.Is(err, domain.ErrTaskAlreadyClaimed) {
		level = slog.LevelInfo
	}
	w.logger.Log(ctx, level, "Task processing failed",
		slog.String("worker_name", workerName),
		slog.String("task_id", msg.Task.ID),
		slog.String("kind", msg.Task.Kind),
		slog.Bool("requeue", requeue),
		slog.String("error", err.Error()),
	)

	if errors.Is(err, domain.ErrTaskAlreadyClaimed) {
		// the other delivery owns the outcome
		if ackErr := msg.Delivery.Ack(false); ackErr != nil {
			w.logger.Error("Failed to ACK duplicate message",
				slog.String("task_id", msg.Task.ID),
				slog.String("error", ackErr.Error()),
			)
		}
		return
	}

	if nackErr := msg.Delivery.Nack(false, requeue); nackErr != nil {
		w.logger.Error("Failed to NACK message",
			slog.String("worker_name", workerName),
			slog.String("task_id", msg.Task.ID),
			slog.String("error", nackErr.Error()),
		)
	}
}

// shouldRequeueJob determines if a task should be requeued based on the error type
func (w *Worker) shouldRequeueJob(err error) bool {
	if errors.Is(err, domain.ErrTaskAlreadyClaimed) {
		return false
	}
	if errors.Is(err, domain.ErrMaxRetriesExceeded) {
		return false
	}
	if errors.Is(err, domain.ErrInvalidPayload) {
		return false
	}

	var retryableErr *domain.RetryableError
	return errors.As(err, &retryableErr)
}
