package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/booking-dispatch/internal/worker/domain"
	"github.com/cuongbtq/booking-dispatch/shared/rabbitmq"
)

// TaskStore claims tasks so that each one runs once across redeliveries
type TaskStore interface {
	ClaimTask(ctx context.Context, taskID, workerID string) error
	CompleteTask(ctx context.Context, taskID string) error
	ReleaseTask(ctx context.Context, taskID string) error
	UpdateTaskHeartbeat(ctx context.Context, taskID string) error
}

// Executor runs one task
type Executor interface {
	Execute(ctx context.Context, task *domain.Task) error
}

// Sweeper expires pending jobs whose deadline passed
type Sweeper interface {
	ExpireStale(ctx context.Context, limit int) (int, error)
}

// Flusher sends pushes that were parked until business hours
type Flusher interface {
	Flush(ctx context.Context) (int, error)
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	RabbitClient  *rabbitmq.Client
	Storage       TaskStore
	Executor      Executor
	Sweeper       Sweeper
	Flusher       Flusher
	WorkerID      string
	QueueName     string
	Concurrency   int
	PrefetchCount int
	JobTimeout    time.Duration

	HeartbeatInterval     time.Duration
	ExpirySweepInterval   time.Duration
	ExpiryBatchSize       int
	DeferredFlushInterval time.Duration
}

// Worker consumes notification tasks and runs the periodic sweeps
type Worker struct {
	logger            *slog.Logger
	rabbitClient      *rabbitmq.Client
	storage           TaskStore
	executor          Executor
	sweeper           Sweeper
	flusher           Flusher
	workerID          string
	rabbitMQQueueName string
	concurrency       int
	prefetchCount     int
	jobTimeout        time.Duration

	heartbeatInterval     time.Duration
	expirySweepInterval   time.Duration
	expiryBatchSize       int
	deferredFlushInterval time.Duration

	jobsChan chan *domain.TaskMessage
	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = concurrency
	}
	heartbeat := cfg.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}

	return &Worker{
		logger:                cfg.Logger,
		rabbitClient:          cfg.RabbitClient,
		storage:               cfg.Storage,
		executor:              cfg.Executor,
		sweeper:               cfg.Sweeper,
		flusher:               cfg.Flusher,
		workerID:              cfg.WorkerID,
		rabbitMQQueueName:     cfg.QueueName,
		concurrency:           concurrency,
		prefetchCount:         prefetch,
		jobTimeout:            cfg.JobTimeout,
		heartbeatInterval:     heartbeat,
		expirySweepInterval:   cfg.ExpirySweepInterval,
		expiryBatchSize:       cfg.ExpiryBatchSize,
		deferredFlushInterval: cfg.DeferredFlushInterval,
		jobsChan:              make(chan *domain.TaskMessage, concurrency),
		stopChan:              make(chan struct{}),
	}
}

// Start consumes tasks until ctx is canceled
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	deliveries, err := w.setupConsumer(ctx)
	if err != nil {
		return fmt.Errorf("failed to setup consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)
	w.startSchedulers(ctx)

	w.startMessageDispatcher(ctx, deliveries)

	w.logger.Info("Worker context canceled, stopping...")
	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
