package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	"github.com/cuongbtq/booking-dispatch/internal/booking"
	"github.com/cuongbtq/booking-dispatch/internal/businesstime"
	"github.com/cuongbtq/booking-dispatch/internal/config"
	"github.com/cuongbtq/booking-dispatch/internal/mail"
	"github.com/cuongbtq/booking-dispatch/internal/notify/fcm"
	"github.com/cuongbtq/booking-dispatch/internal/notify/onesignal"
	"github.com/cuongbtq/booking-dispatch/internal/notify/sms"
	"github.com/cuongbtq/booking-dispatch/internal/storage/postgres"
	"github.com/cuongbtq/booking-dispatch/internal/tasks"
	"github.com/cuongbtq/booking-dispatch/internal/worker"
	"github.com/cuongbtq/booking-dispatch/internal/worker/storage"
	"github.com/cuongbtq/booking-dispatch/shared/logger"
	"github.com/cuongbtq/booking-dispatch/shared/postgresql"
	"github.com/cuongbtq/booking-dispatch/shared/rabbitmq"
	"github.com/cuongbtq/booking-dispatch/shared/redis"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	// Initialize RabbitMQ client
	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	appLogger.Info("RabbitMQ connection established")

	rdb, err := redis.NewClient(&redis.Config{
		URL:          cfg.Redis.URL,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}

	appLogger.Info("Redis connection established")

	clock, err := businesstime.New(cfg.Business.Timezone, cfg.Business.NightStart, cfg.Business.NightEnd)
	if err != nil {
		return fmt.Errorf("failed to initialize business clock: %w", err)
	}

	pusher, flusher, err := initPusher(cfg, appLogger, rdb)
	if err != nil {
		return fmt.Errorf("failed to initialize push transport: %w", err)
	}

	repo := postgres.NewRepository(dbClient, appLogger.Logger)
	dispatcher := booking.NewDispatcher(repo, pusher, clock, cfg.Push.Timeout, appLogger.Subsystem("push"))

	// the sweeper notifies in-process, there is no point queueing to ourselves
	svc := booking.NewService(booking.Deps{
		Repo:     repo,
		Mailer:   mail.NewPublisher(rabbitClient, cfg.RabbitMQ.MailRoutingKey, appLogger.Logger),
		Notifier: dispatcher,
		SMS: sms.NewClient(
			sms.Config{URL: cfg.SMS.URL, APIKey: cfg.SMS.APIKey},
			&http.Client{Timeout: cfg.SMS.Timeout},
			appLogger.Subsystem("sms"),
		),
		Events:        booking.NewLogSink(appLogger.Subsystem("booking")),
		Clock:         clock,
		Logger:        appLogger.Logger,
		SMSAudit:      appLogger.Subsystem("sms"),
		SMSFrom:       cfg.SMS.FromNumber,
		NotifyTimeout: cfg.Push.Timeout,
	})

	prefetch := cfg.RabbitMQ.Consumer.PrefetchCount
	if prefetch <= 0 {
		prefetch = cfg.Worker.MaxJobs
	}

	workerCfg := &worker.Config{
		Logger:                appLogger.Logger,
		RabbitClient:          rabbitClient,
		Storage:               storage.NewStorage(rdb, cfg.Worker.JobTimeout+cfg.Worker.HeartbeatInterval, cfg.Redis.DedupTTL, appLogger.Logger),
		Executor:              tasks.NewHandler(dispatcher),
		Sweeper:               svc,
		WorkerID:              workerID(),
		QueueName:             cfg.RabbitMQ.Queue.Name,
		Concurrency:           cfg.Worker.Concurrency,
		PrefetchCount:         prefetch,
		JobTimeout:            cfg.Worker.JobTimeout,
		HeartbeatInterval:     cfg.Worker.HeartbeatInterval,
		ExpirySweepInterval:   cfg.Worker.ExpirySweepInterval,
		ExpiryBatchSize:       cfg.Worker.ExpiryBatchSize,
		DeferredFlushInterval: cfg.Worker.DeferredFlushInterval,
	}
	if flusher != nil {
		workerCfg.Flusher = flusher
	}
	workerInstance := worker.NewWorker(workerCfg)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start worker in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := workerInstance.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	appLogger.Info("Worker service started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		appLogger.Error("Worker error",
			slog.Any("error", err),
		)
		return err
	}

	// Cancel context to stop worker
	cancel()

	// Give worker time to shutdown gracefully
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	// Stop worker
	done := make(chan struct{})
	go func() {
		workerInstance.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Worker stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	// Cleanup function to close all resources
	cleanup := func() {
		if dbClient != nil {
			dbClient.Close()
		}
		if rabbitClient != nil {
			rabbitClient.Close()
		}
		if rdb != nil {
			rdb.Close()
		}
	}
	cleanup()

	appLogger.Info("Worker service shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}
	if cfg.MailQueue.Name != "" {
		rabbitConfig.Bindings = append(rabbitConfig.Bindings, rabbitmq.Binding{
			QueueName:  cfg.MailQueue.Name,
			RoutingKey: cfg.MailRoutingKey,
		})
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

// initPusher builds the configured push transport. The flusher is only
// set for FCM, which has no server-side delayed delivery.
func initPusher(cfg *config.Config, appLogger *logger.Logger, rdb *goredis.Client) (booking.Pusher, *fcm.Pusher, error) {
	switch cfg.Push.Provider {
	case config.PushProviderFCM:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		client, err := fcm.NewMessagingClient(ctx, cfg.Push.FCM.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		p := fcm.NewPusher(client, rdb, cfg.Push.FCM.DeferredKey, appLogger.Subsystem("push"))
		return p, p, nil

	default:
		return onesignal.NewClient(onesignal.Config{
			AppID:  cfg.Push.OneSignal.AppID,
			APIKey: cfg.Push.OneSignal.APIKey,
			URL:    cfg.Push.OneSignal.URL,
		}, &http.Client{Timeout: cfg.Push.Timeout}, appLogger.Subsystem("push")), nil, nil
	}
}

func workerID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "worker"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}
