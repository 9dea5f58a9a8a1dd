package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Push providers
const (
	PushProviderOneSignal = "onesignal"
	PushProviderFCM       = "fcm"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	App      AppConfig      `yaml:"app"`
	Worker   WorkerConfig   `yaml:"worker"`
	Business BusinessConfig `yaml:"business"`
	Push     PushConfig     `yaml:"push"`
	SMS      SMSConfig      `yaml:"sms"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration.
// Queue receives notification tasks; MailQueue receives outbound mail.
type RabbitMQConfig struct {
	Host           string           `yaml:"host"`
	Port           int              `yaml:"port"`
	User           string           `yaml:"user"`
	Password       string           `yaml:"password"`
	VHost          string           `yaml:"vhost"`
	Exchange       ExchangeConfig   `yaml:"exchange"`
	Queue          QueueConfig      `yaml:"queue"`
	RoutingKey     string           `yaml:"routing_key"`
	MailQueue      QueueConfig      `yaml:"mail_queue"`
	MailRoutingKey string           `yaml:"mail_routing_key"`
	Connection     ConnectionConfig `yaml:"connection"`
	Publish        PublishConfig    `yaml:"publish"`
	Consumer       ConsumerConfig   `yaml:"consumer"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	PrefetchCount int  `yaml:"prefetch_count"`
	AutoAck       bool `yaml:"auto_ack"`
	Exclusive     bool `yaml:"exclusive"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	DedupTTL     time.Duration `yaml:"dedup_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level            string `yaml:"level"`
	Format           string `yaml:"format"`
	Output           string `yaml:"output"`
	EnableCaller     bool   `yaml:"enable_caller"`
	EnableStackTrace bool   `yaml:"enable_stack_trace"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	Concurrency           int           `yaml:"concurrency"`
	MaxJobs               int           `yaml:"max_jobs"`
	JobTimeout            time.Duration `yaml:"job_timeout"`
	HeartbeatInterval     time.Duration `yaml:"heartbeat_interval"`
	ShutdownTimeout       time.Duration `yaml:"shutdown_timeout"`
	ExpirySweepInterval   time.Duration `yaml:"expiry_sweep_interval"`
	ExpiryBatchSize       int           `yaml:"expiry_batch_size"`
	DeferredFlushInterval time.Duration `yaml:"deferred_flush_interval"`
}

// BusinessConfig describes the business clock: local timezone and the
// night window during which opted-out translators get deferred pushes.
type BusinessConfig struct {
	Timezone   string `yaml:"timezone"`
	NightStart string `yaml:"night_start"`
	NightEnd   string `yaml:"night_end"`
}

// PushConfig selects and configures the push transport
type PushConfig struct {
	Provider  string          `yaml:"provider"`
	Timeout   time.Duration   `yaml:"timeout"`
	OneSignal OneSignalConfig `yaml:"onesignal"`
	FCM       FCMConfig       `yaml:"fcm"`
}

// OneSignalConfig holds OneSignal REST credentials
type OneSignalConfig struct {
	AppID  string `yaml:"app_id"`
	APIKey string `yaml:"api_key"`
	URL    string `yaml:"url"`
}

// FCMConfig holds Firebase credentials and the Redis key for deferred sends
type FCMConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	DeferredKey     string `yaml:"deferred_key"`
}

// SMSConfig holds the SMS gateway settings
type SMSConfig struct {
	URL        string        `yaml:"url"`
	APIKey     string        `yaml:"api_key"`
	FromNumber string        `yaml:"from_number"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// Validate checks the sections shared by every service
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	if c.RabbitMQ.MailQueue.Name != "" && c.RabbitMQ.MailRoutingKey == "" {
		return fmt.Errorf("rabbitmq mail_routing_key is required when mail_queue is set")
	}

	return c.Business.validate()
}

func (b BusinessConfig) validate() error {
	if b.Timezone != "" {
		if _, err := time.LoadLocation(b.Timezone); err != nil {
			return fmt.Errorf("invalid business timezone %q: %w", b.Timezone, err)
		}
	}

	for name, v := range map[string]string{"night_start": b.NightStart, "night_end": b.NightEnd} {
		if v == "" {
			continue
		}
		if _, err := time.Parse("15:04", v); err != nil {
			return fmt.Errorf("invalid business %s %q (expected HH:MM)", name, v)
		}
	}

	return nil
}

// ValidateAPIConfig checks the configuration of the API service
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if err := c.Validate(); err != nil {
		return err
	}

	// resend-sms runs synchronously in the API
	return c.SMS.validate()
}

// ValidateWorkerConfig checks the configuration of the worker service
func (c *Config) ValidateWorkerConfig() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.MaxJobs <= 0 {
		return fmt.Errorf("worker max_jobs must be greater than 0")
	}

	if c.Worker.JobTimeout <= 0 {
		return fmt.Errorf("worker job_timeout must be greater than 0")
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return fmt.Errorf("worker shutdown_timeout must be greater than 0")
	}

	if c.Worker.ExpirySweepInterval <= 0 {
		return fmt.Errorf("worker expiry_sweep_interval must be greater than 0")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("redis url is required")
	}

	switch c.Push.Provider {
	case PushProviderOneSignal:
		if c.Push.OneSignal.AppID == "" || c.Push.OneSignal.APIKey == "" {
			return fmt.Errorf("onesignal app_id and api_key are required")
		}
	case PushProviderFCM:
		if c.Push.FCM.CredentialsFile == "" {
			return fmt.Errorf("fcm credentials_file is required")
		}
		if c.Worker.DeferredFlushInterval <= 0 {
			return fmt.Errorf("worker deferred_flush_interval must be greater than 0")
		}
	default:
		return fmt.Errorf("unsupported push provider: %q", c.Push.Provider)
	}

	return c.SMS.validate()
}

func (s SMSConfig) validate() error {
	if s.URL == "" {
		return fmt.Errorf("sms url is required")
	}

	if s.FromNumber == "" {
		return fmt.Errorf("sms from_number is required")
	}

	return nil
}
