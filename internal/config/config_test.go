package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "booking_db", cfg.Database.Database)
				assert.Equal(t, "booking_exchange", cfg.RabbitMQ.Exchange.Name)
				assert.Equal(t, "booking_tasks", cfg.RabbitMQ.Queue.Name)
				assert.Equal(t, "booking_mail", cfg.RabbitMQ.MailQueue.Name)
				assert.Equal(t, "booking.mail", cfg.RabbitMQ.MailRoutingKey)
				assert.Equal(t, "booking-api-service", cfg.App.Name)
				assert.Equal(t, "Europe/Stockholm", cfg.Business.Timezone)
				assert.Equal(t, "22:00", cfg.Business.NightStart)
				assert.Equal(t, PushProviderOneSignal, cfg.Push.Provider)
				assert.Equal(t, 10*time.Second, cfg.Push.Timeout)
				assert.Equal(t, 10*time.Minute, cfg.Redis.DedupTTL)
				assert.Equal(t, time.Minute, cfg.Worker.ExpirySweepInterval)
				assert.Equal(t, "+46700000000", cfg.SMS.FromNumber)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "booking_db",
		},
		RabbitMQ: RabbitMQConfig{
			Host:           "localhost",
			Port:           5672,
			Exchange:       ExchangeConfig{Name: "booking_exchange"},
			Queue:          QueueConfig{Name: "booking_tasks"},
			MailQueue:      QueueConfig{Name: "booking_mail"},
			MailRoutingKey: "booking.mail",
		},
		Redis: RedisConfig{URL: "redis://localhost:6379/0"},
		Worker: WorkerConfig{
			Concurrency:           4,
			MaxJobs:               100,
			JobTimeout:            30 * time.Second,
			ShutdownTimeout:       30 * time.Second,
			ExpirySweepInterval:   time.Minute,
			DeferredFlushInterval: 30 * time.Second,
		},
		Business: BusinessConfig{
			Timezone:   "Europe/Stockholm",
			NightStart: "22:00",
			NightEnd:   "07:00",
		},
		Push: PushConfig{
			Provider:  PushProviderOneSignal,
			OneSignal: OneSignalConfig{AppID: "app", APIKey: "key"},
		},
		SMS: SMSConfig{URL: "https://sms.example.com/send", FromNumber: "+46700000000"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantErr   bool
		errString string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:      "empty database host",
			mutate:    func(c *Config) { c.Database.Host = "" },
			wantErr:   true,
			errString: "database host is required",
		},
		{
			name:      "invalid database port",
			mutate:    func(c *Config) { c.Database.Port = 0 },
			wantErr:   true,
			errString: "invalid database port",
		},
		{
			name:      "empty database name",
			mutate:    func(c *Config) { c.Database.Database = "" },
			wantErr:   true,
			errString: "database name is required",
		},
		{
			name:      "empty rabbitmq host",
			mutate:    func(c *Config) { c.RabbitMQ.Host = "" },
			wantErr:   true,
			errString: "rabbitmq host is required",
		},
		{
			name:      "empty exchange name",
			mutate:    func(c *Config) { c.RabbitMQ.Exchange.Name = "" },
			wantErr:   true,
			errString: "rabbitmq exchange name is required",
		},
		{
			name:      "empty queue name",
			mutate:    func(c *Config) { c.RabbitMQ.Queue.Name = "" },
			wantErr:   true,
			errString: "rabbitmq queue name is required",
		},
		{
			name:      "mail queue without routing key",
			mutate:    func(c *Config) { c.RabbitMQ.MailRoutingKey = "" },
			wantErr:   true,
			errString: "mail_routing_key is required",
		},
		{
			name:      "unknown timezone",
			mutate:    func(c *Config) { c.Business.Timezone = "Mars/Olympus" },
			wantErr:   true,
			errString: "invalid business timezone",
		},
		{
			name:      "malformed night start",
			mutate:    func(c *Config) { c.Business.NightStart = "10pm" },
			wantErr:   true,
			errString: "invalid business night_start",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantErr   bool
		errString string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:      "invalid server port - too low",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "invalid server port - too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "shared section still checked",
			mutate:    func(c *Config) { c.Database.Database = "" },
			wantErr:   true,
			errString: "database name is required",
		},
		{
			name:      "sms sender required",
			mutate:    func(c *Config) { c.SMS.FromNumber = "" },
			wantErr:   true,
			errString: "sms from_number is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateWorkerConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantErr   bool
		errString string
	}{
		{
			name:   "valid onesignal config",
			mutate: func(c *Config) {},
		},
		{
			name: "valid fcm config",
			mutate: func(c *Config) {
				c.Push.Provider = PushProviderFCM
				c.Push.FCM.CredentialsFile = "/etc/booking/firebase.json"
			},
		},
		{
			name:      "zero concurrency",
			mutate:    func(c *Config) { c.Worker.Concurrency = 0 },
			wantErr:   true,
			errString: "worker concurrency must be greater than 0",
		},
		{
			name:      "zero sweep interval",
			mutate:    func(c *Config) { c.Worker.ExpirySweepInterval = 0 },
			wantErr:   true,
			errString: "expiry_sweep_interval",
		},
		{
			name:      "missing redis",
			mutate:    func(c *Config) { c.Redis.URL = "" },
			wantErr:   true,
			errString: "redis url is required",
		},
		{
			name:      "onesignal without key",
			mutate:    func(c *Config) { c.Push.OneSignal.APIKey = "" },
			wantErr:   true,
			errString: "onesignal app_id and api_key are required",
		},
		{
			name: "fcm without credentials",
			mutate: func(c *Config) {
				c.Push.Provider = PushProviderFCM
			},
			wantErr:   true,
			errString: "fcm credentials_file is required",
		},
		{
			name: "fcm without flush interval",
			mutate: func(c *Config) {
				c.Push.Provider = PushProviderFCM
				c.Push.FCM.CredentialsFile = "/etc/booking/firebase.json"
				c.Worker.DeferredFlushInterval = 0
			},
			wantErr:   true,
			errString: "deferred_flush_interval",
		},
		{
			name:      "unknown provider",
			mutate:    func(c *Config) { c.Push.Provider = "apns" },
			wantErr:   true,
			errString: "unsupported push provider",
		},
		{
			name:      "missing sms url",
			mutate:    func(c *Config) { c.SMS.URL = "" },
			wantErr:   true,
			errString: "sms url is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateWorkerConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoad_ValidateIntegration(t *testing.T) {
	t.Run("load and validate valid config", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		require.NoError(t, cfg.ValidateAPIConfig())
		require.NoError(t, cfg.ValidateWorkerConfig())
	})

	t.Run("load config with invalid port", func(t *testing.T) {
		cfg, err := Load("testdata/invalid_port.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})

	t.Run("load config with missing database", func(t *testing.T) {
		cfg, err := Load("testdata/missing_database.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database name is required")
	})
}

func TestPortConstants(t *testing.T) {
	assert.Equal(t, 1, MinPort)
	assert.Equal(t, 65535, MaxPort)
}
