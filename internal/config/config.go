package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config top-level struct
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Redis      RedisConfig      `yaml:"redis"`
	Notifier   NotifierConfig   `yaml:"notifier"`
	RateLimit  RateLimitConfig  `yaml:"ratelimit"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
	// DefaultUserID is used when a request carries no X-User-ID header.
	DefaultUserID string `yaml:"default_user_id"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

type PostgresConfig struct {
	DSN         string `yaml:"dsn"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// RedisConfig leaves caching and the poller lease off when Addr is empty.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type NotifierConfig struct {
	// Driver is one of log, kafka or rabbitmq.
	Driver   string         `yaml:"driver"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type RabbitMQConfig struct {
	URL   string `yaml:"url"`
	Queue string `yaml:"queue"`
}

type RateLimitConfig struct {
	RPS   int `yaml:"rps"`
	Burst int `yaml:"burst"`
}

type DispatcherConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval"`
	MaxAttempts    int           `yaml:"max_attempts"`
	BatchSize      int           `yaml:"batch_size"`
	HandlerTimeout time.Duration `yaml:"handler_timeout"`
	ClaimTTL       time.Duration `yaml:"claim_ttl"`
	Workers        int           `yaml:"workers"`
	Lease          LeaseConfig   `yaml:"lease"`
}

type LeaseConfig struct {
	Enabled bool          `yaml:"enabled"`
	Key     string        `yaml:"key"`
	TTL     time.Duration `yaml:"ttl"`
}

// TracingConfig leaves tracing off when Endpoint is empty.
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// Default returns the configuration used for anything the file leaves out.
func Default() Config {
	return Config{
		Server:   ServerConfig{Port: 8080, DefaultUserID: "user-12345"},
		Log:      LogConfig{Level: "info", Encoding: "json"},
		Postgres: PostgresConfig{DSN: "host=localhost user=user dbname=orders port=5432 sslmode=disable", AutoMigrate: true},
		Notifier: NotifierConfig{
			Driver:   "log",
			Kafka:    KafkaConfig{Topic: "order-notifications"},
			RabbitMQ: RabbitMQConfig{Queue: "order-notifications"},
		},
		RateLimit: RateLimitConfig{RPS: 50, Burst: 100},
		Dispatcher: DispatcherConfig{
			PollInterval:   time.Second,
			MaxAttempts:    5,
			BatchSize:      50,
			HandlerTimeout: 30 * time.Second,
			ClaimTTL:       time.Minute,
			Workers:        1,
			Lease:          LeaseConfig{Key: "poller:lease", TTL: 15 * time.Second},
		},
		Tracing: TracingConfig{ServiceName: "order-management"},
	}
}

// Load reads yaml file over the defaults, then applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		c.Postgres.DSN = url
	} else if pw := os.Getenv("POSTGRES_PASSWORD"); pw != "" {
		// override DSN password from env if present
		c.Postgres.DSN = c.Postgres.DSN + " password=" + pw
	}
	if v := os.Getenv("POLLING_INTERVAL"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return fmt.Errorf("POLLING_INTERVAL must be a positive number of seconds, got %q", v)
		}
		c.Dispatcher.PollInterval = time.Duration(secs) * time.Second
	}
	for _, o := range []struct {
		env string
		dst *int
	}{
		{"MAX_ATTEMPTS", &c.Dispatcher.MaxAttempts},
		{"BATCH_SIZE", &c.Dispatcher.BatchSize},
	} {
		v := os.Getenv(o.env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive integer, got %q", o.env, v)
		}
		*o.dst = n
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
		c.Tracing.Endpoint = ep
	}
	return nil
}
