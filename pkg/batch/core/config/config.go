// Package config provides the configuration tree of the batch engine and its loader.
package config

import (
	dbconfig "github.com/kangwooc/spring-batch/pkg/batch/adapter/database/config"
	storageconfig "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage/config"
)

// EmbeddedConfig holds the content of the configuration file, typically embedded by main.go.
type EmbeddedConfig []byte

// Repository types.
const (
	RepositoryTypeInMemory = "inmemory"
	RepositoryTypeSQL      = "sql"
)

// RetryConfig configures the retry policy of tasklet steps.
type RetryConfig struct {
	MaxAttempts         int      `yaml:"max_attempts"`         // total attempts, including the first one
	InitialInterval     int      `yaml:"initial_interval"`     // backoff before the first retry, in milliseconds
	MaxInterval         int      `yaml:"max_interval"`         // backoff ceiling, in milliseconds
	Factor              float64  `yaml:"factor"`               // backoff multiplier, 1 for a fixed interval
	RetryableExceptions []string `yaml:"retryable_exceptions"` // registered error type names
}

// SkipConfig configures the skip policy of chunk steps.
type SkipConfig struct {
	SkipLimit           int      `yaml:"skip_limit"`
	SkippableExceptions []string `yaml:"skippable_exceptions"` // registered error type names
}

// BatchConfig holds configuration specific to the batch processing engine.
type BatchConfig struct {
	// JobName is launched when the command line names no job.
	JobName string `yaml:"job_name"`
	// ChunkSize is the default commit interval for chunk-oriented steps.
	ChunkSize int         `yaml:"chunk_size"`
	Retry     RetryConfig `yaml:"retry"`
	Skip      SkipConfig  `yaml:"skip"`
	// MetricsAsyncBufferSize is the buffer size for asynchronous metric recording.
	MetricsAsyncBufferSize int `yaml:"metrics_async_buffer_size"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // DEBUG, INFO, WARN or ERROR.
	Format string `yaml:"format"` // console or json.
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

// RepositoryConfig selects where execution metadata lives.
type RepositoryConfig struct {
	Type        string                  `yaml:"type"` // inmemory or sql.
	Database    dbconfig.DatabaseConfig `yaml:"database"`
	AutoMigrate bool                    `yaml:"auto_migrate"` // apply the metadata schema when the repository starts
}

// TracingConfig configures the OpenTelemetry trace exporter.
type TracingConfig struct {
	Exporter    string  `yaml:"exporter"` // none, otlp-grpc or otlp-http.
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// MetricsConfig selects the metric recorder.
type MetricsConfig struct {
	Type      string `yaml:"type"`     // prometheus, otel or none.
	Exporter  string `yaml:"exporter"` // otel only: otlp-grpc or otlp-http.
	Endpoint  string `yaml:"endpoint"`
	Insecure  bool   `yaml:"insecure"`
	Namespace string `yaml:"namespace"`
	// PushIntervalSeconds is the otel periodic reader interval.
	PushIntervalSeconds int `yaml:"push_interval_seconds"`
	// TextfilePath, when set, receives the prometheus registry in text format on shutdown.
	TextfilePath string `yaml:"textfile_path"`
}

// AMQPConfig configures the AMQP notifier. An empty URL disables it.
type AMQPConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

// NotificationConfig configures job completion notifications.
type NotificationConfig struct {
	AMQP AMQPConfig `yaml:"amqp"`
}

// InfrastructureConfig holds the settings of the pluggable infrastructure components.
type InfrastructureConfig struct {
	Repository   RepositoryConfig                       `yaml:"repository"`
	Storage      map[string]storageconfig.StorageConfig `yaml:"storage"`
	Tracing      TracingConfig                          `yaml:"tracing"`
	Metrics      MetricsConfig                          `yaml:"metrics"`
	Notification NotificationConfig                     `yaml:"notification"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// MaskedParameterKeys lists the JobParameters keys whose values are masked in logs.
	MaskedParameterKeys []string `yaml:"masked_parameter_keys"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Batch          BatchConfig          `yaml:"batch"`
	System         SystemConfig         `yaml:"system"`
	Infrastructure InfrastructureConfig `yaml:"infrastructure"`
	Security       SecurityConfig       `yaml:"security"`
}

// DefaultStorageName is the storage connection used when a component names none.
const DefaultStorageName = "default"

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	return &Config{
		Batch: BatchConfig{
			ChunkSize: 10,
			Retry: RetryConfig{
				MaxAttempts:     3,
				InitialInterval: 1000,
				MaxInterval:     10000,
				Factor:          2.0,
			},
			Skip:                   SkipConfig{SkipLimit: 0},
			MetricsAsyncBufferSize: 100,
		},
		System: SystemConfig{
			Timezone: "UTC",
			Logging:  LoggingConfig{Level: "INFO", Format: "console"},
		},
		Infrastructure: InfrastructureConfig{
			Repository: RepositoryConfig{
				Type: RepositoryTypeInMemory,
				Database: dbconfig.DatabaseConfig{
					Type:     "sqlite",
					Database: "batch_metadata.db",
				},
			},
			Storage: map[string]storageconfig.StorageConfig{
				DefaultStorageName: {Type: "local"},
			},
			Tracing: TracingConfig{Exporter: "none", ServiceName: "spring-batch", SampleRatio: 1},
			Metrics: MetricsConfig{Type: "prometheus", Namespace: "batch", PushIntervalSeconds: 15},
		},
		Security: SecurityConfig{
			MaskedParameterKeys: []string{"password", "secret", "token", "api_key"},
		},
	}
}
