// Package config loads the service configuration from YAML files, a .env file
// and TODO_* environment variables.
package config

import (
	"time"

	"github.com/Aidin1998/todokv/internal/events"
	"github.com/Aidin1998/todokv/internal/kvstore"
)

// Config is the top level service configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Store     kvstore.Config  `mapstructure:"store"`
	Events    EventsConfig    `mapstructure:"events"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Addr              string        `mapstructure:"addr" validate:"required"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" validate:"gte=0"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	// StaticDir, when set, is served at / for the browser frontend
	StaticDir   string   `mapstructure:"static_dir"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// EventsConfig controls change-event publishing
type EventsConfig struct {
	Enabled bool               `mapstructure:"enabled"`
	Kafka   events.KafkaConfig `mapstructure:"kafka"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

// TelemetryConfig controls OpenTelemetry providers
type TelemetryConfig struct {
	Tracing     bool   `mapstructure:"tracing"`
	Metrics     bool   `mapstructure:"metrics"`
	ServiceName string `mapstructure:"service_name" validate:"required"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Store: kvstore.DefaultConfig(),
		Events: EventsConfig{
			Kafka: events.DefaultKafkaConfig(),
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "todo-api",
		},
	}
}
