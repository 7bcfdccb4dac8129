// Package config carries system-wide settings, loaded from the
// environment with sane defaults for local development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Database DatabaseConfig `envPrefix:"SWIPEE_DATABASE_"`
	HTTP     HTTPConfig     `envPrefix:"SWIPEE_HTTP_"`
	Channel  ChannelConfig  `envPrefix:"SWIPEE_CHANNEL_"`
	Outbox   OutboxConfig   `envPrefix:"SWIPEE_OUTBOX_"`
}

type DatabaseConfig struct {
	Path            string        `env:"PATH" envDefault:"./data/swipee.db"`
	MaxConnections  int           `env:"MAX_CONNECTIONS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"1h"`
	ConnMaxIdleTime time.Duration `env:"CONN_MAX_IDLE_TIME" envDefault:"15m"`
}

type HTTPConfig struct {
	Host         string        `env:"HOST" envDefault:"0.0.0.0"`
	Port         int           `env:"PORT" envDefault:"8080"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
}

// ChannelConfig tunes the realtime channel. Namespace prefixes every
// session topic; its messages are hints, the durable record stays
// authoritative.
type ChannelConfig struct {
	Namespace    string        `env:"NAMESPACE" envDefault:"swipee/game"`
	BufferSize   int           `env:"BUFFER_SIZE" envDefault:"100"`
	PingInterval time.Duration `env:"PING_INTERVAL" envDefault:"30s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"60s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"5s"`
}

type OutboxConfig struct {
	QueueSize   int           `env:"QUEUE_SIZE" envDefault:"256"`
	MaxAttempts int           `env:"MAX_ATTEMPTS" envDefault:"5"`
	RetryDelay  time.Duration `env:"RETRY_DELAY" envDefault:"500ms"`
}

// Load reads configuration from the environment, falling back to the
// tagged defaults, and validates the result.
func Load() (*Config, error) {
	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns the tagged defaults without consulting the
// environment. Used by tests and embedded setups.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "./data/swipee.db",
			MaxConnections:  10,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 15 * time.Minute,
		},
		HTTP: HTTPConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Channel: ChannelConfig{
			Namespace:    "swipee/game",
			BufferSize:   100,
			PingInterval: 30 * time.Second,
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		Outbox: OutboxConfig{
			QueueSize:   256,
			MaxAttempts: 5,
			RetryDelay:  500 * time.Millisecond,
		},
	}
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Database.MaxConnections <= 0 {
		return fmt.Errorf("database max connections must be positive")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}
	if c.HTTP.ReadTimeout <= 0 {
		return fmt.Errorf("HTTP read timeout must be positive")
	}
	if c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP write timeout must be positive")
	}
	if c.Channel.Namespace == "" {
		return fmt.Errorf("channel namespace cannot be empty")
	}
	if c.Channel.BufferSize <= 0 {
		return fmt.Errorf("channel buffer size must be positive")
	}
	if c.Channel.PingInterval <= 0 {
		return fmt.Errorf("channel ping interval must be positive")
	}
	if c.Channel.ReadTimeout <= 0 {
		return fmt.Errorf("channel read timeout must be positive")
	}
	if c.Channel.WriteTimeout <= 0 {
		return fmt.Errorf("channel write timeout must be positive")
	}
	if c.Outbox.QueueSize <= 0 {
		return fmt.Errorf("outbox queue size must be positive")
	}
	if c.Outbox.MaxAttempts <= 0 {
		return fmt.Errorf("outbox max attempts must be positive")
	}
	if c.Outbox.RetryDelay <= 0 {
		return fmt.Errorf("outbox retry delay must be positive")
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}
