package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig failed validation: %v", err)
	}
}

func TestLoad_UsesDefaults(t *testing.T) {
	config, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if config.HTTP.Port != 8080 {
		t.Errorf("HTTP.Port = %d, want 8080", config.HTTP.Port)
	}
	if config.Channel.Namespace != "swipee/game" {
		t.Errorf("Channel.Namespace = %q, want swipee/game", config.Channel.Namespace)
	}
	if config.Outbox.RetryDelay != 500*time.Millisecond {
		t.Errorf("Outbox.RetryDelay = %v, want 500ms", config.Outbox.RetryDelay)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SWIPEE_HTTP_PORT", "9090")
	t.Setenv("SWIPEE_DATABASE_PATH", "/tmp/override.db")
	t.Setenv("SWIPEE_CHANNEL_PING_INTERVAL", "10s")

	config, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if config.HTTP.Port != 9090 {
		t.Errorf("HTTP.Port = %d, want 9090", config.HTTP.Port)
	}
	if config.Database.Path != "/tmp/override.db" {
		t.Errorf("Database.Path = %q, want /tmp/override.db", config.Database.Path)
	}
	if config.Channel.PingInterval != 10*time.Second {
		t.Errorf("Channel.PingInterval = %v, want 10s", config.Channel.PingInterval)
	}
}

func TestLoad_InvalidEnvironmentRejected(t *testing.T) {
	t.Setenv("SWIPEE_HTTP_PORT", "70000")

	if _, err := Load(); err == nil {
		t.Error("Load accepted an out-of-range port")
	}
}

func TestValidate_CatchesBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"empty database path", func(c *Config) { c.Database.Path = "" }, "database path"},
		{"zero port", func(c *Config) { c.HTTP.Port = 0 }, "port"},
		{"port too large", func(c *Config) { c.HTTP.Port = 70000 }, "port"},
		{"empty namespace", func(c *Config) { c.Channel.Namespace = "" }, "namespace"},
		{"zero buffer", func(c *Config) { c.Channel.BufferSize = 0 }, "buffer"},
		{"zero queue", func(c *Config) { c.Outbox.QueueSize = 0 }, "queue"},
		{"zero attempts", func(c *Config) { c.Outbox.MaxAttempts = 0 }, "attempts"},
		{"negative retry delay", func(c *Config) { c.Outbox.RetryDelay = -time.Second }, "retry delay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if err == nil {
				t.Fatal("Validate accepted an invalid config")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestAddr(t *testing.T) {
	config := DefaultConfig()
	config.HTTP.Host = "127.0.0.1"
	config.HTTP.Port = 3000
	if got := config.Addr(); got != "127.0.0.1:3000" {
		t.Errorf("Addr() = %q, want 127.0.0.1:3000", got)
	}
}
