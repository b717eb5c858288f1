package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent persona configuration stored as config.toml
// in the .persona/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	Server    ServerConfig    `toml:"server"`
	Model     ModelConfig     `toml:"model"`
	Persona   PersonaConfig   `toml:"persona"`
	Session   SessionConfig   `toml:"session"`
	Events    EventsConfig    `toml:"events"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Client    ClientConfig    `toml:"client"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Listen string `toml:"listen,omitempty"`

	// DebugRoutes registers transcript inspection routes. Never enable on a
	// public deployment: anyone holding a session id can read its transcript.
	DebugRoutes bool `toml:"debug_routes,omitempty"`
}

// ModelConfig holds remote model settings. The API key itself lives in
// credentials.toml or the environment, never in config.toml.
type ModelConfig struct {
	Provider    string  `toml:"provider,omitempty"`
	Name        string  `toml:"name,omitempty"`
	BaseURL     string  `toml:"base_url,omitempty"`
	Temperature float64 `toml:"temperature"`
}

// PersonaConfig holds system prompt settings.
type PersonaConfig struct {
	// PromptFile overrides the built-in persona prompt. Reloaded on change.
	PromptFile string `toml:"prompt_file,omitempty"`
}

// SessionConfig selects and configures the session store backend.
type SessionConfig struct {
	Store       string `toml:"store,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
	RedisAddr   string `toml:"redis_addr,omitempty"`
	RedisTTL    string `toml:"redis_ttl,omitempty"`
}

// EventsConfig configures turn event publishing.
type EventsConfig struct {
	Provider     string `toml:"provider,omitempty"`
	KafkaBrokers string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string `toml:"kafka_topic,omitempty"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Exporter     string `toml:"exporter,omitempty"`
	OTLPEndpoint string `toml:"otlp_endpoint,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running
// server (e.g. persona chat). Target is a full URL.
type ClientConfig struct {
	Target string `toml:"target,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"server.listen": {
		get: func(c *Config) string { return c.Server.Listen },
		set: func(c *Config, v string) error { c.Server.Listen = v; return nil },
	},
	"server.debug_routes": {
		get: func(c *Config) string { return strconv.FormatBool(c.Server.DebugRoutes) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for server.debug_routes: %w", err)
			}
			c.Server.DebugRoutes = b
			return nil
		},
	},
	"model.provider": {
		get: func(c *Config) string { return c.Model.Provider },
		set: func(c *Config, v string) error { c.Model.Provider = v; return nil },
	},
	"model.name": {
		get: func(c *Config) string { return c.Model.Name },
		set: func(c *Config, v string) error { c.Model.Name = v; return nil },
	},
	"model.base_url": {
		get: func(c *Config) string { return c.Model.BaseURL },
		set: func(c *Config, v string) error { c.Model.BaseURL = v; return nil },
	},
	"model.temperature": {
		get: func(c *Config) string { return strconv.FormatFloat(c.Model.Temperature, 'f', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for model.temperature: %w", err)
			}
			c.Model.Temperature = f
			return nil
		},
	},
	"persona.prompt_file": {
		get: func(c *Config) string { return c.Persona.PromptFile },
		set: func(c *Config, v string) error { c.Persona.PromptFile = v; return nil },
	},
	"session.store": {
		get: func(c *Config) string { return c.Session.Store },
		set: func(c *Config, v string) error { c.Session.Store = v; return nil },
	},
	"session.sqlite_path": {
		get: func(c *Config) string { return c.Session.SQLitePath },
		set: func(c *Config, v string) error { c.Session.SQLitePath = v; return nil },
	},
	"session.postgres_dsn": {
		get: func(c *Config) string { return c.Session.PostgresDSN },
		set: func(c *Config, v string) error { c.Session.PostgresDSN = v; return nil },
	},
	"session.redis_addr": {
		get: func(c *Config) string { return c.Session.RedisAddr },
		set: func(c *Config, v string) error { c.Session.RedisAddr = v; return nil },
	},
	"session.redis_ttl": {
		get: func(c *Config) string { return c.Session.RedisTTL },
		set: func(c *Config, v string) error {
			if v != "" {
				if _, err := time.ParseDuration(v); err != nil {
					return fmt.Errorf("invalid value for session.redis_ttl: %w", err)
				}
			}
			c.Session.RedisTTL = v
			return nil
		},
	},
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error { c.Events.Provider = v; return nil },
	},
	"events.kafka_brokers": {
		get: func(c *Config) string { return c.Events.KafkaBrokers },
		set: func(c *Config, v string) error { c.Events.KafkaBrokers = v; return nil },
	},
	"events.kafka_topic": {
		get: func(c *Config) string { return c.Events.KafkaTopic },
		set: func(c *Config, v string) error { c.Events.KafkaTopic = v; return nil },
	},
	"telemetry.exporter": {
		get: func(c *Config) string { return c.Telemetry.Exporter },
		set: func(c *Config, v string) error { c.Telemetry.Exporter = v; return nil },
	},
	"telemetry.otlp_endpoint": {
		get: func(c *Config) string { return c.Telemetry.OTLPEndpoint },
		set: func(c *Config, v string) error { c.Telemetry.OTLPEndpoint = v; return nil },
	},
	"client.target": {
		get: func(c *Config) string { return c.Client.Target },
		set: func(c *Config, v string) error { c.Client.Target = v; return nil },
	},
}

// orderedKeys is the stable, logical order matching the TOML section layout.
var orderedKeys = []string{
	"server.listen",
	"server.debug_routes",
	"model.provider",
	"model.name",
	"model.base_url",
	"model.temperature",
	"persona.prompt_file",
	"session.store",
	"session.sqlite_path",
	"session.postgres_dsn",
	"session.redis_addr",
	"session.redis_ttl",
	"events.provider",
	"events.kafka_brokers",
	"events.kafka_topic",
	"telemetry.exporter",
	"telemetry.otlp_endpoint",
	"client.target",
}
