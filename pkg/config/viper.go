package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/persona/pkg/dotdir"
)

// EnvPrefix is the prefix for all persona environment variables.
const EnvPrefix = "PERSONA"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the PERSONA_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (PERSONA_SERVER_LISTEN, PERSONA_SESSION_STORE, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes a Config from the resolved viper precedence chain.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Server: ServerConfig{
			Listen:      v.GetString("server.listen"),
			DebugRoutes: v.GetBool("server.debug_routes"),
		},
		Model: ModelConfig{
			Provider:    v.GetString("model.provider"),
			Name:        v.GetString("model.name"),
			BaseURL:     v.GetString("model.base_url"),
			Temperature: v.GetFloat64("model.temperature"),
		},
		Persona: PersonaConfig{
			PromptFile: v.GetString("persona.prompt_file"),
		},
		Session: SessionConfig{
			Store:       v.GetString("session.store"),
			SQLitePath:  v.GetString("session.sqlite_path"),
			PostgresDSN: v.GetString("session.postgres_dsn"),
			RedisAddr:   v.GetString("session.redis_addr"),
			RedisTTL:    v.GetString("session.redis_ttl"),
		},
		Events: EventsConfig{
			Provider:     v.GetString("events.provider"),
			KafkaBrokers: v.GetString("events.kafka_brokers"),
			KafkaTopic:   v.GetString("events.kafka_topic"),
		},
		Telemetry: TelemetryConfig{
			Exporter:     v.GetString("telemetry.exporter"),
			OTLPEndpoint: v.GetString("telemetry.otlp_endpoint"),
		},
		Client: ClientConfig{
			Target: v.GetString("client.target"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.debug_routes", d.Server.DebugRoutes)

	v.SetDefault("model.provider", d.Model.Provider)
	v.SetDefault("model.name", d.Model.Name)
	v.SetDefault("model.base_url", d.Model.BaseURL)
	v.SetDefault("model.temperature", d.Model.Temperature)

	v.SetDefault("persona.prompt_file", d.Persona.PromptFile)

	v.SetDefault("session.store", d.Session.Store)
	v.SetDefault("session.sqlite_path", d.Session.SQLitePath)
	v.SetDefault("session.postgres_dsn", d.Session.PostgresDSN)
	v.SetDefault("session.redis_addr", d.Session.RedisAddr)
	v.SetDefault("session.redis_ttl", d.Session.RedisTTL)

	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.kafka_brokers", d.Events.KafkaBrokers)
	v.SetDefault("events.kafka_topic", d.Events.KafkaTopic)

	v.SetDefault("telemetry.exporter", d.Telemetry.Exporter)
	v.SetDefault("telemetry.otlp_endpoint", d.Telemetry.OTLPEndpoint)

	v.SetDefault("client.target", d.Client.Target)
}
