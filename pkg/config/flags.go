package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline, so the same logical flag
// cannot drift between "persona serve" and "persona chat".
type Flag struct {
	// Name is the long flag name (e.g. "listen").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "server.listen").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagListen       = "listen"
	FlagDebugRoutes  = "debug-routes"
	FlagProvider     = "provider"
	FlagModel        = "model"
	FlagBaseURL      = "base-url"
	FlagPromptFile   = "prompt-file"
	FlagSessionStore = "session-store"
	FlagSQLite       = "sqlite"
	FlagPostgres     = "postgres"
	FlagRedis        = "redis"
	FlagRedisTTL     = "redis-ttl"
	FlagEvents       = "events"
	FlagKafkaBrokers = "kafka-brokers"
	FlagKafkaTopic   = "kafka-topic"
	FlagTelemetry    = "telemetry"
	FlagOTLPEndpoint = "otlp-endpoint"
	FlagTarget       = "target"
)

// ServeFlags are the flags registered on "persona serve".
var ServeFlags = FlagSet{
	FlagListen:       {Name: "listen", Shorthand: "l", ViperKey: "server.listen", Description: "Address for the chat server to listen on"},
	FlagDebugRoutes:  {Name: "debug-routes", ViperKey: "server.debug_routes", Description: "Expose transcript inspection routes"},
	FlagProvider:     {Name: "provider", Shorthand: "p", ViperKey: "model.provider", Description: "Model provider (openrouter, openai, gemini)"},
	FlagModel:        {Name: "model", Shorthand: "m", ViperKey: "model.name", Description: "Model identifier sent to the provider"},
	FlagBaseURL:      {Name: "base-url", ViperKey: "model.base_url", Description: "Provider API base URL"},
	FlagPromptFile:   {Name: "prompt-file", ViperKey: "persona.prompt_file", Description: "Path to a persona prompt overriding the built-in one"},
	FlagSessionStore: {Name: "session-store", ViperKey: "session.store", Description: "Session store backend (memory, sqlite, postgres, redis)"},
	FlagSQLite:       {Name: "sqlite", Shorthand: "s", ViperKey: "session.sqlite_path", Description: "Path to SQLite database for the sqlite store"},
	FlagPostgres:     {Name: "postgres", ViperKey: "session.postgres_dsn", Description: "PostgreSQL connection string for the postgres store"},
	FlagRedis:        {Name: "redis", ViperKey: "session.redis_addr", Description: "Redis address (host:port) for the redis store"},
	FlagRedisTTL:     {Name: "redis-ttl", ViperKey: "session.redis_ttl", Description: "Idle expiry for redis sessions (e.g. 24h, empty for none)"},
	FlagEvents:       {Name: "events", ViperKey: "events.provider", Description: "Turn event publisher (none, kafka)"},
	FlagKafkaBrokers: {Name: "kafka-brokers", ViperKey: "events.kafka_brokers", Description: "Comma separated Kafka broker addresses"},
	FlagKafkaTopic:   {Name: "kafka-topic", ViperKey: "events.kafka_topic", Description: "Kafka topic for turn events"},
	FlagTelemetry:    {Name: "telemetry", ViperKey: "telemetry.exporter", Description: "Trace exporter (none, stdout, otlp)"},
	FlagOTLPEndpoint: {Name: "otlp-endpoint", ViperKey: "telemetry.otlp_endpoint", Description: "OTLP/HTTP trace endpoint"},
}

// ClientFlags are the flags registered on client commands such as "persona chat".
var ClientFlags = FlagSet{
	FlagTarget: {Name: "target", Shorthand: "t", ViperKey: "client.target", Description: "Persona server URL"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, key string, target *bool) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultBool returns the default bool value for a viper key from NewDefaultConfig.
func defaultBool(viperKey string) bool {
	v := viper.New()
	setViperDefaults(v)
	return v.GetBool(viperKey)
}
