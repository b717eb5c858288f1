package config

const (
	defaultListen = ":8080"

	defaultModelProvider    = "openrouter"
	defaultModelName        = "deepseek/deepseek-r1-0528:free"
	defaultModelBaseURL     = "https://openrouter.ai/api/v1"
	defaultModelTemperature = 0.7

	defaultSessionStore = "memory"

	defaultEventsProvider = "none"
	defaultKafkaTopic     = "persona.turns"

	defaultTelemetryExporter = "none"

	defaultClientTarget = "http://localhost:8080"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen: defaultListen,
		},
		Model: ModelConfig{
			Provider:    defaultModelProvider,
			Name:        defaultModelName,
			BaseURL:     defaultModelBaseURL,
			Temperature: defaultModelTemperature,
		},
		Session: SessionConfig{
			Store: defaultSessionStore,
		},
		Events: EventsConfig{
			Provider:   defaultEventsProvider,
			KafkaTopic: defaultKafkaTopic,
		},
		Telemetry: TelemetryConfig{
			Exporter: defaultTelemetryExporter,
		},
		Client: ClientConfig{
			Target: defaultClientTarget,
		},
	}
}
