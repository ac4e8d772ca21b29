// Package config loads and validates the YAML configuration.
package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 3000,
			Host: "0.0.0.0",
		},
		Timezone: "America/Sao_Paulo",
		Database: DatabaseConfig{
			Path: "agendai.db",
		},
		Calendar: CalendarConfig{
			CalendarID: "primary",
		},
		Decider: DeciderConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o",
		},
		Sync: SyncConfig{
			IntervalMinutes: 30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
