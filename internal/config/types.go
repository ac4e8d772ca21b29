package config

// Config is the root configuration for the scheduling agent.
type Config struct {
	Server    ServerConfig    `yaml:"server,omitempty"`
	Timezone  string          `yaml:"timezone,omitempty"`
	Database  DatabaseConfig  `yaml:"database,omitempty"`
	Calendar  CalendarConfig  `yaml:"calendar,omitempty"`
	Decider   DeciderConfig   `yaml:"decider,omitempty"`
	Messenger MessengerConfig `yaml:"messenger,omitempty"`
	Clinic    ClinicConfig    `yaml:"clinic,omitempty"`
	Sync      SyncConfig      `yaml:"sync,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// ServerConfig controls the webhook HTTP server.
type ServerConfig struct {
	Port int    `yaml:"port,omitempty"`
	Host string `yaml:"host,omitempty"`
}

// DatabaseConfig points at the SQLite database file.
type DatabaseConfig struct {
	Path string `yaml:"path,omitempty"`
}

// CalendarConfig configures the calendar of record.
type CalendarConfig struct {
	// CalendarID is the Google calendar to operate on ("primary" or an
	// explicit calendar address).
	CalendarID string `yaml:"calendarId,omitempty"`
	// CredentialsFile is the path to the service-account JSON key.
	CredentialsFile string `yaml:"credentialsFile,omitempty"`
}

// DeciderConfig configures the decision-maker endpoint.
type DeciderConfig struct {
	BaseURL string `yaml:"baseUrl,omitempty"`
	APIKey  string `yaml:"apiKey,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

// MessengerConfig configures the Evolution API connection.
type MessengerConfig struct {
	BaseURL  string `yaml:"baseUrl,omitempty"`
	APIKey   string `yaml:"apiKey,omitempty"`
	Instance string `yaml:"instance,omitempty"`
}

// ClinicConfig carries the clinic's public-facing details.
type ClinicConfig struct {
	// Professional is the name the assistant introduces, e.g. "Dra. Priscila".
	Professional string `yaml:"professional,omitempty"`
	Address      string `yaml:"address,omitempty"`
	// OwnerPhone receives handover notifications. Empty disables them.
	OwnerPhone string `yaml:"ownerPhone,omitempty"`
}

// SyncConfig controls the background calendar reconciler.
type SyncConfig struct {
	IntervalMinutes int `yaml:"intervalMinutes,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
}
