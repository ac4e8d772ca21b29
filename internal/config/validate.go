package config

import (
	"fmt"
	"slices"
	"time"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "server.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Server.Port),
		})
	}

	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			issues = append(issues, ValidationIssue{
				Path:    "timezone",
				Message: fmt.Sprintf("unknown timezone %q", cfg.Timezone),
			})
		}
	}

	if cfg.Calendar.CredentialsFile == "" {
		issues = append(issues, ValidationIssue{
			Path:    "calendar.credentialsFile",
			Message: "service-account credentials file is required",
		})
	}

	if cfg.Decider.APIKey == "" {
		issues = append(issues, ValidationIssue{
			Path:    "decider.apiKey",
			Message: "API key is required",
		})
	}
	if cfg.Decider.Model == "" {
		issues = append(issues, ValidationIssue{
			Path:    "decider.model",
			Message: "model is required",
		})
	}

	if cfg.Messenger.BaseURL == "" {
		issues = append(issues, ValidationIssue{
			Path:    "messenger.baseUrl",
			Message: "Evolution API base URL is required",
		})
	}
	if cfg.Messenger.Instance == "" {
		issues = append(issues, ValidationIssue{
			Path:    "messenger.instance",
			Message: "Evolution instance name is required",
		})
	}

	if cfg.Sync.IntervalMinutes < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "sync.intervalMinutes",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Sync.IntervalMinutes),
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	return issues
}
