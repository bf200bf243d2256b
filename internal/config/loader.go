package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses configuration from a file.
func Load(configPath string) (*Config, error) {
	// Resolve to absolute path for consistent relative path resolution
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	if _, err := os.Stat(absPath); err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Interpolate ${VAR} references before parsing so secrets can live in
	// the environment rather than on disk.
	interpolated := interpolateEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(interpolated), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg = applyConfigDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyConfigDefaults fills zero-valued fields from Defaults().
func applyConfigDefaults(cfg *Config) *Config {
	defaults := Defaults()

	if cfg.Service.Name == "" {
		cfg.Service.Name = defaults.Service.Name
	}
	if cfg.Service.Listen == "" {
		cfg.Service.Listen = defaults.Service.Listen
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = defaults.Service.LogLevel
	}
	if cfg.Service.PIDFile == "" {
		cfg.Service.PIDFile = defaults.Service.PIDFile
	}
	if cfg.Service.APIBaseURL == "" {
		cfg.Service.APIBaseURL = defaults.Service.APIBaseURL
	}
	if cfg.Service.WebsiteURL == "" {
		cfg.Service.WebsiteURL = defaults.Service.WebsiteURL
	}
	// Tracking links must not carry a double slash.
	cfg.Service.APIBaseURL = strings.TrimRight(cfg.Service.APIBaseURL, "/")
	cfg.Service.WebsiteURL = strings.TrimRight(cfg.Service.WebsiteURL, "/")

	if cfg.Database.Path == "" {
		cfg.Database.Path = defaults.Database.Path
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = defaults.Storage.Dir
	}
	if cfg.GenAI.Model == "" {
		cfg.GenAI.Model = defaults.GenAI.Model
	}
	if cfg.DocuSeal.BaseURL == "" {
		cfg.DocuSeal.BaseURL = defaults.DocuSeal.BaseURL
	}
	cfg.DocuSeal.BaseURL = strings.TrimRight(cfg.DocuSeal.BaseURL, "/")
	if cfg.Leads.HotThreshold == 0 {
		cfg.Leads.HotThreshold = defaults.Leads.HotThreshold
	}
	if cfg.Report.Day == 0 {
		cfg.Report.Day = defaults.Report.Day
	}
	if cfg.Report.Hour == 0 {
		cfg.Report.Hour = defaults.Report.Hour
	}
	if cfg.Report.Timezone == "" {
		cfg.Report.Timezone = defaults.Report.Timezone
	}

	return cfg
}

// interpolateEnv replaces ${VAR} patterns with environment variable values.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		// Extract variable name from ${VAR}
		varName := envVarPattern.FindStringSubmatch(match)[1]

		// Look up environment variable
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}

		// If not found, leave the placeholder (will fail validation if required)
		return match
	})
}

// validate performs basic validation on the configuration. Secret checks are
// deliberately strict: a short or missing secret is a startup failure, never
// a runtime fallback.
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(cfg.Service.LogLevel)] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}

	if cfg.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if cfg.Storage.Dir == "" {
		return fmt.Errorf("storage.dir is required")
	}

	if len(cfg.Security.WebhookSecret) < MinSecretLength {
		return fmt.Errorf("security.webhook_secret must be at least %d characters", MinSecretLength)
	}
	if len(cfg.Security.TrackingSecret) < MinSecretLength {
		return fmt.Errorf("security.tracking_secret must be at least %d characters", MinSecretLength)
	}
	if cfg.Security.CronSecret == "" {
		return fmt.Errorf("security.cron_secret is required")
	}
	if cfg.Security.APIKey == "" {
		return fmt.Errorf("security.api_key is required")
	}

	if cfg.SendGrid.APIKey == "" {
		return fmt.Errorf("sendgrid.api_key is required")
	}
	if cfg.SendGrid.FromEmail == "" {
		return fmt.Errorf("sendgrid.from_email is required")
	}
	if cfg.SendGrid.AdminEmail == "" {
		return fmt.Errorf("sendgrid.admin_email is required")
	}

	if cfg.DocuSeal.APIKey != "" && len(cfg.DocuSeal.WebhookSecret) < MinSecretLength {
		return fmt.Errorf("docuseal.webhook_secret must be at least %d characters when docuseal is enabled", MinSecretLength)
	}

	if cfg.Leads.HotThreshold < 0 || cfg.Leads.HotThreshold > 100 {
		return fmt.Errorf("leads.hot_threshold must be between 0 and 100 (got %d)", cfg.Leads.HotThreshold)
	}

	if cfg.Report.Day < 1 || cfg.Report.Day > 28 {
		return fmt.Errorf("report.day must be between 1 and 28 (got %d)", cfg.Report.Day)
	}
	if cfg.Report.Hour < 0 || cfg.Report.Hour > 23 {
		return fmt.Errorf("report.hour must be between 0 and 23 (got %d)", cfg.Report.Hour)
	}

	return nil
}
