package config

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/robfig/cron/v3"
)

// Default invocation timeouts, in milliseconds. Claude delegations tend to
// be long-running agentic tasks; codex calls are shorter review/fix loops.
const (
	DefaultClaudeTimeoutMs = 600000
	DefaultCodexTimeoutMs  = 120000
)

// Config represents the main duet configuration.
type Config struct {
	// Assistant CLI integrations
	Claude AssistantConfig `json:"claude" mapstructure:"claude"`
	Codex  AssistantConfig `json:"codex" mapstructure:"codex"`

	// Sessions
	Sessions SessionsConfig `json:"sessions" mapstructure:"sessions"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Metrics endpoint
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Audit log path
	AuditLog string `json:"audit_log" mapstructure:"audit_log"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// AssistantConfig configures one external assistant CLI.
type AssistantConfig struct {
	Binary    string `json:"binary" mapstructure:"binary"`
	TimeoutMs int64  `json:"timeout_ms" mapstructure:"timeout_ms"`
	// SkipPermissions maps to claude --dangerously-skip-permissions.
	SkipPermissions bool `json:"skip_permissions" mapstructure:"skip_permissions"`
	// FullAuto maps to codex --full-auto.
	FullAuto bool `json:"full_auto" mapstructure:"full_auto"`
}

// SessionsConfig configures session persistence and hygiene.
type SessionsConfig struct {
	Dir             string `json:"dir" mapstructure:"dir"`
	CleanupSchedule string `json:"cleanup_schedule" mapstructure:"cleanup_schedule"`
	MaxAgeDays      int    `json:"max_age_days" mapstructure:"max_age_days"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// MetricsConfig holds metrics endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// DefaultConfig returns a config with default values.
func DefaultConfig() *Config {
	return &Config{
		Claude: AssistantConfig{
			Binary:    defaultBinary("claude"),
			TimeoutMs: DefaultClaudeTimeoutMs,
		},
		Codex: AssistantConfig{
			Binary:    defaultBinary("codex"),
			TimeoutMs: DefaultCodexTimeoutMs,
		},
		Sessions: SessionsConfig{
			CleanupSchedule: "0 3 * * *",
			MaxAgeDays:      30,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Pretty:    true,
			Redaction: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9185",
		},
	}
}

// defaultBinary returns the platform-appropriate executable name for an
// assistant CLI. npm shims install as .cmd wrappers on Windows.
func defaultBinary(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".cmd"
	}
	return name
}

// String returns a JSON representation of the config.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Claude.Binary == "" {
		return fmt.Errorf("claude binary is required")
	}
	if c.Codex.Binary == "" {
		return fmt.Errorf("codex binary is required")
	}
	if c.Claude.TimeoutMs <= 0 {
		return fmt.Errorf("claude timeout_ms must be positive, got %d", c.Claude.TimeoutMs)
	}
	if c.Codex.TimeoutMs <= 0 {
		return fmt.Errorf("codex timeout_ms must be positive, got %d", c.Codex.TimeoutMs)
	}
	if c.Sessions.MaxAgeDays < 0 {
		return fmt.Errorf("sessions max_age_days cannot be negative")
	}
	if c.Sessions.CleanupSchedule != "" {
		if _, err := cron.ParseStandard(c.Sessions.CleanupSchedule); err != nil {
			return fmt.Errorf("invalid sessions cleanup_schedule %q: %w", c.Sessions.CleanupSchedule, err)
		}
	}
	return nil
}
