package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotEmpty(t, cfg.Claude.Binary)
	assert.NotEmpty(t, cfg.Codex.Binary)
	assert.Equal(t, int64(DefaultClaudeTimeoutMs), cfg.Claude.TimeoutMs)
	assert.Equal(t, int64(DefaultCodexTimeoutMs), cfg.Codex.TimeoutMs)
	assert.Equal(t, 30, cfg.Sessions.MaxAgeDays)

	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing claude binary", func(c *Config) { c.Claude.Binary = "" }, "claude binary"},
		{"missing codex binary", func(c *Config) { c.Codex.Binary = "" }, "codex binary"},
		{"zero claude timeout", func(c *Config) { c.Claude.TimeoutMs = 0 }, "timeout_ms"},
		{"negative codex timeout", func(c *Config) { c.Codex.TimeoutMs = -5 }, "timeout_ms"},
		{"negative max age", func(c *Config) { c.Sessions.MaxAgeDays = -1 }, "max_age_days"},
		{"bad cron schedule", func(c *Config) { c.Sessions.CleanupSchedule = "every tuesday" }, "cleanup_schedule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_String(t *testing.T) {
	s := DefaultConfig().String()
	assert.Contains(t, s, `"claude"`)
	assert.Contains(t, s, `"codex"`)
}
