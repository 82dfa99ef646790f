package config

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "", cfg.DB)
	assert.False(t, cfg.SeedSet)
	assert.False(t, cfg.PostTerminalRules)
	assert.Equal(t, 10000, cfg.MaxActionsPerTick)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, "text", cfg.Format)
	assert.False(t, cfg.PostTerminalRulesSet)
	assert.False(t, cfg.MaxActionsPerTickSet)
	assert.Empty(t, cfg.EngineOptions(), "defaults produce no overrides")
}

func TestLoadFromValues(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"RULEKIT_DB":                   "/tmp/sessions.db",
		"RULEKIT_SEED":                 "0",
		"RULEKIT_POST_TERMINAL_RULES":  "true",
		"RULEKIT_MAX_ACTIONS_PER_TICK": "50",
		"RULEKIT_LOG_LEVEL":            "debug",
		"RULEKIT_FORMAT":               "json",
	})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/sessions.db", cfg.DB)
	assert.True(t, cfg.SeedSet, "an explicit zero seed still counts")
	assert.Equal(t, uint64(0), cfg.Seed)
	assert.True(t, cfg.PostTerminalRules)
	assert.Equal(t, 50, cfg.MaxActionsPerTick)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "json", cfg.Format)
	assert.True(t, cfg.PostTerminalRulesSet)
	assert.True(t, cfg.MaxActionsPerTickSet)
	assert.Len(t, cfg.EngineOptions(), 3)
}

func TestLoadFromEmptyValuesAreUnset(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"RULEKIT_SEED":                 "",
		"RULEKIT_POST_TERMINAL_RULES":  "",
		"RULEKIT_MAX_ACTIONS_PER_TICK": "",
	})
	require.NoError(t, err)

	assert.False(t, cfg.SeedSet)
	assert.False(t, cfg.PostTerminalRulesSet)
	assert.False(t, cfg.MaxActionsPerTickSet)
	assert.Equal(t, 10000, cfg.MaxActionsPerTick)
	assert.Empty(t, cfg.EngineOptions())
}

func TestLoadFromOnlySeed(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"RULEKIT_SEED": "42"})
	require.NoError(t, err)

	assert.True(t, cfg.SeedSet)
	assert.False(t, cfg.PostTerminalRulesSet)
	assert.False(t, cfg.MaxActionsPerTickSet)
	assert.Len(t, cfg.EngineOptions(), 1)
}

func TestLoadFromErrors(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"bad seed", map[string]string{"RULEKIT_SEED": "-1"}, "parse env:"},
		{"bad bool", map[string]string{"RULEKIT_POST_TERMINAL_RULES": "maybe"}, "parse env:"},
		{"bad level", map[string]string{"RULEKIT_LOG_LEVEL": "loud"}, "parse env:"},
		{"bad format", map[string]string{"RULEKIT_FORMAT": "xml"}, "RULEKIT_FORMAT"},
		{"zero quota", map[string]string{"RULEKIT_MAX_ACTIONS_PER_TICK": "0"}, "RULEKIT_MAX_ACTIONS_PER_TICK"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.vars)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadReadsProcessEnv(t *testing.T) {
	t.Setenv("RULEKIT_SEED", "99")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.SeedSet)
	assert.Equal(t, uint64(99), cfg.Seed)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{LogLevel: slog.LevelInfo}
	logger := cfg.Logger(&buf)

	logger.Debug("hidden")
	logger.Info("shown", "rule_id", "r1")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.Contains(out, "rule_id=r1"), out)
}
