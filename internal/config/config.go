package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Config holds application configuration.
type Config struct {
	// SummaryMaxChars is the maximum character count for a snapshot summary.
	SummaryMaxChars int `json:"summary_max_chars"`

	// ContextMaxChars is the maximum character count for rendered context.
	ContextMaxChars int `json:"context_max_chars"`

	// NextStepsMaxChars is the maximum character count for next_steps.
	NextStepsMaxChars int `json:"next_steps_max_chars"`

	// RestoreMaxTokens is the default token budget for context restore.
	RestoreMaxTokens int `json:"restore_max_tokens"`

	// InjectMaxTokens is the default token budget for context injection.
	InjectMaxTokens int `json:"inject_max_tokens"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is
	// locked" errors). 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		SummaryMaxChars:   10000,
		ContextMaxChars:   100000,
		NextStepsMaxChars: 5000,
		RestoreMaxTokens:  15000,
		InjectMaxTokens:   5000,
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.snapvault.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.SummaryMaxChars = pick(overlay.SummaryMaxChars, base.SummaryMaxChars)
	result.ContextMaxChars = pick(overlay.ContextMaxChars, base.ContextMaxChars)
	result.NextStepsMaxChars = pick(overlay.NextStepsMaxChars, base.NextStepsMaxChars)
	result.RestoreMaxTokens = pick(overlay.RestoreMaxTokens, base.RestoreMaxTokens)
	result.InjectMaxTokens = pick(overlay.InjectMaxTokens, base.InjectMaxTokens)
	result.DBMaxOpenConns = pick(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = pick(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// pick returns overlay if non-zero, else base.
func pick(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
