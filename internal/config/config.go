// Package config handles loading and managing convoscope configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// DataConfig holds dataset configuration.
type DataConfig struct {
	CSVPath string `toml:"csv_path"` // Conversation export to load at startup
	MinDate string `toml:"min_date"` // Drop rows before this date (YYYY-MM-DD), optional
}

// ServerConfig holds HTTP API server configuration.
type ServerConfig struct {
	APIPort      int     `toml:"api_port"`       // HTTP server port (default: 8080)
	SessionHours int     `toml:"session_hours"`  // Login session lifetime (default: 12)
	RateLimitQPS float64 `toml:"rate_limit_qps"` // Per-server request rate limit
}

// UserConfig is one login account.
type UserConfig struct {
	Username     string `toml:"username"`
	PasswordHash string `toml:"password_hash"` // bcrypt hash, see hash-password command
	Role         string `toml:"role"`          // "admin" or "user"
}

// IntelligenceConfig holds LLM agent configuration.
type IntelligenceConfig struct {
	APIKey  string `toml:"api_key"`  // Falls back to OPENAI_API_KEY
	BaseURL string `toml:"base_url"` // Optional OpenAI-compatible endpoint
	Model   string `toml:"model"`    // Model name (default: gpt-4o)
}

// MetricsConfig holds tunables for the analytics views.
type MetricsConfig struct {
	LatencyThresholdSeconds float64 `toml:"latency_threshold_seconds"` // Flag replies slower than this
}

type Config struct {
	Data         DataConfig         `toml:"data"`
	Server       ServerConfig       `toml:"server"`
	Users        []UserConfig       `toml:"users"`
	Intelligence IntelligenceConfig `toml:"intelligence"`
	Metrics      MetricsConfig      `toml:"metrics"`

	// Computed (not from config file)
	HomeDir    string `toml:"-"`
	configPath string `toml:"-"`
}

// DefaultHome returns the default convoscope home directory.
// Respects CONVOSCOPE_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("CONVOSCOPE_HOME"); h != "" {
		return expandPath(h)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".convoscope"
	}
	return filepath.Join(home, ".convoscope")
}

// NewDefaultConfig returns a Config with defaults and no file loaded.
func NewDefaultConfig() *Config {
	homeDir := DefaultHome()
	return &Config{
		HomeDir: homeDir,
		Server: ServerConfig{
			APIPort:      8080,
			SessionHours: 12,
			RateLimitQPS: 20,
		},
		Metrics: MetricsConfig{
			LatencyThresholdSeconds: 30,
		},
	}
}

// Load reads the configuration. An explicit path must exist; with an
// empty path the default location (<home>/config.toml) is used and a
// missing file just yields defaults. homeDir overrides the computed
// home directory when non-empty.
func Load(path, homeDir string) (*Config, error) {
	explicit := path != ""
	path = expandPath(path)
	homeDir = expandPath(homeDir)

	if homeDir == "" {
		if explicit {
			homeDir = filepath.Dir(path)
		} else {
			homeDir = DefaultHome()
		}
	}
	if !explicit {
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := NewDefaultConfig()
	cfg.HomeDir = homeDir
	cfg.configPath = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		// Config file is optional - use defaults if not present
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if isBackslashError(err) {
			return nil, fmt.Errorf("decode config: %w\nhint: backslashes in TOML strings are escape sequences; use forward slashes or single quotes for Windows paths", err)
		}
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Data.CSVPath = resolvePath(cfg.Data.CSVPath, homeDir)

	return cfg, nil
}

// ConfigFilePath returns the path the config was (or would be) loaded from.
func (c *Config) ConfigFilePath() string {
	return c.configPath
}

// CSVPath returns the dataset path, preferring the explicit override.
func (c *Config) CSVPath(override string) string {
	if override != "" {
		return expandPath(override)
	}
	return c.Data.CSVPath
}

// isBackslashError reports whether a TOML decode error is the kind
// produced by unescaped Windows paths in double-quoted strings.
func isBackslashError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "invalid escape") || strings.Contains(msg, "hexadecimal digits")
}

// resolvePath expands ~ and resolves relative paths against base.
func resolvePath(path, base string) string {
	path = expandPath(path)
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// expandPath expands a leading ~/ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
