package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete pyc configuration
type Config struct {
	History HistoryConfig     `mapstructure:"history" yaml:"history"`
	Input   InputConfig       `mapstructure:"input" yaml:"input"`
	Prompt  PromptConfig      `mapstructure:"prompt" yaml:"prompt"`
	Aliases map[string]string `mapstructure:"aliases" yaml:"aliases"`
	Logging LoggingConfig     `mapstructure:"logging" yaml:"logging"`
}

// HistoryConfig controls the command history
type HistoryConfig struct {
	// File is the history log path. Empty means HistoryPath().
	File string `mapstructure:"file" yaml:"file"`
	// MaxSize is the number of entries kept in memory (0 = unbounded)
	MaxSize int `mapstructure:"max_size" yaml:"max_size"`
	// Ignore lists glob patterns for lines that are never recorded
	Ignore []string `mapstructure:"ignore" yaml:"ignore"`
}

// InputConfig controls key decoding
type InputConfig struct {
	// EscapeTimeoutMs is how long a partial escape sequence may wait for
	// more bytes before it is read as a lone Escape key
	EscapeTimeoutMs int `mapstructure:"escape_timeout_ms" yaml:"escape_timeout_ms"`
}

// PromptConfig controls the prompt line
type PromptConfig struct {
	// Line is the prompt template, e.g. "${USER}@${HOSTNAME}:${WRKDIR}$"
	Line string `mapstructure:"line" yaml:"line"`
	// Break puts the input on its own line below the prompt
	Break bool `mapstructure:"break" yaml:"break"`
	// BreakWith is printed at the start of the input line when Break is set
	BreakWith string `mapstructure:"break_with" yaml:"break_with"`
	// MinDurationMs is the shortest command duration ${CMD_TIME} reports
	MinDurationMs int `mapstructure:"min_duration_ms" yaml:"min_duration_ms"`
	// RcOk and RcErr are what ${RC} expands to after a success or failure
	RcOk  string `mapstructure:"rc_ok" yaml:"rc_ok"`
	RcErr string `mapstructure:"rc_err" yaml:"rc_err"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is enabled (default: false)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 5)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 2)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
	// Compress gzips rotated log files
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		History: HistoryConfig{
			MaxSize: 1000,
			Ignore:  []string{},
		},
		Input: InputConfig{
			EscapeTimeoutMs: 50,
		},
		Prompt: PromptConfig{
			Line:          "${USER}@${HOSTNAME}:${WRKDIR}$",
			BreakWith:     "❯",
			MinDurationMs: 2000,
			RcOk:          "✔",
			RcErr:         "✖",
		},
		Aliases: map[string]string{},
		Logging: LoggingConfig{
			Enabled:    false,
			Level:      "info",
			MaxSizeMB:  5,
			MaxBackups: 2,
		},
	}
}

// EscapeTimeout returns the escape timeout as a time.Duration
func (c *InputConfig) EscapeTimeout() time.Duration {
	return time.Duration(c.EscapeTimeoutMs) * time.Millisecond
}

// MinDuration returns the ${CMD_TIME} threshold as a time.Duration
func (c *PromptConfig) MinDuration() time.Duration {
	return time.Duration(c.MinDurationMs) * time.Millisecond
}

// HistoryFile returns the configured history path, or the default one
func (c *HistoryConfig) HistoryFile() string {
	if c.File == "" {
		return HistoryPath()
	}
	return expandHome(c.File)
}

// SetDefaults registers default values with viper
func SetDefaults() {
	SetDefaultsOn(viper.GetViper())
}

// SetDefaultsOn registers default values with the given viper instance
func SetDefaultsOn(v *viper.Viper) {
	defaults := Default()

	// History defaults
	v.SetDefault("history.file", defaults.History.File)
	v.SetDefault("history.max_size", defaults.History.MaxSize)
	v.SetDefault("history.ignore", defaults.History.Ignore)

	// Input defaults
	v.SetDefault("input.escape_timeout_ms", defaults.Input.EscapeTimeoutMs)

	// Prompt defaults
	v.SetDefault("prompt.line", defaults.Prompt.Line)
	v.SetDefault("prompt.break", defaults.Prompt.Break)
	v.SetDefault("prompt.break_with", defaults.Prompt.BreakWith)
	v.SetDefault("prompt.min_duration_ms", defaults.Prompt.MinDurationMs)
	v.SetDefault("prompt.rc_ok", defaults.Prompt.RcOk)
	v.SetDefault("prompt.rc_err", defaults.Prompt.RcErr)

	// Alias defaults
	v.SetDefault("aliases", defaults.Aliases)

	// Logging defaults
	v.SetDefault("logging.enabled", defaults.Logging.Enabled)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	v.SetDefault("logging.compress", defaults.Logging.Compress)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads and validates the configuration held by v
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// Reload re-reads the config file used by v and returns the new
// configuration. The previous values stay in v when the file cannot be read.
func Reload(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return LoadFrom(v)
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "pyc")
	}
	// Fall back to ~/.config/pyc
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pyc"
	}
	return filepath.Join(home, ".config", "pyc")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// StateDir returns the directory holding history and logs
func StateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "pyc")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pyc"
	}
	return filepath.Join(home, ".local", "state", "pyc")
}

// HistoryPath returns the default history log path
func HistoryPath() string {
	return filepath.Join(StateDir(), "history")
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
