package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "history.max_size")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

const (
	maxEscapeTimeoutMs = 1000
	maxPathLength      = 4096
	maxLogSizeMB       = 1000 // 1GB
)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var v validation
	c.validateHistory(&v)
	c.validateInput(&v)
	c.validatePrompt(&v)
	c.validateAliases(&v)
	c.validateLogging(&v)
	return v.errs
}

// validation accumulates failures so every problem is reported at once.
type validation struct {
	errs []ValidationError
}

func (v *validation) fail(field string, value any, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf(format, args...),
	})
}

func (c *Config) validateHistory(v *validation) {
	h := c.History
	if h.MaxSize < 0 {
		v.fail("history.max_size", h.MaxSize, "must be non-negative (0 means unbounded)")
	}

	if h.File != "" {
		if strings.ContainsRune(h.File, '\x00') {
			v.fail("history.file", h.File, "path contains invalid null character")
		}
		if len(h.File) > maxPathLength {
			v.fail("history.file", h.File, "path exceeds maximum length of %d characters", maxPathLength)
		}
	}

	for i, pattern := range h.Ignore {
		field := fmt.Sprintf("history.ignore[%d]", i)
		if strings.TrimSpace(pattern) == "" {
			v.fail(field, pattern, "pattern cannot be empty")
			continue
		}
		if _, err := glob.Compile(pattern); err != nil {
			v.fail(field, pattern, "invalid glob pattern: %v", err)
		}
	}
}

func (c *Config) validateInput(v *validation) {
	if ms := c.Input.EscapeTimeoutMs; ms <= 0 || ms > maxEscapeTimeoutMs {
		v.fail("input.escape_timeout_ms", ms, "must be between 1 and %d", maxEscapeTimeoutMs)
	}
}

func (c *Config) validatePrompt(v *validation) {
	p := c.Prompt
	if p.MinDurationMs < 0 {
		v.fail("prompt.min_duration_ms", p.MinDurationMs, "must be non-negative")
	}
	if strings.Count(p.Line, "${") > strings.Count(p.Line, "}") {
		v.fail("prompt.line", p.Line, "contains an unterminated ${ key")
	}
}

// validateAliases checks aliases in name order so errors are reported
// deterministically.
func (c *Config) validateAliases(v *validation) {
	names := make([]string, 0, len(c.Aliases))
	for name := range c.Aliases {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if name == "" || strings.ContainsAny(name, " \t") {
			v.fail("aliases", name, "alias name must be a single word")
			continue
		}
		if strings.TrimSpace(c.Aliases[name]) == "" {
			v.fail("aliases."+name, c.Aliases[name], "alias replacement cannot be empty")
		}
	}
}

func (c *Config) validateLogging(v *validation) {
	l := c.Logging
	if l.Level != "" && !slices.Contains(ValidLogLevels(), l.Level) {
		v.fail("logging.level", l.Level, "must be one of: %s", strings.Join(ValidLogLevels(), ", "))
	}

	switch {
	case l.MaxSizeMB <= 0:
		v.fail("logging.max_size_mb", l.MaxSizeMB, "must be positive")
	case l.MaxSizeMB > maxLogSizeMB:
		v.fail("logging.max_size_mb", l.MaxSizeMB, "exceeds maximum of %dMB", maxLogSizeMB)
	}

	if l.MaxBackups < 0 {
		v.fail("logging.max_backups", l.MaxBackups, "must be non-negative")
	}
}
