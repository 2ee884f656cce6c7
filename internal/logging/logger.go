package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Log levels accepted in the configuration file.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// FileName is the name of the log file inside the state directory.
const FileName = "pyc.log"

var slogLevels = map[string]slog.Level{
	LevelDebug: slog.LevelDebug,
	LevelInfo:  slog.LevelInfo,
	LevelWarn:  slog.LevelWarn,
	LevelError: slog.LevelError,
}

// Logger writes structured JSON lines. Child loggers created with With,
// WithSession or WithComponent share the parent's output. It is safe for
// concurrent use.
type Logger struct {
	sl  *slog.Logger
	out *sink
}

// sink is the file shared by a logger and its children.
type sink struct {
	mu sync.Mutex
	w  io.WriteCloser
}

func (s *sink) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return nil
	}
	err := s.w.Close()
	s.w = nil
	return err
}

// NewLogger opens {dir}/pyc.log through a RotatingWriter and logs entries at
// level or above (DEBUG < INFO < WARN < ERROR; unknown levels mean INFO).
// An empty dir yields a logger that discards everything.
func NewLogger(dir string, level string, rotation RotationConfig) (*Logger, error) {
	if dir == "" {
		return NopLogger(), nil
	}

	w, err := NewRotatingWriter(filepath.Join(dir, FileName), rotation)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	return &Logger{
		sl:  slog.New(newHandler(w, level)),
		out: &sink{w: w},
	}, nil
}

// NewLoggerTo creates a Logger writing JSON lines to w. Closing it does not
// close w.
func NewLoggerTo(w io.Writer, level string) *Logger {
	return &Logger{sl: slog.New(newHandler(w, level))}
}

// NopLogger returns a Logger that discards all output.
func NopLogger() *Logger {
	return &Logger{sl: slog.New(slog.NewJSONHandler(io.Discard, nil))}
}

func newHandler(w io.Writer, level string) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slogLevels[ParseLevel(level)]})
}

// NewSessionID returns a fresh identifier for one interactive shell session.
func NewSessionID() string {
	return uuid.NewString()
}

// With returns a child Logger that adds the given key-value pairs to every
// entry.
func (l *Logger) With(args ...any) *Logger {
	if len(args) == 0 {
		return l
	}
	return &Logger{sl: l.sl.With(args...), out: l.out}
}

// WithSession tags entries with session_id.
func (l *Logger) WithSession(sessionID string) *Logger {
	return l.With("session_id", sessionID)
}

// WithComponent tags entries with a short component name such as "history",
// "input" or "shell".
func (l *Logger) WithComponent(component string) *Logger {
	return l.With("component", component)
}

// Debug logs msg at DEBUG with optional key-value pairs.
func (l *Logger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, msg, args)
}

// Info logs msg at INFO with optional key-value pairs.
func (l *Logger) Info(msg string, args ...any) {
	l.log(slog.LevelInfo, msg, args)
}

// Warn logs msg at WARN with optional key-value pairs.
func (l *Logger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, msg, args)
}

// Error logs msg at ERROR with optional key-value pairs.
func (l *Logger) Error(msg string, args ...any) {
	l.log(slog.LevelError, msg, args)
}

func (l *Logger) log(level slog.Level, msg string, args []any) {
	if l.out != nil {
		l.out.mu.Lock()
		defer l.out.mu.Unlock()
		if l.out.w == nil {
			return
		}
	}
	l.sl.Log(context.Background(), level, msg, args...)
}

// Close closes the log file. Children share the file, so closing any of them
// closes it for all. Closing twice is a no-op.
func (l *Logger) Close() error {
	if l.out == nil {
		return nil
	}
	return l.out.close()
}

// ParseLevel normalizes a level name, returning LevelInfo for anything it
// does not recognize.
func ParseLevel(level string) string {
	upper := strings.ToUpper(level)
	if _, ok := slogLevels[upper]; ok {
		return upper
	}
	return LevelInfo
}
