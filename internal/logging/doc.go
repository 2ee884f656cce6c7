// Package logging provides structured logging for pyc.
//
// This package wraps Go's log/slog to write JSON lines to a file in the
// state directory. The shell owns the terminal while it runs, so nothing is
// ever logged to stdout or stderr; when logging is disabled a [NopLogger]
// takes its place.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger(stateDir, "INFO", logging.DefaultRotationConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.Info("history loaded", "entries", 120)
//
// # Context Propagation
//
// Child loggers carry persistent attributes:
//
//	sessionLogger := logger.WithSession(logging.NewSessionID())
//	historyLogger := sessionLogger.WithComponent("history")
//	historyLogger.Warn("write failed", "index", 42)
//
// Output:
//
//	{"time":"...","level":"WARN","msg":"write failed","session_id":"...","component":"history","index":42}
//
// # Log Rotation
//
// The file is rotated by size through a [RotatingWriter]. Rotated files are
// named pyc.log.1, pyc.log.2 and so on, where .1 is the most recent backup,
// with a .gz suffix when compression is enabled.
//
// # Reading Logs
//
// [ReadLogs] parses the active file and its backups back into [LogEntry]
// values, [FilterLogs] narrows them down and [FormatText] prints them. The
// "pyc logs" command is built on these.
package logging
