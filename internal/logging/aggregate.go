package logging

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

// LogEntry is one parsed line of the JSON log.
type LogEntry struct {
	Timestamp time.Time      `json:"time"`
	Level     string         `json:"level"`
	Message   string         `json:"msg"`
	SessionID string         `json:"session_id,omitempty"`
	Component string         `json:"component,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// LogFilter selects log entries. Zero-valued fields do not filter.
type LogFilter struct {
	// Level keeps entries at or above this level (DEBUG < INFO < WARN < ERROR).
	Level     string
	SessionID string
	Component string
	Since     time.Time
	// MessageContains keeps entries whose message contains this substring.
	MessageContains string
}

var levelOrder = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ReadLogs parses the log at path together with its rotated backups
// ({path}.N down to {path}.1, plain or gzipped). Entries come back sorted by
// timestamp. Lines that are not valid JSON are skipped. A missing log is not
// an error.
func ReadLogs(path string, maxBackups int) ([]LogEntry, error) {
	var entries []LogEntry

	for i := maxBackups; i >= 1; i-- {
		backup := fmt.Sprintf("%s.%d", path, i)
		got, err := readLogFile(backup+".gz", true)
		if os.IsNotExist(err) {
			got, err = readLogFile(backup, false)
		}
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		entries = append(entries, got...)
	}

	got, err := readLogFile(path, false)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	entries = append(entries, got...)

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

func readLogFile(path string, gzipped bool) ([]LogEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	var r io.Reader = file
	if gzipped {
		zr, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open compressed log %s: %w", path, err)
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}

	const maxLine = 1024 * 1024
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	var entries []LogEntry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := parseLogEntry(line)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading log file %s: %w", path, err)
	}
	return entries, nil
}

// parseLogEntry splits a JSON line into the well-known fields and Attrs.
func parseLogEntry(line string) (LogEntry, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return LogEntry{}, err
	}

	var entry LogEntry
	if ts, ok := raw["time"].(string); ok {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return LogEntry{}, fmt.Errorf("invalid timestamp %q: %w", ts, err)
		}
		entry.Timestamp = t
	}
	entry.Level, _ = raw["level"].(string)
	entry.Message, _ = raw["msg"].(string)
	entry.SessionID, _ = raw["session_id"].(string)
	entry.Component, _ = raw["component"].(string)

	for _, key := range []string{"time", "level", "msg", "session_id", "component"} {
		delete(raw, key)
	}
	if len(raw) > 0 {
		entry.Attrs = raw
	}
	return entry, nil
}

// FilterLogs returns the entries matching every set field of filter.
func FilterLogs(entries []LogEntry, filter LogFilter) []LogEntry {
	var out []LogEntry
	for _, e := range entries {
		if matchesFilter(e, filter) {
			out = append(out, e)
		}
	}
	return out
}

func matchesFilter(e LogEntry, f LogFilter) bool {
	if f.Level != "" {
		threshold, ok := levelOrder[strings.ToUpper(f.Level)]
		if ok && levelOrder[strings.ToUpper(e.Level)] < threshold {
			return false
		}
	}
	if f.SessionID != "" && e.SessionID != f.SessionID {
		return false
	}
	if f.Component != "" && e.Component != f.Component {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if f.MessageContains != "" && !strings.Contains(e.Message, f.MessageContains) {
		return false
	}
	return true
}

// FormatText writes entries as human-readable lines:
//
//	2006-01-02 15:04:05.000 WARN  [history] message key=value
func FormatText(w io.Writer, entries []LogEntry) error {
	for _, e := range entries {
		var b strings.Builder
		b.WriteString(e.Timestamp.Local().Format("2006-01-02 15:04:05.000"))
		fmt.Fprintf(&b, " %-5s", e.Level)
		if e.Component != "" {
			fmt.Fprintf(&b, " [%s]", e.Component)
		}
		b.WriteString(" ")
		b.WriteString(e.Message)

		keys := make([]string, 0, len(e.Attrs))
		for k := range e.Attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, e.Attrs[k])
		}
		b.WriteString("\n")

		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}
