package history

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/Iron-Ham/pyc/internal/errors"
)

// Record is one line of the durable log. A record with empty Text is an index
// marker: it carries no entry but keeps numbering from going backwards after
// the log was cleared.
type Record struct {
	Index int
	Text  string
}

// Log is the durable, append-only storage behind a Store.
//
// Implementations must preserve order: ReadAll returns records in the order
// they were appended. Append may buffer; a record is durable only once Flush
// returns nil. When Flush wrote the buffered records but could not sync them,
// it returns an error matching errors.ErrPersistenceSync and the records must
// not be appended again: a later Flush retries the sync alone.
type Log interface {
	ReadAll() ([]Record, error)
	Append(rec Record) error
	Flush() error
	// Rewrite atomically replaces the whole log with records.
	Rewrite(records []Record) error
	Close() error
}

// pathLog is implemented by logs backed by a file so errors can name it.
type pathLog interface {
	Path() string
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// singleLine flattens line breaks to spaces so an entry fits on one log line.
func singleLine(s string) string {
	return lineBreaks.Replace(s)
}

// FileLog stores one history entry per line in a plain text file, as
// "<index>\t<text>". Lines without an index prefix are numbered after the
// line before them, so a hand-written list of commands is a valid log.
type FileLog struct {
	path string
	file *os.File
	w    *bufio.Writer
	// torn is set when a flush failed part way; the next record starts on a
	// fresh line so it cannot merge with a fragment already in the file.
	torn bool
}

// OpenFileLog opens (creating if needed) the history file at path. The parent
// directory is created with mode 0700 and the file with 0600, since shell
// history routinely contains secrets.
func OpenFileLog(path string) (*FileLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}
	return &FileLog{path: path, file: f, w: bufio.NewWriter(f)}, nil
}

// Path returns the file backing the log.
func (l *FileLog) Path() string {
	return l.path
}

// ReadAll returns every record in the file, skipping blank lines.
func (l *FileLog) ReadAll() ([]Record, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var records []Record
	prev := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec := parseRecord(line, prev)
		records = append(records, rec)
		prev = rec.Index
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan history file: %w", err)
	}
	return records, nil
}

func parseRecord(line string, prev int) Record {
	if i := strings.IndexByte(line, '\t'); i > 0 {
		if n, err := strconv.Atoi(line[:i]); err == nil && n > 0 {
			return Record{Index: n, Text: line[i+1:]}
		}
	}
	return Record{Index: prev + 1, Text: line}
}

func writeRecord(w *bufio.Writer, rec Record) error {
	_, err := fmt.Fprintf(w, "%d\t%s\n", rec.Index, singleLine(rec.Text))
	return err
}

// Append buffers a record for writing.
func (l *FileLog) Append(rec Record) error {
	if l.torn {
		if err := l.w.WriteByte('\n'); err != nil {
			l.w.Reset(l.file)
			return err
		}
		l.torn = false
	}
	if err := writeRecord(l.w, rec); err != nil {
		l.w.Reset(l.file)
		return err
	}
	return nil
}

// Flush writes buffered records and syncs the file to stable storage. If the
// write fails the buffer is discarded and the caller owns retrying those
// records. If only the sync fails the records are already in the file.
func (l *FileLog) Flush() error {
	if err := l.w.Flush(); err != nil {
		l.w.Reset(l.file)
		l.torn = true
		return err
	}
	if err := l.file.Sync(); err != nil {
		return errors.Join(errors.ErrPersistenceSync, err)
	}
	return nil
}

// Rewrite replaces the file through a synced temporary file and a rename, so
// a crash leaves either the old or the new contents. Unflushed records are
// discarded.
func (l *FileLog) Rewrite(records []Record) error {
	l.w.Reset(l.file)

	tmp, err := os.CreateTemp(filepath.Dir(l.path), filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("rewrite history file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if err := writeRecord(w, rec); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("rewrite history file: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("rewrite history file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("rewrite history file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("rewrite history file: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("replace history file: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("reopen history file: %w", err)
	}
	_ = l.file.Close()
	l.file = f
	l.w.Reset(f)
	l.torn = false
	return nil
}

// Close flushes and closes the file.
func (l *FileLog) Close() error {
	flushErr := l.Flush()
	closeErr := l.file.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// MemoryLog is an in-memory Log. It is used by tests and by sessions that
// run without a history file. Failures can be injected with FailWrites and
// FailSyncs.
type MemoryLog struct {
	mu           sync.Mutex
	records      []Record
	buffered     []Record
	failures     int
	failErr      error
	syncFailures int
	syncErr      error
	appends      int
	closed       bool
}

// NewMemoryLog creates a log holding lines as records 1..len(lines).
func NewMemoryLog(lines ...string) *MemoryLog {
	l := &MemoryLog{}
	for i, line := range lines {
		l.records = append(l.records, Record{Index: i + 1, Text: line})
	}
	return l
}

// FailWrites makes the next n calls to Append fail with err.
func (l *MemoryLog) FailWrites(n int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures = n
	l.failErr = err
}

// FailSyncs makes the next n calls to Flush write the buffered records and
// then fail as an unsynced flush with err.
func (l *MemoryLog) FailSyncs(n int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.syncFailures = n
	l.syncErr = err
}

// Lines returns the text of every written entry, leaving out index markers.
func (l *MemoryLog) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var lines []string
	for _, rec := range l.records {
		if rec.Text != "" {
			lines = append(lines, rec.Text)
		}
	}
	return lines
}

// Records returns every written record, including index markers.
func (l *MemoryLog) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Record(nil), l.records...)
}

// Appends returns how many Append calls were made, including failed ones.
func (l *MemoryLog) Appends() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appends
}

// Closed reports whether Close was called.
func (l *MemoryLog) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// ReadAll implements Log.
func (l *MemoryLog) ReadAll() ([]Record, error) {
	return l.Records(), nil
}

// Append implements Log.
func (l *MemoryLog) Append(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appends++
	if l.failures > 0 {
		l.failures--
		return l.failErr
	}
	rec.Text = singleLine(rec.Text)
	l.buffered = append(l.buffered, rec)
	return nil
}

// Flush implements Log.
func (l *MemoryLog) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, l.buffered...)
	l.buffered = l.buffered[:0]
	if l.syncFailures > 0 {
		l.syncFailures--
		return errors.Join(errors.ErrPersistenceSync, l.syncErr)
	}
	return nil
}

// Rewrite implements Log.
func (l *MemoryLog) Rewrite(records []Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append([]Record(nil), records...)
	l.buffered = nil
	return nil
}

// Close implements Log.
func (l *MemoryLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}
