package history

import (
	"strconv"
	"strings"

	"github.com/gobwas/glob"

	"github.com/Iron-Ham/pyc/internal/errors"
)

// maxConsecutiveFailures is how many writes in a row may fail before the
// store stops trying to persist for the rest of the session.
const maxConsecutiveFailures = 3

// Entry is one submitted command line.
type Entry struct {
	// Index is the sequential, 1-based number used by !{index} recall.
	// Indices are never reused, even after trimming or Clear.
	Index int
	Text  string
	// Durable is true once the entry has been flushed to the log.
	Durable bool

	// written is set once the log holds the entry's record, even if the
	// sync that would make it durable failed.
	written bool
}

// Options configures a Store.
type Options struct {
	// MaxSize bounds the number of entries kept in memory. Zero means
	// unbounded. A log holding more than twice this many records is
	// compacted on Open.
	MaxSize int
	// Ignore lists glob patterns; lines matching any of them are not recorded.
	Ignore []string
}

// Store is the ordered list of submitted lines plus the browsing cursor used
// by up/down navigation. It is not safe for concurrent use.
type Store struct {
	log     Log
	opts    Options
	ignore  []glob.Glob
	entries []*Entry
	next    int

	// browse is a position in entries, or -1 when not browsing.
	browse int

	pending  []*Entry
	failures int
	disabled bool
}

// Open loads prior entries from log and returns a ready store. Entries keep
// the indices stored with them and numbering continues after the highest
// index in the log, so indices are never reused across sessions. A record
// repeating the previous index replaces that entry. A nil log keeps history
// in memory only.
func Open(log Log, opts Options) (*Store, error) {
	s := &Store{
		log:    log,
		opts:   opts,
		next:   1,
		browse: -1,
	}

	for _, pattern := range opts.Ignore {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, errors.NewValidationError("invalid history ignore pattern").
				WithField("history.ignore").
				WithValue(pattern).
				WithCause(err)
		}
		s.ignore = append(s.ignore, g)
	}

	if log == nil {
		return s, nil
	}

	records, err := log.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "load history")
	}
	last := 0
	for _, rec := range records {
		switch {
		case rec.Index > last:
			last = rec.Index
			if rec.Text != "" {
				s.entries = append(s.entries, &Entry{Index: rec.Index, Text: rec.Text, Durable: true, written: true})
			}
		case rec.Index == last && rec.Text != "":
			if n := len(s.entries); n > 0 && s.entries[n-1].Index == last {
				s.entries[n-1].Text = rec.Text
			}
		}
	}
	s.next = last + 1
	s.trim()

	if s.opts.MaxSize > 0 && len(records) > 2*s.opts.MaxSize {
		// A failed compaction leaves the old log, which still loads correctly.
		_ = s.rewriteLog()
	}
	return s, nil
}

// rewriteLog replaces the log with the entries in memory. A trailing index
// marker records the last index handed out when no entry carries it.
func (s *Store) rewriteLog() error {
	records := make([]Record, 0, len(s.entries)+1)
	for _, e := range s.entries {
		records = append(records, Record{Index: e.Index, Text: e.Text})
	}
	if n := len(s.entries); s.next > 1 && (n == 0 || s.entries[n-1].Index != s.next-1) {
		records = append(records, Record{Index: s.next - 1})
	}
	return s.log.Rewrite(records)
}

// Append records line as the newest entry.
//
// Line breaks in line become spaces, so an entry reads the same after a
// restart. Empty or whitespace-only lines, an exact repeat of the newest
// entry and lines matching an ignore pattern are skipped: Append returns
// nil, nil.
//
// The entry is written to the log before it is added to memory. If the write
// fails the entry is still recorded, marked non-durable and queued for retry,
// and a *errors.PersistenceError is returned as a warning alongside it.
func (s *Store) Append(line string) (*Entry, error) {
	line = singleLine(line)
	if !s.accepts(line) {
		return nil, nil
	}

	entry := &Entry{Index: s.next, Text: line}
	s.next++
	err := s.persist(entry)

	s.entries = append(s.entries, entry)
	s.trim()
	s.ResetBrowsing()
	return entry, err
}

func (s *Store) accepts(line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	if n := len(s.entries); n > 0 && s.entries[n-1].Text == line {
		return false
	}
	for _, g := range s.ignore {
		if g.Match(line) {
			return false
		}
	}
	return true
}

func (s *Store) persist(entry *Entry) error {
	if s.log == nil || s.disabled {
		return nil
	}
	if err := s.retryPending(); err != nil {
		s.pending = append(s.pending, entry)
		return s.writeFailed(entry, err)
	}
	if err := s.write(entry); err != nil {
		s.pending = append(s.pending, entry)
		return s.writeFailed(entry, err)
	}
	s.failures = 0
	return nil
}

// write appends entry's record and flushes it. An entry whose record already
// reached the log only has its flush retried, so a failed sync never writes
// the record twice.
func (s *Store) write(entry *Entry) error {
	if !entry.written {
		if err := s.log.Append(Record{Index: entry.Index, Text: entry.Text}); err != nil {
			return err
		}
		entry.written = true
	}
	if err := s.log.Flush(); err != nil {
		if !errors.Is(err, errors.ErrPersistenceSync) {
			entry.written = false
		}
		return err
	}
	entry.Durable = true
	return nil
}

// retryPending writes queued entries in order, stopping at the first failure.
func (s *Store) retryPending() error {
	for len(s.pending) > 0 {
		if err := s.write(s.pending[0]); err != nil {
			return err
		}
		s.pending = s.pending[1:]
	}
	return nil
}

func (s *Store) writeFailed(entry *Entry, cause error) error {
	s.failures++
	if s.failures >= maxConsecutiveFailures {
		s.disabled = true
		s.pending = nil
		return errors.NewPersistenceError("history persistence disabled after repeated failures",
			errors.Join(errors.ErrPersistenceDisabled, cause)).
			WithPath(s.logPath()).
			WithIndex(entry.Index).
			WithRetryable(false)
	}
	return errors.NewPersistenceError("entry kept in memory only", cause).
		WithPath(s.logPath()).
		WithIndex(entry.Index)
}

func (s *Store) logPath() string {
	if p, ok := s.log.(pathLog); ok {
		return p.Path()
	}
	return ""
}

// Sync retries any entries whose earlier write failed.
func (s *Store) Sync() error {
	if s.log == nil || s.disabled || len(s.pending) == 0 {
		return nil
	}
	head := s.pending[0]
	if err := s.retryPending(); err != nil {
		return s.writeFailed(head, err)
	}
	s.failures = 0
	return nil
}

// Close retries pending writes and closes the log.
func (s *Store) Close() error {
	if s.log == nil {
		return nil
	}
	syncErr := s.Sync()
	if err := s.log.Close(); err != nil {
		return errors.Wrap(err, "close history log")
	}
	return syncErr
}

// PersistenceDisabled reports whether repeated write failures switched the
// store to memory-only operation.
func (s *Store) PersistenceDisabled() bool {
	return s.disabled
}

// Pending returns how many entries are waiting to be written.
func (s *Store) Pending() int {
	return len(s.pending)
}

func (s *Store) trim() {
	if s.opts.MaxSize <= 0 || len(s.entries) <= s.opts.MaxSize {
		return
	}
	excess := len(s.entries) - s.opts.MaxSize
	s.entries = append([]*Entry(nil), s.entries[excess:]...)
	if s.browse >= 0 {
		s.browse -= excess
		if s.browse < 0 {
			s.browse = -1
		}
	}
}

// Previous moves the browsing cursor one entry older and returns its text.
// The first call starts from the newest entry. At the oldest entry the cursor
// stays put and ok is false.
func (s *Store) Previous() (string, bool) {
	if len(s.entries) == 0 {
		return "", false
	}
	switch {
	case s.browse < 0:
		s.browse = len(s.entries) - 1
	case s.browse == 0:
		return "", false
	default:
		s.browse--
	}
	return s.entries[s.browse].Text, true
}

// Next moves the browsing cursor one entry newer and returns its text. At the
// newest entry, or when not browsing, ok is false.
func (s *Store) Next() (string, bool) {
	if s.browse < 0 || s.browse >= len(s.entries)-1 {
		return "", false
	}
	s.browse++
	return s.entries[s.browse].Text, true
}

// ResetBrowsing makes the next Previous start from the newest entry again.
func (s *Store) ResetBrowsing() {
	s.browse = -1
}

// Browsing returns the index of the entry under the browsing cursor.
func (s *Store) Browsing() (int, bool) {
	if s.browse < 0 {
		return 0, false
	}
	return s.entries[s.browse].Index, true
}

// Lookup returns the entry with the given sequential index.
func (s *Store) Lookup(index int) (*Entry, error) {
	// Entries are sorted by index, usually without gaps.
	if n := len(s.entries); n > 0 {
		pos := index - s.entries[0].Index
		if pos >= 0 && pos < n && s.entries[pos].Index == index {
			return s.entries[pos], nil
		}
		for _, e := range s.entries {
			if e.Index == index {
				return e, nil
			}
		}
	}
	return nil, errors.NewNotFoundError("history entry", strconv.Itoa(index)).
		WithCause(errors.ErrHistoryIndexNotFound)
}

// SearchBackward returns the newest entry whose text contains query and whose
// index is below before. A before of zero or less searches every entry. An
// empty query matches nothing.
func (s *Store) SearchBackward(query string, before int) *Entry {
	if query == "" {
		return nil
	}
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if before > 0 && e.Index >= before {
			continue
		}
		if strings.Contains(e.Text, query) {
			return e
		}
	}
	return nil
}

// Entries returns the entries from oldest to newest. The slice is a copy;
// the entries themselves must not be modified.
func (s *Store) Entries() []*Entry {
	return append([]*Entry(nil), s.entries...)
}

// Len returns the number of entries in memory.
func (s *Store) Len() int {
	return len(s.entries)
}

// Newest returns the most recent entry, or nil if the store is empty.
func (s *Store) Newest() *Entry {
	if len(s.entries) == 0 {
		return nil
	}
	return s.entries[len(s.entries)-1]
}

// Clear removes every entry from memory and the log. The log keeps an index
// marker, so numbering continues after the cleared entries in this and later
// sessions and an old !{index} never resolves to a new entry.
func (s *Store) Clear() error {
	s.entries = nil
	s.pending = nil
	s.ResetBrowsing()
	if s.log == nil || s.disabled {
		return nil
	}
	if err := s.rewriteLog(); err != nil {
		return errors.NewPersistenceError("clear history", err).WithPath(s.logPath())
	}
	return nil
}
