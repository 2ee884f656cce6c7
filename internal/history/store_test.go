package history

import (
	"io/fs"
	"slices"
	"testing"

	"github.com/Iron-Ham/pyc/internal/errors"
)

func openMemory(t *testing.T, opts Options, lines ...string) (*Store, *MemoryLog) {
	t.Helper()
	log := NewMemoryLog(lines...)
	s, err := Open(log, opts)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return s, log
}

func texts(entries []*Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Text
	}
	return out
}

func TestStore_AppendAssignsSequentialIndices(t *testing.T) {
	s, log := openMemory(t, Options{})

	first, err := s.Append("ls -la")
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	second, err := s.Append("git status")
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if first.Index != 1 || second.Index != 2 {
		t.Errorf("indices = %d, %d; want 1, 2", first.Index, second.Index)
	}
	if !first.Durable || !second.Durable {
		t.Error("entries should be durable after a successful write")
	}
	if got := log.Lines(); !slices.Equal(got, []string{"ls -la", "git status"}) {
		t.Errorf("log lines = %v", got)
	}
}

func TestStore_AppendRejects(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		prior []string
		line  string
	}{
		{"empty", Options{}, nil, ""},
		{"whitespace only", Options{}, nil, "  \t "},
		{"duplicate of newest", Options{}, []string{"make"}, "make"},
		{"ignored pattern", Options{Ignore: []string{"ls*"}}, nil, "ls -la"},
		{"ignored space prefix", Options{Ignore: []string{" *"}}, nil, " secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, log := openMemory(t, tt.opts, tt.prior...)
			before := log.Appends()

			entry, err := s.Append(tt.line)
			if err != nil {
				t.Fatalf("Append() error = %v", err)
			}
			if entry != nil {
				t.Errorf("Append(%q) = %+v, want nil", tt.line, entry)
			}
			if s.Len() != len(tt.prior) {
				t.Errorf("Len() = %d, want %d", s.Len(), len(tt.prior))
			}
			if log.Appends() != before {
				t.Error("rejected line should not reach the log")
			}
		})
	}
}

func TestStore_DuplicateOnlyAgainstNewest(t *testing.T) {
	s, _ := openMemory(t, Options{}, "make", "make test")

	entry, err := s.Append("make")
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if entry == nil || entry.Index != 3 {
		t.Errorf("Append(make) = %+v, want index 3", entry)
	}
}

func TestStore_InvalidIgnorePattern(t *testing.T) {
	_, err := Open(NewMemoryLog(), Options{Ignore: []string{"[unclosed"}})
	if err == nil {
		t.Fatal("Open() with a bad pattern should fail")
	}
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("error %v should match ErrInvalidInput", err)
	}
}

func TestStore_LoadContinuesIndices(t *testing.T) {
	s, _ := openMemory(t, Options{}, "a", "b", "c")

	entry, err := s.Append("d")
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if entry.Index != 4 {
		t.Errorf("new index = %d, want 4", entry.Index)
	}
	for i, want := range []string{"a", "b", "c"} {
		e, err := s.Lookup(i + 1)
		if err != nil {
			t.Fatalf("Lookup(%d) error = %v", i+1, err)
		}
		if e.Text != want || !e.Durable {
			t.Errorf("Lookup(%d) = %+v, want durable %q", i+1, e, want)
		}
	}
}

func TestStore_MaxSizeTrimsOldest(t *testing.T) {
	s, _ := openMemory(t, Options{MaxSize: 2}, "a", "b", "c")

	if got := texts(s.Entries()); !slices.Equal(got, []string{"b", "c"}) {
		t.Errorf("entries after load = %v", got)
	}
	if _, err := s.Lookup(1); !errors.Is(err, errors.ErrHistoryIndexNotFound) {
		t.Errorf("trimmed index should not resolve, got %v", err)
	}

	entry, _ := s.Append("d")
	if entry.Index != 4 {
		t.Errorf("index after trim = %d, want 4", entry.Index)
	}
	if got := texts(s.Entries()); !slices.Equal(got, []string{"c", "d"}) {
		t.Errorf("entries after append = %v", got)
	}
}

func TestStore_Navigation(t *testing.T) {
	s, _ := openMemory(t, Options{}, "ls -la", "git status")

	steps := []struct {
		name   string
		move   func() (string, bool)
		want   string
		wantOK bool
	}{
		{"first up is newest", s.Previous, "git status", true},
		{"up again", s.Previous, "ls -la", true},
		{"up clamps at oldest", s.Previous, "", false},
		{"down", s.Next, "git status", true},
		{"down clamps at newest", s.Next, "", false},
	}

	for _, step := range steps {
		got, ok := step.move()
		if got != step.want || ok != step.wantOK {
			t.Errorf("%s: got (%q, %v), want (%q, %v)", step.name, got, ok, step.want, step.wantOK)
		}
	}

	idx, browsing := s.Browsing()
	if !browsing || idx != 2 {
		t.Errorf("Browsing() = (%d, %v), want (2, true)", idx, browsing)
	}

	s.ResetBrowsing()
	if _, browsing := s.Browsing(); browsing {
		t.Error("Browsing() should be false after ResetBrowsing")
	}
	if got, _ := s.Previous(); got != "git status" {
		t.Errorf("Previous() after reset = %q, want newest", got)
	}
}

func TestStore_NavigationEmpty(t *testing.T) {
	s, _ := openMemory(t, Options{})
	if _, ok := s.Previous(); ok {
		t.Error("Previous() on empty store should report false")
	}
	if _, ok := s.Next(); ok {
		t.Error("Next() on empty store should report false")
	}
}

func TestStore_NextWithoutBrowsing(t *testing.T) {
	s, _ := openMemory(t, Options{}, "a")
	if _, ok := s.Next(); ok {
		t.Error("Next() without browsing should report false")
	}
}

func TestStore_LookupNotFound(t *testing.T) {
	s, _ := openMemory(t, Options{}, "a", "b")

	_, err := s.Lookup(99)
	if err == nil {
		t.Fatal("Lookup(99) should fail")
	}
	if !errors.Is(err, errors.ErrHistoryIndexNotFound) {
		t.Errorf("error %v should match ErrHistoryIndexNotFound", err)
	}
	var nf *errors.NotFoundError
	if !errors.As(err, &nf) || nf.ResourceID != "99" {
		t.Errorf("error %v should be a NotFoundError for 99", err)
	}
}

func TestStore_PersistenceFailureKeepsEntry(t *testing.T) {
	s, log := openMemory(t, Options{})
	log.FailWrites(1, fs.ErrPermission)

	entry, err := s.Append("make build")
	if entry == nil {
		t.Fatal("entry should be recorded despite the write failure")
	}
	if entry.Durable {
		t.Error("entry should not be durable yet")
	}

	var perr *errors.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *PersistenceError", err)
	}
	if perr.Index != entry.Index {
		t.Errorf("PersistenceError.Index = %d, want %d", perr.Index, entry.Index)
	}
	if !errors.Is(err, errors.ErrPersistenceWrite) || !errors.Is(err, fs.ErrPermission) {
		t.Errorf("error %v should match ErrPersistenceWrite and the cause", err)
	}
	if !errors.IsRetryable(err) {
		t.Error("a single write failure should be retryable")
	}
	if s.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", s.Pending())
	}

	if _, err := s.Append("make test"); err != nil {
		t.Fatalf("second Append() error = %v", err)
	}
	if got := log.Lines(); !slices.Equal(got, []string{"make build", "make test"}) {
		t.Errorf("log lines = %v, want retried entry first", got)
	}
	if !entry.Durable {
		t.Error("retried entry should be durable")
	}
	if s.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", s.Pending())
	}
}

func TestStore_SyncRetriesPending(t *testing.T) {
	s, log := openMemory(t, Options{})
	log.FailWrites(1, fs.ErrPermission)

	entry, _ := s.Append("deploy")
	if err := s.Sync(); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if !entry.Durable {
		t.Error("Sync should make the pending entry durable")
	}
	if got := log.Lines(); !slices.Equal(got, []string{"deploy"}) {
		t.Errorf("log lines = %v", got)
	}
}

func TestStore_SyncFailureDoesNotDuplicate(t *testing.T) {
	s, log := openMemory(t, Options{})
	log.FailSyncs(1, fs.ErrClosed)

	first, err := s.Append("ls -la")
	if !errors.Is(err, errors.ErrPersistenceSync) {
		t.Fatalf("Append() error = %v, want ErrPersistenceSync", err)
	}
	if first.Durable {
		t.Error("entry should not be durable before its sync succeeds")
	}
	second, err := s.Append("git status")
	if err != nil {
		t.Fatalf("second Append() error = %v", err)
	}

	if got := log.Lines(); !slices.Equal(got, []string{"ls -la", "git status"}) {
		t.Errorf("log lines = %q, want each entry once", got)
	}
	if log.Appends() != 2 {
		t.Errorf("Append calls = %d, want 2", log.Appends())
	}
	if !first.Durable || s.Pending() != 0 {
		t.Errorf("first entry durable=%v, pending=%d; want durable and nothing pending", first.Durable, s.Pending())
	}

	reopened, err := Open(&MemoryLog{records: log.Records()}, Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	e, err := reopened.Lookup(second.Index)
	if err != nil || e.Text != "git status" {
		t.Errorf("Lookup(%d) after reload = %+v, %v; want git status", second.Index, e, err)
	}
}

func TestStore_AppendFlattensLineBreaks(t *testing.T) {
	s, log := openMemory(t, Options{})

	entry, err := s.Append("echo a\necho b")
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if entry.Text != "echo a echo b" {
		t.Errorf("entry text = %q, want line breaks flattened", entry.Text)
	}
	if got := log.Lines(); !slices.Equal(got, []string{entry.Text}) {
		t.Errorf("log lines = %q, want %q", got, entry.Text)
	}

	if dup, _ := s.Append("echo a echo b"); dup != nil {
		t.Error("flattened repeat of the newest entry should be suppressed")
	}
}

func TestStore_PersistenceDisabledAfterRepeatedFailures(t *testing.T) {
	s, log := openMemory(t, Options{})
	log.FailWrites(10, fs.ErrPermission)

	var last error
	for _, line := range []string{"a", "b", "c"} {
		_, last = s.Append(line)
	}

	if !s.PersistenceDisabled() {
		t.Fatal("persistence should be disabled after three failures")
	}
	if !errors.Is(last, errors.ErrPersistenceDisabled) {
		t.Errorf("third error = %v, want ErrPersistenceDisabled", last)
	}
	if errors.IsRetryable(last) {
		t.Error("disabling error should not be retryable")
	}

	calls := log.Appends()
	entry, err := s.Append("d")
	if err != nil {
		t.Errorf("Append after disabling error = %v, want nil", err)
	}
	if entry == nil || entry.Durable {
		t.Errorf("Append after disabling = %+v, want memory-only entry", entry)
	}
	if log.Appends() != calls {
		t.Error("disabled store should not touch the log")
	}
	if s.Len() != 4 {
		t.Errorf("Len() = %d, want 4", s.Len())
	}
}

func TestStore_SearchBackward(t *testing.T) {
	s, _ := openMemory(t, Options{}, "git commit", "ls", "git status", "make")

	tests := []struct {
		query  string
		before int
		want   int
	}{
		{"git", 0, 3},
		{"git", 3, 1},
		{"git", 1, 0},
		{"ls", 0, 2},
		{"nope", 0, 0},
		{"", 0, 0},
	}

	for _, tt := range tests {
		got := s.SearchBackward(tt.query, tt.before)
		gotIndex := 0
		if got != nil {
			gotIndex = got.Index
		}
		if gotIndex != tt.want {
			t.Errorf("SearchBackward(%q, %d) = %d, want %d", tt.query, tt.before, gotIndex, tt.want)
		}
	}
}

func TestStore_Clear(t *testing.T) {
	s, log := openMemory(t, Options{}, "a", "b")

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if s.Len() != 0 || s.Newest() != nil {
		t.Error("store should be empty after Clear")
	}
	if len(log.Lines()) != 0 {
		t.Errorf("log lines = %v, want none", log.Lines())
	}
	if got := log.Records(); !slices.Equal(got, []Record{{Index: 2}}) {
		t.Errorf("log records = %v, want a single index marker", got)
	}

	entry, _ := s.Append("c")
	if entry.Index != 3 {
		t.Errorf("index after Clear = %d, want 3", entry.Index)
	}
}

func TestStore_NilLog(t *testing.T) {
	s, err := Open(nil, Options{})
	if err != nil {
		t.Fatalf("Open(nil) error = %v", err)
	}
	entry, err := s.Append("echo hi")
	if err != nil || entry == nil || entry.Index != 1 {
		t.Errorf("Append() = %+v, %v", entry, err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestStore_CloseClosesLog(t *testing.T) {
	s, log := openMemory(t, Options{})
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !log.Closed() {
		t.Error("log should be closed")
	}
}
