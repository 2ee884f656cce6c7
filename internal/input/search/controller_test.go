package search

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/Iron-Ham/pyc/internal/history"
	"github.com/Iron-Ham/pyc/internal/input/line"
)

func newStore(t *testing.T, lines ...string) *history.Store {
	t.Helper()
	s, err := history.Open(history.NewMemoryLog(lines...), history.Options{})
	if err != nil {
		t.Fatalf("history.Open() error = %v", err)
	}
	return s
}

func typeString(c *Controller, s string) {
	for _, r := range s {
		c.Type(r)
	}
}

func matchIndex(c *Controller) int {
	if m := c.Match(); m != nil {
		return m.Index
	}
	return 0
}

func TestController_TypeFindsNewestMatch(t *testing.T) {
	store := newStore(t, "ls -la", "git status", "ls -la")
	c := Begin(line.Snapshot{Text: "git status", Cursor: 10}, store)

	typeString(c, "git")
	if matchIndex(c) != 2 {
		t.Errorf("match = %d, want 2", matchIndex(c))
	}
	if c.Failing() {
		t.Error("search should not be failing")
	}
	if got := c.Accept(); got != "git status" {
		t.Errorf("Accept() = %q, want %q", got, "git status")
	}
}

func TestController_NewestMatchPerKeystroke(t *testing.T) {
	store := newStore(t, "make build", "make test", "git log", "make")
	c := Begin(line.Snapshot{}, store)

	steps := []struct {
		r    rune
		want int
	}{
		{'m', 4},
		{'a', 4},
		{'k', 4},
		{'e', 4},
		{' ', 2},
		{'b', 1},
	}
	for _, step := range steps {
		c.Type(step.r)
		if got := matchIndex(c); got != step.want {
			t.Errorf("after %q: match = %d, want %d", c.Query(), got, step.want)
		}
	}
}

func TestController_StickyOnNoMatch(t *testing.T) {
	store := newStore(t, "git status")
	c := Begin(line.Snapshot{Text: "foo", Cursor: 3}, store)

	typeString(c, "git")
	typeString(c, "x")

	if !c.Failing() {
		t.Error("search should be failing")
	}
	if matchIndex(c) != 1 {
		t.Errorf("match = %d, want sticky 1", matchIndex(c))
	}
	if c.Query() != "gitx" {
		t.Errorf("Query() = %q, want gitx", c.Query())
	}
	if got := c.Text(); got != "git status" {
		t.Errorf("Text() = %q, want the sticky match", got)
	}
}

func TestController_AbortRestoresSnapshot(t *testing.T) {
	store := newStore(t, "ls", "git status")
	snap := line.Snapshot{Text: "foo", Cursor: 3}
	c := Begin(snap, store)

	typeString(c, "xyz")
	if !c.Failing() {
		t.Error("search for xyz should be failing")
	}
	if got := c.Abort(); got != snap {
		t.Errorf("Abort() = %+v, want %+v", got, snap)
	}
}

func TestController_AcceptWithoutMatch(t *testing.T) {
	store := newStore(t, "ls")

	t.Run("live query", func(t *testing.T) {
		c := Begin(line.Snapshot{Text: "draft", Cursor: 2}, store)
		typeString(c, "xyz")
		if got := c.Accept(); got != "xyz" {
			t.Errorf("Accept() = %q, want xyz", got)
		}
	})

	t.Run("empty query keeps line", func(t *testing.T) {
		c := Begin(line.Snapshot{Text: "draft", Cursor: 2}, store)
		if got := c.Accept(); got != "draft" {
			t.Errorf("Accept() = %q, want draft", got)
		}
	})
}

func TestController_RepeatMovesOlderAndClamps(t *testing.T) {
	store := newStore(t, "git clone", "ls", "git status", "git log")
	c := Begin(line.Snapshot{}, store)
	typeString(c, "git")

	want := []int{4, 3, 1}
	for i, w := range want {
		if i > 0 {
			c.Repeat()
		}
		if got := matchIndex(c); got != w {
			t.Errorf("step %d: match = %d, want %d", i, got, w)
		}
		if c.Failing() {
			t.Errorf("step %d: should not be failing", i)
		}
	}

	c.Repeat()
	if matchIndex(c) != 1 {
		t.Errorf("repeat past oldest: match = %d, want 1", matchIndex(c))
	}
	if !c.Failing() {
		t.Error("repeat past oldest should mark the search failing")
	}
}

func TestController_TypeAfterRepeatRestartsFromNewest(t *testing.T) {
	store := newStore(t, "git status", "git stash")
	c := Begin(line.Snapshot{}, store)
	typeString(c, "git")
	c.Repeat()
	if matchIndex(c) != 1 {
		t.Fatalf("match = %d, want 1", matchIndex(c))
	}

	c.Type(' ')
	if matchIndex(c) != 2 {
		t.Errorf("match after typing = %d, want 2", matchIndex(c))
	}
}

func TestController_Backspace(t *testing.T) {
	store := newStore(t, "make test", "make")
	c := Begin(line.Snapshot{Text: "x", Cursor: 1}, store)

	if c.Backspace() {
		t.Error("Backspace on empty query should report false")
	}

	typeString(c, "make t")
	if matchIndex(c) != 1 {
		t.Fatalf("match = %d, want 1", matchIndex(c))
	}
	c.Backspace()
	c.Backspace()
	if c.Query() != "make" || matchIndex(c) != 2 {
		t.Errorf("after backspace: query %q match %d, want make/2", c.Query(), matchIndex(c))
	}

	for c.Backspace() {
	}
	if c.Match() != nil || c.Failing() {
		t.Error("empty query should clear the match")
	}
	if got := c.Text(); got != "x" {
		t.Errorf("Text() = %q, want the pre-search line", got)
	}
}

func TestController_RepeatWithEmptyQuery(t *testing.T) {
	store := newStore(t, "ls")
	c := Begin(line.Snapshot{}, store)
	c.Repeat()
	if c.Match() != nil || c.Failing() {
		t.Error("Repeat with an empty query should do nothing")
	}
}

func randomWord(rng *rand.Rand, alphabet string, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(b)
}

// matchingIndices lists the 1-based indices of lines containing query,
// newest first.
func matchingIndices(lines []string, query string) []int {
	var out []int
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.Contains(lines[i], query) {
			out = append(out, i+1)
		}
	}
	return out
}

func TestController_RandomHistoryMatchesNewest(t *testing.T) {
	const alphabet = "abc -"

	for _, seed := range []int64{1, 7, 99, 2024, 31337} {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			lines := make([]string, 1+rng.Intn(25))
			for i := range lines {
				lines[i] = randomWord(rng, "abc", 1) + randomWord(rng, alphabet, rng.Intn(8))
			}
			store := newStore(t, lines...)

			for q := 0; q < 60; q++ {
				query := randomWord(rng, alphabet, 1+rng.Intn(3))
				c := Begin(line.Snapshot{}, store)

				for k := range query {
					c.Type(rune(query[k]))
					want := matchingIndices(lines, query[:k+1])
					if len(want) == 0 {
						if !c.Failing() {
							t.Fatalf("query %q over %q: no entry matches but search is not failing", query[:k+1], lines)
						}
						continue
					}
					if got := matchIndex(c); got != want[0] {
						t.Fatalf("query %q over %q: match = %d, want newest %d", query[:k+1], lines, got, want[0])
					}
				}

				all := matchingIndices(lines, query)
				if len(all) == 0 || c.Failing() {
					continue
				}
				for _, want := range all[1:] {
					c.Repeat()
					if got := matchIndex(c); got != want || c.Failing() {
						t.Fatalf("repeat %q over %q: match = %d (failing %v), want %d", query, lines, got, c.Failing(), want)
					}
				}
				c.Repeat()
				if got := matchIndex(c); got != all[len(all)-1] || !c.Failing() {
					t.Fatalf("repeat past oldest %q: match = %d (failing %v), want clamp at %d", query, got, c.Failing(), all[len(all)-1])
				}
			}
		})
	}
}
