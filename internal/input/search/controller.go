// Package search implements incremental reverse history search (Ctrl+R).
package search

import (
	"github.com/Iron-Ham/pyc/internal/history"
	"github.com/Iron-Ham/pyc/internal/input/line"
)

// Source finds history entries for a query. *history.Store satisfies it.
type Source interface {
	// SearchBackward returns the newest entry with an index below before
	// (any index when before <= 0) whose text contains query, or nil.
	SearchBackward(query string, before int) *history.Entry
}

// Controller holds the state of one search excursion. It exists only while
// searching; the caller discards it on Accept or Abort.
type Controller struct {
	source   Source
	snapshot line.Snapshot
	query    []rune
	match    *history.Entry
	failing  bool
}

// Begin starts a search. snapshot is the line as it was before the search,
// restored verbatim by Abort.
func Begin(snapshot line.Snapshot, source Source) *Controller {
	return &Controller{
		source:   source,
		snapshot: snapshot,
	}
}

// Type appends r to the query and searches again from the newest entry. If
// nothing matches, the previous match stays and the search is marked failing.
func (c *Controller) Type(r rune) {
	c.query = append(c.query, r)
	c.recompute()
}

// Backspace removes the last rune of the query and searches again from the
// newest entry. It reports false when the query was already empty.
func (c *Controller) Backspace() bool {
	if len(c.query) == 0 {
		return false
	}
	c.query = c.query[:len(c.query)-1]
	c.recompute()
	return true
}

// Repeat moves to the next older entry matching the same query. At the oldest
// match the current match stays and the search is marked failing.
func (c *Controller) Repeat() {
	if len(c.query) == 0 {
		return
	}
	if c.match == nil {
		c.recompute()
		return
	}
	if m := c.source.SearchBackward(string(c.query), c.match.Index); m != nil {
		c.match = m
		c.failing = false
		return
	}
	c.failing = true
}

func (c *Controller) recompute() {
	if len(c.query) == 0 {
		c.match = nil
		c.failing = false
		return
	}
	if m := c.source.SearchBackward(string(c.query), 0); m != nil {
		c.match = m
		c.failing = false
		return
	}
	c.failing = true
}

// Accept returns the text to commit into the line: the current match, or the
// live query when nothing matched. With an empty query the pre-search line is
// returned unchanged.
func (c *Controller) Accept() string {
	if c.match != nil {
		return c.match.Text
	}
	if len(c.query) == 0 {
		return c.snapshot.Text
	}
	return string(c.query)
}

// Abort returns the line exactly as it was when the search began.
func (c *Controller) Abort() line.Snapshot {
	return c.snapshot
}

// Query returns the search query typed so far.
func (c *Controller) Query() string {
	return string(c.query)
}

// Match returns the current match, or nil.
func (c *Controller) Match() *history.Entry {
	return c.match
}

// Failing reports whether the latest query or repeat found nothing new.
func (c *Controller) Failing() bool {
	return c.failing
}

// Text returns what the line shows while searching: the current match text,
// or the pre-search line when there is no match yet.
func (c *Controller) Text() string {
	if c.match != nil {
		return c.match.Text
	}
	return c.snapshot.Text
}
