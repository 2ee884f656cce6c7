// Package input drives line editing: it routes decoded key events to the
// line buffer, the history store and reverse search, and reports what the
// terminal should show after each event.
package input

import (
	"unicode/utf8"

	"github.com/Iron-Ham/pyc/internal/errors"
	"github.com/Iron-Ham/pyc/internal/history"
	"github.com/Iron-Ham/pyc/internal/input/key"
	"github.com/Iron-Ham/pyc/internal/input/line"
	"github.com/Iron-Ham/pyc/internal/input/search"
	"github.com/Iron-Ham/pyc/internal/logging"
)

// Mode is the editing mode shown to the user.
type Mode int

const (
	ModeNormal Mode = iota
	ModeSearch
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeSearch {
		return "search"
	}
	return "normal"
}

// View is the visible state after an event. Text and Cursor describe the
// line; Query and Failing are only meaningful in ModeSearch.
type View struct {
	Text    string
	Cursor  int
	Mode    Mode
	Query   string
	Failing bool
}

// RenderFunc draws a View. It is called after every handled event.
type RenderFunc func(View)

// Outcome tells the caller what an event did to the line as a whole.
type Outcome int

const (
	// OutcomeNone means keep reading keys.
	OutcomeNone Outcome = iota
	// OutcomeSubmit means Result.Line was entered and recorded in history.
	OutcomeSubmit
	// OutcomeInterrupt means the line was discarded with Ctrl+C.
	OutcomeInterrupt
	// OutcomeEOF means Ctrl+D was pressed on an empty line.
	OutcomeEOF
)

// Result is returned by Handle.
type Result struct {
	Outcome Outcome
	// Line is the submitted text for OutcomeSubmit.
	Line string
	// Warning carries a non-fatal history persistence error.
	Warning error
}

// Session owns the line being edited. It is not safe for concurrent use;
// events must be handled one at a time in arrival order.
type Session struct {
	buf     *line.Buffer
	history *history.Store
	search  *search.Controller // nil unless searching
	render  RenderFunc
	logger  *logging.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithRenderFunc sets the callback invoked after every event.
func WithRenderFunc(fn RenderFunc) Option {
	return func(s *Session) {
		s.render = fn
	}
}

// WithLogger sets the logger for persistence warnings.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a session editing an empty line over h.
func NewSession(h *history.Store, opts ...Option) *Session {
	s := &Session{
		buf:     line.New(),
		history: h,
		logger:  logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reset discards the current line and any search and starts browsing from
// the newest entry again.
func (s *Session) Reset() {
	s.buf.Clear()
	s.search = nil
	s.history.ResetBrowsing()
}

// Searching reports whether reverse search is active.
func (s *Session) Searching() bool {
	return s.search != nil
}

// View returns the current visible state.
func (s *Session) View() View {
	if s.search != nil {
		text := s.search.Text()
		return View{
			Text:    text,
			Cursor:  utf8.RuneCountInString(text),
			Mode:    ModeSearch,
			Query:   s.search.Query(),
			Failing: s.search.Failing(),
		}
	}
	return View{
		Text:   s.buf.String(),
		Cursor: s.buf.Cursor(),
		Mode:   ModeNormal,
	}
}

// Render invokes the render callback with the current view.
func (s *Session) Render() {
	if s.render != nil {
		s.render(s.View())
	}
}

// Handle applies one key event and renders the result.
func (s *Session) Handle(ev key.Event) Result {
	var res Result
	if s.search != nil {
		res = s.handleSearch(ev)
	} else {
		res = s.handleNormal(ev)
	}
	s.Render()
	return res
}

func (s *Session) handleNormal(ev key.Event) Result {
	switch ev.Kind {
	case key.KindChar:
		s.buf.Insert(ev.Rune)
		s.history.ResetBrowsing()
	case key.KindLeft:
		s.buf.MoveLeft()
	case key.KindRight:
		s.buf.MoveRight()
	case key.KindHome:
		s.buf.MoveToStart()
	case key.KindEnd:
		s.buf.MoveToEnd()
	case key.KindUp:
		if text, ok := s.history.Previous(); ok {
			s.buf.SetContents(text)
		}
	case key.KindDown:
		if text, ok := s.history.Next(); ok {
			s.buf.SetContents(text)
		}
	case key.KindBackspace:
		s.edited(s.buf.DeleteBefore())
	case key.KindDelete:
		s.edited(s.buf.DeleteAt())
	case key.KindEnter:
		return s.submit()
	case key.KindCtrl:
		return s.handleCtrl(ev.Rune)
	}
	return Result{}
}

func (s *Session) handleCtrl(letter rune) Result {
	switch letter {
	case 'A':
		s.buf.MoveToStart()
	case 'E':
		s.buf.MoveToEnd()
	case 'B':
		s.buf.MoveLeft()
	case 'F':
		s.buf.MoveRight()
	case 'P':
		return s.handleNormal(key.Special(key.KindUp))
	case 'N':
		return s.handleNormal(key.Special(key.KindDown))
	case 'D':
		if s.buf.Len() == 0 {
			return Result{Outcome: OutcomeEOF}
		}
		s.edited(s.buf.DeleteAt())
	case 'U':
		s.edited(s.buf.DeleteToStart())
	case 'K':
		s.edited(s.buf.DeleteToEnd())
	case 'W':
		s.edited(s.buf.DeleteWordBefore())
	case 'C':
		s.Reset()
		return Result{Outcome: OutcomeInterrupt}
	case 'R':
		s.search = search.Begin(s.buf.Snapshot(), s.history)
		s.history.ResetBrowsing()
	}
	return Result{}
}

func (s *Session) edited(changed bool) {
	if changed {
		s.history.ResetBrowsing()
	}
}

func (s *Session) submit() Result {
	text := s.buf.String()
	_, err := s.history.Append(text)
	if err != nil {
		s.logger.Warn("history entry not persisted",
			"error", err.Error(),
			"retryable", errors.IsRetryable(err))
	}
	s.Reset()
	return Result{Outcome: OutcomeSubmit, Line: text, Warning: err}
}

func (s *Session) handleSearch(ev key.Event) Result {
	switch {
	case ev.Kind == key.KindChar:
		s.search.Type(ev.Rune)
		return Result{}
	case ev.Kind == key.KindBackspace:
		s.search.Backspace()
		return Result{}
	case ev.IsCtrl('R'):
		s.search.Repeat()
		return Result{}
	case ev.IsCtrl('G'):
		s.abortSearch()
		return Result{}
	case ev.IsCtrl('C'):
		s.abortSearch()
		s.Reset()
		return Result{Outcome: OutcomeInterrupt}
	case ev.Kind == key.KindEscape:
		s.acceptSearch()
		return Result{}
	}

	// Enter and every other editing key commit the match, then act on the
	// accepted line as usual.
	s.acceptSearch()
	return s.handleNormal(ev)
}

func (s *Session) acceptSearch() {
	s.buf.SetContents(s.search.Accept())
	s.search = nil
}

func (s *Session) abortSearch() {
	s.buf.Restore(s.search.Abort())
	s.search = nil
}
