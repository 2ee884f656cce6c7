package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"github.com/Iron-Ham/pyc/internal/input"
	"github.com/Iron-Ham/pyc/internal/styles"
)

// Renderer redraws the input line in place. Its Render method is the
// session's render callback.
//
// Only the last line of a multi-line prompt is redrawn; earlier lines are
// written once by BeginLine. All output uses "\r\n" because raw mode turns
// off output post-processing.
type Renderer struct {
	mu    sync.Mutex
	out   io.Writer
	width func() int

	head string // prompt lines above the input line, newline-terminated
	tail string // last prompt line, drawn before the text
}

// NewRenderer creates a renderer writing to out. width reports the current
// terminal width; nil means DefaultWidth.
func NewRenderer(out io.Writer, width func() int) *Renderer {
	if width == nil {
		width = func() int { return DefaultWidth }
	}
	return &Renderer{out: out, width: width}
}

// SetPrompt sets the prompt used by the next BeginLine and Render calls.
func (r *Renderer) SetPrompt(prompt string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := strings.LastIndexByte(prompt, '\n'); i >= 0 {
		r.head = prompt[:i+1]
		r.tail = prompt[i+1:]
		return
	}
	r.head = ""
	r.tail = prompt
}

// BeginLine writes the upper prompt lines and an empty input line.
func (r *Renderer) BeginLine() {
	r.mu.Lock()
	head := r.head
	r.mu.Unlock()

	if head != "" {
		r.write(strings.ReplaceAll(head, "\n", "\r\n"))
	}
	r.Render(input.View{})
}

// Render redraws the input line for v.
func (r *Renderer) Render(v input.View) {
	r.mu.Lock()
	left := r.tail
	r.mu.Unlock()

	if v.Mode == input.ModeSearch {
		left = searchPrefix(v.Query, v.Failing)
	}

	text, col := fitLine(left, v.Text, v.Cursor, r.width())
	r.write("\r" + left + text + ansi.EraseLineRight + ansi.CursorHorizontalAbsolute(col+1))
}

// Finish moves to a fresh line after the input line is done.
func (r *Renderer) Finish() {
	r.write("\r\n")
}

// Println writes a message on its own line, for warnings and builtin output
// printed while the terminal is in raw mode.
func (r *Renderer) Println(msg string) {
	msg = strings.TrimRight(msg, "\n")
	r.write(strings.ReplaceAll(msg, "\n", "\r\n") + "\r\n")
}

// Warn prints a styled warning line.
func (r *Renderer) Warn(msg string) {
	r.Println(styles.Warning.Render("pyc: " + msg))
}

func (r *Renderer) write(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = io.WriteString(r.out, s)
}

func searchPrefix(query string, failing bool) string {
	if failing {
		return styles.SearchFailed.Render(fmt.Sprintf("(failed reverse-i-search)'%s': ", query))
	}
	return styles.SearchLabel.Render(fmt.Sprintf("(reverse-i-search)'%s': ", query))
}

// fitLine returns the part of text that fits after left on a line of the
// given width, scrolled horizontally so the cursor stays visible, and the
// zero-based screen column of the cursor.
func fitLine(left, text string, cursor, width int) (string, int) {
	leftWidth := ansi.StringWidth(left)
	runes := []rune(text)
	cursor = min(max(cursor, 0), len(runes))

	avail := width - leftWidth - 1
	if avail < 1 {
		avail = 1
	}

	start := 0
	for runewidth.StringWidth(string(runes[start:cursor])) > avail {
		start++
	}
	visible := ansi.Truncate(string(runes[start:]), avail, "")
	return visible, leftWidth + runewidth.StringWidth(string(runes[start:cursor]))
}
