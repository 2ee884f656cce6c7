// Package terminal connects the line editor to a real terminal: it switches
// the TTY between raw and cooked mode, reads key events with an escape
// timeout, and redraws the prompt line.
package terminal

import (
	"io"
	"os"
	"sync"

	"golang.org/x/term"

	"github.com/Iron-Ham/pyc/internal/errors"
)

// DefaultWidth is used when the terminal size cannot be queried.
const DefaultWidth = 80

// Terminal wraps the input file descriptor and the output stream.
type Terminal struct {
	in  *os.File
	out io.Writer

	mu    sync.Mutex
	state *term.State
}

// New creates a Terminal reading from in and writing to out.
func New(in *os.File, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out}
}

// Stdio returns a Terminal on the process's stdin and stdout.
func Stdio() *Terminal {
	return New(os.Stdin, os.Stdout)
}

// In returns the input file.
func (t *Terminal) In() *os.File {
	return t.in
}

// Out returns the output stream.
func (t *Terminal) Out() io.Writer {
	return t.out
}

// IsTerminal reports whether the input is a TTY.
func (t *Terminal) IsTerminal() bool {
	return term.IsTerminal(int(t.in.Fd()))
}

// MakeRaw puts the input into raw mode. Calling it while already raw is a
// no-op.
func (t *Terminal) MakeRaw() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != nil {
		return nil
	}
	state, err := term.MakeRaw(int(t.in.Fd()))
	if err != nil {
		return errors.Wrap(err, "failed to enter raw mode")
	}
	t.state = state
	return nil
}

// Restore returns the input to the mode it had before MakeRaw. It is safe to
// call when the terminal is not in raw mode.
func (t *Terminal) Restore() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == nil {
		return nil
	}
	err := term.Restore(int(t.in.Fd()), t.state)
	t.state = nil
	if err != nil {
		return errors.Wrap(err, "failed to restore terminal")
	}
	return nil
}

// Raw reports whether MakeRaw is in effect.
func (t *Terminal) Raw() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state != nil
}

// Width returns the number of columns of the output, or DefaultWidth.
func (t *Terminal) Width() int {
	f, ok := t.out.(*os.File)
	if !ok {
		f = t.in
	}
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
		return w
	}
	return DefaultWidth
}
