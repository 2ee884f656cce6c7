package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/shlex"

	"github.com/Iron-Ham/pyc/internal/errors"
	"github.com/Iron-Ham/pyc/internal/history"
	"github.com/Iron-Ham/pyc/internal/logging"
	"github.com/Iron-Ham/pyc/internal/styles"
)

// exitUnknown is the status of a line that could not be run at all.
const exitUnknown = 255

// Status is the outcome of one dispatched line.
type Status struct {
	ExitCode int
	Duration time.Duration
	// Exit is set when the exit builtin ran.
	Exit bool
}

// Dispatcher runs submitted lines: history recall, alias expansion,
// builtins, then external programs.
type Dispatcher struct {
	history *history.Store
	aliases map[string]string
	logger  *logging.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	prevDir string
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithHistory enables !{index} recall and the history builtin.
func WithHistory(h *history.Store) DispatcherOption {
	return func(d *Dispatcher) { d.history = h }
}

// WithAliases sets the alias table applied to the first word of a command.
func WithAliases(aliases map[string]string) DispatcherOption {
	return func(d *Dispatcher) { d.SetAliases(aliases) }
}

// WithIO sets the streams commands and builtins use.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) DispatcherOption {
	return func(d *Dispatcher) {
		d.stdin = stdin
		d.stdout = stdout
		d.stderr = stderr
	}
}

// WithDispatchLogger sets the logger.
func WithDispatchLogger(logger *logging.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

// NewDispatcher creates a dispatcher using the process's standard streams.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		aliases: map[string]string{},
		logger:  logging.NopLogger(),
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetAliases replaces the alias table.
func (d *Dispatcher) SetAliases(aliases map[string]string) {
	d.aliases = make(map[string]string, len(aliases))
	for name, repl := range aliases {
		d.aliases[name] = repl
	}
}

// Dispatch runs one submitted line.
func (d *Dispatcher) Dispatch(ctx context.Context, line string) Status {
	start := time.Now()
	code, exit := d.dispatch(ctx, line)
	return Status{ExitCode: code, Duration: time.Since(start), Exit: exit}
}

// Exec runs an already tokenised command.
func (d *Dispatcher) Exec(ctx context.Context, argv []string) Status {
	start := time.Now()
	code, exit := d.run(ctx, argv)
	return Status{ExitCode: code, Duration: time.Since(start), Exit: exit}
}

func (d *Dispatcher) dispatch(ctx context.Context, line string) (int, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, false
	}

	if strings.HasPrefix(line, "!") {
		resolved, ok, err := d.recall(line)
		if err != nil {
			word, _, _ := strings.Cut(line, " ")
			d.printErr(word + ": event not found")
			return errors.ExitCode(err), false
		}
		if ok {
			_, _ = fmt.Fprintln(d.stdout, resolved)
			line = resolved
		}
	}

	argv, err := shlex.Split(line)
	if err != nil {
		d.printErr(fmt.Sprintf("bad expression: %v", err))
		return exitUnknown, false
	}
	if len(argv) == 0 {
		return 0, false
	}
	return d.run(ctx, argv)
}

// recall expands a leading !{index} word. ok is false when the line does
// not start with that form.
func (d *Dispatcher) recall(line string) (string, bool, error) {
	word, rest, _ := strings.Cut(line, " ")
	index, err := strconv.Atoi(word[1:])
	if err != nil {
		return "", false, nil
	}

	if d.history == nil {
		return "", false, errors.NewNotFoundError("history entry", word[1:]).
			WithCause(errors.ErrHistoryIndexNotFound)
	}
	entry, err := d.history.Lookup(index)
	if err != nil {
		d.logger.Debug("history recall failed", "index", index)
		return "", false, err
	}
	if rest != "" {
		return entry.Text + " " + rest, true, nil
	}
	return entry.Text, true, nil
}

func (d *Dispatcher) run(ctx context.Context, argv []string) (int, bool) {
	if len(argv) == 0 {
		return exitUnknown, false
	}
	argv = d.expandAlias(argv)

	switch argv[0] {
	case "cd":
		return d.cd(argv[1:]), false
	case "exit":
		return d.exit(argv[1:])
	case "history":
		return d.printHistory(argv[1:]), false
	}
	return d.execute(ctx, argv), false
}

func (d *Dispatcher) expandAlias(argv []string) []string {
	repl, ok := d.aliases[argv[0]]
	if !ok {
		return argv
	}
	words, err := shlex.Split(repl)
	if err != nil || len(words) == 0 {
		return argv
	}
	return append(words, argv[1:]...)
}

func (d *Dispatcher) execute(ctx context.Context, argv []string) int {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = d.stdin
	cmd.Stdout = d.stdout
	cmd.Stderr = d.stderr

	// Ctrl+C goes to the foreground child; the shell itself keeps running.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	err := cmd.Run()
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return exitErr.ExitCode()
	}

	cmdErr := errors.NewCommandError("failed to start", errors.Join(errors.ErrCommandNotFound, err)).
		WithCommand(argv[0])
	d.logger.Warn("command failed to start", "error", cmdErr.Error())
	d.printErr(fmt.Sprintf("unknown command %s", argv[0]))
	return errors.ExitCode(cmdErr)
}

func (d *Dispatcher) cd(args []string) int {
	var dir string
	switch {
	case len(args) == 0 || args[0] == "~":
		home, err := os.UserHomeDir()
		if err != nil {
			d.printErr("cd: HOME not set")
			return 1
		}
		dir = home
	case args[0] == "-":
		if d.prevDir == "" {
			d.printErr("cd: OLDPWD not set")
			return 1
		}
		dir = d.prevDir
		_, _ = fmt.Fprintln(d.stdout, dir)
	case strings.HasPrefix(args[0], "~/"):
		home, _ := os.UserHomeDir()
		dir = home + args[0][1:]
	default:
		dir = args[0]
	}

	cwd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		d.printErr(fmt.Sprintf("cd: %s: %v", dir, unwrapPathError(err)))
		return 1
	}
	d.prevDir = cwd
	if wd, err := os.Getwd(); err == nil {
		_ = os.Setenv("PWD", wd)
	}
	_ = os.Setenv("OLDPWD", cwd)
	return 0
}

func (d *Dispatcher) exit(args []string) (int, bool) {
	if len(args) == 0 {
		return 0, true
	}
	code, err := strconv.Atoi(args[0])
	if err != nil {
		d.printErr(fmt.Sprintf("exit: %s: numeric argument required", args[0]))
		return 2, true
	}
	return code & 0xff, true
}

func (d *Dispatcher) printHistory(args []string) int {
	if d.history == nil {
		return 0
	}
	entries := d.history.Entries()
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			d.printErr(fmt.Sprintf("history: %s: numeric argument required", args[0]))
			return 2
		}
		if n < len(entries) {
			entries = entries[len(entries)-n:]
		}
	}
	for _, e := range entries {
		_, _ = fmt.Fprintf(d.stdout, "%5d  %s\n", e.Index, e.Text)
	}
	return 0
}

func (d *Dispatcher) printErr(msg string) {
	_, _ = fmt.Fprintln(d.stderr, styles.Error.Render("pyc: "+msg))
}

func unwrapPathError(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err
	}
	return err
}
