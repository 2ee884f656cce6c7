// Package shell ties the line editor to command execution: it reads lines
// from the terminal, dispatches them and keeps the prompt up to date.
package shell

import (
	"context"
	"io"
	"unicode/utf8"

	"github.com/Iron-Ham/pyc/internal/config"
	"github.com/Iron-Ham/pyc/internal/errors"
	"github.com/Iron-Ham/pyc/internal/history"
	"github.com/Iron-Ham/pyc/internal/input"
	"github.com/Iron-Ham/pyc/internal/logging"
	"github.com/Iron-Ham/pyc/internal/prompt"
	"github.com/Iron-Ham/pyc/internal/terminal"
)

// exitInterrupt is the status recorded when a line is abandoned with Ctrl+C.
const exitInterrupt = 130

// Options configures a Shell.
type Options struct {
	Config   *config.Config
	History  *history.Store
	Terminal *terminal.Terminal
	Logger   *logging.Logger

	// Changes signals that the config file changed; Reload produces the new
	// configuration. Both are optional.
	Changes <-chan struct{}
	Reload  func() (*config.Config, error)

	// State returns the user, host and directory for the prompt. Defaults
	// to prompt.CurrentState.
	State func() prompt.State

	// Stdout and Stderr receive command output. They default to the
	// terminal's output.
	Stdout io.Writer
	Stderr io.Writer
}

// Shell is the interactive read-dispatch loop.
type Shell struct {
	term       *terminal.Terminal
	reader     *terminal.KeyReader
	renderer   *terminal.Renderer
	session    *input.Session
	history    *history.Store
	dispatcher *Dispatcher
	prompt     *prompt.Template
	logger     *logging.Logger

	changes <-chan struct{}
	reload  func() (*config.Config, error)
	state   func() prompt.State

	lastStatus Status
}

// New creates a Shell. Options.Config, Options.History and Options.Terminal
// are required.
func New(opts Options) *Shell {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	stateFn := opts.State
	if stateFn == nil {
		stateFn = prompt.CurrentState
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = opts.Terminal.Out()
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = stdout
	}

	t := opts.Terminal
	renderer := terminal.NewRenderer(t.Out(), t.Width)
	s := &Shell{
		term:     t,
		renderer: renderer,
		history:  opts.History,
		prompt:   prompt.New(opts.Config.Prompt),
		logger:   logger.WithComponent("shell"),
		changes:  opts.Changes,
		reload:   opts.Reload,
		state:    stateFn,
	}
	s.reader = terminal.NewKeyReader(t.In(),
		terminal.WithEscapeTimeout(opts.Config.Input.EscapeTimeout()),
		terminal.WithMalformedHandler(func(err error) {
			s.logger.Debug("malformed key sequence", "error", err.Error())
		}),
	)
	s.session = input.NewSession(opts.History,
		input.WithRenderFunc(renderer.Render),
		input.WithLogger(logger.WithComponent("input")),
	)
	s.dispatcher = NewDispatcher(
		WithHistory(opts.History),
		WithAliases(opts.Config.Aliases),
		WithIO(t.In(), stdout, stderr),
		WithDispatchLogger(logger.WithComponent("dispatch")),
	)
	return s
}

// Run reads and dispatches lines until exit, end of input or ctx is done.
// It returns the shell's exit status.
func (s *Shell) Run(ctx context.Context) (int, error) {
	defer s.reader.Close()
	s.logger.Info("shell started", "history_entries", s.history.Len())

	for {
		s.applyConfigChanges()

		res, err := s.readLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("input closed")
				return s.lastStatus.ExitCode, nil
			}
			return s.lastStatus.ExitCode, err
		}

		switch res.Outcome {
		case input.OutcomeEOF:
			s.logger.Info("end of input requested")
			return s.lastStatus.ExitCode, nil
		case input.OutcomeInterrupt:
			s.lastStatus = Status{ExitCode: exitInterrupt}
			continue
		case input.OutcomeSubmit:
			st := s.dispatcher.Dispatch(ctx, res.Line)
			s.lastStatus = st
			s.logger.Debug("line dispatched",
				"exit_code", st.ExitCode,
				"duration_ms", st.Duration.Milliseconds())
			if st.Exit {
				return st.ExitCode, nil
			}
		}
	}
}

// readLine edits one line in raw mode and returns the session's outcome.
func (s *Shell) readLine(ctx context.Context) (input.Result, error) {
	if s.term.IsTerminal() {
		if err := s.term.MakeRaw(); err != nil {
			return input.Result{}, err
		}
		defer func() { _ = s.term.Restore() }()
	}

	s.session.Reset()
	s.renderer.SetPrompt(s.promptLine())
	s.renderer.BeginLine()

	for {
		ev, err := s.reader.ReadKey(ctx)
		if err != nil {
			s.renderer.Finish()
			return input.Result{}, err
		}

		res := s.session.Handle(ev)
		switch res.Outcome {
		case input.OutcomeNone:
			continue
		case input.OutcomeSubmit:
			// The session has already cleared its buffer; show what ran.
			s.renderer.Render(input.View{Text: res.Line, Cursor: utf8.RuneCountInString(res.Line)})
			s.renderer.Finish()
			if res.Warning != nil {
				s.renderer.Warn(res.Warning.Error())
			}
		case input.OutcomeInterrupt:
			// Ctrl+C also discards typeahead.
			s.reader.Reset()
			s.renderer.Finish()
		default:
			s.renderer.Finish()
		}
		return res, nil
	}
}

func (s *Shell) promptLine() string {
	st := s.state()
	st.ExitCode = s.lastStatus.ExitCode
	st.Duration = s.lastStatus.Duration
	return s.prompt.Render(st) + " "
}

// applyConfigChanges reloads the configuration if the watcher reported a
// change since the last line.
func (s *Shell) applyConfigChanges() {
	if s.changes == nil || s.reload == nil {
		return
	}
	select {
	case <-s.changes:
	default:
		return
	}

	cfg, err := s.reload()
	if err != nil {
		s.logger.Warn("config reload failed", "error", err.Error())
		s.renderer.Warn("config reload failed: " + err.Error())
		return
	}
	s.prompt = prompt.New(cfg.Prompt)
	s.dispatcher.SetAliases(cfg.Aliases)
	s.logger.Info("config reloaded")
}
