// Package errors defines the error taxonomy of the pyc shell: sentinel
// errors for matching with Is, typed errors carrying context for As, and the
// mapping from errors to process exit codes.
//
// Typed errors:
//   - InputError: a raw terminal byte sequence could not be decoded
//   - PersistenceError: the durable history log could not be written
//   - CommandError: a submitted line could not be dispatched
//   - NotFoundError: a lookup missed (e.g. a history index)
//   - ValidationError: invalid input or configuration
//
// Usage:
//
//	entry, err := store.Lookup(42)
//	if errors.Is(err, errors.ErrHistoryIndexNotFound) { ... }
//
//	var perr *errors.PersistenceError
//	if errors.As(err, &perr) && perr.Retryable { ... }
//
// None of these errors end the interactive loop. Persistence failures are
// warnings: the in-memory history keeps working and the write is retried.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-exported so callers only need this package for error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// exitFailure is the status for errors that carry no exit code of their own.
const exitFailure = 255

var (
	// ErrMalformedInput indicates an undecodable terminal byte sequence.
	ErrMalformedInput = New("malformed input sequence")

	// ErrHistoryIndexNotFound indicates that no history entry has the requested index.
	ErrHistoryIndexNotFound = New("history index not found")
	// ErrPersistenceWrite indicates that the durable history log rejected a write.
	ErrPersistenceWrite = New("history log write failed")
	// ErrPersistenceSync indicates that written lines reached the history log
	// but could not be synced to stable storage.
	ErrPersistenceSync = New("history log sync failed")
	// ErrPersistenceDisabled indicates history persistence was turned off after repeated failures.
	ErrPersistenceDisabled = New("history persistence disabled")

	// ErrCommandNotFound indicates that the executable could not be resolved.
	ErrCommandNotFound = New("command not found")

	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// shellError holds what every typed error has: a message and an optional
// cause reachable through Unwrap.
type shellError struct {
	msg   string
	cause error
}

func (e *shellError) Unwrap() error {
	return e.cause
}

// format renders "kind [k=v, ...]: msg: cause", leaving out empty parts.
func (e *shellError) format(kind string, attrs ...string) string {
	var b strings.Builder
	b.WriteString(kind)
	if len(attrs) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(attrs, ", "))
		b.WriteString("]")
	}
	if e.msg != "" {
		b.WriteString(": ")
		b.WriteString(e.msg)
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

// InputError reports a byte sequence the key decoder could not interpret.
// The decoder recovers by emitting the first byte literally, so this error is
// informational only.
type InputError struct {
	shellError
	Sequence []byte
}

// NewInputError copies seq into a new InputError.
func NewInputError(seq []byte) *InputError {
	return &InputError{
		shellError: shellError{msg: "undecodable input", cause: ErrMalformedInput},
		Sequence:   append([]byte(nil), seq...),
	}
}

func (e *InputError) Error() string {
	return e.format("input error", fmt.Sprintf("seq=%q", e.Sequence))
}

// PersistenceError reports a failed write to the durable history log. The
// affected entry stays in memory; Retryable is false once persistence has
// been disabled for the session.
//
//	errors.NewPersistenceError("append failed", ioErr).WithPath(path).WithIndex(12)
//	// persistence error [path=/home/u/.local/state/pyc/history, index=12]: append failed: ...
type PersistenceError struct {
	shellError
	Path      string
	Index     int
	Retryable bool
}

// NewPersistenceError creates a retryable PersistenceError whose cause
// matches both ErrPersistenceWrite and cause.
func NewPersistenceError(message string, cause error) *PersistenceError {
	joined := ErrPersistenceWrite
	if cause != nil {
		joined = Join(ErrPersistenceWrite, cause)
	}
	return &PersistenceError{
		shellError: shellError{msg: message, cause: joined},
		Retryable:  true,
	}
}

// WithPath records the log path.
func (e *PersistenceError) WithPath(path string) *PersistenceError {
	e.Path = path
	return e
}

// WithIndex records the history index of the affected entry.
func (e *PersistenceError) WithIndex(index int) *PersistenceError {
	e.Index = index
	return e
}

// WithRetryable sets whether a later write may succeed.
func (e *PersistenceError) WithRetryable(r bool) *PersistenceError {
	e.Retryable = r
	return e
}

func (e *PersistenceError) Error() string {
	var attrs []string
	if e.Path != "" {
		attrs = append(attrs, "path="+e.Path)
	}
	if e.Index > 0 {
		attrs = append(attrs, fmt.Sprintf("index=%d", e.Index))
	}
	return e.format("persistence error", attrs...)
}

// CommandError represents a line that could not be dispatched. ExitCode is
// the status the shell reports for it.
type CommandError struct {
	shellError
	Command  string
	ExitCode int
}

// NewCommandError creates a CommandError with exit code 255.
func NewCommandError(message string, cause error) *CommandError {
	return &CommandError{
		shellError: shellError{msg: message, cause: cause},
		ExitCode:   exitFailure,
	}
}

// WithCommand records the command name.
func (e *CommandError) WithCommand(cmd string) *CommandError {
	e.Command = cmd
	return e
}

// WithExitCode overrides the reported exit code.
func (e *CommandError) WithExitCode(code int) *CommandError {
	e.ExitCode = code
	return e
}

func (e *CommandError) Error() string {
	if e.Command == "" {
		return e.format("command error")
	}
	return e.format("command error", "cmd="+e.Command)
}

// NotFoundError reports a lookup that missed.
//
//	errors.NewNotFoundError("history entry", "42").WithCause(errors.ErrHistoryIndexNotFound)
//	// history entry '42' not found: history index not found
type NotFoundError struct {
	shellError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a NotFoundError for the named resource.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{ResourceType: resourceType, ResourceID: resourceID}
}

// WithCause sets the wrapped cause.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
	if e.cause != nil {
		return msg + ": " + e.cause.Error()
	}
	return msg
}

// ValidationError reports invalid input. It matches ErrInvalidInput.
//
//	errors.NewValidationError("invalid history index").WithField("index").WithValue("abc")
type ValidationError struct {
	shellError
	Field string
	Value any
}

// NewValidationError creates a ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{shellError: shellError{msg: message}}
}

// WithField records the offending field.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue records the offending value.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause sets the wrapped cause.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

func (e *ValidationError) Error() string {
	var attrs []string
	if e.Field != "" {
		attrs = append(attrs, "field="+e.Field)
	}
	if e.Value != nil {
		attrs = append(attrs, fmt.Sprintf("value=%v", e.Value))
	}
	return e.format("validation error", attrs...)
}

// Is reports whether target is ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// IsRetryable reports whether err is a persistence failure that a later
// write may recover from.
func IsRetryable(err error) bool {
	var perr *PersistenceError
	if As(err, &perr) {
		return perr.Retryable
	}
	return false
}

// ExitCode maps err to a process exit status: 0 for nil, the code carried by
// a CommandError, and 255 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var cmdErr *CommandError
	if As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	return exitFailure
}

// Wrap prefixes err with message, keeping it matchable. A nil err stays nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
