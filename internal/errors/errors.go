// Package errors provides structured CLI error types for runlim.
//
// CLIError wraps errors with user-facing messages, hints, and exit codes.
// The exit codes follow the coreutils timeout(1) convention so scripting
// callers can branch on them.
package errors

import (
	"errors"
	"fmt"
)

// Exit codes. Scripts branch on these values, so they are part of the
// compatibility contract; diagnostic message text is not.
const (
	ExitSuccess      = 0   // Child exited with status 0
	ExitTimedOut     = 124 // Child was killed after the deadline elapsed
	ExitInternal     = 125 // Usage error or supervisor-internal failure
	ExitCannotInvoke = 126 // Command resolved but could not be invoked
	ExitNotFound     = 127 // Command could not be located
)

// CLIError represents a user-facing CLI error with actionable guidance.
type CLIError struct {
	// Message is the single diagnostic line written to stderr.
	// An empty Message means the exit code is surfaced silently,
	// which is how child exit statuses and timeouts propagate.
	Message string

	// Hint provides actionable guidance on how to fix the error.
	Hint string

	// Cause is the underlying error, if any.
	Cause error

	// Code is the exit code for the CLI.
	Code int
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}

	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CLIError) Unwrap() error {
	return e.Cause
}

// New creates a new CLIError with the given message and exit code.
func New(code int, message string) *CLIError {
	return &CLIError{
		Message: message,
		Code:    code,
	}
}

// Wrap wraps an existing error with a CLIError.
func Wrap(code int, message string, cause error) *CLIError {
	return &CLIError{
		Message: message,
		Cause:   cause,
		Code:    code,
	}
}

// Silent returns a message-less error that carries only an exit code.
// Used to propagate the child's own status and the timeout status, which
// produce no diagnostic output of their own.
func Silent(code int) *CLIError {
	return &CLIError{Code: code}
}

// WithHint adds a hint to the error.
func (e *CLIError) WithHint(hint string) *CLIError {
	e.Hint = hint
	return e
}

// As is a convenience function for errors.As with CLIError.
func As(err error, target **CLIError) bool {
	return errors.As(err, target)
}

// --- Taxonomy constructors ---

// MissingArguments returns the usage error for too few positional arguments.
func MissingArguments() *CLIError {
	return &CLIError{
		Message: "Usage: runlim TIMEOUT_MS COMMAND [ARGS...]",
		Hint:    "Run 'runlim --help' for details",
		Code:    ExitInternal,
	}
}

// InvalidTimeout returns the error for a malformed or out-of-range timeout.
func InvalidTimeout(raw string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Invalid timeout %q: must be a number in 0..4294967295", raw),
		Hint:    "The timeout is a whole number of milliseconds",
		Code:    ExitInternal,
	}
}

// CommandNotFound returns the error for an executable that could not be located.
func CommandNotFound(name string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Command '%s' not found", name),
		Hint:    "Check the spelling and your PATH",
		Code:    ExitNotFound,
	}
}

// CannotInvoke returns the error for a process-creation failure that is not
// a resolution failure.
func CannotInvoke(name string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Cannot invoke '%s'", name),
		Hint:    "Check that the target is an executable you have permission to run",
		Cause:   cause,
		Code:    ExitCannotInvoke,
	}
}

// SupervisorFailure returns the error for a failed wait, terminate, or
// exit-status query. These are always internal errors, never downgraded.
func SupervisorFailure(op string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Supervising the child process failed during %s", op),
		Cause:   cause,
		Code:    ExitInternal,
	}
}
