// Package supervisor owns the lifecycle of one child process: spawn,
// bounded wait, forced termination on deadline, and exit-status
// resolution.
//
// One invocation is one synchronous run. There is no worker pool, no
// retry, and no cancellation path other than the deadline itself: every
// OS-primitive failure is terminal for the invocation and reported
// upward. The OS handles acquired by a successful spawn are released on
// every subsequent exit path, which is the dominant correctness
// property of this package.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Outcome is the terminal state of a supervised run.
type Outcome int

const (
	// OutcomeExited means the child finished on its own before the
	// deadline; Result.ExitCode carries its real status.
	OutcomeExited Outcome = iota

	// OutcomeTimedOut means the deadline elapsed and the child was
	// forcibly terminated.
	OutcomeTimedOut
)

// String returns a short label for logging.
func (o Outcome) String() string {
	switch o {
	case OutcomeExited:
		return "exited"
	case OutcomeTimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result describes how a supervised run ended.
type Result struct {
	Outcome  Outcome
	ExitCode int // child's own status; 0 when the outcome is OutcomeTimedOut
}

// Kind classifies supervisor failures for exit-code mapping.
type Kind int

const (
	// KindNotFound means the executable could not be located.
	KindNotFound Kind = iota

	// KindCannotInvoke means process creation failed for a reason other
	// than resolution.
	KindCannotInvoke

	// KindSupervisor means a wait, terminate, or status-query primitive
	// failed after the child was spawned.
	KindSupervisor
)

// Error is the failure of a single OS primitive. The first failed
// primitive aborts the run; there is no partial-success state to
// recover into.
type Error struct {
	Kind Kind
	Op   string // the primitive that failed: spawn, wait, terminate, exitcode
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying OS error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Supervisor drives the spawn, bounded wait, and terminate lifecycle.
type Supervisor struct {
	logger *slog.Logger
}

// New returns a Supervisor that logs lifecycle events to logger.
func New(logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Supervisor{logger: logger}
}

// Run spawns commandLine as a single child inheriting this process's
// environment, working directory, and standard streams, waits at most
// deadline for it to finish, and kills it if the deadline elapses. A
// deadline of zero polls once without blocking. The returned error, if
// any, is always a *Error.
func (s *Supervisor) Run(ctx context.Context, commandLine string, deadline time.Duration) (Result, error) {
	started := time.Now()

	res, err := s.run(ctx, commandLine, deadline)
	if err != nil {
		return res, err
	}

	s.logger.Debug("supervised run finished",
		slog.String("outcome", res.Outcome.String()),
		slog.Int("exit_code", res.ExitCode),
		slog.Duration("elapsed", time.Since(started)),
	)

	return res, nil
}
