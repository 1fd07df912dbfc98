//go:build unix

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/runlim-dev/runlim/internal/cmdline"
)

// run realizes the lifecycle over os/exec. The command line is split
// back into an argv with the same canonical rule used to assemble it,
// so the child recovers exactly the caller's original tokens.
func (s *Supervisor) run(_ context.Context, commandLine string, deadline time.Duration) (Result, error) {
	argv := cmdline.Split(commandLine)
	if len(argv) == 0 {
		return Result{}, &Error{Kind: KindCannotInvoke, Op: "spawn", Err: errors.New("empty command line")}
	}

	cmd := exec.Command(argv[0], argv[1:]...) //nolint:gosec // running the caller's command is the whole point
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()

	if err := cmd.Start(); err != nil {
		kind := KindCannotInvoke
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			kind = KindNotFound
		}

		return Result{}, &Error{Kind: kind, Op: "spawn", Err: err}
	}

	s.logger.Debug("child spawned",
		slog.Int("pid", cmd.Process.Pid),
		slog.String("path", cmd.Path),
	)

	// The wait goroutine is the sole reaper of the child. The buffered
	// channel lets it finish even when nobody is left receiving, so the
	// process table entry is released on every exit path.
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case waitErr := <-done:
		return s.resolve(waitErr)
	case <-timer.C:
		// A zero deadline fires the timer immediately; if the child is
		// already done, surface its real status instead of a timeout.
		select {
		case waitErr := <-done:
			return s.resolve(waitErr)
		default:
		}

		return s.terminate(cmd, done)
	}
}

// terminate kills the child after the deadline has been observed to
// elapse, then reaps it. Only the one direct child is signaled.
func (s *Supervisor) terminate(cmd *exec.Cmd, done <-chan error) (Result, error) {
	if err := cmd.Process.Kill(); err != nil {
		return Result{}, &Error{Kind: KindSupervisor, Op: "terminate", Err: err}
	}

	// SIGKILL cannot be caught, so the reaper returns promptly. The
	// child's wait status is irrelevant here: the outcome is the
	// timeout, not whatever status the kill produced.
	<-done

	s.logger.Debug("child killed after deadline", slog.Int("pid", cmd.Process.Pid))

	return Result{Outcome: OutcomeTimedOut}, nil
}

// resolve maps the reaper's wait result onto the child's real exit
// status. A status that cannot be resolved is a supervisor error, never
// silently defaulted.
func (s *Supervisor) resolve(waitErr error) (Result, error) {
	if waitErr == nil {
		return Result{Outcome: OutcomeExited, ExitCode: 0}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return Result{Outcome: OutcomeExited, ExitCode: code}, nil
		}

		// Killed by a signal this supervisor did not send: there is no
		// exit status to surface verbatim.
		return Result{}, &Error{Kind: KindSupervisor, Op: "exitcode", Err: waitErr}
	}

	return Result{}, &Error{Kind: KindSupervisor, Op: "wait", Err: waitErr}
}
