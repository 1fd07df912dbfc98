//go:build windows

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

// run realizes the lifecycle over the Win32 process primitives. The
// command line is handed to CreateProcess as-is: no module name is
// supplied, so the first token resolves through the normal executable
// search rule, and the parent's environment and working directory are
// inherited unchanged.
func (s *Supervisor) run(_ context.Context, commandLine string, deadline time.Duration) (Result, error) {
	buf, err := windows.UTF16FromString(commandLine)
	if err != nil {
		return Result{}, &Error{Kind: KindCannotInvoke, Op: "spawn", Err: err}
	}

	si := new(windows.StartupInfo)
	si.Cb = uint32(unsafe.Sizeof(*si))
	pi := new(windows.ProcessInformation)

	// CreateProcess may scribble on the command-line buffer, so it gets
	// a mutable copy rather than a string-backed pointer.
	if err := windows.CreateProcess(nil, &buf[0], nil, nil, false, 0, nil, nil, si, pi); err != nil {
		kind := KindCannotInvoke
		if errors.Is(err, windows.ERROR_FILE_NOT_FOUND) || errors.Is(err, windows.ERROR_PATH_NOT_FOUND) {
			kind = KindNotFound
		}

		return Result{}, &Error{Kind: kind, Op: "spawn", Err: err}
	}

	// Both handles are under an unconditional release obligation from
	// here on: every exit path below, success or error, closes them
	// exactly once.
	defer windows.CloseHandle(pi.Process) //nolint:errcheck
	defer windows.CloseHandle(pi.Thread)  //nolint:errcheck

	s.logger.Debug("child spawned", slog.Uint64("pid", uint64(pi.ProcessId)))

	event, err := windows.WaitForSingleObject(pi.Process, waitMillis(deadline))

	switch {
	case err != nil:
		return Result{}, &Error{Kind: KindSupervisor, Op: "wait", Err: err}

	case event == uint32(windows.WAIT_TIMEOUT):
		return s.terminate(pi)

	case event == uint32(windows.WAIT_OBJECT_0):
		var code uint32
		if err := windows.GetExitCodeProcess(pi.Process, &code); err != nil {
			return Result{}, &Error{Kind: KindSupervisor, Op: "exitcode", Err: err}
		}

		return Result{Outcome: OutcomeExited, ExitCode: int(code)}, nil

	default:
		return Result{}, &Error{Kind: KindSupervisor, Op: "wait", Err: fmt.Errorf("unexpected wait event %#x", event)}
	}
}

// terminate forcibly ends the child after the deadline has been
// observed to elapse, never speculatively. The follow-up zero-timeout
// wait on the thread handle confirms the termination request was
// accepted: only a failed confirmation call is an error, its wait event
// is not, and a failure here is reported as a supervisor error rather
// than downgraded to a clean timeout.
func (s *Supervisor) terminate(pi *windows.ProcessInformation) (Result, error) {
	if err := windows.TerminateProcess(pi.Process, 0); err != nil {
		return Result{}, &Error{Kind: KindSupervisor, Op: "terminate", Err: err}
	}

	if _, err := windows.WaitForSingleObject(pi.Thread, 0); err != nil {
		return Result{}, &Error{Kind: KindSupervisor, Op: "terminate", Err: err}
	}

	s.logger.Debug("child killed after deadline", slog.Uint64("pid", uint64(pi.ProcessId)))

	return Result{Outcome: OutcomeTimedOut}, nil
}

// waitMillis converts the deadline to the millisecond granularity the
// wait primitive takes. The caller never passes the INFINITE sentinel;
// the parse layer bounds the value to uint32 range.
func waitMillis(d time.Duration) uint32 {
	return uint32(d / time.Millisecond)
}
