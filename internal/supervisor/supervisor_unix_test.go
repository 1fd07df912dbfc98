//go:build unix

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/runlim-dev/runlim/internal/cmdline"
)

func testSupervisor() *Supervisor {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRun_ExitCodePropagates(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		wantCode int
	}{
		{name: "clean exit", script: "exit 0", wantCode: 0},
		{name: "exit 42", script: "exit 42", wantCode: 42},
		{name: "exit 1", script: "exit 1", wantCode: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commandLine := cmdline.Join([]string{"sh", "-c", tt.script})

			res, err := testSupervisor().Run(context.Background(), commandLine, 5*time.Second)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			if res.Outcome != OutcomeExited {
				t.Errorf("outcome = %v, want %v", res.Outcome, OutcomeExited)
			}

			if res.ExitCode != tt.wantCode {
				t.Errorf("exit code = %d, want %d", res.ExitCode, tt.wantCode)
			}
		})
	}
}

func TestRun_DeadlineElapsedKillsChild(t *testing.T) {
	commandLine := cmdline.Join([]string{"sleep", "30"})

	start := time.Now()

	res, err := testSupervisor().Run(context.Background(), commandLine, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Outcome != OutcomeTimedOut {
		t.Fatalf("outcome = %v, want %v", res.Outcome, OutcomeTimedOut)
	}

	// Termination plus reaping must not wait out the child's own sleep.
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("run took %v, want well under the child's 30s runtime", elapsed)
	}
}

func TestRun_ZeroDeadlinePollsWithoutBlocking(t *testing.T) {
	commandLine := cmdline.Join([]string{"sleep", "30"})

	start := time.Now()

	res, err := testSupervisor().Run(context.Background(), commandLine, 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Outcome != OutcomeTimedOut {
		t.Errorf("outcome = %v, want %v", res.Outcome, OutcomeTimedOut)
	}

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("zero deadline blocked for %v", elapsed)
	}
}

func TestRun_CommandNotFound(t *testing.T) {
	commandLine := cmdline.Join([]string{"no_such_executable_xyz"})

	_, err := testSupervisor().Run(context.Background(), commandLine, time.Second)
	if err == nil {
		t.Fatal("expected error for missing executable")
	}

	var supErr *Error
	if !errors.As(err, &supErr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}

	if supErr.Kind != KindNotFound {
		t.Errorf("kind = %v, want KindNotFound", supErr.Kind)
	}

	if supErr.Op != "spawn" {
		t.Errorf("op = %q, want %q", supErr.Op, "spawn")
	}
}

func TestRun_EmptyCommandLine(t *testing.T) {
	_, err := testSupervisor().Run(context.Background(), "", time.Second)
	if err == nil {
		t.Fatal("expected error for empty command line")
	}

	var supErr *Error
	if !errors.As(err, &supErr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}

	if supErr.Kind != KindCannotInvoke {
		t.Errorf("kind = %v, want KindCannotInvoke", supErr.Kind)
	}
}

func TestRun_ArgumentsSurviveRequoting(t *testing.T) {
	// The child compares its first argument against the original token;
	// a broken quote/split round trip would hand it something else.
	commandLine := cmdline.Join([]string{"sh", "-c", `test "$1" = 'a "b" c\'`, "sh", `a "b" c\`})

	res, err := testSupervisor().Run(context.Background(), commandLine, 5*time.Second)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Outcome != OutcomeExited || res.ExitCode != 0 {
		t.Errorf("outcome = %v code %d, want clean exit (argv token mangled in transit)", res.Outcome, res.ExitCode)
	}
}

func TestOutcomeString(t *testing.T) {
	if got := OutcomeExited.String(); got != "exited" {
		t.Errorf("OutcomeExited.String() = %q", got)
	}

	if got := OutcomeTimedOut.String(); got != "timed_out" {
		t.Errorf("OutcomeTimedOut.String() = %q", got)
	}
}

func TestNew_NilLoggerFallsBack(t *testing.T) {
	s := New(nil)
	if s.logger == nil {
		t.Error("New(nil) left logger unset")
	}
}
