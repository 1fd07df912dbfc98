package main

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/runlim-dev/runlim/internal/cmdline"
	clierrors "github.com/runlim-dev/runlim/internal/errors"
	"github.com/runlim-dev/runlim/internal/observability"
	"github.com/runlim-dev/runlim/internal/supervisor"
)

// deadlineArgs validates the positional surface: TIMEOUT_MS plus at
// least a command. Anything less is a usage error, reported before any
// process is spawned.
func deadlineArgs(_ *cobra.Command, args []string) error {
	if len(args) < 2 {
		return clierrors.MissingArguments()
	}

	return nil
}

// runDeadline is the root command: assemble the command line, supervise
// the child under the deadline, and propagate the resulting status.
func runDeadline(cmd *cobra.Command, args []string) error {
	logger := observability.FromContext(cmd.Context())

	deadline, err := parseTimeout(args[0])
	if err != nil {
		return err
	}

	commandLine := cmdline.Join(args[1:])

	logger.Debug("command line assembled",
		slog.String("command_line", commandLine),
		slog.Int64("deadline_ms", int64(deadline/time.Millisecond)),
	)

	tracer := observability.Tracer("runlim/cmd")
	ctx, span := tracer.Start(cmd.Context(), "runlim.run", trace.WithAttributes(
		attribute.String("child.command", args[1]),
		attribute.Int64("child.deadline_ms", int64(deadline/time.Millisecond)),
	))
	defer span.End()

	sup := supervisor.New(logger)

	res, err := sup.Run(ctx, commandLine, deadline)
	if err != nil {
		span.RecordError(err)
		return mapSupervisorError(args[1], err)
	}

	span.SetAttributes(attribute.String("child.outcome", res.Outcome.String()))

	if res.Outcome == supervisor.OutcomeTimedOut {
		logger.Info("deadline elapsed, child terminated",
			slog.Int64("deadline_ms", int64(deadline/time.Millisecond)),
		)

		return clierrors.Silent(clierrors.ExitTimedOut)
	}

	span.SetAttributes(attribute.Int("child.exit_code", res.ExitCode))

	if res.ExitCode != 0 {
		return clierrors.Silent(res.ExitCode)
	}

	return nil
}

// parseTimeout parses TIMEOUT_MS as a base-10 unsigned 32-bit count of
// milliseconds. Malformed or out-of-range values are usage errors.
func parseTimeout(raw string) (time.Duration, error) {
	ms, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, clierrors.InvalidTimeout(raw)
	}

	return time.Duration(ms) * time.Millisecond, nil
}

// mapSupervisorError converts the supervisor's error taxonomy into
// user-facing CLI errors with the matching exit codes.
func mapSupervisorError(command string, err error) error {
	var supErr *supervisor.Error
	if errors.As(err, &supErr) {
		switch supErr.Kind {
		case supervisor.KindNotFound:
			return clierrors.CommandNotFound(command)
		case supervisor.KindCannotInvoke:
			return clierrors.CannotInvoke(command, supErr.Err)
		default:
			return clierrors.SupervisorFailure(supErr.Op, supErr.Err)
		}
	}

	return clierrors.Wrap(clierrors.ExitInternal, "Supervision failed", err)
}
