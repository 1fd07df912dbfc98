// Package main is the entry point for the runlim CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/runlim-dev/runlim/internal/buildinfo"
	"github.com/runlim-dev/runlim/internal/config"
	clierrors "github.com/runlim-dev/runlim/internal/errors"
	"github.com/runlim-dev/runlim/internal/observability"
	"github.com/runlim-dev/runlim/internal/output"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() (exitCode int) {
	// Set runner version from build-time ldflags
	buildinfo.Version = version
	buildinfo.Commit = commit

	out := output.Default()

	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		return handleError(out, err)
	}

	return clierrors.ExitSuccess
}

// handleError formats and displays a CLI error, returning the appropriate
// exit code. Message-less CLIErrors carry the child's own status or the
// timeout status and are surfaced silently. Everything else produces
// exactly one diagnostic line on stderr.
func handleError(out *output.Writer, err error) int {
	var cliErr *clierrors.CLIError
	if clierrors.As(err, &cliErr) {
		if cliErr.Message == "" {
			return cliErr.Code
		}

		out.Failure("%s", cliErr.Message)

		if cliErr.Hint != "" {
			out.Info("%s", cliErr.Hint)
		}

		return cliErr.Code
	}

	errStr := err.Error()

	// Handle Cobra's unknown command errors
	if strings.HasPrefix(errStr, "unknown command") {
		out.Failure("%s", errStr)
		out.Info("Run 'runlim --help' for usage")

		return clierrors.ExitInternal
	}

	// Handle other Cobra errors (safety net — flag errors are normally
	// wrapped as CLIError by SetFlagErrorFunc).
	if strings.HasPrefix(errStr, "unknown flag") ||
		strings.HasPrefix(errStr, "unknown shorthand flag") ||
		strings.Contains(errStr, "required flag") {
		out.Failure("%s", errStr)
		out.Info("Run 'runlim --help' for usage")

		return clierrors.ExitInternal
	}

	// Other errors - print with styled output
	out.Failure("%s", errStr)

	return clierrors.ExitInternal
}

func newRootCmd() *cobra.Command {
	var (
		quiet     bool
		noColor   bool
		logLevel  string
		logFormat string
		logFile   string
		logStderr string
	)

	out := output.Default()

	rootCmd := &cobra.Command{
		Use:   "runlim TIMEOUT_MS COMMAND [ARGS...]",
		Short: "Run a command with a deadline",
		Long: `runlim launches a command, waits at most TIMEOUT_MS milliseconds for
it to finish, and kills it if the deadline elapses. The command's own
exit status is propagated verbatim.

Exit codes:
  0-255   the command's own exit status
  124     the command was killed after the deadline elapsed
  125     usage error or internal failure
  126     the command was found but could not be invoked
  127     the command could not be found

TIMEOUT_MS is a whole number of milliseconds in 0..4294967295.`,
		Example: `  runlim 1500 ping google.com
  runlim 5000 sh -c 'exit 42'
  runlim 30000 make test`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          deadlineArgs,
		RunE:          runDeadline,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			out.Quiet = pickBoolFlagOrEnv(quiet, "RUNLIM_QUIET")

			if noColor {
				out.SetNoColor(true)

				color.NoColor = true
			}

			logCfg := observability.Config{
				Level:      pickFlagOrConfig(logLevel, cfg.LogLevel()),
				Format:     pickFlagOrConfig(logFormat, cfg.LogFormat()),
				LogFile:    pickFlagOrConfig(logFile, cfg.LogFile()),
				StderrMode: pickFlagOrConfig(logStderr, cfg.LogStderr()),
				SessionID:  uuid.NewString(),
				Version:    version,
				Commit:     commit,
			}

			logger, cleanup, err := observability.NewLogger(&logCfg)
			if err != nil {
				return &clierrors.CLIError{
					Message: fmt.Sprintf("Invalid logging configuration: %v", err),
					Hint:    "Use --log-level (error|warn|info|debug), --log-format (json|text), --log-stderr (on|off), and/or --log-file",
					Code:    clierrors.ExitInternal,
				}
			}

			slog.SetDefault(logger)

			// Store writer and logger in context for subcommands
			ctx := out.WithContext(cmd.Context())
			ctx = observability.WithLogger(ctx, logger)
			cmd.SetContext(ctx)

			if cleanup != nil {
				cmd.PostRunE = wrapNamedPostRunCleanup(cmd.PostRunE, "logger resources", cleanup)
			}

			// Initialize OpenTelemetry tracing (opt-in via OTEL_ENABLED).
			telemetryCfg := &observability.TelemetryConfig{
				Enabled: observability.IsTelemetryEnabled(),
				Version: version,
				Commit:  commit,
			}

			telemetryShutdown, telemetryErr := observability.SetupTelemetry(ctx, telemetryCfg)
			if telemetryErr != nil {
				logger.Warn("telemetry initialization failed", slog.String("error", telemetryErr.Error()))
			}

			if telemetryShutdown != nil {
				cmd.PostRunE = wrapNamedPostRunCleanup(cmd.PostRunE, "telemetry resources", func() error {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()

					return telemetryShutdown(shutdownCtx)
				})
			}

			return nil
		},
	}

	// Flags stop at the first positional argument so the child's own
	// flags pass through untouched: `runlim 100 ls --color` hands
	// --color to ls, not to runlim.
	rootCmd.Flags().SetInterspersed(false)

	// Global flags
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Minimal output (for CI)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: error, warn, info, debug")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: json, text")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Optional structured log file path")
	rootCmd.PersistentFlags().StringVar(&logStderr, "log-stderr", "", "Structured logging to stderr: on, off")

	// Accept underscore spellings (--log_level) alongside the canonical
	// dashed names.
	rootCmd.PersistentFlags().SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	// Wrap Cobra's raw flag errors in CLIError so they get styled output
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &clierrors.CLIError{
			Message: err.Error(),
			Hint:    fmt.Sprintf("Run '%s --help' for available flags", cmd.CommandPath()),
			Code:    clierrors.ExitInternal,
		}
	})

	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func wrapNamedPostRunCleanup(postRun func(*cobra.Command, []string) error, name string, cleanup func() error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if postRun != nil {
			if err := postRun(cmd, args); err != nil {
				_ = cleanup()
				return err
			}
		}

		if err := cleanup(); err != nil {
			return fmt.Errorf("cleanup %s: %w", name, err)
		}

		return nil
	}
}

func pickBoolFlagOrEnv(flagValue bool, envKey string) bool {
	if flagValue {
		return true
	}

	v := strings.ToLower(strings.TrimSpace(os.Getenv(envKey)))

	return v == "1" || v == "true" || v == "yes"
}

// pickFlagOrConfig prefers an explicit flag value over the config layer
// (which itself already merged env vars, the config file, and defaults).
func pickFlagOrConfig(flagValue, configValue string) string {
	trimmed := strings.TrimSpace(flagValue)
	if trimmed != "" {
		return trimmed
	}

	return configValue
}

// VersionInfo represents version information for JSON output.
type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

func newVersionCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "version",
		Short:   "Show version information",
		Long:    `Display the runlim binary version, git commit, and build date.`,
		Example: `  runlim version`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			if jsonOutput {
				return out.PrintJSON(VersionInfo{
					Version: version,
					Commit:  commit,
					Date:    date,
				})
			}

			out.Print("runlim %s\n", version)
			out.Print("  commit: %s\n", commit)
			out.Print("  built:  %s\n", date)

			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}
