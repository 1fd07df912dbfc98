package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger_DefaultsToDiscard(t *testing.T) {
	// No sinks configured: the logger must exist and swallow output so
	// stderr stays clean for the one-line diagnostic contract.
	logger, cleanup, err := NewLogger(&Config{SessionID: "s", Version: "v", Commit: "c"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	defer cleanup() //nolint:errcheck

	logger.Info("should vanish")
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, _, err := NewLogger(&Config{Level: "loud"})
	if err == nil {
		t.Fatal("expected error for invalid level")
	}

	if !strings.Contains(err.Error(), "invalid log level") {
		t.Errorf("error = %v, want invalid log level", err)
	}
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	_, _, err := NewLogger(&Config{Format: "xml"})
	if err == nil {
		t.Fatal("expected error for invalid format")
	}
}

func TestNewLogger_InvalidStderrMode(t *testing.T) {
	_, _, err := NewLogger(&Config{StderrMode: "sometimes"})
	if err == nil {
		t.Fatal("expected error for invalid stderr mode")
	}
}

func TestNewLogger_FileSink(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "runlim.log")

	logger, cleanup, err := NewLogger(&Config{
		Level:     "debug",
		Format:    "json",
		LogFile:   logPath,
		SessionID: "session-1",
	})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Debug("spawned", slog.Int("pid", 1234))

	if err := cleanup(); err != nil {
		t.Fatalf("cleanup() error = %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	content := string(data)
	if !strings.Contains(content, "spawned") {
		t.Errorf("log file missing message: %s", content)
	}

	if !strings.Contains(content, "session-1") {
		t.Errorf("log file missing session id: %s", content)
	}
}

func TestNewLogger_RedactsSensitiveKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "runlim.log")

	logger, cleanup, err := NewLogger(&Config{LogFile: logPath})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Info("auth", slog.String("api_key", "super-secret-value"))

	if err := cleanup(); err != nil {
		t.Fatalf("cleanup() error = %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	content := string(data)
	if strings.Contains(content, "super-secret-value") {
		t.Error("sensitive value leaked into log output")
	}

	if !strings.Contains(content, redactedValue) {
		t.Errorf("log output missing redaction marker: %s", content)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Leveler
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "info", want: slog.LevelInfo},
		{in: "DEBUG", want: slog.LevelDebug},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLevel(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseLevel(%q) expected error", tt.in)
				}
				return
			}

			if err != nil {
				t.Fatalf("parseLevel(%q) error = %v", tt.in, err)
			}

			if got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFromContext(t *testing.T) {
	ctx := context.Background()

	if got := FromContext(ctx); got != slog.Default() {
		t.Error("empty context should fall back to slog.Default")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx = WithLogger(ctx, logger)

	if got := FromContext(ctx); got != logger {
		t.Error("context did not round-trip the logger")
	}
}
