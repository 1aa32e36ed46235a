// Package logger_test contains tests for the logger package
package logger_test

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/lumolearn/lumo-core/internal/config"
	"github.com/lumolearn/lumo-core/internal/platform/logger"
)

// discardStdout redirects stdout for the duration of the returned cleanup
// so Setup's JSON output does not pollute the test log.
func discardStdout(t *testing.T) func() {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create stdout pipe: %v", err)
	}
	os.Stdout = w

	return func() {
		os.Stdout = origStdout
		if err := w.Close(); err != nil {
			t.Logf("Failed to close writer: %v", err)
		}
		if _, err := io.Copy(io.Discard, r); err != nil {
			t.Logf("Failed to drain pipe: %v", err)
		}
		// Reset default logger since Setup replaced it
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	}
}

// TestSetup is a basic test that ensures the Setup function works without errors
func TestSetup(t *testing.T) {
	cleanup := discardStdout(t)
	defer cleanup()

	cfg := config.ServerConfig{
		LogLevel: "info",
		Port:     8080,
	}

	log, err := logger.Setup(cfg)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if log == nil {
		t.Fatal("Setup returned a nil logger")
	}
}

// TestInvalidLogLevelParsing tests that when an invalid log level is provided,
// the Setup function defaults to info level and logs a warning message to stderr.
func TestInvalidLogLevelParsing(t *testing.T) {
	// Redirect stderr to capture the warning message
	origStderr := os.Stderr
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create stderr pipe: %v", err)
	}
	os.Stderr = stderrW

	cleanup := discardStdout(t)

	cfg := config.ServerConfig{
		LogLevel: "invalid_level",
		Port:     8080,
	}

	log, err := logger.Setup(cfg)

	os.Stderr = origStderr
	cleanup()
	if closeErr := stderrW.Close(); closeErr != nil {
		t.Logf("Failed to close stderr writer: %v", closeErr)
	}

	stderrBuf := new(bytes.Buffer)
	if _, copyErr := io.Copy(stderrBuf, stderrR); copyErr != nil {
		t.Logf("Failed to read from stderr pipe: %v", copyErr)
	}
	stderrOutput := stderrBuf.String()

	if err != nil {
		t.Fatalf("Setup returned an error for invalid log level: %v", err)
	}
	if log == nil {
		t.Fatal("Setup returned a nil logger for invalid log level")
	}

	if !strings.Contains(stderrOutput, "invalid log level configured") {
		t.Errorf("Expected warning message about invalid log level, got: %s", stderrOutput)
	}
	if !strings.Contains(stderrOutput, "invalid_level") {
		t.Errorf("Expected warning to include the invalid level name, got: %s", stderrOutput)
	}
	if !strings.Contains(stderrOutput, "info") {
		t.Errorf("Expected warning to include the default level, got: %s", stderrOutput)
	}
}

// TestValidLogLevelParsing tests that valid log levels are correctly parsed
// by the Setup function.
func TestValidLogLevelParsing(t *testing.T) {
	testCases := []struct {
		name     string
		logLevel string
		want     slog.Level
	}{
		{
			name:     "debug level",
			logLevel: "debug",
			want:     slog.LevelDebug,
		},
		{
			name:     "info level",
			logLevel: "info",
			want:     slog.LevelInfo,
		},
		{
			name:     "warn level",
			logLevel: "warn",
			want:     slog.LevelWarn,
		},
		{
			name:     "error level",
			logLevel: "error",
			want:     slog.LevelError,
		},
		{
			name:     "case insensitive - DEBUG",
			logLevel: "DEBUG",
			want:     slog.LevelDebug,
		},
		{
			name:     "case insensitive - Info",
			logLevel: "Info",
			want:     slog.LevelInfo,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cleanup := discardStdout(t)
			defer cleanup()

			cfg := config.ServerConfig{
				LogLevel: tc.logLevel,
				Port:     8080,
			}

			log, err := logger.Setup(cfg)
			if err != nil {
				t.Fatalf("Setup returned an error for valid log level %q: %v", tc.logLevel, err)
			}
			if log == nil {
				t.Fatal("Setup returned a nil logger")
			}

			if !log.Enabled(nil, tc.want) {
				t.Errorf("Logger should be enabled at level %v for configured level %q", tc.want, tc.logLevel)
			}
			if tc.want > slog.LevelDebug && log.Enabled(nil, tc.want-4) {
				t.Errorf("Logger should not be enabled below level %v for configured level %q", tc.want, tc.logLevel)
			}
		})
	}
}
