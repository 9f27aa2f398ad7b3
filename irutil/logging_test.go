package irutil

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
)

func TestLoggingSystem(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogLevelDebug, &buf)

	logger.Info("Starting test")
	logger.Debug("Debug message")
	logger.Trace("Trace message (should not appear)")
	logger.Step("Resolving variables", "x", "fp")
	logger.Warning("Warning message")
	logger.Error("Error message")

	output := buf.String()

	if !strings.Contains(output, "• Starting test") {
		t.Error("Info message not found")
	}
	if !strings.Contains(output, "→ Debug message") {
		t.Error("Debug message not found")
	}
	if strings.Contains(output, "Trace message") {
		t.Error("Trace message should not appear at debug level")
	}
	if !strings.Contains(output, "Resolving variables: x, fp") {
		t.Error("Step message not formatted correctly")
	}
}

func TestLoggerPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogLevelInfo, &buf).WithPrefix("main").WithPrefix("loop")

	logger.Info("seeded %d values", 3)

	if got, want := buf.String(), "• [main loop] seeded 3 values\n"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSilentLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogLevelSilent, &buf)

	logger.Info("info")
	logger.Error("error")

	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}

	if FromContext(context.Background()).Enabled(LogLevelInfo) {
		t.Fatal("expected logger without context value to be silent")
	}
}

func TestParseLogLevel(t *testing.T) {
	for input, want := range map[string]LogLevel{
		"":       LogLevelInfo,
		"silent": LogLevelSilent,
		"INFO":   LogLevelInfo,
		"debug":  LogLevelDebug,
		" trace": LogLevelTrace,
	} {
		got, err := ParseLogLevel(input)
		if err != nil {
			t.Fatalf("ParseLogLevel(%q): %v", input, err)
		}
		if got != want {
			t.Errorf("ParseLogLevel(%q) = %s, want %s", input, got, want)
		}
	}

	if _, err := ParseLogLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestProgressTracker(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogLevelDebug, &buf)
	ctx := WithLogger(context.Background(), logger)

	tracker := NewProgressTracker(ctx, "Analyzing functions", 5)

	for i := 0; i < 5; i++ {
		tracker.Update(fmt.Sprintf("f%d", i+1))
	}

	tracker.Complete()

	output := buf.String()
	if !strings.Contains(output, "Analyzing functions (5/5): f5") {
		t.Error("Progress update not found")
	}
	if !strings.Contains(output, "Analyzing functions complete: 5 functions") {
		t.Error("Completion message not found")
	}
}
