package irutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// LogLevel represents different levels of logging detail
type LogLevel int

const (
	LogLevelSilent LogLevel = iota
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

// String returns the name used for the level in configuration files.
func (l LogLevel) String() string {
	switch l {
	case LogLevelSilent:
		return "silent"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	case LogLevelTrace:
		return "trace"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLogLevel parses a level name, as written in configuration files or
// on the command line.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "silent", "quiet", "off", "none":
		return LogLevelSilent, nil
	case "", "info":
		return LogLevelInfo, nil
	case "debug":
		return LogLevelDebug, nil
	case "trace":
		return LogLevelTrace, nil
	default:
		return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Logger provides leveled logging for the analysis and its drivers. The
// analysis core reports its diagnostics (missing operands, invalid
// arguments) through it instead of failing.
type Logger struct {
	level  LogLevel
	writer io.Writer
	prefix string
}

type loggerKey struct{}

// NewLogger creates a new logger with the specified level and output
func NewLogger(level LogLevel, writer io.Writer) *Logger {
	if writer == nil {
		writer = os.Stderr
	}
	return &Logger{
		level:  level,
		writer: writer,
	}
}

// Discard returns a logger that writes nothing.
func Discard() *Logger {
	return NewLogger(LogLevelSilent, io.Discard)
}

// Level returns the level of the logger.
func (l *Logger) Level() LogLevel {
	return l.level
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level LogLevel) bool {
	return l != nil && level != LogLevelSilent && l.level >= level
}

// WithPrefix returns a new logger with an additional prefix, such as the
// name of the function being analyzed.
func (l *Logger) WithPrefix(prefix string) *Logger {
	newPrefix := prefix
	if l.prefix != "" {
		newPrefix = l.prefix + " " + prefix
	}
	return &Logger{
		level:  l.level,
		writer: l.writer,
		prefix: newPrefix,
	}
}

// Info logs informational messages (always visible except silent mode)
func (l *Logger) Info(format string, args ...interface{}) {
	if l.Enabled(LogLevelInfo) {
		l.log("•", format, args...)
	}
}

// Debug logs debug messages (visible in debug and trace modes)
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.Enabled(LogLevelDebug) {
		l.log("→", format, args...)
	}
}

// Trace logs detailed trace messages (visible only in trace mode)
func (l *Logger) Trace(format string, args ...interface{}) {
	if l.Enabled(LogLevelTrace) {
		l.log("·", format, args...)
	}
}

// Step logs a processing step with context
func (l *Logger) Step(step string, details ...string) {
	if l.Enabled(LogLevelInfo) {
		msg := step
		if len(details) > 0 {
			msg += ": " + strings.Join(details, ", ")
		}
		l.log("✓", "%s", msg)
	}
}

// Warning logs warning messages
func (l *Logger) Warning(format string, args ...interface{}) {
	if l.Enabled(LogLevelInfo) {
		l.log("⚠", format, args...)
	}
}

// Error logs error messages (always visible except silent mode)
func (l *Logger) Error(format string, args ...interface{}) {
	if l.Enabled(LogLevelInfo) {
		l.log("✗", format, args...)
	}
}

func (l *Logger) log(symbol, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	prefix := ""
	if l.prefix != "" {
		prefix = "[" + l.prefix + "] "
	}
	fmt.Fprintf(l.writer, "%s %s%s\n", symbol, prefix, message)
	if f, ok := l.writer.(interface{ Flush() error }); ok {
		_ = f.Flush()
	}
}

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext retrieves a logger from the context, returning a silent
// logger if none exists.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*Logger); ok && logger != nil {
		return logger
	}
	return Discard()
}

// ProgressTracker reports progress over a batch of functions, logging at
// most every interval and on completion.
type ProgressTracker struct {
	name      string
	total     int
	current   int
	startTime time.Time
	lastLog   time.Time
	interval  time.Duration
	logger    *Logger
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(ctx context.Context, name string, total int) *ProgressTracker {
	logger := FromContext(ctx)

	interval := time.Second
	if total > 1000 {
		interval = 3 * time.Second
	}

	if total > 10 {
		logger.Info("%s (%d functions)", name, total)
	}

	now := time.Now()
	return &ProgressTracker{
		name:      name,
		total:     total,
		startTime: now,
		lastLog:   now,
		interval:  interval,
		logger:    logger,
	}
}

// Update records one processed item, named by message.
func (pt *ProgressTracker) Update(message string) {
	pt.current++
	pt.logger.Debug("%s (%d/%d): %s", pt.name, pt.current, pt.total, message)

	if pt.current >= pt.total || pt.total <= 10 {
		return
	}

	now := time.Now()
	if now.Sub(pt.lastLog) < pt.interval {
		return
	}
	pt.lastLog = now

	percent := float64(pt.current) / float64(pt.total) * 100
	pt.logger.Info("▸ %s: %d/%d (%.0f%%)", pt.name, pt.current, pt.total, percent)
}

// Complete marks the operation as finished
func (pt *ProgressTracker) Complete() {
	elapsed := time.Since(pt.startTime)
	pt.logger.Step(fmt.Sprintf("%s complete", pt.name), fmt.Sprintf("%d functions in %v", pt.current, elapsed.Truncate(time.Millisecond)))
}
