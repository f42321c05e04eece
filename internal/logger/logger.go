// Package logger provides a simple logging interface for tbwatch components.
// It allows packages to log debug, info, warn, and error messages without
// being coupled to a specific logging implementation.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DebugEnvVar forces debug-level output when set to any non-empty value.
const DebugEnvVar = "TBWATCH_DEBUG"

// Logger defines the interface for logging operations.
// All methods accept a format string and arguments, similar to fmt.Printf.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// zapLogger implements Logger on top of a zap SugaredLogger.
// The prefix (e.g. "[monitor]") is prepended to every message.
// A nil sugar means the process-wide base, looked up per call so that
// package-level loggers follow Configure.
type zapLogger struct {
	prefix string
	sugar  *zap.SugaredLogger
}

var (
	baseMu    sync.RWMutex
	base      = newConsoleLogger(os.Stderr, defaultLevel())
	baseSugar = base.Sugar()
)

// defaultLevel returns debug when DebugEnvVar is set, info otherwise.
func defaultLevel() zapcore.Level {
	if os.Getenv(DebugEnvVar) != "" {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

// newConsoleLogger builds a human-readable zap logger writing to w.
func newConsoleLogger(w zapcore.WriteSyncer, level zapcore.Level) *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), w, level)
	return zap.New(core)
}

// ParseLevel converts a level name (debug, info, warn, error) to a zap level.
func ParseLevel(name string) (zapcore.Level, error) {
	if name == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
	return lvl, nil
}

// Configure replaces the process-wide base logger. The debug flag (or
// DebugEnvVar) overrides level to debug.
func Configure(level string, debug bool) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	if debug || os.Getenv(DebugEnvVar) != "" {
		lvl = zapcore.DebugLevel
	}
	SetBase(newConsoleLogger(zapcore.Lock(os.Stderr), lvl))
	return nil
}

// SetBase swaps the zap logger that New wraps.
func SetBase(l *zap.Logger) {
	baseMu.Lock()
	defer baseMu.Unlock()
	base = l
	baseSugar = l.Sugar()
}

// Sync flushes buffered output of the base logger.
func Sync() {
	baseMu.RLock()
	defer baseMu.RUnlock()
	_ = base.Sync()
}

// New creates a logger that prefixes messages with prefix (e.g. "[sync]").
func New(prefix string) Logger {
	return &zapLogger{prefix: prefix}
}

// NewWithCore creates a prefixed logger on an explicit zap core.
// Tests use it with zaptest/observer.
func NewWithCore(prefix string, core zapcore.Core) Logger {
	return &zapLogger{prefix: prefix, sugar: zap.New(core).Sugar()}
}

func (l *zapLogger) s() *zap.SugaredLogger {
	if l.sugar != nil {
		return l.sugar
	}
	baseMu.RLock()
	defer baseMu.RUnlock()
	return baseSugar
}

func (l *zapLogger) format(format string) string {
	if l.prefix == "" {
		return format
	}
	return l.prefix + " " + format
}

func (l *zapLogger) Debug(format string, args ...interface{}) {
	l.s().Debugf(l.format(format), args...)
}

func (l *zapLogger) Info(format string, args ...interface{}) {
	l.s().Infof(l.format(format), args...)
}

func (l *zapLogger) Warn(format string, args ...interface{}) {
	l.s().Warnf(l.format(format), args...)
}

func (l *zapLogger) Error(format string, args ...interface{}) {
	l.s().Errorf(l.format(format), args...)
}

// noopLogger implements Logger but discards all messages.
type noopLogger struct{}

// Noop returns a logger that discards all messages.
func Noop() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debug(format string, args ...interface{}) {}
func (l *noopLogger) Info(format string, args ...interface{})  {}
func (l *noopLogger) Warn(format string, args ...interface{})  {}
func (l *noopLogger) Error(format string, args ...interface{}) {}

// LogMessage represents a captured log message.
type LogMessage struct {
	Level   string
	Message string
}

// BufferLogger captures log messages for testing.
// Safe for use from collector goroutines.
type BufferLogger struct {
	mu       sync.Mutex
	messages []LogMessage
}

// NewBufferLogger creates a logger that captures messages for inspection.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{}
}

func (l *BufferLogger) add(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, LogMessage{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Debug(format string, args ...interface{}) { l.add("debug", format, args...) }
func (l *BufferLogger) Info(format string, args ...interface{})  { l.add("info", format, args...) }
func (l *BufferLogger) Warn(format string, args ...interface{})  { l.add("warn", format, args...) }
func (l *BufferLogger) Error(format string, args ...interface{}) { l.add("error", format, args...) }

// Messages returns a copy of the captured messages.
func (l *BufferLogger) Messages() []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

// HasLevel returns true if any message was logged at the given level.
func (l *BufferLogger) HasLevel(level string) bool {
	for _, m := range l.Messages() {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Contains reports whether any captured message contains substr.
func (l *BufferLogger) Contains(substr string) bool {
	for _, m := range l.Messages() {
		if strings.Contains(m.Message, substr) {
			return true
		}
	}
	return false
}

// Clear removes all captured messages.
func (l *BufferLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = nil
}
