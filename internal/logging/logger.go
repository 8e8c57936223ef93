/**
 * Logging for the text extraction worker and CLI
 *
 * Wraps zap with the key-value call style used across the worker
 */

package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls how loggers are built.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json or console
}

// Logger provides structured logging for the worker
type Logger struct {
	prefix string
	sugar  *zap.SugaredLogger
	base   *zap.Logger
}

// NewLogger creates a new logger with a prefix at info level, JSON encoded.
func NewLogger(prefix string) *Logger {
	l, err := New(prefix, Options{Level: "info", Format: "json"})
	if err != nil {
		// The default options always parse.
		panic(err)
	}
	return l
}

// New creates a logger with a prefix and explicit options.
func New(prefix string, opts Options) (*Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var cfg zap.Config
	switch strings.ToLower(opts.Format) {
	case "", "json":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	base, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return Wrap(base.Named(prefix), prefix), nil
}

// Wrap adapts an existing zap logger.
func Wrap(base *zap.Logger, prefix string) *Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return &Logger{prefix: prefix, sugar: base.Sugar(), base: base}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return Wrap(zap.NewNop(), "")
}

// ParseLevel maps a level name to a zap level. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return level, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// Named returns a child logger whose prefix is extended with name.
func (l *Logger) Named(name string) *Logger {
	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "." + name
	}
	return &Logger{prefix: prefix, sugar: l.sugar.Named(name), base: l.base.Named(name)}
}

// With returns a child logger carrying the given key-value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	sugar := l.sugar.With(keysAndValues...)
	return &Logger{prefix: l.prefix, sugar: sugar, base: sugar.Desugar()}
}

// Zap exposes the underlying logger for libraries that take *zap.Logger.
func (l *Logger) Zap() *zap.Logger {
	return l.base
}

// Info logs an informational message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// Debug logs a debug message with key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.base.Sync()
}
