// Package logging wraps zap with the console/file tee, log rotation and the
// redaction filter every component logs through.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger and redacts secrets and personal data from every
// field before it reaches a sink.
//
// Components take a *Logger and derive a named child:
//
//	log := logger.Named("pdf-extractor").With(zap.String("request_id", id))
//	log.Info("text layer read", zap.Int("pages", n))
type Logger struct {
	zap         *zap.Logger
	development bool
	filePath    string
}

// Options configures NewLogger.
type Options struct {
	// Development selects the coloured console encoder and debug level.
	Development bool

	// Level is the minimum level. Nil means debug in development, info otherwise.
	Level *zapcore.Level

	// FilePath enables the rotating JSON file sink when set.
	FilePath string

	// File tunes rotation of the file sink.
	File FileWriterConfig

	// Console overrides the console sink (stderr by default).
	Console zapcore.WriteSyncer
}

// NewLogger builds a Logger from opts.
//
// Console output goes to stderr so the CLI can keep stdout for results.
func NewLogger(opts Options) (*Logger, error) {
	level := zapcore.InfoLevel
	if opts.Development {
		level = zapcore.DebugLevel
	}
	if opts.Level != nil {
		level = *opts.Level
	}

	console := opts.Console
	if console == nil {
		console = zapcore.Lock(os.Stderr)
	}

	var file zapcore.WriteSyncer
	if opts.FilePath != "" {
		var err error
		file, err = NewFileWriter(opts.FilePath, opts.File)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file writer: %w", err)
		}
	}

	core := NewMultiCore(level, console, file, opts.Development)
	return &Logger{
		zap:         zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)),
		development: opts.Development,
		filePath:    opts.FilePath,
	}, nil
}

// NewFromCore wraps an existing core. Tests pass a zaptest/observer core.
func NewFromCore(core zapcore.Core) *Logger {
	return &Logger{zap: zap.New(core)}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *Logger) *Logger {
	if l == nil {
		return NewNop()
	}
	return l
}

// Sync flushes buffered entries. Call it before exiting.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}

func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, redactFields(fields)...)
}

func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, redactFields(fields)...)
}

func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, redactFields(fields)...)
}

func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.zap.Error(msg, redactFields(fields)...)
}

// With returns a child logger that adds fields to every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{
		zap:         l.zap.With(redactFields(fields)...),
		development: l.development,
		filePath:    l.filePath,
	}
}

// Named returns a child logger with name appended to the logger name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		zap:         l.zap.Named(name),
		development: l.development,
		filePath:    l.filePath,
	}
}

// Zap exposes the underlying logger.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// IsDevelopment reports whether the console uses the development encoder.
func (l *Logger) IsDevelopment() bool {
	return l.development
}

// FilePath returns the log file path, empty when file logging is off.
func (l *Logger) FilePath() string {
	return l.filePath
}

func redactFields(fields []zap.Field) []zap.Field {
	if len(fields) == 0 {
		return fields
	}
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		out[i] = redactField(f)
	}
	return out
}

func redactField(field zap.Field) zap.Field {
	if IsSensitiveField(field.Key) {
		return zap.String(field.Key, RedactedPlaceholder)
	}
	if field.Type == zapcore.StringType {
		if redacted := RedactSensitiveData(field.String); redacted != field.String {
			return zap.String(field.Key, redacted)
		}
	}
	return field
}
