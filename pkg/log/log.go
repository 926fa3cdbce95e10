// Package log is the structured logger shared by the qtshockd binaries.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the key/value logging interface used across qtshockd.
type Logger interface {
	// Debug logs a message at DebugLevel.
	Debug(msg string, keysAndValues ...any)

	// Info logs a message at InfoLevel.
	Info(msg string, keysAndValues ...any)

	// Warn logs a message at WarnLevel.
	Warn(msg string, keysAndValues ...any)

	// Error logs a message at ErrorLevel.
	Error(err error, msg string, keysAndValues ...any)

	// WithName returns a new logger with the specified name appended.
	WithName(name string) Logger

	// WithValues returns a new logger with additional key-value pairs.
	WithValues(keysAndValues ...any) Logger

	// Sync flushes buffered entries.
	Sync() error
}

var _ Logger = (*zapLogger)(nil)

type zapLogger struct {
	core *zap.Logger
}

// NewLogger creates a Logger from opts. A nil opts uses NewOptions().
func NewLogger(opts *Options) Logger {
	if opts == nil {
		opts = NewOptions()
	}

	encoderConfig := zapcore.EncoderConfig{
		MessageKey:    "message",
		LevelKey:      "level",
		TimeKey:       "timestamp",
		NameKey:       "logger",
		CallerKey:     "caller",
		StacktraceKey: "stacktrace",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
		EncodeDuration: func(d time.Duration, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendFloat64(float64(d) / float64(time.Millisecond))
		},
	}

	// Rotated files never get color escapes.
	if opts.Format == "console" && opts.EnableColor && opts.File == "" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var encoder zapcore.Encoder
	if opts.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(opts.writer()), zap.NewAtomicLevelAt(level))

	zopts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel), zap.ErrorOutput(zapcore.Lock(os.Stderr))}
	if !opts.DisableCaller {
		zopts = append(zopts, zap.AddCaller(), zap.AddCallerSkip(opts.CallerSkip))
	}

	l := zap.New(core, zopts...)
	if opts.Name != "" {
		l = l.Named(opts.Name)
	}

	return &zapLogger{core: l}
}

// writer returns the sink selected by the options.
func (o *Options) writer() io.Writer {
	if o.File != "" {
		return &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxSizeMB,
			MaxBackups: o.MaxBackups,
		}
	}
	if o.Output == "stderr" {
		return zapcore.Lock(os.Stderr)
	}
	return zapcore.Lock(os.Stdout)
}

func Debug(msg string, keysAndValues ...any)            { std().Debug(msg, keysAndValues...) }
func Info(msg string, keysAndValues ...any)             { std().Info(msg, keysAndValues...) }
func Warn(msg string, keysAndValues ...any)             { std().Warn(msg, keysAndValues...) }
func Error(err error, msg string, keysAndValues ...any) { std().Error(err, msg, keysAndValues...) }
func WithName(name string) Logger                       { return std().WithName(name) }
func WithValues(keysAndValues ...any) Logger            { return std().WithValues(keysAndValues...) }
func Sync() error                                       { return std().Sync() }

func (z *zapLogger) Debug(msg string, keysAndValues ...any) {
	z.core.Debug(msg, toFields(keysAndValues...)...)
}

func (z *zapLogger) Info(msg string, keysAndValues ...any) {
	z.core.Info(msg, toFields(keysAndValues...)...)
}

func (z *zapLogger) Warn(msg string, keysAndValues ...any) {
	z.core.Warn(msg, toFields(keysAndValues...)...)
}

func (z *zapLogger) Error(err error, msg string, keysAndValues ...any) {
	fields := toFields(keysAndValues...)
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	z.core.Error(msg, fields...)
}

func (z *zapLogger) WithName(name string) Logger {
	return &zapLogger{core: z.core.Named(name)}
}

func (z *zapLogger) WithValues(keysAndValues ...any) Logger {
	return &zapLogger{core: z.core.With(toFields(keysAndValues...)...)}
}

func (z *zapLogger) Sync() error {
	return z.core.Sync()
}

var (
	mu     sync.RWMutex
	global = NewNopLogger()
)

func std() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Init replaces the global logger with one built from opts.
func Init(opts *Options) {
	l := NewLogger(opts)
	mu.Lock()
	global = l
	mu.Unlock()
}

// Std returns the global logger instance.
func Std() Logger {
	return std()
}

// NewNopLogger returns a logger that performs no operations.
func NewNopLogger() Logger {
	return &zapLogger{core: zap.NewNop()}
}

// New wraps an existing zap logger. Tests use it with zaptest/observer.
func New(l *zap.Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return &zapLogger{core: l}
}
