// Package logger exposes a process-wide structured logger built on zap's
// SugaredLogger. Records are encoded as JSON on stdout, and when the
// telemetry package has registered an OTLP LoggerProvider they are also
// bridged into OpenTelemetry via otelzap.
package logger

import (
	"context"
	"os"
	"sync"

	"github.com/gabapcia/txwatch/internal/pkg/telemetry"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// logger is the shared instance configured by Init.
	logger *zap.SugaredLogger

	// initOnce guards one-time setup across concurrent Init calls.
	initOnce sync.Once
)

// config collects the adjustable knobs applied before initialization.
type config struct {
	level string
}

// Option adjusts the logger configuration prior to Init building it.
type Option func(*config)

// WithLevel sets the minimum severity that will be emitted. Accepted values
// are the zap level names: "debug", "info", "warn", "error", "panic", "fatal".
func WithLevel(l string) Option {
	return func(c *config) {
		c.level = l
	}
}

// buildCores assembles the output cores for the given level: the JSON
// stdout core, plus the OTLP bridge when telemetry is active.
func buildCores(level zapcore.Level) []zapcore.Core {
	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(os.Stdout),
			level,
		),
	}

	if lp := telemetry.LoggerProvider(); lp != nil {
		cores = append(cores, otelzap.NewCore("", otelzap.WithLoggerProvider(lp)))
	}

	return cores
}

// Init builds the shared logger. Without options it logs at "info". The
// first successful call wins; later calls only re-validate their options.
// It returns an error when the configured level is not a valid zap level.
func Init(opts ...Option) error {
	cfg := config{level: "info"}
	for _, opt := range opts {
		opt(&cfg)
	}

	level, err := zapcore.ParseLevel(cfg.level)
	if err != nil {
		return err
	}

	initOnce.Do(func() {
		logger = zap.New(zapcore.NewTee(buildCores(level)...)).Sugar()
	})

	return nil
}

// Sync flushes buffered entries. Call it on shutdown.
func Sync() error {
	return logger.Sync()
}

// Debug logs at debug level with alternating key/value context.
func Debug(ctx context.Context, msg string, keysAndValues ...any) {
	logger.Debugw(msg, keysAndValues...)
}

// Info logs at info level with alternating key/value context.
func Info(ctx context.Context, msg string, keysAndValues ...any) {
	logger.Infow(msg, keysAndValues...)
}

// Warn logs at warn level with alternating key/value context.
func Warn(ctx context.Context, msg string, keysAndValues ...any) {
	logger.Warnw(msg, keysAndValues...)
}

// Error logs at error level with alternating key/value context.
func Error(ctx context.Context, msg string, keysAndValues ...any) {
	logger.Errorw(msg, keysAndValues...)
}

// Panic logs at panic level and then panics.
func Panic(ctx context.Context, msg string, keysAndValues ...any) {
	logger.Panicw(msg, keysAndValues...)
}

// Fatal logs at fatal level and then calls os.Exit(1).
func Fatal(ctx context.Context, msg string, keysAndValues ...any) {
	logger.Fatalw(msg, keysAndValues...)
}
