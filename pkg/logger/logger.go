// Package logger wraps zap with the JSON layout used by every forecaster
// command: ISO-8601 "ts", capitalised level, caller.
package logger

import (
	"context"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger holds both the structured zap.Logger and its sugared form
type Logger struct {
	*zap.Logger
	*zap.SugaredLogger
}

// New builds a stdout logger. Accepted levels: debug, info, warn, error.
func New(level string) (*Logger, error) {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter builds a logger that writes JSON lines to w
func NewWithWriter(level string, w io.Writer) (*Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(w)),
		zapLevel,
	)

	return wrap(zap.New(core, zap.AddCaller())), nil
}

// Nop returns a logger that discards everything, for tests and library
// callers that do not configure logging.
func Nop() *Logger {
	return wrap(zap.NewNop())
}

func wrap(l *zap.Logger) *Logger {
	return &Logger{Logger: l, SugaredLogger: l.Sugar()}
}

type loggerKey struct{}

// WithContext returns a context carrying l, typically with request fields attached
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext extracts the request logger, or the fallback's logger when
// none was stored.
func FromContext(ctx context.Context, fallback *Logger) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	if fallback == nil {
		return zap.NewNop()
	}
	return fallback.Logger
}

// WithRequestID attaches a req_id field
func WithRequestID(l *zap.Logger, reqID string) *zap.Logger {
	return l.With(zap.String("req_id", reqID))
}

// Flush writes buffered entries; call from main before exit.
// Sync errors on stdout (EINVAL on some platforms) are ignored.
func Flush(l *zap.Logger) {
	_ = l.Sync()
}
