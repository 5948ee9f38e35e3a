// Package logger is the zap-backed structured logger shared by the rxpos
// binaries. Request-scoped calls pick trace and cashier fields out of the
// context.
package logger

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appctx "rxpos/internal/core/context"
)

// Logger is a sugared zap logger.
type Logger struct {
	*zap.SugaredLogger
}

// Config selects level and encoding.
type Config struct {
	Level       string // debug, info, warn, error
	Development bool   // console encoder with colours
	Service     string // stamped on every entry when set
}

// New builds a Logger. An unknown level falls back to info.
func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	opts := []zap.Option{zap.AddCallerSkip(1)}
	if cfg.Service != "" {
		opts = append(opts, zap.Fields(zap.String("service", cfg.Service)))
	}

	z, err := zc.Build(opts...)
	if err != nil {
		return nil, err
	}
	return &Logger{z.Sugar()}, nil
}

var (
	mu      sync.RWMutex
	current *Logger
)

// Default returns the process logger. Before SetDefault it is a JSON logger
// on stderr.
func Default() *Logger {
	mu.RLock()
	l := current
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		z, err := zap.NewProduction(zap.AddCallerSkip(1))
		if err != nil {
			z = zap.NewNop()
		}
		current = &Logger{z.Sugar()}
	}
	return current
}

// SetDefault installs l as the process logger and as zap's global.
func SetDefault(l *Logger) {
	mu.Lock()
	current = l
	mu.Unlock()
	zap.ReplaceGlobals(l.Desugar())
}

// WithContext returns l annotated with the request and cashier found in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := make([]any, 0, 10)

	if trace := appctx.GetTrace(ctx); trace != nil {
		fields = append(fields, "trace_id", trace.TraceID, "request_id", trace.RequestID)
	}
	if user := appctx.GetUser(ctx); user != nil {
		fields = append(fields, "user_id", user.UserID, "pharmacy_id", user.PharmacyID)
		if user.BranchID != "" {
			fields = append(fields, "branch_id", user.BranchID)
		}
	}

	if len(fields) == 0 {
		return l
	}
	return &Logger{l.SugaredLogger.With(fields...)}
}

// WithComponent tags entries with the subsystem that wrote them.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{l.SugaredLogger.With("component", name)}
}

func Debug(ctx context.Context, msg string, keysAndValues ...any) {
	Default().WithContext(ctx).Debugw(msg, keysAndValues...)
}

func Info(ctx context.Context, msg string, keysAndValues ...any) {
	Default().WithContext(ctx).Infow(msg, keysAndValues...)
}

func Warn(ctx context.Context, msg string, keysAndValues ...any) {
	Default().WithContext(ctx).Warnw(msg, keysAndValues...)
}

func Error(ctx context.Context, msg string, keysAndValues ...any) {
	Default().WithContext(ctx).Errorw(msg, keysAndValues...)
}
