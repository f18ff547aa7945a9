package logging

import (
	"context"
	"log/slog"
	"os"
)

type ctxLoggerKey struct {
	Key string
}

var (
	cKey   = ctxLoggerKey{Key: "logger"}
	reqKey = ctxLoggerKey{Key: "request_id"}
	tidKey = ctxLoggerKey{Key: "thread"}
)

func GetLoggerFromContext(ctx context.Context) *slog.Logger {
	var l *slog.Logger

	logger := ctx.Value(cKey)
	if logger != nil {
		l = logger.(*slog.Logger)
	} else {
		// Default stdout logger
		l = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}

	if requestID := GetRequestIDFromCtx(ctx); requestID != "" {
		l = l.With(slog.String("request_id", requestID))
	}
	if tid, ok := ctx.Value(tidKey).(uint32); ok {
		l = l.With(slog.Any("tid", tid))
	}

	return l
}

// Returns logger from context and attaches operation name
func GetLoggerFromContextWithOp(ctx context.Context, op string) *slog.Logger {
	return GetLoggerFromContext(ctx).With(slog.String("op", op))
}

// GetComponentLogger returns the context logger tagged for a long-lived
// component such as a scheduler core or a delegate.
func GetComponentLogger(ctx context.Context, component string) *slog.Logger {
	return GetLoggerFromContext(ctx).With(slog.String("component", component))
}

func MakeContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, cKey, logger)
}

// MakeContextWithThread tags every logger taken from ctx with the thread id.
func MakeContextWithThread(ctx context.Context, tid uint32) context.Context {
	return context.WithValue(ctx, tidKey, tid)
}
