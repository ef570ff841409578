package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/samber/lo"
)

type loggingCtxKey struct{}

// FromContext returns the logger stored in ctx, or a logger that discards everything
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggingCtxKey{}).(*slog.Logger); ok {
		return logger
	}
	return NoOpLogger()
}

func ToContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggingCtxKey{}, logger)
}

// DefaultLogger logs text to stderr, at debug level when verbose
func DefaultLogger(verbose bool) *slog.Logger {
	return DefaultFileLogger(verbose, os.Stderr)
}

func DefaultFileLogger(verbose bool, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: lo.Ternary(verbose, slog.LevelDebug, slog.LevelInfo),
	}))
}

func NoOpLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
