package o11y

import (
	"context"
	"io"
	"log/slog"
)

// LoggerFromContext returns a logger writing JSON records into the span in ctx. Without a
// span the records are dropped.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	span := GetSpan(ctx)
	if span == nil {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return slog.New(slog.NewJSONHandler(span, nil))
}
