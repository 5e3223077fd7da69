package logging

import (
	"context"
	"log/slog"
)

// Tee writes every record to primary and copies it to each mirror. Only
// primary errors are returned; a mirror such as the Sentry handler must
// never make a log call fail.
func Tee(primary slog.Handler, mirrors ...slog.Handler) slog.Handler {
	if primary == nil {
		primary = Discard().Handler()
	}
	filtered := make([]slog.Handler, 0, len(mirrors))
	for _, mirror := range mirrors {
		if mirror != nil {
			filtered = append(filtered, mirror)
		}
	}
	if len(filtered) == 0 {
		return primary
	}
	return teeHandler{primary: primary, mirrors: filtered}
}

type teeHandler struct {
	primary slog.Handler
	mirrors []slog.Handler
}

func (h teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.primary.Enabled(ctx, level) {
		return true
	}
	for _, mirror := range h.mirrors {
		if mirror.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h teeHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, mirror := range h.mirrors {
		if mirror.Enabled(ctx, record.Level) {
			_ = mirror.Handle(ctx, record.Clone())
		}
	}
	if !h.primary.Enabled(ctx, record.Level) {
		return nil
	}
	return h.primary.Handle(ctx, record)
}

func (h teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(handler slog.Handler) slog.Handler { return handler.WithAttrs(attrs) })
}

func (h teeHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(handler slog.Handler) slog.Handler { return handler.WithGroup(name) })
}

func (h teeHandler) derive(fn func(slog.Handler) slog.Handler) slog.Handler {
	mirrors := make([]slog.Handler, 0, len(h.mirrors))
	for _, mirror := range h.mirrors {
		mirrors = append(mirrors, fn(mirror))
	}
	return teeHandler{primary: fn(h.primary), mirrors: mirrors}
}
