package logging

import (
	"context"
	"log/slog"

	sentryslog "github.com/getsentry/sentry-go/slog"
)

// NewSentryHandler forwards records at or above minLevel to Sentry. Errors are
// captured as events and everything below them is sent as Sentry logs, so a
// captured reconciliation failure can be read alongside the lines that led to
// it. Without an initialized client it drops everything.
func NewSentryHandler(ctx context.Context, minLevel slog.Level) slog.Handler {
	events, logs := sentryLevels(minLevel)
	return sentryslog.Option{
		EventLevel: events,
		LogLevel:   logs,
	}.NewSentryHandler(ctx)
}

func sentryLevels(minLevel slog.Level) (events, logs []slog.Level) {
	events = []slog.Level{slog.LevelError, sentryslog.LevelFatal}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn} {
		if level >= minLevel {
			logs = append(logs, level)
		}
	}
	return events, logs
}
