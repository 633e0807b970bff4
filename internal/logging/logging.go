// Package logging builds the process-wide slog logger from config.
package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/vedran77/careteam/internal/config"
)

// New returns a logger writing to w. Format "text" selects the key=value
// handler; anything else writes JSON lines. Timestamps are always UTC.
func New(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       cfg.SlogLevel(),
		ReplaceAttr: utcTime,
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With("service", "careteam")
}

func utcTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		a.Value = slog.TimeValue(a.Value.Time().UTC().Truncate(time.Millisecond))
	}
	return a
}
