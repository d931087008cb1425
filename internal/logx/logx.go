package logx

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/tabcast/schema"
)

type contextKey int

const (
	tabKey contextKey = iota
)

// WithTab annotates the context logger with the tab id and returns a context carrying
// that logger. A context already annotated for tabID is returned unchanged.
func WithTab(ctx context.Context, tabID schema.TabID) (context.Context, pslog.Logger) {
	log := pslog.Ctx(ctx)
	if tabID <= 0 {
		return ctx, log
	}
	if current, ok := ctx.Value(tabKey).(schema.TabID); ok && current == tabID {
		return ctx, log
	}
	log = log.With("tab", int64(tabID))
	ctx = pslog.ContextWithLogger(ctx, log)
	return context.WithValue(ctx, tabKey, tabID), log
}

// WithCommand annotates the logger with command metadata when available.
func WithCommand(log pslog.Logger, kind, source string) pslog.Logger {
	if kind != "" {
		log = log.With("command", kind)
	}
	if source != "" {
		log = log.With("source", source)
	}
	return log
}

// WithRegion annotates the logger with a capture region.
func WithRegion(log pslog.Logger, rect schema.Rect) pslog.Logger {
	return log.With("x", rect.X, "y", rect.Y, "w", rect.Width, "h", rect.Height)
}
