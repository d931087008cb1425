package chromium

import (
	"context"
	"errors"
	"time"

	"pkt.systems/tabcast/core"
	"pkt.systems/tabcast/schema"
)

// BoundsReader reports the current window rectangle.
type BoundsReader interface {
	WindowBounds(ctx context.Context) (schema.Rect, error)
	Done() <-chan struct{}
}

// WindowSink receives window events; core.Loop implements it.
type WindowSink interface {
	SubmitWindow(ev core.WindowEvent)
}

// WatchWindow polls bounds every interval and reports moves, resizes, and the final close to sink.
// It returns when the window closes or ctx ends.
func WatchWindow(ctx context.Context, reader BoundsReader, interval time.Duration, sink WindowSink) error {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var last schema.Rect
	first := true
	for {
		rect, err := reader.WindowBounds(ctx)
		switch {
		case errors.Is(err, schema.ErrWindowClosed):
			sink.SubmitWindow(core.WindowEvent{Kind: core.WindowClosed})
			return nil
		case err == nil:
			if first || rect.X != last.X || rect.Y != last.Y {
				sink.SubmitWindow(core.WindowEvent{Kind: core.WindowMoved, X: rect.X, Y: rect.Y})
			}
			if first || rect.Width != last.Width || rect.Height != last.Height {
				sink.SubmitWindow(core.WindowEvent{Kind: core.WindowResized, Width: rect.Width, Height: rect.Height})
			}
			last, first = rect, false
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-reader.Done():
			sink.SubmitWindow(core.WindowEvent{Kind: core.WindowClosed})
			return nil
		case <-ticker.C:
		}
	}
}
