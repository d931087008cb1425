package core

import (
	"context"
	"errors"

	"pkt.systems/pslog"
	"pkt.systems/tabcast/schema"
)

// WindowEventKind identifies a window lifecycle event.
type WindowEventKind string

const (
	WindowMoved   WindowEventKind = "moved"
	WindowResized WindowEventKind = "resized"
	WindowClosed  WindowEventKind = "closed"
)

// WindowEvent reports a change of the rendering window.
type WindowEvent struct {
	Kind   WindowEventKind
	X      int
	Y      int
	Width  int
	Height int
}

type loopEvent struct {
	command *Command
	window  *WindowEvent
}

// Loop is the single UI event loop. Every dispatcher call happens on the goroutine running Run.
type Loop struct {
	dispatcher *Dispatcher
	rect       *WindowRect
	queue      *queue[loopEvent]
	logger     pslog.Logger
}

// NewLoop constructs a loop that feeds d and keeps rect current.
func NewLoop(d *Dispatcher, rect *WindowRect, logger pslog.Logger) *Loop {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	if rect == nil {
		rect = NewWindowRect(schema.Rect{})
	}
	return &Loop{
		dispatcher: d,
		rect:       rect,
		queue:      newQueue[loopEvent](),
		logger:     logger,
	}
}

// Submit enqueues a command. It is safe from any goroutine and never blocks.
func (l *Loop) Submit(cmd Command) {
	l.queue.push(loopEvent{command: &cmd})
}

// SubmitWindow enqueues a window event.
func (l *Loop) SubmitWindow(ev WindowEvent) {
	l.queue.push(loopEvent{window: &ev})
}

// Pending reports the number of queued events.
func (l *Loop) Pending() int {
	return l.queue.len()
}

// Run processes events in order until the window closes or ctx ends.
// A closed window returns nil; cancellation returns the context error.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("ui loop started")
	for {
		for _, ev := range l.queue.drain() {
			if err := l.handle(ctx, ev); err != nil {
				if errors.Is(err, schema.ErrWindowClosed) {
					l.logger.Info("ui loop stopped", "reason", "window closed", "dropped", l.queue.len())
					return nil
				}
				return err
			}
		}
		select {
		case <-ctx.Done():
			l.logger.Info("ui loop stopped", "reason", ctx.Err())
			return ctx.Err()
		case <-l.queue.ready():
		}
	}
}

func (l *Loop) handle(ctx context.Context, ev loopEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ev.window != nil {
		return l.handleWindow(*ev.window)
	}
	if ev.command == nil || l.dispatcher == nil {
		return nil
	}
	if err := l.dispatcher.Dispatch(ctx, *ev.command); err != nil {
		l.logger.Debug("ui loop command failed", "command", ev.command.String(), "err", err)
	}
	return nil
}

func (l *Loop) handleWindow(ev WindowEvent) error {
	switch ev.Kind {
	case WindowMoved:
		l.rect.Move(ev.X, ev.Y)
	case WindowResized:
		l.rect.Resize(ev.Width, ev.Height)
	case WindowClosed:
		return schema.ErrWindowClosed
	}
	l.logger.Trace("ui loop window event", "kind", ev.Kind, "rect", l.rect.Get())
	return nil
}
