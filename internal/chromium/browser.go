// Package chromium drives a Chrome instance over the DevTools protocol as the rendering surface.
package chromium

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"pkt.systems/pslog"
	"pkt.systems/tabcast/core"
	"pkt.systems/tabcast/schema"
)

// Options configures the browser process.
type Options struct {
	Headless        bool
	Width           int
	Height          int
	ExecPath        string
	NavigateTimeout time.Duration
	// ExtraFlags are passed to Chrome as --name=value switches; "true" and "false" become boolean switches.
	ExtraFlags map[string]string
}

// Browser is one Chrome window with a single page target.
type Browser struct {
	opts        Options
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      pslog.Logger

	mu          sync.Mutex
	onMessage   func(payload string)
	onNavigated func(url string)
	closed      chan struct{}
	closeOnce   sync.Once
}

// AllocatorOptions returns the exec allocator options for opts.
func AllocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-session-crashed-bubble", true),
	)
	if opts.Width > 0 && opts.Height > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.Width, opts.Height))
	}
	if !opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	for name, value := range opts.ExtraFlags {
		allocOpts = append(allocOpts, chromedp.Flag(name, flagValue(value)))
	}
	return allocOpts
}

func flagValue(value string) any {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "true":
		return true
	case "false":
		return false
	default:
		return value
	}
}

// Launch starts Chrome, installs the page binding and init script, and returns the browser.
// The page stays blank until Navigate is called so listeners can be registered first.
func Launch(ctx context.Context, opts Options) (*Browser, error) {
	if opts.NavigateTimeout <= 0 {
		opts.NavigateTimeout = 10 * time.Second
	}
	logger := pslog.Ctx(ctx).With("component", "chromium")
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, AllocatorOptions(opts)...)
	tabCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Trace("chromium log", "msg", fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Debug("chromium error", "msg", fmt.Sprintf(format, args...))
		}),
	)
	b := &Browser{
		opts:        opts,
		ctx:         tabCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		logger:      logger,
		closed:      make(chan struct{}),
	}
	chromedp.ListenTarget(tabCtx, b.handleEvent)
	err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := runtime.AddBinding(core.BindingName).Do(ctx); err != nil {
			return fmt.Errorf("add binding: %w", err)
		}
		if _, err := page.AddScriptToEvaluateOnNewDocument(core.InitScript()).Do(ctx); err != nil {
			return fmt.Errorf("add init script: %w", err)
		}
		return nil
	}))
	if err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	go func() {
		<-tabCtx.Done()
		b.markClosed()
	}()
	logger.Info("chromium launched", "headless", opts.Headless, "width", opts.Width, "height", opts.Height)
	return b, nil
}

// OnMessage registers the handler for page messages posted through the binding.
func (b *Browser) OnMessage(fn func(payload string)) {
	b.mu.Lock()
	b.onMessage = fn
	b.mu.Unlock()
}

// OnNavigated registers the handler for top-level frame navigations.
func (b *Browser) OnNavigated(fn func(url string)) {
	b.mu.Lock()
	b.onNavigated = fn
	b.mu.Unlock()
}

func (b *Browser) handleEvent(ev any) {
	switch e := ev.(type) {
	case *runtime.EventBindingCalled:
		if e.Name != core.BindingName {
			return
		}
		b.mu.Lock()
		fn := b.onMessage
		b.mu.Unlock()
		if fn != nil {
			fn(e.Payload)
		}
	case *page.EventFrameNavigated:
		if e.Frame == nil || e.Frame.ParentID != "" {
			return
		}
		b.mu.Lock()
		fn := b.onNavigated
		b.mu.Unlock()
		if fn != nil {
			fn(e.Frame.URL)
		}
	case *inspector.EventDetached, *inspector.EventTargetCrashed:
		b.logger.Warn("chromium target gone", "event", fmt.Sprintf("%T", ev))
		b.markClosed()
	}
}

func (b *Browser) markClosed() {
	b.closeOnce.Do(func() { close(b.closed) })
}

// Done is closed when the browser window or process goes away.
func (b *Browser) Done() <-chan struct{} {
	return b.closed
}

func (b *Browser) run(ctx context.Context, timeout time.Duration, fn chromedp.ActionFunc) error {
	select {
	case <-b.closed:
		return schema.ErrWindowClosed
	default:
	}
	runCtx, cancel := context.WithCancel(b.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if timeout > 0 {
		var tcancel context.CancelFunc
		runCtx, tcancel = context.WithTimeout(runCtx, timeout)
		defer tcancel()
	}
	return chromedp.Run(runCtx, fn)
}

// Navigate starts loading url without waiting for the load to finish.
func (b *Browser) Navigate(ctx context.Context, url string) error {
	return b.run(ctx, b.opts.NavigateTimeout, func(ctx context.Context) error {
		_, _, errorText, _, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return fmt.Errorf("navigate %s: %w", url, err)
		}
		if errorText != "" {
			return fmt.Errorf("navigate %s: %s", url, errorText)
		}
		return nil
	})
}

// Evaluate runs script in the page.
func (b *Browser) Evaluate(ctx context.Context, script string) error {
	return b.run(ctx, b.opts.NavigateTimeout, func(ctx context.Context) error {
		return chromedp.Evaluate(script, nil).Do(ctx)
	})
}

// Screenshot captures the viewport as JPEG.
func (b *Browser) Screenshot(ctx context.Context, quality int) ([]byte, error) {
	var data []byte
	err := b.run(ctx, 0, func(ctx context.Context) error {
		var err error
		data, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatJpeg).
			WithQuality(int64(quality)).
			Do(ctx)
		return err
	})
	return data, err
}

// WindowBounds returns the outer window rectangle in screen coordinates.
func (b *Browser) WindowBounds(ctx context.Context) (schema.Rect, error) {
	var rect schema.Rect
	err := b.run(ctx, b.opts.NavigateTimeout, func(ctx context.Context) error {
		_, bounds, err := browser.GetWindowForTarget().Do(ctx)
		if err != nil {
			return err
		}
		if bounds == nil {
			return errors.New("window bounds unavailable")
		}
		rect = schema.Rect{
			X:      int(bounds.Left),
			Y:      int(bounds.Top),
			Width:  int(bounds.Width),
			Height: int(bounds.Height),
		}
		return nil
	})
	return rect, err
}

// Close shuts the browser down.
func (b *Browser) Close() error {
	b.cancel()
	b.allocCancel()
	b.markClosed()
	return nil
}
