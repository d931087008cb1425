// Package tabcast composes the tab core, the capture cycle, and the stream server into one process.
package tabcast

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"pkt.systems/pslog"
	"pkt.systems/tabcast/capture"
	"pkt.systems/tabcast/core"
	"pkt.systems/tabcast/httpapi"
	"pkt.systems/tabcast/internal/chromium"
	"pkt.systems/tabcast/internal/eventbus"
	"pkt.systems/tabcast/internal/metrics"
	"pkt.systems/tabcast/schema"
)

// Server runs the UI loop, the capture cycle, and the network servers.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// Capture strategies.
const (
	StrategyPush = "push"
	StrategyPull = "pull"
)

// ServerConfig configures the compositor.
type ServerConfig struct {
	HTTP        httpapi.Config
	MetricsAddr string
	Dispatcher  core.DispatcherConfig
	InitialURL  string
	Strategy    string
	Capture     capture.LoopConfig
	WindowPoll  time.Duration
}

// MessageSource delivers raw page messages.
type MessageSource interface {
	OnMessage(fn func(payload string))
}

// NavigationSource reports top-level navigations performed by the page itself.
type NavigationSource interface {
	OnNavigated(fn func(url string))
}

// ServerDeps captures dependencies required to build the server.
type ServerDeps struct {
	Surface core.Surface
	Source  capture.Source
	// Window is polled for move, resize, and close. Nil disables window tracking.
	Window chromium.BoundsReader
	// InitialRect is the capture region until Window reports real bounds.
	InitialRect schema.Rect
	EventSink   core.EventSink
	Metrics     *metrics.Metrics
	Logger      pslog.Logger
}

// New constructs the tabcast compositor.
func New(cfg ServerConfig, deps ServerDeps) (Server, error) {
	if deps.Surface == nil {
		return nil, errors.New("rendering surface is required")
	}
	if deps.Source == nil {
		return nil, errors.New("capture source is required")
	}
	switch cfg.Strategy {
	case "":
		cfg.Strategy = StrategyPush
	case StrategyPush, StrategyPull:
	default:
		return nil, errors.New("unsupported capture strategy " + cfg.Strategy)
	}
	if cfg.InitialURL == "" {
		cfg.InitialURL = cfg.Dispatcher.NewTabURL
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}

	registry := core.NewRegistry(cfg.InitialURL)
	store := core.NewFrameStore()
	store.SetLocation(cfg.InitialURL)
	bus := eventbus.New(logger)
	dispatcher, err := core.NewDispatcher(cfg.Dispatcher, core.DispatcherDeps{
		Registry:  registry,
		Surface:   deps.Surface,
		EventSink: fanout(bus, deps.EventSink),
		Recorder:  deps.Metrics,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	rect := core.NewWindowRect(deps.InitialRect)
	loop := core.NewLoop(dispatcher, rect, logger)

	var frames httpapi.FrameProvider
	var captureLoop *capture.Loop
	if cfg.Strategy == StrategyPull {
		frames = capture.Live{Source: deps.Source, Region: rect, Store: store, Recorder: deps.Metrics}
	} else {
		frames = capture.Latest{Store: store}
		captureLoop = capture.NewLoop(cfg.Capture, deps.Source, rect, store, deps.Metrics, logger)
	}
	httpSrv := httpapi.NewServer(cfg.HTTP, frames, loop)
	if deps.Metrics != nil {
		httpSrv.SetRecorder(deps.Metrics)
	}

	return &compositeServer{
		cfg:         cfg,
		deps:        deps,
		registry:    registry,
		store:       store,
		rect:        rect,
		bus:         bus,
		loop:        loop,
		captureLoop: captureLoop,
		httpSrv:     httpSrv,
	}, nil
}

type compositeServer struct {
	cfg         ServerConfig
	deps        ServerDeps
	registry    *core.Registry
	store       *core.FrameStore
	rect        *core.WindowRect
	bus         *eventbus.Bus
	loop        *core.Loop
	captureLoop *capture.Loop
	httpSrv     *httpapi.Server
	logger      pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group
	done    chan struct{}
	err     error
	started bool
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
	s.done = make(chan struct{})
	s.logger = pslog.Ctx(s.ctx)
	if s.deps.Logger != nil {
		s.logger = s.deps.Logger
	}
	group, gctx := errgroup.WithContext(s.ctx)
	s.group = group
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"strategy", s.cfg.Strategy,
		"http_addr", s.cfg.HTTP.Addr,
		"metrics_addr", s.cfg.MetricsAddr,
		"initial_url", s.cfg.InitialURL,
	)

	// Seed the capture region before the UI loop and capture cycle start.
	if s.deps.Window != nil {
		if rect, err := s.deps.Window.WindowBounds(gctx); err == nil {
			s.rect.Set(rect)
		} else {
			log.Debug("initial window bounds unavailable", "err", err, "rect", s.rect.Get())
		}
	}

	s.subscribe(gctx, "location", func(ev schema.TabEvent) {
		s.store.SetLocation(ev.Active.URL)
	})
	if s.deps.Metrics != nil {
		s.deps.Metrics.OnTabEvent(schema.TabEvent{TabCount: s.registry.Len()})
		s.subscribe(gctx, "metrics", s.deps.Metrics.OnTabEvent)
	}
	if src, ok := s.deps.Surface.(MessageSource); ok {
		src.OnMessage(s.handleMessage)
	}
	if src, ok := s.deps.Surface.(NavigationSource); ok {
		src.OnNavigated(func(url string) {
			if url != "" && url != "about:blank" {
				s.store.SetLocation(url)
			}
		})
	}

	group.Go(func() error {
		if err := s.deps.Surface.Navigate(gctx, s.cfg.InitialURL); err != nil {
			log.Warn("initial navigation failed", "url", s.cfg.InitialURL, "err", err)
		}
		err := s.loop.Run(gctx)
		// The loop ending, for any reason, ends the process.
		s.cancel()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if s.deps.Window != nil {
		group.Go(func() error {
			return ignoreCanceled(chromium.WatchWindow(gctx, s.deps.Window, s.cfg.WindowPoll, s.loop))
		})
	}
	if s.captureLoop != nil {
		group.Go(func() error {
			return ignoreCanceled(s.captureLoop.Run(gctx))
		})
	}
	group.Go(func() error {
		s.serve(gctx, "stream", s.cfg.HTTP.Addr, s.httpSrv.Handler())
		return nil
	})
	if s.cfg.MetricsAddr != "" && s.deps.Metrics != nil {
		group.Go(func() error {
			mux := http.NewServeMux()
			mux.Handle("/metrics", s.deps.Metrics.Handler())
			s.serve(gctx, "metrics", s.cfg.MetricsAddr, mux)
			return nil
		})
	}
	go func() {
		err := group.Wait()
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
	}()
	return nil
}

// serve runs an HTTP listener. A failure stops only that listener; the UI keeps running.
func (s *compositeServer) serve(ctx context.Context, name, addr string, handler http.Handler) {
	log := s.logger.With("server", name)
	log.Info("http server listening", "addr", addr)
	if err := httpapi.ListenAndServe(pslog.ContextWithLogger(ctx, log), addr, handler); err != nil {
		log.Error("http server failed", "addr", addr, "err", err)
	}
}

func (s *compositeServer) subscribe(ctx context.Context, name string, fn func(schema.TabEvent)) {
	ch, cancel := s.bus.Subscribe(name)
	s.group.Go(func() error {
		defer cancel()
		eventbus.Drain(ctx, ch, fn)
		return nil
	})
}

func (s *compositeServer) handleMessage(payload string) {
	cmds, err := core.DecodeMessage([]byte(payload))
	if err != nil {
		s.logger.Debug("page message rejected", "err", err, "bytes", len(payload))
		return
	}
	for _, cmd := range cmds {
		s.loop.Submit(cmd)
	}
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	done := s.done
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}
	<-done
	s.mu.Lock()
	err := s.err
	s.mu.Unlock()
	if err != nil {
		pslog.Ctx(s.ctx).Error("server stopped", "err", err)
	}
	return err
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	done := s.done
	log := s.logger
	s.mu.Unlock()
	if !started {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("server stop requested")
	if cancel != nil {
		cancel()
	}
	if ctx == nil {
		log.Info("server stop completed")
		return nil
	}
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-done:
		log.Info("server stopped")
		return nil
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
