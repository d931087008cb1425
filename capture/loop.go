package capture

import (
	"context"
	"errors"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/tabcast/core"
	"pkt.systems/tabcast/internal/logx"
	"pkt.systems/tabcast/schema"
)

// Default push-cycle delays.
const (
	DefaultSettle   = 50 * time.Millisecond
	DefaultInterval = 50 * time.Millisecond
)

// RegionReader supplies the current capture region.
type RegionReader interface {
	Get() schema.Rect
}

// Recorder observes capture attempts.
type Recorder interface {
	RecordCapture(elapsed time.Duration, size int, err error)
}

// LoopConfig configures the push cycle.
type LoopConfig struct {
	Settle   time.Duration
	Interval time.Duration
}

// Loop is the push-driven capture cycle: settle, capture, store, wait, repeat.
type Loop struct {
	cfg      LoopConfig
	source   Source
	region   RegionReader
	store    *core.FrameStore
	recorder Recorder
	logger   pslog.Logger
	failing  bool
}

// NewLoop constructs a push loop writing into store.
func NewLoop(cfg LoopConfig, source Source, region RegionReader, store *core.FrameStore, recorder Recorder, logger pslog.Logger) *Loop {
	if cfg.Settle < 0 {
		cfg.Settle = 0
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	if region == nil {
		region = core.NewWindowRect(schema.Rect{})
	}
	return &Loop{cfg: cfg, source: source, region: region, store: store, recorder: recorder, logger: logger}
}

// Run captures until ctx ends. Capture errors are logged and never end the loop.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("capture loop started", "settle", l.cfg.Settle, "interval", l.cfg.Interval)
	for {
		if err := sleep(ctx, l.cfg.Settle); err != nil {
			return l.stopped(err)
		}
		// once logs and records its own failures.
		_ = l.once(ctx)
		if err := sleep(ctx, l.cfg.Interval); err != nil {
			return l.stopped(err)
		}
	}
}

// once runs a single capture cycle and stores the frame on success.
func (l *Loop) once(ctx context.Context) error {
	region := l.region.Get()
	start := time.Now()
	data, err := l.source.Capture(ctx, region)
	if l.recorder != nil {
		l.recorder.RecordCapture(time.Since(start), len(data), err)
	}
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		if !l.failing {
			msg := "capture failed"
			if errors.Is(err, schema.ErrUnavailable) {
				msg = "capture unavailable"
			}
			logx.WithRegion(l.logger, region).Warn(msg, "err", err)
		}
		l.failing = true
		return err
	}
	if l.failing {
		l.logger.Info("capture recovered", "bytes", len(data))
		l.failing = false
	}
	l.store.Put(data)
	return nil
}

func (l *Loop) stopped(err error) error {
	l.logger.Info("capture loop stopped", "reason", err)
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
