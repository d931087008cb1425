package capture

import (
	"context"
	"time"

	"pkt.systems/tabcast/core"
	"pkt.systems/tabcast/schema"
)

// Latest serves whatever the push loop last stored.
type Latest struct {
	Store *core.FrameStore
}

// Frame returns the stored frame or schema.ErrUnavailable before the first capture.
func (l Latest) Frame(context.Context) (core.Frame, error) {
	if l.Store == nil {
		return core.Frame{}, schema.ErrUnavailable
	}
	frame, ok := l.Store.Get()
	if !ok {
		return core.Frame{}, schema.ErrUnavailable
	}
	return frame, nil
}

// Live captures synchronously on every request and refreshes the store.
type Live struct {
	Source   Source
	Region   RegionReader
	Store    *core.FrameStore
	Recorder Recorder
}

// Frame runs one capture cycle for the current region.
func (l Live) Frame(ctx context.Context) (core.Frame, error) {
	var region schema.Rect
	if l.Region != nil {
		region = l.Region.Get()
	}
	start := time.Now()
	data, err := l.Source.Capture(ctx, region)
	if l.Recorder != nil {
		l.Recorder.RecordCapture(time.Since(start), len(data), err)
	}
	if err != nil {
		return core.Frame{}, err
	}
	frame := core.Frame{Data: data, CapturedAt: time.Now()}
	if l.Store != nil {
		l.Store.Put(data)
		frame.URL = l.Store.Location()
	}
	return frame, nil
}
