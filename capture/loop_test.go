package capture

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/tabcast/core"
	"pkt.systems/tabcast/schema"
)

type scriptedSource struct {
	mu      sync.Mutex
	results []error
	calls   int
}

func (s *scriptedSource) Capture(ctx context.Context, _ schema.Rect) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	s.calls++
	if idx < len(s.results) && s.results[idx] != nil {
		return nil, s.results[idx]
	}
	return []byte{byte(idx)}, nil
}

type countingRecorder struct {
	mu       sync.Mutex
	ok, fail int
}

func (r *countingRecorder) RecordCapture(_ time.Duration, _ int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.fail++
		return
	}
	r.ok++
}

func TestLoopOnceStoresFrame(t *testing.T) {
	store := core.NewFrameStore()
	rec := &countingRecorder{}
	loop := NewLoop(LoopConfig{}, &scriptedSource{}, core.NewWindowRect(schema.Rect{Width: 1, Height: 1}), store, rec, nil)
	if err := loop.once(context.Background()); err != nil {
		t.Fatalf("once: %v", err)
	}
	if _, ok := store.Get(); !ok {
		t.Fatalf("expected stored frame")
	}
	if rec.ok != 1 {
		t.Fatalf("expected one recorded capture, got %d", rec.ok)
	}
}

func TestLoopLogsFailureStreakOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := pslog.NewWithOptions(&buf, pslog.Options{Mode: pslog.ModeStructured, NoColor: true, MinLevel: pslog.DebugLevel})
	store := core.NewFrameStore()
	src := &scriptedSource{results: []error{schema.ErrCaptureFailed, schema.ErrCaptureFailed}}
	loop := NewLoop(LoopConfig{}, src, nil, store, nil, logger)
	for i := 0; i < 2; i++ {
		if err := loop.once(context.Background()); !errors.Is(err, schema.ErrCaptureFailed) {
			t.Fatalf("cycle %d: expected ErrCaptureFailed, got %v", i, err)
		}
	}
	if err := loop.once(context.Background()); err != nil {
		t.Fatalf("recovery cycle: %v", err)
	}
	out := buf.String()
	if n := strings.Count(out, "capture failed"); n != 1 {
		t.Fatalf("expected one failure line, got %d:\n%s", n, out)
	}
	if !strings.Contains(out, "capture recovered") {
		t.Fatalf("expected recovery line:\n%s", out)
	}
	if _, ok := store.Get(); !ok {
		t.Fatalf("expected stored frame after recovery")
	}
}

func TestLoopSurvivesFailures(t *testing.T) {
	store := core.NewFrameStore()
	src := &scriptedSource{results: []error{schema.ErrCaptureFailed, schema.ErrUnavailable}}
	loop := NewLoop(LoopConfig{Interval: time.Millisecond}, src, nil, store, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := store.Get(); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("loop never stored a frame after failures")
		}
		time.Sleep(2 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("loop did not stop")
	}
}

func TestLatestReportsUnavailableWhenEmpty(t *testing.T) {
	if _, err := (Latest{Store: core.NewFrameStore()}).Frame(context.Background()); !errors.Is(err, schema.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestLiveCapturesAndRefreshesStore(t *testing.T) {
	store := core.NewFrameStore()
	store.SetLocation("https://foo.com")
	live := Live{Source: &scriptedSource{}, Region: core.NewWindowRect(schema.Rect{Width: 2, Height: 2}), Store: store}
	frame, err := live.Frame(context.Background())
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	if frame.URL != "https://foo.com" || len(frame.Data) != 1 {
		t.Fatalf("unexpected frame %+v", frame)
	}
	if _, ok := store.Get(); !ok {
		t.Fatalf("expected live capture to refresh the store")
	}
}

func TestLivePropagatesUnavailable(t *testing.T) {
	live := Live{Source: NewScreenSource(&fakeGrabber{}, Encoder{}), Region: core.NewWindowRect(schema.Rect{})}
	if _, err := live.Frame(context.Background()); !errors.Is(err, schema.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
