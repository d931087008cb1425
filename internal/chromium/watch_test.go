package chromium

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"pkt.systems/tabcast/core"
	"pkt.systems/tabcast/schema"
)

type fakeBounds struct {
	mu    sync.Mutex
	rects []schema.Rect
	calls int
	done  chan struct{}
}

func (f *fakeBounds) WindowBounds(context.Context) (schema.Rect, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := min(f.calls, len(f.rects)-1)
	f.calls++
	if f.calls == len(f.rects)+1 {
		close(f.done)
	}
	return f.rects[idx], nil
}

func (f *fakeBounds) Done() <-chan struct{} {
	return f.done
}

type sinkFunc func(core.WindowEvent)

func (s sinkFunc) SubmitWindow(ev core.WindowEvent) { s(ev) }

func TestWatchWindowReportsChanges(t *testing.T) {
	reader := &fakeBounds{
		rects: []schema.Rect{
			{X: 0, Y: 0, Width: 100, Height: 80},
			{X: 0, Y: 0, Width: 100, Height: 80},
			{X: 10, Y: 20, Width: 100, Height: 80},
			{X: 10, Y: 20, Width: 300, Height: 200},
		},
		done: make(chan struct{}),
	}
	var got []core.WindowEvent
	err := WatchWindow(context.Background(), reader, time.Millisecond, sinkFunc(func(ev core.WindowEvent) {
		got = append(got, ev)
	}))
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	want := []core.WindowEvent{
		{Kind: core.WindowMoved},
		{Kind: core.WindowResized, Width: 100, Height: 80},
		{Kind: core.WindowMoved, X: 10, Y: 20},
		{Kind: core.WindowResized, Width: 300, Height: 200},
		{Kind: core.WindowClosed},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected events (-want +got):\n%s", diff)
	}
}

func TestAllocatorOptionsWindowMode(t *testing.T) {
	headless := AllocatorOptions(Options{Headless: true, Width: 10, Height: 10})
	window := AllocatorOptions(Options{Headless: false, Width: 10, Height: 10, ExecPath: "/usr/bin/chromium"})
	if len(window) != len(headless)+2 {
		t.Fatalf("expected headless override and exec path, got %d vs %d options", len(window), len(headless))
	}
}

func TestAllocatorOptionsExtraFlags(t *testing.T) {
	base := AllocatorOptions(Options{Headless: true})
	withFlags := AllocatorOptions(Options{Headless: true, ExtraFlags: map[string]string{
		"disable-gpu": "true",
		"lang":        "en-US",
	}})
	if len(withFlags) != len(base)+2 {
		t.Fatalf("expected one option per flag, got %d vs %d", len(withFlags), len(base))
	}
}

func TestFlagValue(t *testing.T) {
	if got := flagValue("true"); got != true {
		t.Fatalf("expected boolean true, got %#v", got)
	}
	if got := flagValue(""); got != true {
		t.Fatalf("expected bare switch to be true, got %#v", got)
	}
	if got := flagValue("False"); got != false {
		t.Fatalf("expected boolean false, got %#v", got)
	}
	if got := flagValue("en-US"); got != "en-US" {
		t.Fatalf("expected string value, got %#v", got)
	}
}
