package core

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"pkt.systems/tabcast/schema"
)

func tabIDs(snapshot schema.RegistrySnapshot) []schema.TabID {
	ids := make([]schema.TabID, 0, len(snapshot.Tabs))
	for _, tab := range snapshot.Tabs {
		ids = append(ids, tab.ID)
	}
	return ids
}

func TestNewRegistryStartsWithOneTab(t *testing.T) {
	reg := NewRegistry("https://example.com")
	want := schema.RegistrySnapshot{
		Tabs:   []schema.Tab{{ID: 1, URL: "https://example.com", Title: PlaceholderTitle}},
		Active: 1,
	}
	if diff := cmp.Diff(want, reg.Snapshot()); diff != "" {
		t.Fatalf("unexpected snapshot (-want +got):\n%s", diff)
	}
}

func TestNewTabActivatesAndAdvancesIDs(t *testing.T) {
	reg := NewRegistry("https://example.com")
	first := reg.NewTab("https://a.test")
	second := reg.NewTab("https://b.test")
	if first != 2 || second != 3 {
		t.Fatalf("expected ids 2 and 3, got %d and %d", first, second)
	}
	if reg.ActiveID() != second {
		t.Fatalf("expected active %d, got %d", second, reg.ActiveID())
	}
	if reg.Len() != 3 {
		t.Fatalf("expected 3 tabs, got %d", reg.Len())
	}
}

func TestCloseLastTabIsRefused(t *testing.T) {
	reg := NewRegistry("https://example.com")
	before := reg.Snapshot()
	if _, err := reg.CloseTab(1); !errors.Is(err, schema.ErrLastTab) {
		t.Fatalf("expected ErrLastTab, got %v", err)
	}
	if diff := cmp.Diff(before, reg.Snapshot()); diff != "" {
		t.Fatalf("registry changed (-before +after):\n%s", diff)
	}
}

func TestCloseUnknownTabLeavesStateUnchanged(t *testing.T) {
	reg := NewRegistry("https://example.com")
	reg.NewTab("https://a.test")
	before := reg.Snapshot()
	if _, err := reg.CloseTab(42); !errors.Is(err, schema.ErrTabNotFound) {
		t.Fatalf("expected ErrTabNotFound, got %v", err)
	}
	if diff := cmp.Diff(before, reg.Snapshot()); diff != "" {
		t.Fatalf("registry changed (-before +after):\n%s", diff)
	}
}

func TestCloseActiveTabPicksSlidingNeighbour(t *testing.T) {
	reg := NewRegistry("https://one.test")
	reg.NewTab("https://two.test")
	reg.NewTab("https://three.test")
	if _, ok := reg.SwitchTab(2); !ok {
		t.Fatalf("switch to 2 failed")
	}
	result, err := reg.CloseTab(2)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !result.Navigate || result.Active.ID != 3 || result.Active.URL != "https://three.test" {
		t.Fatalf("unexpected close result: %+v", result)
	}
	if diff := cmp.Diff([]schema.TabID{1, 3}, tabIDs(reg.Snapshot())); diff != "" {
		t.Fatalf("unexpected tabs (-want +got):\n%s", diff)
	}
}

func TestCloseActiveLastTabFallsBackToNewLast(t *testing.T) {
	reg := NewRegistry("https://one.test")
	reg.NewTab("https://two.test")
	reg.NewTab("https://three.test")
	result, err := reg.CloseTab(3)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !result.Navigate || result.Active.ID != 2 {
		t.Fatalf("expected navigation to tab 2, got %+v", result)
	}
	if reg.ActiveID() != 2 {
		t.Fatalf("expected active 2, got %d", reg.ActiveID())
	}
}

func TestCloseInactiveTabKeepsActive(t *testing.T) {
	reg := NewRegistry("https://one.test")
	reg.NewTab("https://two.test")
	result, err := reg.CloseTab(1)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if result.Navigate {
		t.Fatalf("did not expect navigation when closing an inactive tab")
	}
	if result.Closed.ID != 1 || result.Active.ID != 2 {
		t.Fatalf("unexpected close result: %+v", result)
	}
}

func TestSwitchUnknownTabReportsNotFound(t *testing.T) {
	reg := NewRegistry("https://one.test")
	reg.NewTab("https://two.test")
	before := reg.Snapshot()
	if _, ok := reg.SwitchTab(9); ok {
		t.Fatalf("expected not found")
	}
	if diff := cmp.Diff(before, reg.Snapshot()); diff != "" {
		t.Fatalf("registry changed (-before +after):\n%s", diff)
	}
}

func TestNavigateActiveKeepsMalformedTarget(t *testing.T) {
	reg := NewRegistry("https://one.test")
	tab, ok := reg.NavigateActive("http://[::1")
	if !ok {
		t.Fatalf("navigate failed")
	}
	if tab.URL != "http://[::1" || tab.Title != FallbackTitle {
		t.Fatalf("unexpected tab: %+v", tab)
	}
}

func TestTabCountInvariantOverMixedSequence(t *testing.T) {
	reg := NewRegistry("https://one.test")
	opened, closed := 0, 0
	for i := 0; i < 20; i++ {
		if i%3 == 2 {
			if _, err := reg.CloseTab(reg.ActiveID()); err == nil {
				closed++
			}
			continue
		}
		reg.NewTab("https://x.test")
		opened++
	}
	if got, want := reg.Len(), 1+opened-closed; got != want {
		t.Fatalf("expected %d tabs, got %d", want, got)
	}
	ids := tabIDs(reg.Snapshot())
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("ids not increasing: %v", ids)
		}
	}
	found := false
	for _, id := range ids {
		if id == reg.ActiveID() {
			found = true
		}
	}
	if !found {
		t.Fatalf("active %d not in %v", reg.ActiveID(), ids)
	}
}

func checkSnapshot(snapshot schema.RegistrySnapshot) error {
	if _, ok := snapshot.ActiveTab(); !ok {
		return fmt.Errorf("active tab %d missing from %v", snapshot.Active, tabIDs(snapshot))
	}
	ids := tabIDs(snapshot)
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			return fmt.Errorf("ids not strictly increasing: %v", ids)
		}
	}
	return nil
}

func TestRegistryConcurrentMutationsKeepInvariants(t *testing.T) {
	reg := NewRegistry("https://example.com")
	const workers = 50
	const rounds = 20
	var created, closed atomic.Int64
	var wg sync.WaitGroup
	stop := make(chan struct{})
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if err := checkSnapshot(reg.Snapshot()); err != nil {
				t.Errorf("concurrent snapshot: %v", err)
				return
			}
		}
	}()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				id := reg.NewTab("https://example.com")
				created.Add(1)
				reg.SwitchTab(id)
				reg.NavigateActive(fmt.Sprintf("https://w%d-%d.test", w, i))
				reg.SwitchTab(id - 1)
				if _, err := reg.CloseTab(id); err == nil {
					closed.Add(1)
				}
			}
		}(w)
	}
	wg.Wait()
	close(stop)
	<-readerDone

	snapshot := reg.Snapshot()
	if err := checkSnapshot(snapshot); err != nil {
		t.Fatalf("final snapshot: %v", err)
	}
	if want := int(1 + created.Load() - closed.Load()); len(snapshot.Tabs) != want {
		t.Fatalf("expected %d tabs, got %d", want, len(snapshot.Tabs))
	}
	if next := reg.NewTab("https://example.com"); next != schema.TabID(workers*rounds+2) {
		t.Fatalf("expected next id %d, got %d", workers*rounds+2, next)
	}
}
