package core

import (
	"slices"
	"sync"

	"pkt.systems/tabcast/schema"
)

// Registry is the ordered set of open tabs plus the active pointer.
// Every method runs as one critical section, so multi-step updates never interleave.
type Registry struct {
	mu     sync.Mutex
	tabs   []*tab
	active schema.TabID
	nextID schema.TabID
}

// CloseResult reports what a successful close requires from the caller.
type CloseResult struct {
	// Closed is the removed tab.
	Closed schema.Tab
	// Active is the active tab after the close.
	Active schema.Tab
	// Navigate is set when the closed tab was active and the surface must load Active.URL.
	Navigate bool
}

// NewRegistry constructs a registry holding one tab pointed at initialURL.
func NewRegistry(initialURL string) *Registry {
	return &Registry{
		tabs:   []*tab{{ID: 1, URL: initialURL, Title: PlaceholderTitle}},
		active: 1,
		nextID: 2,
	}
}

// NewTab appends a tab targeting defaultURL, activates it, and returns its id.
func (r *Registry) NewTab(defaultURL string) schema.TabID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.tabs = append(r.tabs, &tab{ID: id, URL: defaultURL, Title: PlaceholderTitle})
	r.active = id
	return id
}

// CloseTab removes the tab with the given id.
//
// The last remaining tab is never closed (schema.ErrLastTab). Unknown ids return
// schema.ErrTabNotFound and leave the registry untouched. When the active tab is closed,
// the tab that slides into its slot becomes active, or the new last tab when the closed
// tab was last.
func (r *Registry) CloseTab(id schema.TabID) (CloseResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.tabs) <= 1 {
		return CloseResult{}, schema.ErrLastTab
	}
	idx := r.indexLocked(id)
	if idx < 0 {
		return CloseResult{}, schema.ErrTabNotFound
	}
	closed := r.tabs[idx].Snapshot()
	r.tabs = slices.Delete(r.tabs, idx, idx+1)
	result := CloseResult{Closed: closed}
	if r.active == id {
		next := min(idx, len(r.tabs)-1)
		r.active = r.tabs[next].ID
		result.Navigate = true
	}
	result.Active = r.tabs[r.indexLocked(r.active)].Snapshot()
	return result, nil
}

// SwitchTab activates id and returns its target. It reports false and changes nothing
// when id is not open.
func (r *Registry) SwitchTab(id schema.TabID) (schema.Tab, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexLocked(id)
	if idx < 0 {
		return schema.Tab{}, false
	}
	r.active = id
	return r.tabs[idx].Snapshot(), true
}

// NavigateActive points the active tab at target and derives its title from the host.
// The target is stored as given even when it does not parse.
func (r *Registry) NavigateActive(target string) (schema.Tab, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexLocked(r.active)
	if idx < 0 {
		return schema.Tab{}, false
	}
	t := r.tabs[idx]
	t.URL = target
	t.Title = TitleFor(target)
	return t.Snapshot(), true
}

// ActiveID returns the active tab id.
func (r *Registry) ActiveID() schema.TabID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Len returns the number of open tabs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tabs)
}

// Snapshot returns the ordered tabs and the active id as one consistent copy.
func (r *Registry) Snapshot() schema.RegistrySnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	tabs := make([]schema.Tab, 0, len(r.tabs))
	for _, t := range r.tabs {
		tabs = append(tabs, t.Snapshot())
	}
	return schema.RegistrySnapshot{Tabs: tabs, Active: r.active}
}

func (r *Registry) indexLocked(id schema.TabID) int {
	for i, t := range r.tabs {
		if t.ID == id {
			return i
		}
	}
	return -1
}
