package core

import "pkt.systems/tabcast/schema"

// tab tracks the state of a single browsing context.
type tab struct {
	ID    schema.TabID
	URL   string
	Title string
}

// Snapshot returns a copy of the tab that can leave the registry.
func (t *tab) Snapshot() schema.Tab {
	return schema.Tab{ID: t.ID, URL: t.URL, Title: t.Title}
}
