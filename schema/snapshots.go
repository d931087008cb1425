package schema

// TabEventType describes a committed tab registry change.
type TabEventType string

const (
	// TabEventCreated indicates a new tab was opened.
	TabEventCreated TabEventType = "created"
	// TabEventClosed indicates a tab was closed.
	TabEventClosed TabEventType = "closed"
	// TabEventActivated indicates the active tab changed.
	TabEventActivated TabEventType = "activated"
	// TabEventNavigated indicates the active tab target changed.
	TabEventNavigated TabEventType = "navigated"
)

// TabEvent notifies observers about a tab registry change.
type TabEvent struct {
	Type     TabEventType
	Tab      Tab
	Active   Tab
	TabCount int
}

// RegistrySnapshot is a consistent read-only copy of the tab registry.
type RegistrySnapshot struct {
	Tabs   []Tab
	Active TabID
}

// ActiveTab returns the active tab from the snapshot.
func (s RegistrySnapshot) ActiveTab() (Tab, bool) {
	for _, tab := range s.Tabs {
		if tab.ID == s.Active {
			return tab, true
		}
	}
	return Tab{}, false
}
