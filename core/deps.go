package core

import "pkt.systems/pslog"

// DispatcherDeps captures the collaborators the dispatcher drives.
type DispatcherDeps struct {
	Registry  *Registry
	Surface   Surface
	EventSink EventSink
	Recorder  CommandRecorder
	Logger    pslog.Logger
}

// DispatcherConfig controls dispatcher defaults.
type DispatcherConfig struct {
	// NewTabURL is the target given to tabs opened with NewTab.
	NewTabURL string
	// SearchURL is the prefix used for inputs classified as search queries.
	SearchURL string
}
