package httpapi

import "time"

// Config defines stream server settings.
type Config struct {
	Addr string
	// PollInterval is how often the viewer page asks for a new frame.
	PollInterval time.Duration
}

const (
	defaultPollInterval = 100 * time.Millisecond
	shutdownTimeout     = 5 * time.Second
)
