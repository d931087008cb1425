package core

import (
	"sync"
	"time"
)

// Frame is one encoded still image plus the context it was captured in.
type Frame struct {
	Data       []byte
	URL        string
	CapturedAt time.Time
}

// FrameStore is a single-slot cache of the latest captured frame.
type FrameStore struct {
	mu       sync.RWMutex
	data     []byte
	present  bool
	captured time.Time
	location string
	now      func() time.Time
}

// NewFrameStore constructs an empty store.
func NewFrameStore() *FrameStore {
	return &FrameStore{now: time.Now}
}

// Put replaces the stored frame with a copy of data.
func (s *FrameStore) Put(data []byte) {
	frame := append([]byte{}, data...)
	at := s.now()
	s.mu.Lock()
	s.data = frame
	s.present = true
	s.captured = at
	s.mu.Unlock()
}

// Get returns a copy of the latest frame, or false before the first Put.
func (s *FrameStore) Get() (Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.present {
		return Frame{}, false
	}
	return Frame{
		Data:       append([]byte{}, s.data...),
		URL:        s.location,
		CapturedAt: s.captured,
	}, true
}

// SetLocation records the target currently shown by the rendering surface.
func (s *FrameStore) SetLocation(url string) {
	s.mu.Lock()
	s.location = url
	s.mu.Unlock()
}

// Location returns the last recorded target.
func (s *FrameStore) Location() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.location
}
