package core

import (
	"sync"

	"pkt.systems/tabcast/schema"
)

// WindowRect is the capture target rectangle. The UI loop writes it; capture reads it.
type WindowRect struct {
	mu   sync.RWMutex
	rect schema.Rect
}

// NewWindowRect constructs a rectangle holder.
func NewWindowRect(rect schema.Rect) *WindowRect {
	return &WindowRect{rect: rect}
}

// Get returns the current rectangle.
func (w *WindowRect) Get() schema.Rect {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.rect
}

// Set replaces the rectangle.
func (w *WindowRect) Set(rect schema.Rect) {
	w.mu.Lock()
	w.rect = rect
	w.mu.Unlock()
}

// Move updates the origin.
func (w *WindowRect) Move(x, y int) {
	w.mu.Lock()
	w.rect.X, w.rect.Y = x, y
	w.mu.Unlock()
}

// Resize updates the dimensions.
func (w *WindowRect) Resize(width, height int) {
	w.mu.Lock()
	w.rect.Width, w.rect.Height = width, height
	w.mu.Unlock()
}
