// Package capture turns the rendering surface into encoded frames.
package capture

import (
	"context"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
	"pkt.systems/tabcast/schema"
)

// Source produces one encoded frame for a region.
type Source interface {
	Capture(ctx context.Context, region schema.Rect) ([]byte, error)
}

// Grabber reads raw pixels for a screen rectangle.
type Grabber interface {
	Grab(rect image.Rectangle) (image.Image, error)
}

// DisplayGrabber grabs pixels from a physical display. Rectangles are relative to the display origin.
type DisplayGrabber struct {
	Display int
}

// Grab captures rect from the configured display.
func (g DisplayGrabber) Grab(rect image.Rectangle) (image.Image, error) {
	if n := screenshot.NumActiveDisplays(); g.Display >= n {
		return nil, fmt.Errorf("display %d not active (%d displays)", g.Display, n)
	}
	origin := screenshot.GetDisplayBounds(g.Display).Min
	img, err := screenshot.CaptureRect(rect.Add(origin))
	if err != nil {
		return nil, err
	}
	return img, nil
}

// ScreenSource grabs a screen region and encodes it.
type ScreenSource struct {
	grabber Grabber
	encoder Encoder
}

// NewScreenSource constructs a screen-region source.
func NewScreenSource(grabber Grabber, encoder Encoder) *ScreenSource {
	if grabber == nil {
		grabber = DisplayGrabber{}
	}
	return &ScreenSource{grabber: grabber, encoder: encoder}
}

// Capture grabs region. Empty regions report schema.ErrUnavailable without grabbing.
func (s *ScreenSource) Capture(ctx context.Context, region schema.Rect) ([]byte, error) {
	if region.Empty() {
		return nil, schema.ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrCaptureFailed, err)
	}
	rect := image.Rect(region.X, region.Y, region.X+region.Width, region.Y+region.Height)
	img, err := s.grabber.Grab(rect)
	if err != nil {
		return nil, fmt.Errorf("%w: grab: %v", schema.ErrCaptureFailed, err)
	}
	return s.encoder.Encode(img)
}

// Screenshotter is a rendering surface able to screenshot its own viewport.
type Screenshotter interface {
	Screenshot(ctx context.Context, quality int) ([]byte, error)
}

// CDPSource asks the browser for a viewport screenshot. The region is ignored;
// the browser always renders its own viewport.
type CDPSource struct {
	shooter Screenshotter
	encoder Encoder
}

// NewCDPSource constructs a remote-automation screenshot source.
func NewCDPSource(shooter Screenshotter, encoder Encoder) *CDPSource {
	return &CDPSource{shooter: shooter, encoder: encoder}
}

// Capture takes one viewport screenshot, downscaling it when the encoder limits width.
func (s *CDPSource) Capture(ctx context.Context, _ schema.Rect) ([]byte, error) {
	if s.shooter == nil {
		return nil, schema.ErrUnavailable
	}
	ctx, cancel := s.encoder.withTimeout(ctx)
	defer cancel()
	data, err := s.shooter.Screenshot(ctx, s.encoder.quality())
	if err != nil {
		return nil, fmt.Errorf("%w: screenshot: %v", schema.ErrCaptureFailed, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty screenshot", schema.ErrCaptureFailed)
	}
	if s.encoder.MaxWidth <= 0 {
		return data, nil
	}
	return s.encoder.Reencode(data)
}
