package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"time"

	"golang.org/x/image/draw"
	"pkt.systems/tabcast/schema"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 80

// Encoder flattens, optionally downsamples, and JPEG-encodes frames.
type Encoder struct {
	Quality  int
	MaxWidth int
	// Timeout bounds remote screenshots; zero means no extra bound.
	Timeout time.Duration
}

func (e Encoder) quality() int {
	if e.Quality <= 0 || e.Quality > 100 {
		return DefaultQuality
	}
	return e.Quality
}

func (e Encoder) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.Timeout)
}

// Encode composites img onto an opaque background and returns JPEG bytes.
func (e Encoder) Encode(img image.Image) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", schema.ErrCaptureFailed)
	}
	flat := e.flatten(img)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: e.quality()}); err != nil {
		return nil, fmt.Errorf("%w: encode: %v", schema.ErrCaptureFailed, err)
	}
	return buf.Bytes(), nil
}

// Reencode decodes a JPEG and encodes it again under the encoder limits.
func (e Encoder) Reencode(data []byte) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", schema.ErrCaptureFailed, err)
	}
	if e.MaxWidth <= 0 || img.Bounds().Dx() <= e.MaxWidth {
		return data, nil
	}
	return e.Encode(img)
}

func (e Encoder) flatten(img image.Image) *image.RGBA {
	src := img.Bounds()
	width, height := src.Dx(), src.Dy()
	if e.MaxWidth > 0 && width > e.MaxWidth {
		height = max(1, height*e.MaxWidth/width)
		width = e.MaxWidth
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if width == src.Dx() && height == src.Dy() {
		draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Over)
		return dst
	}
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)
	return dst
}
