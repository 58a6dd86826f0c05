// Package overlay turns a compositor snapshot into the still overlay image
// composited over the re-encoded clip.
package overlay

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
)

// Output frame of the vertical clip.
const (
	FrameWidth  = 1080
	FrameHeight = 1920
)

// ErrEmptySnapshot is returned when the surface produced no image.
var ErrEmptySnapshot = errors.New("overlay: empty snapshot")

// Options configures the overlay box.
type Options struct {
	Width  int // Bounding box width, FrameWidth when zero
	Height int // Bounding box height, FrameHeight when zero
}

// Renderer prepares overlay images.
type Renderer struct {
	opts Options
}

// New creates a Renderer.
func New(opts Options) *Renderer {
	if opts.Width <= 0 {
		opts.Width = FrameWidth
	}
	if opts.Height <= 0 {
		opts.Height = FrameHeight
	}
	return &Renderer{opts: opts}
}

// Prepare decodes snapshot, scales it to fit the bounding box while keeping
// its aspect ratio, and returns it as PNG. Transparency is preserved.
func (r *Renderer) Prepare(snapshot []byte) ([]byte, error) {
	if len(snapshot) == 0 {
		return nil, ErrEmptySnapshot
	}
	src, _, err := image.Decode(bytes.NewReader(snapshot))
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	w, h := r.Fit(src.Bounds().Dx(), src.Bounds().Dy())
	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Over, nil)

	dc := gg.NewContext(w, h)
	dc.DrawImage(scaled, 0, 0)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// Fit returns the size of a w x h image scaled to fit the bounding box.
func (r *Renderer) Fit(w, h int) (int, int) {
	if w <= 0 || h <= 0 {
		return r.opts.Width, r.opts.Height
	}
	scale := float64(r.opts.Width) / float64(w)
	if s := float64(r.opts.Height) / float64(h); s < scale {
		scale = s
	}
	fw := int(float64(w)*scale + 0.5)
	fh := int(float64(h)*scale + 0.5)
	if fw < 1 {
		fw = 1
	}
	if fh < 1 {
		fh = 1
	}
	return fw, fh
}
