// Package compositor paints a meme: the base image with a filter, an optional
// frame and the caption overlays, always redrawn from scratch.
package compositor

import (
	"image"
	"math"

	"github.com/fogleman/gg"

	"github.com/example/memeshot/internal/overlay"
	"github.com/example/memeshot/internal/theme"
)

const (
	frameWidth      = 20
	circleInset     = 10
	outlineWidth    = 3
	highlightWidth  = 2
	highlightMargin = 5
)

// Compositor renders annotations over a base image. A Compositor caches font
// faces and is not safe for concurrent use.
type Compositor struct {
	theme *theme.Theme
	fonts *Fonts
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithTheme sets the frame, outline and highlight colours.
func WithTheme(t *theme.Theme) Option {
	return func(c *Compositor) {
		if t != nil {
			c.theme = t
		}
	}
}

// WithFonts sets the caption typeface.
func WithFonts(f *Fonts) Option {
	return func(c *Compositor) {
		if f != nil {
			c.fonts = f
		}
	}
}

// New creates a Compositor.
func New(opts ...Option) *Compositor {
	c := &Compositor{}
	for _, o := range opts {
		o(c)
	}
	if c.theme == nil {
		c.theme = theme.Default()
	}
	if c.fonts == nil {
		c.fonts = DefaultFonts()
	}
	return c
}

// Theme returns the colours in use.
func (c *Compositor) Theme() *theme.Theme { return c.theme }

// Render paints base with the given settings and annotations onto a new
// surface the size of base. selected, when non-zero, gets a highlight box;
// pass zero for anything that leaves the editor. A nil base renders nothing.
func (c *Compositor) Render(base image.Image, s Settings, annotations []overlay.Annotation, selected int64) *image.RGBA {
	if base == nil {
		return nil
	}
	b := base.Bounds()
	w, h := b.Dx(), b.Dy()
	surface := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return surface
	}
	dc := gg.NewContextForRGBA(surface)

	cx, cy := float64(w)/2, float64(h)/2
	radius := math.Min(float64(w), float64(h)) / 2

	// The circle clip stays on for everything drawn after the base.
	if s.Frame == FrameCircle {
		dc.DrawCircle(cx, cy, radius)
		dc.Clip()
	}
	dc.DrawImage(ApplyFilter(base, s.Filter), 0, 0)

	switch s.Frame {
	case FrameSquare:
		dc.SetColor(c.theme.SquareFrame)
		dc.SetLineWidth(frameWidth)
		dc.DrawRectangle(0, 0, float64(w), float64(h))
		dc.Stroke()
	case FrameCircle:
		dc.SetColor(c.theme.CircleFrame)
		dc.SetLineWidth(frameWidth)
		dc.DrawCircle(cx, cy, radius-circleInset)
		dc.Stroke()
	}

	// Under a clip, captions go on their own layer which is then drawn
	// through the mask once instead of masking every outline stamp.
	top := dc
	var layer *image.RGBA
	if s.Frame == FrameCircle {
		layer = image.NewRGBA(surface.Rect)
		top = gg.NewContextForRGBA(layer)
	}
	for _, a := range annotations {
		if !a.Placed() {
			continue
		}
		c.drawCaption(top, a)
		if selected != 0 && a.ID == selected {
			r := c.Bounds(a)
			top.SetColor(c.theme.Highlight)
			top.SetLineWidth(highlightWidth)
			top.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
			top.Stroke()
		}
	}
	if layer != nil {
		dc.DrawImage(layer, 0, 0)
	}
	return surface
}

// drawCaption paints the text centred on its anchor with the alphabetic
// baseline at Y. The outline is stamped in a disc around the anchor before
// the fill goes on top.
func (c *Compositor) drawCaption(dc *gg.Context, a overlay.Annotation) {
	dc.SetFontFace(c.fonts.Face(a.FontSize))
	x, y := float64(a.Position.X), float64(a.Position.Y)
	n := (outlineWidth + 1) / 2
	dc.SetColor(c.theme.Outline)
	for dy := -n; dy <= n; dy++ {
		for dx := -n; dx <= n; dx++ {
			if dx == 0 && dy == 0 || dx*dx+dy*dy > n*n {
				continue
			}
			dc.DrawStringAnchored(a.Text, x+float64(dx), y+float64(dy), 0.5, 0)
		}
	}
	dc.SetColor(a.Color)
	dc.DrawStringAnchored(a.Text, x, y, 0.5, 0)
}

// Bounds returns the highlight box of a placed annotation: the measured text
// width plus a margin on each side, from one font size above the baseline to
// the margin below it. Unplaced annotations have empty bounds.
func (c *Compositor) Bounds(a overlay.Annotation) image.Rectangle {
	if !a.Placed() {
		return image.Rectangle{}
	}
	w := c.fonts.Measure(a.Text, a.FontSize)
	x0 := a.Position.X - w/2 - highlightMargin
	y0 := a.Position.Y - a.FontSize
	return image.Rect(x0, y0, x0+w+2*highlightMargin, y0+a.FontSize+2*highlightMargin)
}

// HitTest returns the topmost placed annotation whose bounds contain p.
func (c *Compositor) HitTest(annotations []overlay.Annotation, p image.Point) (int64, bool) {
	for i := len(annotations) - 1; i >= 0; i-- {
		a := annotations[i]
		if a.Placed() && p.In(c.Bounds(a)) {
			return a.ID, true
		}
	}
	return 0, false
}
