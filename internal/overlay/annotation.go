package overlay

import (
	"image"
	"image/color"
	"strconv"
	"strings"
)

const (
	// DefaultText is the caption given to newly added annotations.
	DefaultText = "New Text"
	// DefaultFontSize is the size given to newly added annotations.
	DefaultFontSize = 40
)

// DefaultColor is the fill colour given to newly added annotations.
var DefaultColor = color.RGBA{255, 255, 255, 255}

// Annotation is a single caption drawn over the base image.
type Annotation struct {
	ID   int64
	Text string
	// Position is nil until the caption has been placed. X and Y are in base
	// image pixel coordinates.
	Position *image.Point
	Color    color.RGBA
	FontSize int
}

// Placed reports whether the annotation has a position.
func (a Annotation) Placed() bool { return a.Position != nil }

// Clone returns a deep copy of a.
func (a Annotation) Clone() Annotation {
	out := a
	if a.Position != nil {
		p := *a.Position
		out.Position = &p
	}
	return out
}

// Equal reports whether two annotations hold the same values.
func (a Annotation) Equal(b Annotation) bool {
	if a.ID != b.ID || a.Text != b.Text || a.Color != b.Color || a.FontSize != b.FontSize {
		return false
	}
	if (a.Position == nil) != (b.Position == nil) {
		return false
	}
	return a.Position == nil || *a.Position == *b.Position
}

func cloneList(list []Annotation) []Annotation {
	out := make([]Annotation, len(list))
	for i, a := range list {
		out[i] = a.Clone()
	}
	return out
}

// Patch describes a partial update. Nil fields are left untouched.
type Patch struct {
	Text     *string
	Color    *color.RGBA
	FontSize *int
	Position *image.Point
	// Unplace removes the position. It wins over Position when both are set.
	Unplace bool
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Text == nil && p.Color == nil && p.FontSize == nil && p.Position == nil && !p.Unplace
}

// SizeRange bounds annotation font sizes.
type SizeRange struct {
	Min int
	Max int
}

// DefaultSizeRange is the range used when none is configured.
var DefaultSizeRange = SizeRange{Min: 10, Max: 100}

// Clamp limits size to the range.
func (r SizeRange) Clamp(size int) int {
	if r.Min > r.Max {
		r.Min, r.Max = r.Max, r.Min
	}
	if size < r.Min {
		return r.Min
	}
	if size > r.Max {
		return r.Max
	}
	return size
}

// ParseSize interprets raw user input for a font size. Empty or non-numeric
// input reports false so the caller keeps the current value; numeric input is
// clamped to the range.
func (r SizeRange) ParseSize(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return r.Clamp(v), true
}

// ParseCoordinate interprets raw user input for a position field.
// Non-numeric input becomes 0 and negative values are floored at 0.
func ParseCoordinate(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 0 {
		return 0
	}
	return v
}
