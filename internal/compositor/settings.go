package compositor

import (
	"fmt"
	"strings"
)

// Filter is a pixel transform applied to the base image.
type Filter int

const (
	FilterNone Filter = iota
	FilterGrayscale
	FilterSepia
	FilterBrightness
)

var filterNames = []string{"none", "grayscale", "sepia", "brightness"}

// Filters lists every filter in cycling order.
func Filters() []Filter {
	return []Filter{FilterNone, FilterGrayscale, FilterSepia, FilterBrightness}
}

func (f Filter) String() string {
	if f < 0 || int(f) >= len(filterNames) {
		return fmt.Sprintf("filter(%d)", int(f))
	}
	return filterNames[f]
}

// Next returns the filter after f, wrapping around.
func (f Filter) Next() Filter { return Filter((int(f) + 1) % len(filterNames)) }

// ParseFilter accepts a filter name, case-insensitively. The CSS spellings
// grayscale(100%), sepia(100%) and brightness(1.5) are accepted too.
func ParseFilter(s string) (Filter, error) {
	spec := strings.ToLower(strings.TrimSpace(s))
	switch spec {
	case "", "none":
		return FilterNone, nil
	case "grayscale", "greyscale", "grayscale(100%)", "grayscale(1)":
		return FilterGrayscale, nil
	case "sepia", "sepia(100%)", "sepia(1)":
		return FilterSepia, nil
	case "brightness", "brightness(1.5)", "brightness(150%)":
		return FilterBrightness, nil
	}
	return FilterNone, fmt.Errorf("unknown filter %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (f Filter) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Filter) UnmarshalText(b []byte) error {
	v, err := ParseFilter(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Frame is a decorative border stroked over the filtered image.
type Frame int

const (
	FrameNone Frame = iota
	FrameSquare
	FrameCircle
)

var frameNames = []string{"none", "square", "circle"}

// Frames lists every frame in cycling order.
func Frames() []Frame { return []Frame{FrameNone, FrameSquare, FrameCircle} }

func (f Frame) String() string {
	if f < 0 || int(f) >= len(frameNames) {
		return fmt.Sprintf("frame(%d)", int(f))
	}
	return frameNames[f]
}

// Next returns the frame after f, wrapping around.
func (f Frame) Next() Frame { return Frame((int(f) + 1) % len(frameNames)) }

// ParseFrame accepts a frame name, case-insensitively.
func ParseFrame(s string) (Frame, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return FrameNone, nil
	case "square":
		return FrameSquare, nil
	case "circle":
		return FrameCircle, nil
	}
	return FrameNone, fmt.Errorf("unknown frame %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (f Frame) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Frame) UnmarshalText(b []byte) error {
	v, err := ParseFrame(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Settings are the canvas-wide choices. The zero value is no filter and no frame.
type Settings struct {
	Filter Filter `json:"filter"`
	Frame  Frame  `json:"frame"`
}
