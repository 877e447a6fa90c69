package theme

import (
	"image/color"
)

// Theme defines the colours the compositor and preview window paint with.
type Theme struct {
	Name string

	// Frames
	SquareFrame color.RGBA
	CircleFrame color.RGBA

	// Captions
	Outline   color.RGBA // Stroke drawn around every caption
	Highlight color.RGBA // Box around the selected caption, preview only

	// Preview window
	CheckerLight color.RGBA
	CheckerDark  color.RGBA
	Message      color.RGBA
	MessageText  color.RGBA
}

// Default returns the classic meme look.
func Default() *Theme {
	return &Theme{
		Name:         "Default",
		SquareFrame:  color.RGBA{255, 0, 0, 255},
		CircleFrame:  color.RGBA{0, 0, 255, 255},
		Outline:      color.RGBA{0, 0, 0, 255},
		Highlight:    color.RGBA{255, 255, 0, 255},
		CheckerLight: color.RGBA{220, 220, 220, 255},
		CheckerDark:  color.RGBA{192, 192, 192, 255},
		Message:      color.RGBA{40, 40, 40, 230},
		MessageText:  color.RGBA{255, 255, 255, 255},
	}
}
