package compositor

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
)

// Fonts hands out caption faces for one typeface, caching a face per size.
// Faces keep glyph caches, so a Fonts value must not be shared between
// goroutines that draw concurrently.
type Fonts struct {
	ttf   *truetype.Font
	faces sync.Map // map[int]font.Face
}

var (
	goboldOnce sync.Once
	goboldTTF  *truetype.Font
)

// DefaultFonts returns a fresh face cache for the built-in bold typeface.
func DefaultFonts() *Fonts {
	goboldOnce.Do(func() {
		f, err := truetype.Parse(gobold.TTF)
		if err != nil {
			log.Fatalf("parse font: %v", err)
		}
		goboldTTF = f
	})
	return &Fonts{ttf: goboldTTF}
}

// Clone returns a Fonts with the same typeface and an empty face cache.
func (f *Fonts) Clone() *Fonts { return &Fonts{ttf: f.ttf} }

// ParseFonts builds Fonts from TrueType data.
func ParseFonts(data []byte) (*Fonts, error) {
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Fonts{ttf: f}, nil
}

// LoadFonts reads a TrueType file such as Impact.ttf.
func LoadFonts(path string) (*Fonts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load font %s: %w", path, err)
	}
	return ParseFonts(data)
}

// Face returns the face for a pixel size.
func (f *Fonts) Face(size int) font.Face {
	if size <= 0 {
		size = 1
	}
	if face, ok := f.faces.Load(size); ok {
		return face.(font.Face)
	}
	face := truetype.NewFace(f.ttf, &truetype.Options{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	actual, _ := f.faces.LoadOrStore(size, face)
	return actual.(font.Face)
}

// Measure returns the advance width of text at size, rounded up.
func (f *Fonts) Measure(text string, size int) int {
	return font.MeasureString(f.Face(size), text).Ceil()
}
