package compositor

import (
	"image"
	"image/draw"
)

// brightnessScale is the multiplier used by FilterBrightness.
const brightnessScale = 1.5

// ApplyFilter returns a copy of src rebased to the origin with f applied to
// every pixel. src is never modified.
func ApplyFilter(src image.Image, f Filter) *image.RGBA {
	b := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), src, b.Min, draw.Src)

	var fn func(r, g, b float64) (float64, float64, float64)
	switch f {
	case FilterGrayscale:
		fn = grayscale
	case FilterSepia:
		fn = sepia
	case FilterBrightness:
		fn = brightness
	default:
		return out
	}

	// Pix holds premultiplied values. Each transform is linear, so applying it
	// to premultiplied channels and clamping to alpha matches transforming the
	// straight colour.
	for i := 0; i+3 < len(out.Pix); i += 4 {
		a := out.Pix[i+3]
		if a == 0 {
			continue
		}
		r, g, bl := fn(float64(out.Pix[i]), float64(out.Pix[i+1]), float64(out.Pix[i+2]))
		out.Pix[i] = clampTo(r, a)
		out.Pix[i+1] = clampTo(g, a)
		out.Pix[i+2] = clampTo(bl, a)
	}
	return out
}

// grayscale is CSS grayscale(1).
func grayscale(r, g, b float64) (float64, float64, float64) {
	y := 0.2126*r + 0.7152*g + 0.0722*b
	return y, y, y
}

// sepia is CSS sepia(1).
func sepia(r, g, b float64) (float64, float64, float64) {
	return 0.393*r + 0.769*g + 0.189*b,
		0.349*r + 0.686*g + 0.168*b,
		0.272*r + 0.534*g + 0.131*b
}

func brightness(r, g, b float64) (float64, float64, float64) {
	return r * brightnessScale, g * brightnessScale, b * brightnessScale
}

func clampTo(v float64, limit uint8) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= float64(limit) {
		return limit
	}
	return uint8(v + 0.5)
}
