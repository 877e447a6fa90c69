package compositor

import (
	"image"
	"image/color"
	"testing"
)

func onePixel(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, c)
	return img
}

func TestApplyFilter(t *testing.T) {
	cases := []struct {
		name string
		f    Filter
		in   color.RGBA
		want color.RGBA
	}{
		{"none", FilterNone, color.RGBA{10, 20, 30, 255}, color.RGBA{10, 20, 30, 255}},
		{"grayscale", FilterGrayscale, color.RGBA{255, 0, 0, 255}, color.RGBA{54, 54, 54, 255}},
		{"sepia", FilterSepia, color.RGBA{100, 100, 100, 255}, color.RGBA{135, 120, 94, 255}},
		{"brightness", FilterBrightness, color.RGBA{100, 200, 50, 255}, color.RGBA{150, 255, 75, 255}},
		{"brightness premultiplied", FilterBrightness, color.RGBA{100, 50, 25, 128}, color.RGBA{128, 75, 38, 128}},
		{"transparent untouched", FilterSepia, color.RGBA{}, color.RGBA{}},
	}
	for _, tc := range cases {
		src := onePixel(tc.in)
		out := ApplyFilter(src, tc.f)
		if got := out.RGBAAt(0, 0); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
		if src.RGBAAt(0, 0) != tc.in {
			t.Errorf("%s: source modified", tc.name)
		}
	}
}

func TestParseSettings(t *testing.T) {
	for in, want := range map[string]Filter{"": FilterNone, "Sepia": FilterSepia, "grayscale(100%)": FilterGrayscale, "brightness(1.5)": FilterBrightness} {
		got, err := ParseFilter(in)
		if err != nil || got != want {
			t.Errorf("ParseFilter(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseFilter("blur"); err == nil {
		t.Error("expected unknown filter error")
	}
	if f, err := ParseFrame("CIRCLE"); err != nil || f != FrameCircle {
		t.Errorf("ParseFrame: %v %v", f, err)
	}
	if _, err := ParseFrame("hexagon"); err == nil {
		t.Error("expected unknown frame error")
	}
	if FilterBrightness.Next() != FilterNone || FrameCircle.Next() != FrameNone {
		t.Error("cycling should wrap")
	}
	var f Filter
	if err := f.UnmarshalText([]byte("sepia")); err != nil || f != FilterSepia {
		t.Errorf("UnmarshalText: %v %v", f, err)
	}
}
