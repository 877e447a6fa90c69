package compositor

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/example/memeshot/internal/overlay"
)

var baseFill = color.RGBA{R: 90, G: 140, B: 60, A: 255}

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func caption(id int64, text string, x, y int, c color.RGBA, size int) overlay.Annotation {
	return overlay.Annotation{ID: id, Text: text, Position: &image.Point{X: x, Y: y}, Color: c, FontSize: size}
}

func findColor(img *image.RGBA, r image.Rectangle, want color.RGBA) (image.Point, bool) {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.RGBAAt(x, y) == want {
				return image.Pt(x, y), true
			}
		}
	}
	return image.Point{}, false
}

func TestRenderNilBase(t *testing.T) {
	if out := New().Render(nil, Settings{}, nil, 0); out != nil {
		t.Fatalf("expected nil output, got %v", out.Bounds())
	}
}

func TestRenderCaptionOnPlainImage(t *testing.T) {
	c := New()
	base := solidImage(800, 600, baseFill)
	white := color.RGBA{255, 255, 255, 255}
	a := caption(1, "LOL", 400, 300, white, 40)

	out := c.Render(base, Settings{}, []overlay.Annotation{a}, 0)
	if !out.Bounds().Eq(image.Rect(0, 0, 800, 600)) {
		t.Fatalf("unexpected bounds %v", out.Bounds())
	}
	textBox := c.Bounds(a)
	if _, ok := findColor(out, textBox, white); !ok {
		t.Fatal("expected white fill inside caption bounds")
	}
	if _, ok := findColor(out, textBox, color.RGBA{0, 0, 0, 255}); !ok {
		t.Fatal("expected black outline inside caption bounds")
	}
	// Text is centred on x=400.
	left := image.Rect(textBox.Min.X, textBox.Min.Y, 400, textBox.Max.Y)
	right := image.Rect(400, textBox.Min.Y, textBox.Max.X, textBox.Max.Y)
	if _, ok := findColor(out, left, white); !ok {
		t.Fatal("expected caption to extend left of its anchor")
	}
	if _, ok := findColor(out, right, white); !ok {
		t.Fatal("expected caption to extend right of its anchor")
	}
	grown := textBox.Inset(-outlineWidth)
	for _, p := range []image.Point{{0, 0}, {799, 599}, {400, 100}, {100, 300}, {700, 500}} {
		if p.In(grown) {
			continue
		}
		if got := out.RGBAAt(p.X, p.Y); got != baseFill {
			t.Fatalf("base pixel at %v changed to %v", p, got)
		}
	}
}

func TestRenderSkipsUnplacedAnnotations(t *testing.T) {
	c := New()
	base := solidImage(120, 80, baseFill)
	unplaced := overlay.Annotation{ID: 1, Text: "hidden", Color: color.RGBA{255, 0, 0, 255}, FontSize: 30}
	want := c.Render(base, Settings{}, nil, 0)
	got := c.Render(base, Settings{}, []overlay.Annotation{unplaced}, 1)
	if !bytes.Equal(want.Pix, got.Pix) {
		t.Fatal("unplaced annotation affected the output")
	}
}

func TestRenderLaterAnnotationOccludesEarlier(t *testing.T) {
	c := New()
	base := solidImage(200, 120, baseFill)
	red := color.RGBA{255, 0, 0, 255}
	green := color.RGBA{0, 255, 0, 255}
	first := caption(1, "HI", 100, 80, red, 60)
	second := caption(2, "HI", 100, 80, green, 60)

	only := c.Render(base, Settings{}, []overlay.Annotation{first}, 0)
	p, ok := findColor(only, c.Bounds(first), red)
	if !ok {
		t.Fatal("expected solid red pixel in first caption")
	}
	both := c.Render(base, Settings{}, []overlay.Annotation{first, second}, 0)
	if got := both.RGBAAt(p.X, p.Y); got != green {
		t.Fatalf("pixel %v = %v, want later caption colour", p, got)
	}
}

func TestRenderCircleFrame(t *testing.T) {
	c := New()
	base := solidImage(800, 600, baseFill)
	out := c.Render(base, Settings{Frame: FrameCircle}, nil, 0)

	for _, p := range []image.Point{{0, 0}, {799, 0}, {0, 599}, {799, 599}, {705, 300}, {95, 300}} {
		if a := out.RGBAAt(p.X, p.Y).A; a != 0 {
			t.Fatalf("expected transparent pixel outside circle at %v, alpha %d", p, a)
		}
	}
	if got := out.RGBAAt(400, 300); got != baseFill {
		t.Fatalf("centre pixel = %v, want base", got)
	}
	blue := color.RGBA{0, 0, 255, 255}
	for _, p := range []image.Point{{690, 300}, {400, 10}, {110, 300}, {400, 590}, {685, 300}} {
		if got := out.RGBAAt(p.X, p.Y); got != blue {
			t.Fatalf("expected blue ring at %v, got %v", p, got)
		}
	}
	if got := out.RGBAAt(400+270, 300); got != baseFill {
		t.Fatalf("expected base inside ring, got %v", got)
	}
}

func TestRenderCircleClipsCaptions(t *testing.T) {
	c := New()
	base := solidImage(800, 600, baseFill)
	white := color.RGBA{255, 255, 255, 255}
	corner := caption(1, "CORNER", 60, 40, white, 40)
	centre := caption(2, "MID", 400, 300, white, 40)

	out := c.Render(base, Settings{Frame: FrameCircle}, []overlay.Annotation{corner, centre}, 1)
	outside := 0
	for y := 0; y < 600; y++ {
		for x := 0; x < 800; x++ {
			dx, dy := x-400, y-300
			if dx*dx+dy*dy > 301*301 && out.RGBAAt(x, y).A != 0 {
				outside++
			}
		}
	}
	if outside != 0 {
		t.Fatalf("%d drawn pixels outside the circle", outside)
	}
	if _, ok := findColor(out, c.Bounds(centre), white); !ok {
		t.Fatal("caption inside the circle should still be drawn")
	}
}

func TestRenderSquareFrame(t *testing.T) {
	c := New()
	base := solidImage(300, 200, baseFill)
	out := c.Render(base, Settings{Frame: FrameSquare}, nil, 0)
	red := color.RGBA{255, 0, 0, 255}
	for _, p := range []image.Point{{2, 2}, {5, 100}, {295, 100}, {150, 195}} {
		if got := out.RGBAAt(p.X, p.Y); got != red {
			t.Fatalf("expected red border at %v, got %v", p, got)
		}
	}
	if got := out.RGBAAt(150, 100); got != baseFill {
		t.Fatalf("expected base inside frame, got %v", got)
	}
}

func TestRenderFilterDoesNotTouchFrame(t *testing.T) {
	c := New()
	base := solidImage(300, 200, color.RGBA{200, 30, 30, 255})
	out := c.Render(base, Settings{Filter: FilterGrayscale, Frame: FrameSquare}, nil, 0)
	if got := out.RGBAAt(2, 2); got != (color.RGBA{255, 0, 0, 255}) {
		t.Fatalf("frame should stay red, got %v", got)
	}
	mid := out.RGBAAt(150, 100)
	if mid.R != mid.G || mid.G != mid.B {
		t.Fatalf("expected grey interior, got %v", mid)
	}
}

func TestRenderHighlightOnlyForSelected(t *testing.T) {
	c := New()
	base := solidImage(400, 200, baseFill)
	a := caption(7, "EDIT", 200, 120, color.RGBA{255, 255, 255, 255}, 40)
	plain := c.Render(base, Settings{}, []overlay.Annotation{a}, 0)
	selected := c.Render(base, Settings{}, []overlay.Annotation{a}, 7)
	if bytes.Equal(plain.Pix, selected.Pix) {
		t.Fatal("expected highlight to change the output")
	}
	r := c.Bounds(a)
	yellow := color.RGBA{255, 255, 0, 255}
	mid := (r.Min.Y + r.Max.Y) / 2
	if got := selected.RGBAAt(r.Min.X, mid); got != yellow {
		t.Fatalf("expected yellow highlight edge at %v, got %v", image.Pt(r.Min.X, mid), got)
	}
	if got := plain.RGBAAt(r.Min.X, mid); got == yellow {
		t.Fatal("unexpected highlight without selection")
	}
}

func TestBoundsMatchesHighlightGeometry(t *testing.T) {
	c := New()
	a := caption(1, "WIDE TEXT", 300, 200, color.RGBA{A: 255}, 40)
	w := c.fonts.Measure(a.Text, a.FontSize)
	r := c.Bounds(a)
	if r.Min.Y != 160 || r.Dy() != 50 || r.Dx() != w+10 || r.Min.X != 300-w/2-5 {
		t.Fatalf("unexpected bounds %v for width %d", r, w)
	}
	if !c.Bounds(overlay.Annotation{Text: "x", FontSize: 20}).Empty() {
		t.Fatal("expected empty bounds for unplaced annotation")
	}
}

func TestHitTestPrefersTopmost(t *testing.T) {
	c := New()
	list := []overlay.Annotation{
		caption(1, "BOTTOM", 100, 100, color.RGBA{A: 255}, 40),
		caption(2, "TOP", 100, 100, color.RGBA{A: 255}, 40),
		{ID: 3, Text: "unplaced", FontSize: 40},
	}
	if id, ok := c.HitTest(list, image.Pt(100, 90)); !ok || id != 2 {
		t.Fatalf("expected topmost hit, got %d %v", id, ok)
	}
	if _, ok := c.HitTest(list, image.Pt(5, 5)); ok {
		t.Fatal("expected miss")
	}
}

func TestRenderNonZeroOriginBase(t *testing.T) {
	c := New()
	base := image.NewRGBA(image.Rect(10, 20, 60, 70))
	draw.Draw(base, base.Bounds(), image.NewUniform(baseFill), image.Point{}, draw.Src)
	out := c.Render(base, Settings{}, nil, 0)
	if !out.Bounds().Eq(image.Rect(0, 0, 50, 50)) {
		t.Fatalf("unexpected bounds %v", out.Bounds())
	}
	if out.RGBAAt(0, 0) != baseFill {
		t.Fatalf("expected base copied to origin")
	}
}
