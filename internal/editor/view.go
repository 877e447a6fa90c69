package editor

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"log"
	"sync"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/example/memeshot/internal/theme"
)

const (
	bottomHeight = 24
	checkerSize  = 8
	minZoom      = 0.1
	emptyWidth   = 640
	emptyHeight  = 480
)

// frameDropThreshold specifies how many consecutive frames can be cancelled
// before a frame is allowed to finish.
const frameDropThreshold = 10

var (
	messageOnce sync.Once
	messageFace font.Face = basicfont.Face7x13
)

func loadMessageFace() font.Face {
	messageOnce.Do(func() {
		f, err := opentype.Parse(goregular.TTF)
		if err != nil {
			log.Printf("parse message font: %v", err)
			return
		}
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: 24, DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			log.Printf("message face: %v", err)
			return
		}
		messageFace = face
	})
	return messageFace
}

// paintState is a snapshot of everything a frame needs, so painting can run
// off the event loop.
type paintState struct {
	width, height int
	preview       *image.RGBA
	theme         *theme.Theme
	status        string
	message       string
}

// layout maps between window and image coordinates.
type layout struct {
	rect image.Rectangle
	zoom float64
}

// fitLayout scales an image of size to fit above the status bar, centred.
func fitLayout(size image.Point, winW, winH int) layout {
	availW := winW
	availH := winH - bottomHeight
	if size.X <= 0 || size.Y <= 0 || availW <= 0 || availH <= 0 {
		return layout{zoom: 1}
	}
	zx := float64(availW) / float64(size.X)
	zy := float64(availH) / float64(size.Y)
	zoom := min(zx, zy)
	if zoom < minZoom {
		zoom = minZoom
	}
	w := int(float64(size.X) * zoom)
	h := int(float64(size.Y) * zoom)
	x0 := (availW - w) / 2
	y0 := (availH - h) / 2
	return layout{rect: image.Rect(x0, y0, x0+w, y0+h), zoom: zoom}
}

// toImage converts a window position into image coordinates.
func (l layout) toImage(x, y float32) image.Point {
	return image.Point{
		X: int((float64(x) - float64(l.rect.Min.X)) / l.zoom),
		Y: int((float64(y) - float64(l.rect.Min.Y)) / l.zoom),
	}
}

// drawCheckerboard fills rect of dst with a checkerboard pattern of the given
// colors. size controls the checker square size.
func drawCheckerboard(dst *image.RGBA, rect image.Rectangle, size int, light, dark color.RGBA) {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if ((x/size)+(y/size))%2 == 0 {
				dst.SetRGBA(x, y, light)
			} else {
				dst.SetRGBA(x, y, dark)
			}
		}
	}
}

// painter owns the cached backdrop. It is only used from the paint goroutine.
type painter struct {
	backdrop    *image.RGBA
	light, dark color.RGBA
}

func (p *painter) drawBackdrop(dst *image.RGBA, th *theme.Theme) {
	b := dst.Bounds()
	if p.backdrop == nil || p.backdrop.Bounds() != b || p.light != th.CheckerLight || p.dark != th.CheckerDark {
		p.backdrop = image.NewRGBA(b)
		p.light, p.dark = th.CheckerLight, th.CheckerDark
		drawCheckerboard(p.backdrop, b, checkerSize, p.light, p.dark)
	}
	draw.Draw(dst, b, p.backdrop, image.Point{}, draw.Src)
}

// paint draws one frame into dst. It returns false when ctx was cancelled
// part way.
func (p *painter) paint(ctx context.Context, dst *image.RGBA, st paintState) bool {
	p.drawBackdrop(dst, st.theme)
	if ctx.Err() != nil {
		return false
	}

	if st.preview != nil {
		l := fitLayout(st.preview.Bounds().Size(), st.width, st.height)
		xdraw.NearestNeighbor.Scale(dst, l.rect, st.preview, st.preview.Bounds(), draw.Over, nil)
	} else {
		drawCentered(dst, image.Rect(0, 0, st.width, st.height-bottomHeight), "press o to open an image or ctrl+v to paste one", basicfont.Face7x13, color.Black)
	}
	if ctx.Err() != nil {
		return false
	}

	bar := image.Rect(0, st.height-bottomHeight, st.width, st.height)
	draw.Draw(dst, bar, &image.Uniform{color.RGBA{240, 240, 240, 255}}, image.Point{}, draw.Src)
	d := &font.Drawer{Dst: dst, Src: image.Black, Face: basicfont.Face7x13}
	d.Dot = fixed.P(4, bar.Max.Y-7)
	d.DrawString(st.status)
	if ctx.Err() != nil {
		return false
	}

	if st.message != "" {
		drawSnackbar(dst, st, loadMessageFace())
	}
	return ctx.Err() == nil
}

func drawSnackbar(dst *image.RGBA, st paintState, face font.Face) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(st.theme.MessageText), Face: face}
	wmsg := d.MeasureString(st.message).Ceil()
	ascent := face.Metrics().Ascent.Ceil()
	descent := face.Metrics().Descent.Ceil()
	px := (st.width - wmsg) / 2
	py := st.height - bottomHeight - 16 - descent
	rect := image.Rect(px-8, py-ascent-8, px+wmsg+8, py+descent+8)
	draw.Draw(dst, rect, &image.Uniform{st.theme.Message}, image.Point{}, draw.Over)
	d.Dot = fixed.P(px, py)
	d.DrawString(st.message)
}

func drawCentered(dst *image.RGBA, r image.Rectangle, text string, face font.Face, col color.Color) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: face}
	w := d.MeasureString(text).Ceil()
	d.Dot = fixed.P(r.Min.X+(r.Dx()-w)/2, r.Min.Y+r.Dy()/2)
	d.DrawString(text)
}
