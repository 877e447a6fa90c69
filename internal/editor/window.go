package editor

import (
	"context"
	"fmt"
	"image"
	"log"
	"sync"

	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"
)

// Editor is the preview window around a Controller.
type Editor struct {
	ctrl  *Controller
	title string
}

// New creates an Editor. The controller's poster is replaced so background
// loads are delivered to the window.
func New(ctrl *Controller, title string) *Editor {
	return &Editor{ctrl: ctrl, title: title}
}

// Run executes the UI loop using shiny's driver. It blocks until the window
// closes.
func (e *Editor) Run() { driver.Main(e.Main) }

func (e *Editor) status() string {
	c := e.ctrl
	if c.Editing() {
		return "typing replaces the caption  enter/esc:done  backspace:erase"
	}
	if id, ok := c.Session().Selected(); ok {
		if a, ok := c.Session().Annotation(id); ok {
			return fmt.Sprintf("#%d %dpx  %s", a.ID, a.FontSize, helpText)
		}
	}
	return helpText
}

// Main runs the event loop on screen s.
func (e *Editor) Main(s screen.Screen) {
	c := e.ctrl
	sess := c.Session()

	width, height := emptyWidth, emptyHeight+bottomHeight
	if sz := sess.Size(); sz.X > 0 && sz.Y > 0 {
		width, height = sz.X, sz.Y+bottomHeight
	}
	w, err := s.NewWindow(&screen.NewWindowOptions{Width: width, Height: height, Title: e.title})
	if err != nil {
		log.Printf("new window: %v", err)
		return
	}
	defer w.Release()

	c.post = func(ev any) { w.Send(ev) }

	var paintMu sync.Mutex
	var paintCancel context.CancelFunc
	var dropCount int
	paintCh := make(chan paintState, 1)
	go func() {
		p := &painter{}
		for st := range paintCh {
			ctx, cancel := context.WithCancel(context.Background())
			paintMu.Lock()
			paintCancel = cancel
			paintMu.Unlock()
			e.drawFrame(ctx, s, w, p, st)
			paintMu.Lock()
			paintCancel = nil
			if ctx.Err() == nil {
				dropCount = 0
			}
			paintMu.Unlock()
			cancel()
		}
	}()
	defer close(paintCh)

	stopPainting := func() {
		paintMu.Lock()
		if paintCancel != nil {
			paintCancel()
		}
		paintMu.Unlock()
	}

	layoutNow := func() layout {
		return fitLayout(sess.Size(), width, height)
	}

	for {
		switch ev := w.NextEvent().(type) {
		case lifecycle.Event:
			if ev.To == lifecycle.StageDead {
				stopPainting()
				return
			}
		case size.Event:
			width = ev.WidthPx
			height = ev.HeightPx
			w.Send(paint.Event{})
		case paint.Event:
			paintMu.Lock()
			if paintCancel != nil && dropCount < frameDropThreshold {
				paintCancel()
				dropCount++
			}
			paintMu.Unlock()
			st := paintState{
				width:   width,
				height:  height,
				preview: sess.Preview(),
				theme:   sess.Compositor().Theme(),
				status:  e.status(),
				message: c.Message(),
			}
			select {
			case paintCh <- st:
			default:
				select {
				case <-paintCh:
				default:
				}
				paintCh <- st
			}
		case loadedEvent:
			c.HandleLoaded(ev)
			w.Send(paint.Event{})
		case mouse.Event:
			if ev.Direction == mouse.DirPress && c.DismissMessage() {
				w.Send(paint.Event{})
				continue
			}
			if int(ev.Y) >= height-bottomHeight {
				continue
			}
			if ev.Direction == mouse.DirNone && !c.dragging {
				continue
			}
			c.HandleMouse(ev, layoutNow().toImage(ev.X, ev.Y))
			w.Send(paint.Event{})
		case key.Event:
			if c.HandleKey(ev) {
				stopPainting()
				return
			}
			w.Send(paint.Event{})
		case error:
			log.Printf("window: %v", ev)
		}
	}
}

func (e *Editor) drawFrame(ctx context.Context, s screen.Screen, w screen.Window, p *painter, st paintState) {
	if st.width <= 0 || st.height <= 0 {
		return
	}
	b, err := s.NewBuffer(image.Point{st.width, st.height})
	if err != nil {
		log.Printf("new buffer: %v", err)
		return
	}
	defer b.Release()
	if !p.paint(ctx, b.RGBA(), st) {
		return
	}
	w.Upload(image.Point{}, b, b.Bounds())
	w.Publish()
}
