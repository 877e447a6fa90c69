// Package editor is the desktop meme editor: a shiny window showing the live
// preview, driven by keyboard shortcuts and mouse clicks.
package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"time"
	"unicode/utf8"

	"golang.org/x/image/colornames"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/mouse"

	"github.com/example/memeshot/internal/imagesource"
	"github.com/example/memeshot/internal/overlay"
	"github.com/example/memeshot/internal/session"
	"github.com/example/memeshot/internal/share"
)

const (
	messageDuration = 2 * time.Second
	fastStep        = 10
	shareTimeout    = time.Minute
)

// captionColors is cycled by the colour shortcut.
var captionColors = []string{"white", "yellow", "red", "lime", "cyan", "black"}

// loadedEvent carries the outcome of a background image load back to the
// event loop.
type loadedEvent struct {
	gen       uint64
	ref       imagesource.Ref
	img       image.Image
	err       error
	cancelled bool
}

// Controller turns input events into session operations. It is driven from a
// single event loop; background loads report back through post.
type Controller struct {
	sess  *session.Session
	open  imagesource.Source
	paste imagesource.Source
	clip  share.Target

	decode func(context.Context, imagesource.Ref) (image.Image, error)
	post   func(any)
	now    func() time.Time
	ctx    context.Context

	editing bool
	typed   bool
	nudging bool

	dragging   bool
	dragMoved  bool
	dragID     int64
	dragOffset image.Point

	message      string
	messageUntil time.Time
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithOpenSource sets where the open shortcut picks images from.
func WithOpenSource(src imagesource.Source) ControllerOption {
	return func(c *Controller) { c.open = src }
}

// WithPasteSource sets where the paste shortcut reads images from.
func WithPasteSource(src imagesource.Source) ControllerOption {
	return func(c *Controller) { c.paste = src }
}

// WithCopyTarget sets where the copy shortcut sends the export.
func WithCopyTarget(t share.Target) ControllerOption {
	return func(c *Controller) { c.clip = t }
}

// WithPoster sets how background results reach the event loop.
func WithPoster(fn func(any)) ControllerOption {
	return func(c *Controller) { c.post = fn }
}

// NewController creates a Controller for sess.
func NewController(ctx context.Context, sess *session.Session, opts ...ControllerOption) *Controller {
	c := &Controller{
		sess:   sess,
		open:   imagesource.Portal{Title: "Open image"},
		paste:  imagesource.Clipboard{},
		clip:   share.Clipboard{},
		decode: imagesource.Decode,
		post:   func(any) {},
		now:    time.Now,
		ctx:    ctx,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Session returns the session being edited.
func (c *Controller) Session() *session.Session { return c.sess }

// Editing reports whether typed keys go into the selected caption.
func (c *Controller) Editing() bool { return c.editing }

// Message returns the current status message, if it has not expired.
func (c *Controller) Message() string {
	if c.message == "" || !c.now().Before(c.messageUntil) {
		return ""
	}
	return c.message
}

func (c *Controller) setMessage(format string, args ...any) {
	c.message = fmt.Sprintf(format, args...)
	c.messageUntil = c.now().Add(messageDuration)
	log.Print(c.message)
}

// DismissMessage hides the status message.
func (c *Controller) DismissMessage() bool {
	if c.Message() == "" {
		return false
	}
	c.messageUntil = time.Time{}
	return true
}

// HandleKey processes a key press and reports whether the editor should
// quit.
func (c *Controller) HandleKey(e key.Event) bool {
	if e.Direction == key.DirRelease {
		return false
	}
	if c.editing {
		c.handleEditKey(e)
		return false
	}
	action, ok := keyboardAction[shortcutFor(e)]
	if !ok {
		return false
	}
	if action != actionLeft && action != actionRight && action != actionUp && action != actionDown &&
		action != actionLeftFast && action != actionRightFast && action != actionUpFast && action != actionDownFast {
		c.nudging = false
	}
	switch action {
	case actionQuit:
		return true
	case actionAdd:
		if c.sess.Image() == nil {
			c.setMessage("load an image first")
			break
		}
		c.sess.Add()
	case actionDelete:
		if id, ok := c.sess.Selected(); ok {
			c.sess.Delete(id)
		}
	case actionUndo:
		if !c.sess.Undo() {
			c.setMessage("nothing to undo")
		}
	case actionFilter:
		s := c.sess.Settings()
		c.sess.SetFilter(s.Filter.Next())
		c.setMessage("filter: %s", c.sess.Settings().Filter)
	case actionFrame:
		s := c.sess.Settings()
		c.sess.SetFrame(s.Frame.Next())
		c.setMessage("frame: %s", c.sess.Settings().Frame)
	case actionEdit:
		c.startEditing()
	case actionSave:
		c.save()
	case actionCopy:
		c.copyImage()
	case actionShare:
		c.share()
	case actionOpen:
		c.Load(c.open)
	case actionPaste:
		c.Load(c.paste)
	case actionGrow:
		c.resize(+2)
	case actionShrink:
		c.resize(-2)
	case actionColor:
		c.cycleColor()
	case actionDeselect:
		c.sess.ClearSelection()
	case actionCycleFocus:
		c.selectNext()
	case actionLeft:
		c.nudge(overlay.AxisX, -1, 1)
	case actionRight:
		c.nudge(overlay.AxisX, 1, 1)
	case actionUp:
		c.nudge(overlay.AxisY, -1, 1)
	case actionDown:
		c.nudge(overlay.AxisY, 1, 1)
	case actionLeftFast:
		c.nudge(overlay.AxisX, -1, fastStep)
	case actionRightFast:
		c.nudge(overlay.AxisX, 1, fastStep)
	case actionUpFast:
		c.nudge(overlay.AxisY, -1, fastStep)
	case actionDownFast:
		c.nudge(overlay.AxisY, 1, fastStep)
	}
	return false
}

func (c *Controller) startEditing() {
	if _, ok := c.sess.Selected(); !ok {
		if c.sess.Image() == nil {
			return
		}
		c.sess.Add()
	}
	c.sess.Checkpoint()
	c.editing = true
	c.typed = false
}

func (c *Controller) stopEditing() {
	c.editing = false
	c.typed = false
}

// handleEditKey edits the selected caption. The first typed character
// replaces the existing text.
func (c *Controller) handleEditKey(e key.Event) {
	id, ok := c.sess.Selected()
	if !ok {
		c.stopEditing()
		return
	}
	a, _ := c.sess.Annotation(id)
	switch e.Code {
	case key.CodeReturnEnter, key.CodeEscape:
		c.stopEditing()
		return
	case key.CodeDeleteBackspace:
		text := a.Text
		if _, size := utf8.DecodeLastRuneInString(text); size > 0 {
			text = text[:len(text)-size]
		}
		c.typed = true
		c.sess.Update(id, overlay.Patch{Text: &text})
		return
	}
	if e.Rune <= 0 || e.Modifiers&key.ModControl != 0 {
		return
	}
	text := a.Text
	if !c.typed {
		text = ""
		c.typed = true
	}
	text += string(e.Rune)
	c.sess.Update(id, overlay.Patch{Text: &text})
}

// nudge moves the selected caption. A run of consecutive nudges is one undo
// step.
func (c *Controller) nudge(axis overlay.Axis, dir, steps int) {
	id, ok := c.sess.Selected()
	if !ok {
		return
	}
	if !c.nudging {
		c.sess.Checkpoint()
		c.nudging = true
	}
	if _, err := c.sess.NudgeBy(id, axis, dir, min(steps, c.sess.MaxNudgeSteps())); err != nil {
		log.Printf("nudge: %v", err)
	}
}

func (c *Controller) resize(delta int) {
	id, ok := c.sess.Selected()
	if !ok {
		return
	}
	a, _ := c.sess.Annotation(id)
	size := c.sess.SizeRange().Clamp(a.FontSize + delta)
	if size == a.FontSize {
		return
	}
	c.sess.Checkpoint()
	c.sess.Update(id, overlay.Patch{FontSize: &size})
	c.setMessage("size %d", size)
}

func (c *Controller) cycleColor() {
	id, ok := c.sess.Selected()
	if !ok {
		return
	}
	a, _ := c.sess.Annotation(id)
	next := captionColors[0]
	for i, name := range captionColors {
		if colornames.Map[name] == a.Color {
			next = captionColors[(i+1)%len(captionColors)]
			break
		}
	}
	col := colornames.Map[next]
	c.sess.Checkpoint()
	c.sess.Update(id, overlay.Patch{Color: &col})
	c.setMessage("colour: %s", next)
}

func (c *Controller) selectNext() {
	list := c.sess.Annotations()
	if len(list) == 0 {
		return
	}
	cur, _ := c.sess.Selected()
	next := list[0].ID
	for i, a := range list {
		if a.ID == cur {
			next = list[(i+1)%len(list)].ID
			break
		}
	}
	c.sess.Select(next)
}

func (c *Controller) save() {
	loc, err := c.sess.Save(c.ctx)
	switch {
	case errors.Is(err, session.ErrNoImage):
		c.setMessage("load an image first")
	case err != nil:
		c.setMessage("save failed: %v", err)
	default:
		c.setMessage("saved %s", loc.Path)
	}
}

func (c *Controller) copyImage() {
	data, err := c.sess.Export()
	if errors.Is(err, session.ErrNoImage) {
		c.setMessage("load an image first")
		return
	}
	if err == nil {
		err = c.clip.Share(c.ctx, share.Payload{
			Title:       session.ShareTitle,
			Text:        session.ShareText,
			DialogTitle: session.ShareDialogTitle,
			Data:        data,
		})
	}
	if err != nil {
		c.setMessage("copy failed: %v", err)
		return
	}
	c.setMessage("image copied to clipboard")
}

func (c *Controller) share() {
	ctx, cancel := context.WithTimeout(c.ctx, shareTimeout)
	defer cancel()
	loc, shared, err := c.sess.Share(ctx)
	switch {
	case errors.Is(err, session.ErrNoImage):
		c.setMessage("load an image first")
	case err != nil:
		c.setMessage("share failed: %v", err)
	case !shared:
		c.setMessage("share cancelled")
	default:
		c.setMessage("shared %s", loc.Name())
	}
}

// Load starts picking and decoding an image from src in the background. Only
// the most recent load is applied; its result arrives through the poster and
// must be passed to HandleLoaded.
func (c *Controller) Load(src imagesource.Source) {
	if src == nil {
		return
	}
	c.stopEditing()
	gen := c.sess.BeginLoad()
	go func() {
		ref, err := src.Pick(c.ctx)
		if errors.Is(err, imagesource.ErrCancelled) {
			c.post(loadedEvent{gen: gen, cancelled: true})
			return
		}
		var img image.Image
		if err == nil {
			img, err = c.decode(c.ctx, ref)
		}
		c.post(loadedEvent{gen: gen, ref: ref, img: img, err: err})
	}()
}

// HandleLoaded applies a background load result.
func (c *Controller) HandleLoaded(ev loadedEvent) {
	if ev.cancelled {
		return
	}
	ok, err := c.sess.CompleteLoad(ev.gen, ev.ref, ev.img, ev.err)
	switch {
	case err != nil:
		c.setMessage("%v", err)
	case ok:
		c.setMessage("loaded %s", ev.ref)
	}
}

// HandleMouse processes a mouse event at p, already translated into image
// coordinates. Pressing on a caption selects it and starts a drag; pressing
// elsewhere clears the selection.
func (c *Controller) HandleMouse(e mouse.Event, p image.Point) {
	switch {
	case e.Button == mouse.ButtonLeft && e.Direction == mouse.DirPress:
		c.nudging = false
		if c.sess.Image() == nil {
			return
		}
		if id, ok := c.sess.Compositor().HitTest(c.sess.Annotations(), p); ok {
			if cur, _ := c.sess.Selected(); cur != id {
				c.stopEditing()
			}
			c.sess.Select(id)
			a, _ := c.sess.Annotation(id)
			c.dragging = true
			c.dragMoved = false
			c.dragID = id
			c.dragOffset = a.Position.Sub(p)
			return
		}
		c.stopEditing()
		c.sess.ClearSelection()
	case e.Direction == mouse.DirNone && c.dragging:
		if !c.dragMoved {
			c.sess.Checkpoint()
			c.dragMoved = true
		}
		pos := p.Add(c.dragOffset)
		c.sess.Update(c.dragID, overlay.Patch{Position: &pos})
	case e.Button == mouse.ButtonLeft && e.Direction == mouse.DirRelease:
		c.dragging = false
	}
}
