// Package session owns one meme being edited: the base image, the caption
// store, the canvas settings and the live preview. Every change goes through
// a Session, which re-renders the preview after each one.
//
// A Session is not safe for concurrent use.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"time"

	"github.com/example/memeshot/internal/compositor"
	"github.com/example/memeshot/internal/imagesource"
	"github.com/example/memeshot/internal/overlay"
	"github.com/example/memeshot/internal/share"
	"github.com/example/memeshot/internal/storage"
)

var (
	// ErrNoImage is returned by operations that need a base image.
	ErrNoImage = errors.New("no image loaded")
	// ErrDecode wraps failures to load a picked image.
	ErrDecode = errors.New("cannot load image")
	// ErrNudgeSteps rejects a nudge run outside 1..MaxNudgeSteps.
	ErrNudgeSteps = errors.New("nudge steps out of range")
)

// Share text handed to every share target.
const (
	ShareTitle       = "My Meme"
	ShareText        = "Check out this meme!"
	ShareDialogTitle = "Share Meme"
)

// State is the lifecycle stage of a session.
type State int

const (
	// NoImage is the initial state.
	NoImage State = iota
	// ImageLoaded means an image was loaded and nothing was changed since.
	ImageLoaded
	// Editing means captions or settings changed after the last load.
	Editing
)

func (s State) String() string {
	switch s {
	case NoImage:
		return "no-image"
	case ImageLoaded:
		return "image-loaded"
	case Editing:
		return "editing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(b []byte) error {
	for _, st := range []State{NoImage, ImageLoaded, Editing} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", b)
}

// Notifier receives user-facing notices. *notify.Notifier satisfies it.
type Notifier interface {
	Saved(path string)
	Shared(detail string)
	Failed(op string, err error)
}

type nopNotifier struct{}

func (nopNotifier) Saved(string)         {}
func (nopNotifier) Shared(string)        {}
func (nopNotifier) Failed(string, error) {}

// Session is a single editing interaction.
type Session struct {
	store    *overlay.Store
	comp     *compositor.Compositor
	settings compositor.Settings

	state State
	base  image.Image
	ref   imagesource.Ref
	gen   uint64

	preview *image.RGBA

	writer   storage.Writer
	sharer   share.Target
	notifier Notifier
	decode   func(context.Context, imagesource.Ref) (image.Image, error)
	now      func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithCompositor sets the renderer.
func WithCompositor(c *compositor.Compositor) Option { return func(s *Session) { s.comp = c } }

// WithStore sets the caption store.
func WithStore(st *overlay.Store) Option { return func(s *Session) { s.store = st } }

// WithWriter sets where Save and Share put files.
func WithWriter(w storage.Writer) Option { return func(s *Session) { s.writer = w } }

// WithSharer sets the share target.
func WithSharer(t share.Target) Option { return func(s *Session) { s.sharer = t } }

// WithNotifier sets the notice sink.
func WithNotifier(n Notifier) Option {
	return func(s *Session) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithDecoder replaces imagesource.Decode.
func WithDecoder(fn func(context.Context, imagesource.Ref) (image.Image, error)) Option {
	return func(s *Session) { s.decode = fn }
}

// WithClock sets the time source used for export names.
func WithClock(now func() time.Time) Option { return func(s *Session) { s.now = now } }

// New creates an empty session.
func New(opts ...Option) *Session {
	s := &Session{notifier: nopNotifier{}, decode: imagesource.Decode, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if s.store == nil {
		s.store = overlay.NewStore()
	}
	if s.comp == nil {
		s.comp = compositor.New()
	}
	return s
}

// State returns the lifecycle stage.
func (s *Session) State() State { return s.state }

// Image returns the base image, or nil.
func (s *Session) Image() image.Image { return s.base }

// Ref returns the reference of the loaded image.
func (s *Session) Ref() imagesource.Ref { return s.ref }

// Size returns the base image size, or the zero point when nothing is loaded.
func (s *Session) Size() image.Point {
	if s.base == nil {
		return image.Point{}
	}
	return s.base.Bounds().Size()
}

// Settings returns the canvas settings.
func (s *Session) Settings() compositor.Settings { return s.settings }

// Compositor returns the renderer, for hit testing.
func (s *Session) Compositor() *compositor.Compositor { return s.comp }

// Annotations returns a copy of the captions in paint order.
func (s *Session) Annotations() []overlay.Annotation { return s.store.Annotations() }

// Annotation returns one caption.
func (s *Session) Annotation(id int64) (overlay.Annotation, bool) { return s.store.Get(id) }

// Selected returns the selected caption id.
func (s *Session) Selected() (int64, bool) { return s.store.Selected() }

// HistoryLen returns the number of undo steps available.
func (s *Session) HistoryLen() int { return s.store.HistoryLen() }

// SizeRange returns the allowed font sizes.
func (s *Session) SizeRange() overlay.SizeRange { return s.store.SizeRange() }

// Preview returns the latest render including the selection highlight, or
// nil when nothing is loaded. Callers must not modify it.
func (s *Session) Preview() *image.RGBA { return s.preview }

// Generation returns the current load generation.
func (s *Session) Generation() uint64 { return s.gen }

// BeginLoad starts a load and returns its generation. Only the most recent
// generation can complete.
func (s *Session) BeginLoad() uint64 {
	s.gen++
	return s.gen
}

// CompleteLoad applies the outcome of load gen. Stale generations are dropped
// and report false. A failed decode leaves the session untouched and returns
// an error wrapping ErrDecode. A successful load clears the captions and
// their history.
func (s *Session) CompleteLoad(gen uint64, ref imagesource.Ref, img image.Image, err error) (bool, error) {
	if gen != s.gen {
		log.Printf("discarding stale image load %d (current %d)", gen, s.gen)
		return false, nil
	}
	if err == nil && img == nil {
		err = errors.New("empty image")
	}
	if err == nil && img.Bounds().Empty() {
		err = errors.New("image has no pixels")
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrDecode, err)
		s.notifier.Failed("load", err)
		return false, err
	}
	s.base = img
	s.ref = ref
	s.store.Reset()
	s.state = ImageLoaded
	s.render()
	return true, nil
}

// Load picks an image from src and decodes it. A cancelled pick is not an
// error and leaves the session as it was.
func (s *Session) Load(ctx context.Context, src imagesource.Source) (bool, error) {
	ref, err := src.Pick(ctx)
	if errors.Is(err, imagesource.ErrCancelled) {
		return false, nil
	}
	if err != nil {
		err = fmt.Errorf("pick image: %w", err)
		s.notifier.Failed("load", err)
		return false, err
	}
	return s.LoadRef(ctx, ref)
}

// LoadRef decodes ref and applies it.
func (s *Session) LoadRef(ctx context.Context, ref imagesource.Ref) (bool, error) {
	gen := s.BeginLoad()
	img, err := s.decode(ctx, ref)
	return s.CompleteLoad(gen, ref, img, err)
}

// SetImage applies an already decoded image.
func (s *Session) SetImage(ref imagesource.Ref, img image.Image) error {
	_, err := s.CompleteLoad(s.BeginLoad(), ref, img, nil)
	return err
}

func (s *Session) changed() {
	if s.state == ImageLoaded {
		s.state = Editing
	}
	s.render()
}

func (s *Session) render() {
	if s.base == nil {
		s.preview = nil
		return
	}
	sel, _ := s.store.Selected()
	s.preview = s.comp.Render(s.base, s.settings, s.store.Annotations(), sel)
}

// Add creates a caption centred on the image, or unplaced before an image
// is loaded.
func (s *Session) Add() overlay.Annotation {
	var canvas *image.Point
	if s.base != nil {
		size := s.Size()
		canvas = &size
	}
	a := s.store.Add(canvas)
	s.changed()
	return a
}

// Update edits a caption without recording history.
func (s *Session) Update(id int64, p overlay.Patch) bool {
	if !s.store.Update(id, p) {
		return false
	}
	s.changed()
	return true
}

// Checkpoint records the captions so the next edits can be undone.
func (s *Session) Checkpoint() { s.store.Checkpoint() }

// Delete removes a caption.
func (s *Session) Delete(id int64) bool {
	if !s.store.Delete(id) {
		return false
	}
	s.changed()
	return true
}

// Undo restores the previous caption list.
func (s *Session) Undo() bool {
	if !s.store.Undo() {
		return false
	}
	s.changed()
	return true
}

// Nudge moves a caption one pixel.
func (s *Session) Nudge(id int64, axis overlay.Axis, dir int) bool {
	if !s.store.Nudge(id, axis, dir) {
		return false
	}
	s.changed()
	return true
}

// MaxNudgeSteps is the longest nudge run NudgeBy accepts: the larger image
// dimension, which is enough to cross the whole picture.
func (s *Session) MaxNudgeSteps() int {
	return max(s.Size().X, s.Size().Y, 1)
}

// NudgeBy moves a caption steps pixels and renders once.
func (s *Session) NudgeBy(id int64, axis overlay.Axis, dir, steps int) (bool, error) {
	if steps < 1 || steps > s.MaxNudgeSteps() {
		return false, fmt.Errorf("%w: %d (max %d)", ErrNudgeSteps, steps, s.MaxNudgeSteps())
	}
	moved := false
	for i := 0; i < steps; i++ {
		if !s.store.Nudge(id, axis, dir) {
			break
		}
		moved = true
	}
	if moved {
		s.changed()
	}
	return moved, nil
}

// Select marks a caption as selected.
func (s *Session) Select(id int64) bool {
	if !s.store.Select(id) {
		return false
	}
	s.render()
	return true
}

// ClearSelection removes the selection highlight.
func (s *Session) ClearSelection() {
	s.store.ClearSelection()
	s.render()
}

// SetSettings replaces filter and frame.
func (s *Session) SetSettings(cs compositor.Settings) {
	s.settings = cs
	s.changed()
}

// SetFilter changes the filter.
func (s *Session) SetFilter(f compositor.Filter) {
	s.settings.Filter = f
	s.changed()
}

// SetFrame changes the frame.
func (s *Session) SetFrame(f compositor.Frame) {
	s.settings.Frame = f
	s.changed()
}

// ExportName returns the file name used for the next save or share.
func (s *Session) ExportName() string {
	return fmt.Sprintf("meme-%d.png", s.now().UnixMilli())
}

// Export renders the meme without selection highlight and encodes it as PNG.
func (s *Session) Export() ([]byte, error) {
	if s.base == nil {
		return nil, ErrNoImage
	}
	out := s.comp.Render(s.base, s.settings, s.store.Annotations(), 0)
	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the export to the documents area.
func (s *Session) Save(ctx context.Context) (storage.Location, error) {
	loc, err := s.write(ctx, storage.AreaDocuments, nil)
	if err != nil {
		if !errors.Is(err, ErrNoImage) {
			s.notifier.Failed("save", err)
		}
		return storage.Location{}, err
	}
	s.notifier.Saved(loc.Path)
	return loc, nil
}

// Share writes the export to the cache area and hands it to the share
// target. shared is false when the user cancelled, which is not an error.
func (s *Session) Share(ctx context.Context) (loc storage.Location, shared bool, err error) {
	if s.sharer == nil {
		return storage.Location{}, false, fmt.Errorf("no share target configured")
	}
	var data []byte
	loc, err = s.write(ctx, storage.AreaCache, &data)
	if err != nil {
		if !errors.Is(err, ErrNoImage) {
			s.notifier.Failed("share", err)
		}
		return storage.Location{}, false, err
	}
	err = s.sharer.Share(ctx, share.Payload{
		Title:       ShareTitle,
		Text:        ShareText,
		DialogTitle: ShareDialogTitle,
		Location:    loc,
		Data:        data,
	})
	if errors.Is(err, share.ErrCancelled) {
		return loc, false, nil
	}
	if err != nil {
		err = fmt.Errorf("share: %w", err)
		s.notifier.Failed("share", err)
		return loc, false, err
	}
	s.notifier.Shared(loc.Name())
	return loc, true, nil
}

func (s *Session) write(ctx context.Context, area storage.Area, keep *[]byte) (storage.Location, error) {
	if s.writer == nil {
		return storage.Location{}, fmt.Errorf("no storage configured")
	}
	data, err := s.Export()
	if err != nil {
		return storage.Location{}, err
	}
	loc, err := s.writer.Write(ctx, area, s.ExportName(), data)
	if err != nil {
		return storage.Location{}, fmt.Errorf("write %s: %w", area, err)
	}
	if keep != nil {
		*keep = data
	}
	return loc, nil
}
