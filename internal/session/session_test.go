package session

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"
	"time"

	"github.com/example/memeshot/internal/compositor"
	"github.com/example/memeshot/internal/imagesource"
	"github.com/example/memeshot/internal/overlay"
	"github.com/example/memeshot/internal/share"
	"github.com/example/memeshot/internal/storage"
)

type write struct {
	area storage.Area
	name string
	data []byte
}

type fakeWriter struct {
	writes []write
	err    error
}

func (f *fakeWriter) Write(_ context.Context, area storage.Area, name string, data []byte) (storage.Location, error) {
	if f.err != nil {
		return storage.Location{}, f.err
	}
	f.writes = append(f.writes, write{area, name, data})
	return storage.NewLocation("/out/" + string(area) + "/" + name), nil
}

type fakeNotifier struct {
	saved, shared []string
	failed        []string
}

func (f *fakeNotifier) Saved(p string)              { f.saved = append(f.saved, p) }
func (f *fakeNotifier) Shared(d string)             { f.shared = append(f.shared, d) }
func (f *fakeNotifier) Failed(op string, err error) { f.failed = append(f.failed, op) }

type fakeSource struct {
	ref imagesource.Ref
	err error
}

func (f fakeSource) Pick(context.Context) (imagesource.Ref, error) { return f.ref, f.err }

func plain(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{40, 80, 120, 255}), image.Point{}, draw.Src)
	return img
}

var clock = func() time.Time { return time.UnixMilli(1700000000123) }

func newSession(t *testing.T, opts ...Option) (*Session, *fakeWriter, *fakeNotifier) {
	t.Helper()
	w := &fakeWriter{}
	n := &fakeNotifier{}
	images := map[imagesource.Ref]image.Image{
		"file:///a.png": plain(800, 600),
		"file:///b.png": plain(200, 100),
	}
	decode := func(_ context.Context, ref imagesource.Ref) (image.Image, error) {
		if img, ok := images[ref]; ok {
			return img, nil
		}
		return nil, errors.New("unknown format")
	}
	base := []Option{WithWriter(w), WithNotifier(n), WithDecoder(decode), WithClock(clock)}
	return New(append(base, opts...)...), w, n
}

func TestInitialState(t *testing.T) {
	s, _, _ := newSession(t)
	if s.State() != NoImage || s.Preview() != nil {
		t.Fatalf("unexpected initial state %v", s.State())
	}
	if _, err := s.Export(); !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
	if _, err := s.Save(context.Background()); !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
	a := s.Add()
	if a.Placed() || s.State() != NoImage {
		t.Fatalf("caption before image should be unplaced, state %v", s.State())
	}
}

func TestLoadThenAddCentres(t *testing.T) {
	s, _, _ := newSession(t)
	ok, err := s.Load(context.Background(), fakeSource{ref: "file:///a.png"})
	if !ok || err != nil {
		t.Fatalf("load = %v, %v", ok, err)
	}
	if s.State() != ImageLoaded || s.Size() != image.Pt(800, 600) {
		t.Fatalf("state %v size %v", s.State(), s.Size())
	}
	a := s.Add()
	if !a.Placed() || *a.Position != image.Pt(400, 300) {
		t.Fatalf("unexpected position %v", a.Position)
	}
	if s.State() != Editing {
		t.Fatalf("expected editing, got %v", s.State())
	}
	if s.Preview() == nil || s.Preview().Bounds().Size() != image.Pt(800, 600) {
		t.Fatal("expected preview at image size")
	}
}

func TestReloadResetsCaptions(t *testing.T) {
	s, _, _ := newSession(t)
	ctx := context.Background()
	if _, err := s.LoadRef(ctx, "file:///a.png"); err != nil {
		t.Fatal(err)
	}
	s.Add()
	s.SetFrame(compositor.FrameCircle)
	if _, err := s.LoadRef(ctx, "file:///b.png"); err != nil {
		t.Fatal(err)
	}
	if s.State() != ImageLoaded || len(s.Annotations()) != 0 || s.HistoryLen() != 0 {
		t.Fatalf("expected fresh captions, state %v", s.State())
	}
	if s.Settings().Frame != compositor.FrameCircle {
		t.Fatal("settings should survive a reload")
	}
	if s.Ref() != "file:///b.png" {
		t.Fatalf("ref = %q", s.Ref())
	}
}

func TestStaleLoadIsDropped(t *testing.T) {
	s, _, _ := newSession(t)
	first := s.BeginLoad()
	second := s.BeginLoad()
	applied, err := s.CompleteLoad(first, "file:///a.png", plain(10, 10), nil)
	if applied || err != nil || s.Image() != nil {
		t.Fatalf("stale load applied: %v %v", applied, err)
	}
	applied, err = s.CompleteLoad(second, "file:///b.png", plain(20, 10), nil)
	if !applied || err != nil || s.Size() != image.Pt(20, 10) {
		t.Fatalf("current load not applied: %v %v", applied, err)
	}
}

func TestFailedLoadKeepsState(t *testing.T) {
	s, _, n := newSession(t)
	ctx := context.Background()
	if _, err := s.LoadRef(ctx, "file:///a.png"); err != nil {
		t.Fatal(err)
	}
	added := s.Add()
	applied, err := s.LoadRef(ctx, "file:///broken.png")
	if applied || !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v %v", applied, err)
	}
	if s.State() != Editing || s.Size() != image.Pt(800, 600) {
		t.Fatalf("state changed: %v %v", s.State(), s.Size())
	}
	if _, ok := s.Annotation(added.ID); !ok {
		t.Fatal("captions lost after failed load")
	}
	if len(n.failed) != 1 || n.failed[0] != "load" {
		t.Fatalf("expected failure notice, got %v", n.failed)
	}
	if _, err := s.CompleteLoad(s.BeginLoad(), "x", nil, nil); !errors.Is(err, ErrDecode) {
		t.Fatalf("nil image should fail, got %v", err)
	}
}

func TestCancelledPickIsNotAnError(t *testing.T) {
	s, _, n := newSession(t)
	ok, err := s.Load(context.Background(), fakeSource{err: imagesource.ErrCancelled})
	if ok || err != nil || s.State() != NoImage {
		t.Fatalf("cancel = %v %v state %v", ok, err, s.State())
	}
	if len(n.failed) != 0 {
		t.Fatal("cancel must not be reported")
	}
	if _, err := s.Load(context.Background(), fakeSource{err: errors.New("bus down")}); err == nil {
		t.Fatal("expected pick failure")
	}
}

func TestExportHasNoHighlight(t *testing.T) {
	s, _, _ := newSession(t)
	if err := s.SetImage("mem:", plain(300, 200)); err != nil {
		t.Fatal(err)
	}
	a := s.Add()
	if sel, ok := s.Selected(); !ok || sel != a.ID {
		t.Fatal("new caption should be selected")
	}
	data, err := s.Export()
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	want := s.Compositor().Render(s.Image(), s.Settings(), s.Annotations(), 0)
	got := image.NewRGBA(decoded.Bounds())
	draw.Draw(got, got.Bounds(), decoded, image.Point{}, draw.Src)
	if !bytes.Equal(got.Pix, want.Pix) {
		t.Fatal("export differs from an unselected render")
	}
	if bytes.Equal(s.Preview().Pix, want.Pix) {
		t.Fatal("preview should show the highlight")
	}
	if _, ok := s.Selected(); !ok {
		t.Fatal("export must not change the selection")
	}
}

func TestSettingsAreNotUndoable(t *testing.T) {
	s, _, _ := newSession(t)
	if err := s.SetImage("mem:", plain(50, 50)); err != nil {
		t.Fatal(err)
	}
	s.SetFilter(compositor.FilterSepia)
	if s.State() != Editing {
		t.Fatalf("expected editing, got %v", s.State())
	}
	if s.Undo() {
		t.Fatal("filter change should not be undoable")
	}
	if s.Settings().Filter != compositor.FilterSepia {
		t.Fatal("filter lost")
	}
}

func TestEditsRerender(t *testing.T) {
	s, _, _ := newSession(t)
	if err := s.SetImage("mem:", plain(300, 200)); err != nil {
		t.Fatal(err)
	}
	a := s.Add()
	before := append([]byte(nil), s.Preview().Pix...)
	text := "HELLO"
	if !s.Update(a.ID, overlay.Patch{Text: &text}) {
		t.Fatal("update failed")
	}
	if bytes.Equal(before, s.Preview().Pix) {
		t.Fatal("preview not refreshed after update")
	}
	if !s.Nudge(a.ID, overlay.AxisX, -1) {
		t.Fatal("nudge failed")
	}
	got, _ := s.Annotation(a.ID)
	if got.Position.X != 149 {
		t.Fatalf("x = %d", got.Position.X)
	}
	if s.Update(999, overlay.Patch{Text: &text}) || s.Delete(999) || s.Nudge(999, overlay.AxisY, 1) {
		t.Fatal("unknown id should be a no-op")
	}
	if !s.Delete(a.ID) || !s.Undo() {
		t.Fatal("delete then undo failed")
	}
	if _, ok := s.Annotation(a.ID); !ok {
		t.Fatal("undo should restore the caption")
	}
}

func TestNudgeByBoundsSteps(t *testing.T) {
	s, _, _ := newSession(t)
	if err := s.SetImage("mem:", plain(300, 200)); err != nil {
		t.Fatal(err)
	}
	a := s.Add()
	if s.MaxNudgeSteps() != 300 {
		t.Fatalf("max steps = %d, want 300", s.MaxNudgeSteps())
	}
	moved, err := s.NudgeBy(a.ID, overlay.AxisY, 1, 25)
	if err != nil || !moved {
		t.Fatalf("NudgeBy = %v, %v", moved, err)
	}
	got, _ := s.Annotation(a.ID)
	if *got.Position != image.Pt(150, 125) {
		t.Fatalf("position = %v", *got.Position)
	}
	if _, err := s.NudgeBy(a.ID, overlay.AxisX, -1, 300); err != nil {
		t.Fatal(err)
	}
	if got, _ = s.Annotation(a.ID); got.Position.X != 0 {
		t.Fatalf("x = %d, want floor at 0", got.Position.X)
	}
	for _, steps := range []int{0, -3, 301} {
		if _, err := s.NudgeBy(a.ID, overlay.AxisX, 1, steps); !errors.Is(err, ErrNudgeSteps) {
			t.Fatalf("steps %d: expected ErrNudgeSteps, got %v", steps, err)
		}
	}
	if moved, err := s.NudgeBy(999, overlay.AxisX, 1, 1); moved || err != nil {
		t.Fatalf("unknown id = %v, %v", moved, err)
	}
}

func TestSaveWritesDocuments(t *testing.T) {
	s, w, n := newSession(t)
	if err := s.SetImage("mem:", plain(40, 40)); err != nil {
		t.Fatal(err)
	}
	loc, err := s.Save(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(w.writes) != 1 || w.writes[0].area != storage.AreaDocuments || w.writes[0].name != "meme-1700000000123.png" {
		t.Fatalf("unexpected writes %+v", w.writes)
	}
	if loc.Name() != "meme-1700000000123.png" || len(n.saved) != 1 {
		t.Fatalf("loc %+v saved %v", loc, n.saved)
	}

	w.err = errors.New("disk full")
	if _, err := s.Save(context.Background()); err == nil {
		t.Fatal("expected save failure")
	}
	if len(n.failed) != 1 || n.failed[0] != "save" {
		t.Fatalf("expected failure notice, got %v", n.failed)
	}
	if s.State() != ImageLoaded {
		t.Fatalf("save failure changed state to %v", s.State())
	}
}

func TestShare(t *testing.T) {
	var got []share.Payload
	result := error(nil)
	target := share.Func(func(_ context.Context, p share.Payload) error {
		got = append(got, p)
		return result
	})
	s, w, n := newSession(t, WithSharer(target))
	if err := s.SetImage("mem:", plain(40, 40)); err != nil {
		t.Fatal(err)
	}

	loc, shared, err := s.Share(context.Background())
	if err != nil || !shared {
		t.Fatalf("share = %v %v", shared, err)
	}
	if w.writes[0].area != storage.AreaCache {
		t.Fatalf("expected cache write, got %v", w.writes[0].area)
	}
	p := got[0]
	if p.Title != "My Meme" || p.Text != "Check out this meme!" || p.DialogTitle != "Share Meme" {
		t.Fatalf("unexpected payload %+v", p)
	}
	if p.Location != loc || !bytes.Equal(p.Data, w.writes[0].data) {
		t.Fatal("payload does not match the written file")
	}
	if len(n.shared) != 1 {
		t.Fatal("expected share notice")
	}

	result = share.ErrCancelled
	if _, shared, err := s.Share(context.Background()); shared || err != nil {
		t.Fatalf("cancel = %v %v", shared, err)
	}
	result = errors.New("network")
	if _, _, err := s.Share(context.Background()); err == nil {
		t.Fatal("expected share failure")
	}
	if len(n.failed) != 1 || len(n.shared) != 1 {
		t.Fatalf("notices failed=%v shared=%v", n.failed, n.shared)
	}
}
