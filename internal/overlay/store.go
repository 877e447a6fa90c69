// Package overlay holds the caption list of a meme together with its
// selection and undo history. It performs no rendering.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"strings"
)

// Axis names a coordinate that Nudge adjusts.
type Axis int

const (
	AxisX Axis = iota
	AxisY
)

// ParseAxis accepts "x" or "y".
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	}
	return 0, fmt.Errorf("invalid axis %q", s)
}

func (a Axis) String() string {
	if a == AxisX {
		return "x"
	}
	return "y"
}

// Store is the annotation list of one editing session. It is not safe for
// concurrent use; the owning session serializes access.
type Store struct {
	annotations []Annotation
	history     [][]Annotation
	selected    int64
	nextID      int64

	sizes        SizeRange
	defaultSize  int
	defaultColor color.RGBA
}

// Option configures a Store.
type Option func(*Store)

// WithSizeRange sets the allowed font size range.
func WithSizeRange(r SizeRange) Option { return func(s *Store) { s.sizes = r } }

// WithDefaultSize sets the font size of new annotations.
func WithDefaultSize(size int) Option { return func(s *Store) { s.defaultSize = size } }

// WithDefaultColor sets the fill colour of new annotations.
func WithDefaultColor(c color.RGBA) Option { return func(s *Store) { s.defaultColor = c } }

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		nextID:       1,
		sizes:        DefaultSizeRange,
		defaultSize:  DefaultFontSize,
		defaultColor: DefaultColor,
	}
	for _, o := range opts {
		o(s)
	}
	s.defaultSize = s.sizes.Clamp(s.defaultSize)
	return s
}

// SizeRange returns the configured font size range.
func (s *Store) SizeRange() SizeRange { return s.sizes }

// Annotations returns a deep copy of the current list in paint order.
func (s *Store) Annotations() []Annotation { return cloneList(s.annotations) }

// Len returns the number of annotations.
func (s *Store) Len() int { return len(s.annotations) }

// Get returns a copy of the annotation with the given id.
func (s *Store) Get(id int64) (Annotation, bool) {
	if i := s.index(id); i >= 0 {
		return s.annotations[i].Clone(), true
	}
	return Annotation{}, false
}

// HistoryLen returns the number of undo snapshots.
func (s *Store) HistoryLen() int { return len(s.history) }

// Selected returns the selected annotation id.
func (s *Store) Selected() (int64, bool) { return s.selected, s.selected != 0 }

// Select marks id as selected. Unknown ids leave the selection untouched.
func (s *Store) Select(id int64) bool {
	if s.index(id) < 0 {
		return false
	}
	s.selected = id
	return true
}

// ClearSelection drops the selection.
func (s *Store) ClearSelection() { s.selected = 0 }

// Checkpoint records the current list so the next edit can be undone.
func (s *Store) Checkpoint() {
	s.history = append(s.history, cloneList(s.annotations))
}

// Add appends a new annotation and selects it. When canvas is a non-empty
// size the annotation is centred on it, otherwise it is left unplaced.
func (s *Store) Add(canvas *image.Point) Annotation {
	s.Checkpoint()
	a := Annotation{
		ID:       s.nextID,
		Text:     DefaultText,
		Color:    s.defaultColor,
		FontSize: s.defaultSize,
	}
	s.nextID++
	if canvas != nil && canvas.X > 0 && canvas.Y > 0 {
		a.Position = &image.Point{X: canvas.X / 2, Y: canvas.Y / 2}
	}
	s.annotations = append(s.annotations, a)
	s.selected = a.ID
	return a.Clone()
}

// Update applies p to the annotation with the given id. It does not record
// history; call Checkpoint first for an undoable edit.
func (s *Store) Update(id int64, p Patch) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	a := &s.annotations[i]
	if p.Text != nil {
		a.Text = *p.Text
	}
	if p.Color != nil {
		a.Color = *p.Color
	}
	if p.FontSize != nil {
		a.FontSize = s.sizes.Clamp(*p.FontSize)
	}
	switch {
	case p.Unplace:
		a.Position = nil
	case p.Position != nil:
		a.Position = &image.Point{X: max(p.Position.X, 0), Y: max(p.Position.Y, 0)}
	}
	return true
}

// Delete removes the annotation with the given id. Unknown ids change nothing,
// history included.
func (s *Store) Delete(id int64) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.Checkpoint()
	s.annotations = append(s.annotations[:i:i], s.annotations[i+1:]...)
	if s.selected == id {
		s.selected = 0
	}
	return true
}

// Undo restores the most recent snapshot and clears the selection.
func (s *Store) Undo() bool {
	n := len(s.history)
	if n == 0 {
		return false
	}
	s.annotations = s.history[n-1]
	s.history[n-1] = nil
	s.history = s.history[:n-1]
	s.selected = 0
	return true
}

// Nudge moves one coordinate of the annotation by a single pixel in the sign
// of dir, never below zero. A missing position counts as the origin. No
// history is recorded since nudges arrive as a continuous gesture.
func (s *Store) Nudge(id int64, axis Axis, dir int) bool {
	i := s.index(id)
	if i < 0 || dir == 0 {
		return false
	}
	step := 1
	if dir < 0 {
		step = -1
	}
	a := &s.annotations[i]
	var p image.Point
	if a.Position != nil {
		p = *a.Position
	}
	if axis == AxisX {
		p.X = max(p.X+step, 0)
	} else {
		p.Y = max(p.Y+step, 0)
	}
	a.Position = &p
	return true
}

// Reset drops every annotation, the history and the selection. IDs keep
// increasing so stale references never match a new annotation.
func (s *Store) Reset() {
	s.annotations = nil
	s.history = nil
	s.selected = 0
}

func (s *Store) index(id int64) int {
	if id == 0 {
		return -1
	}
	for i := range s.annotations {
		if s.annotations[i].ID == id {
			return i
		}
	}
	return -1
}
