package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/example/memeshot/internal/compositor"
	"github.com/example/memeshot/internal/overlay"
	"github.com/example/memeshot/internal/session"
	"github.com/example/memeshot/internal/storage"
	"github.com/example/memeshot/internal/theme"
)

type pointJSON struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type annotationJSON struct {
	ID       int64      `json:"id"`
	Text     string     `json:"text"`
	Color    string     `json:"color"`
	FontSize int        `json:"font_size"`
	Position *pointJSON `json:"position"`
}

func annotationOut(a overlay.Annotation) annotationJSON {
	out := annotationJSON{ID: a.ID, Text: a.Text, Color: theme.Hex(a.Color), FontSize: a.FontSize}
	if a.Position != nil {
		out.Position = &pointJSON{X: a.Position.X, Y: a.Position.Y}
	}
	return out
}

type sessionJSON struct {
	ID          string              `json:"id"`
	State       session.State       `json:"state"`
	Ref         string              `json:"ref,omitempty"`
	Width       int                 `json:"width"`
	Height      int                 `json:"height"`
	Settings    compositor.Settings `json:"settings"`
	Annotations []annotationJSON    `json:"annotations"`
	Selected    int64               `json:"selected,omitempty"`
	History     int                 `json:"history"`
}

func sessionOut(id string, s *session.Session) sessionJSON {
	list := s.Annotations()
	out := sessionJSON{
		ID:          id,
		State:       s.State(),
		Ref:         string(s.Ref()),
		Width:       s.Size().X,
		Height:      s.Size().Y,
		Settings:    s.Settings(),
		Annotations: make([]annotationJSON, 0, len(list)),
		History:     s.HistoryLen(),
	}
	for _, a := range list {
		out.Annotations = append(out.Annotations, annotationOut(a))
	}
	out.Selected, _ = s.Selected()
	return out
}

// patchJSON is a partial caption update. FontSize accepts a number or raw
// text, which is interpreted like a form field.
type patchJSON struct {
	Text     *string          `json:"text"`
	Color    *string          `json:"color"`
	FontSize *json.RawMessage `json:"font_size"`
	Position *pointJSON       `json:"position"`
	Unplace  bool             `json:"unplace"`
}

func (p patchJSON) patch(sizes overlay.SizeRange) (overlay.Patch, error) {
	var out overlay.Patch
	out.Text = p.Text
	if p.Color != nil {
		c, err := theme.ParseColor(*p.Color)
		if err != nil {
			return overlay.Patch{}, fmt.Errorf("color: %w", err)
		}
		out.Color = &c
	}
	if p.FontSize != nil {
		var raw any
		if err := json.Unmarshal(*p.FontSize, &raw); err != nil {
			return overlay.Patch{}, fmt.Errorf("font_size: %w", err)
		}
		var text string
		switch v := raw.(type) {
		case float64:
			// Clamp before converting so huge values cannot overflow int.
			v = math.Max(float64(sizes.Min), math.Min(float64(sizes.Max), v))
			text = strconv.Itoa(int(v))
		case string:
			text = v
		}
		if size, ok := sizes.ParseSize(text); ok {
			out.FontSize = &size
		}
	}
	if p.Position != nil {
		out.Position = &image.Point{X: p.Position.X, Y: p.Position.Y}
	}
	out.Unplace = p.Unplace
	return out, nil
}

type settingsJSON struct {
	Filter *compositor.Filter `json:"filter"`
	Frame  *compositor.Frame  `json:"frame"`
}

type nudgeJSON struct {
	Axis  string `json:"axis"`
	Dir   int    `json:"dir"`
	Steps int    `json:"steps"`
}

type locationJSON struct {
	Path   string `json:"path"`
	URI    string `json:"uri"`
	Shared *bool  `json:"shared,omitempty"`
}

func locationOut(l storage.Location) locationJSON {
	return locationJSON{Path: l.Path, URI: l.URI}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// statusFor maps session errors onto HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errUnknownSession), errors.Is(err, errUnknownAnnotation):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNoImage):
		return http.StatusConflict
	case errors.Is(err, session.ErrDecode), errors.Is(err, session.ErrNudgeSteps), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}
