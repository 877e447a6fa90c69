package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/memeshot/internal/overlay"
	"github.com/example/memeshot/internal/session"
	"github.com/example/memeshot/internal/share"
	"github.com/example/memeshot/internal/storage"
)

type failingWriter struct{}

func (failingWriter) Write(context.Context, storage.Area, string, []byte) (storage.Location, error) {
	return storage.Location{}, errors.New("disk full")
}

func newTestServer(t *testing.T, opts ...session.Option) *httptest.Server {
	t.Helper()
	dir := storage.Dir{Documents: t.TempDir(), Cache: t.TempDir()}
	srv := New(func() (*session.Session, error) {
		return session.New(append([]session.Option{session.WithWriter(dir)}, opts...)...), nil
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

func pngBody(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func createSession(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp, data := do(t, ts, http.MethodPost, "/sessions", "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: %d %s", resp.StatusCode, data)
	}
	s := decode[sessionJSON](t, data)
	if s.ID == "" || s.State != session.NoImage {
		t.Fatalf("unexpected new session %+v", s)
	}
	return s.ID
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t)
	id := createSession(t, ts)
	base := "/sessions/" + id

	resp, data := do(t, ts, http.MethodGet, base+"/export.png", "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("export without image: %d %s", resp.StatusCode, data)
	}

	resp, data = do(t, ts, http.MethodPut, base+"/image", pngBody(t, 300, 200))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload: %d %s", resp.StatusCode, data)
	}
	s := decode[sessionJSON](t, data)
	if s.State != session.ImageLoaded || s.Width != 300 || s.Height != 200 || !strings.HasPrefix(s.Ref, "upload:") {
		t.Fatalf("unexpected session after upload %+v", s)
	}

	resp, data = do(t, ts, http.MethodPost, base+"/annotations", `{"text":"TOP TEXT","color":"yellow","font_size":"500"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add: %d %s", resp.StatusCode, data)
	}
	a := decode[annotationJSON](t, data)
	if a.Text != "TOP TEXT" || a.Color != "#FFFF00" || a.FontSize != 100 || a.Position == nil || *a.Position != (pointJSON{150, 100}) {
		t.Fatalf("unexpected annotation %+v", a)
	}
	aid := "/annotations/" + jsonID(a.ID)

	resp, data = do(t, ts, http.MethodPatch, base+aid+"?checkpoint=1", `{"position":{"x":-5,"y":40},"font_size":"abc"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch: %d %s", resp.StatusCode, data)
	}
	a = decode[annotationJSON](t, data)
	if *a.Position != (pointJSON{0, 40}) || a.FontSize != 100 {
		t.Fatalf("unexpected patched annotation %+v", a)
	}

	resp, data = do(t, ts, http.MethodPost, base+aid+"/nudge", `{"axis":"x","dir":1,"steps":3}`)
	if resp.StatusCode != http.StatusOK || decode[annotationJSON](t, data).Position.X != 3 {
		t.Fatalf("nudge: %d %s", resp.StatusCode, data)
	}

	resp, data = do(t, ts, http.MethodPut, base+"/settings", `{"filter":"sepia","frame":"circle"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("settings: %d %s", resp.StatusCode, data)
	}
	s = decode[sessionJSON](t, data)
	if s.Settings.Filter.String() != "sepia" || s.Settings.Frame.String() != "circle" || s.State != session.Editing {
		t.Fatalf("unexpected settings %+v", s)
	}
	if s.Selected != a.ID || s.History != 2 {
		t.Fatalf("unexpected selection/history %+v", s)
	}

	resp, data = do(t, ts, http.MethodPost, base+"/undo", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("undo: %d %s", resp.StatusCode, data)
	}
	s = decode[sessionJSON](t, data)
	if len(s.Annotations) != 1 || *s.Annotations[0].Position != (pointJSON{150, 100}) || s.Selected != 0 {
		t.Fatalf("undo should restore the checkpoint %+v", s)
	}

	resp, data = do(t, ts, http.MethodGet, base+"/preview.png", "")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("preview: %d", resp.StatusCode)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil || img.Bounds().Dx() != 300 {
		t.Fatalf("preview decode: %v", err)
	}
	// Circle frame leaves the corner transparent.
	if _, _, _, alpha := img.At(0, 0).RGBA(); alpha != 0 {
		t.Fatal("expected transparent corner")
	}

	resp, data = do(t, ts, http.MethodPost, base+"/save", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save: %d %s", resp.StatusCode, data)
	}
	loc := decode[locationJSON](t, data)
	if !strings.HasPrefix(loc.URI, "file://") || !strings.HasSuffix(loc.Path, ".png") {
		t.Fatalf("unexpected location %+v", loc)
	}

	resp, _ = do(t, ts, http.MethodDelete, base, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: %d", resp.StatusCode)
	}
	resp, _ = do(t, ts, http.MethodGet, base, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete: %d", resp.StatusCode)
	}
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestErrors(t *testing.T) {
	ts := newTestServer(t)
	id := createSession(t, ts)
	base := "/sessions/" + id

	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/sessions/not-a-uuid", "", http.StatusNotFound},
		{http.MethodGet, "/sessions/7b0c1d2e-0000-4000-8000-000000000000", "", http.StatusNotFound},
		{http.MethodPut, base + "/image", "not an image", http.StatusBadRequest},
		{http.MethodPatch, base + "/annotations/99", `{"text":"x"}`, http.StatusNotFound},
		{http.MethodPost, base + "/select/abc", "", http.StatusNotFound},
		{http.MethodPut, base + "/settings", `{"filter":"blur"}`, http.StatusBadRequest},
		{http.MethodPost, base + "/annotations", `{"color":"#12"}`, http.StatusBadRequest},
		{http.MethodPost, base + "/annotations", `{`, http.StatusBadRequest},
		{http.MethodPost, base + "/undo", "", http.StatusOK},
		{http.MethodPost, base + "/undo", "", http.StatusConflict},
		{http.MethodPost, base + "/save", "", http.StatusConflict},
		{http.MethodGet, base + "/preview.png", "", http.StatusConflict},
	}
	// One caption so the first undo has something to revert.
	if resp, data := do(t, ts, http.MethodPost, base+"/annotations", ""); resp.StatusCode != http.StatusCreated {
		t.Fatalf("seed: %d %s", resp.StatusCode, data)
	}
	for _, tc := range cases {
		resp, data := do(t, ts, tc.method, tc.path, tc.body)
		if resp.StatusCode != tc.want {
			t.Errorf("%s %s: got %d (%s), want %d", tc.method, tc.path, resp.StatusCode, data, tc.want)
			continue
		}
		if tc.want >= 400 && !strings.Contains(string(data), `"error"`) {
			t.Errorf("%s %s: expected JSON error body, got %s", tc.method, tc.path, data)
		}
	}
}

func TestNudgeValidation(t *testing.T) {
	ts := newTestServer(t)
	base := "/sessions/" + createSession(t, ts)
	_, data := do(t, ts, http.MethodPost, base+"/annotations", "")
	aid := jsonID(decode[annotationJSON](t, data).ID)

	resp, _ := do(t, ts, http.MethodPost, base+"/annotations/"+aid+"/nudge", `{"axis":"z","dir":1}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad axis: %d", resp.StatusCode)
	}
	resp, _ = do(t, ts, http.MethodPost, base+"/annotations/"+aid+"/nudge", `{"axis":"y","dir":0}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("zero dir: %d", resp.StatusCode)
	}
	// An unplaced caption counts from the origin.
	resp, data = do(t, ts, http.MethodPost, base+"/annotations/"+aid+"/nudge", `{"axis":"y","dir":-1}`)
	if resp.StatusCode != http.StatusOK || *decode[annotationJSON](t, data).Position != (pointJSON{0, 0}) {
		t.Fatalf("nudge unplaced: %d %s", resp.StatusCode, data)
	}

	do(t, ts, http.MethodPut, base+"/image", pngBody(t, 40, 30))
	_, data = do(t, ts, http.MethodPost, base+"/annotations", "")
	aid = jsonID(decode[annotationJSON](t, data).ID)
	resp, data = do(t, ts, http.MethodPost, base+"/annotations/"+aid+"/nudge", `{"axis":"x","dir":-1,"steps":40}`)
	if resp.StatusCode != http.StatusOK || *decode[annotationJSON](t, data).Position != (pointJSON{0, 15}) {
		t.Fatalf("nudge run: %d %s", resp.StatusCode, data)
	}
	for _, body := range []string{`{"axis":"x","dir":1,"steps":41}`, `{"axis":"x","dir":1,"steps":-2}`} {
		resp, data = do(t, ts, http.MethodPost, base+"/annotations/"+aid+"/nudge", body)
		if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(data), "nudge steps") {
			t.Fatalf("%s: %d %s", body, resp.StatusCode, data)
		}
	}
}

func TestSaveFailureIsBadGateway(t *testing.T) {
	srv := New(func() (*session.Session, error) { return session.New(session.WithWriter(failingWriter{})), nil })
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	base := "/sessions/" + createSession(t, ts)
	do(t, ts, http.MethodPut, base+"/image", pngBody(t, 10, 10))
	resp, data := do(t, ts, http.MethodPost, base+"/save", "")
	if resp.StatusCode != http.StatusBadGateway || !strings.Contains(string(data), "disk full") {
		t.Fatalf("save: %d %s", resp.StatusCode, data)
	}
}

func TestShareReportsCancellation(t *testing.T) {
	calls := 0
	ts := newTestServer(t, session.WithSharer(share.Func(func(_ context.Context, p share.Payload) error {
		calls++
		if len(p.Data) == 0 {
			t.Error("expected PNG data in payload")
		}
		if calls > 1 {
			return share.ErrCancelled
		}
		return nil
	})))
	base := "/sessions/" + createSession(t, ts)
	do(t, ts, http.MethodPut, base+"/image", pngBody(t, 20, 20))

	for _, want := range []bool{true, false} {
		resp, data := do(t, ts, http.MethodPost, base+"/share", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("share: %d %s", resp.StatusCode, data)
		}
		if got := decode[locationJSON](t, data); got.Shared == nil || *got.Shared != want {
			t.Fatalf("shared = %v, want %v", got.Shared, want)
		}
	}
}

func TestUploadLimit(t *testing.T) {
	srv := New(func() (*session.Session, error) { return session.New(), nil }, WithMaxImageBytes(64))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	base := "/sessions/" + createSession(t, ts)
	resp, _ := do(t, ts, http.MethodPut, base+"/image", pngBody(t, 64, 64)+strings.Repeat("x", 128))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("oversized upload: %d", resp.StatusCode)
	}
	if srv.Len() != 1 {
		t.Fatalf("sessions = %d", srv.Len())
	}
}

func TestUploadPixelLimit(t *testing.T) {
	srv := New(func() (*session.Session, error) { return session.New(), nil }, WithMaxImagePixels(400))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	base := "/sessions/" + createSession(t, ts)

	resp, data := do(t, ts, http.MethodPut, base+"/image", pngBody(t, 21, 20))
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(data), "too large") {
		t.Fatalf("oversized image: %d %s", resp.StatusCode, data)
	}
	_, data = do(t, ts, http.MethodGet, base, "")
	if got := decode[sessionJSON](t, data); got.State != session.NoImage {
		t.Fatalf("rejected upload changed state to %s", got.State)
	}
	if resp, data = do(t, ts, http.MethodPut, base+"/image", pngBody(t, 20, 20)); resp.StatusCode != http.StatusOK {
		t.Fatalf("image at the limit: %d %s", resp.StatusCode, data)
	}
}

func TestExportHasNoHighlight(t *testing.T) {
	ts := newTestServer(t)
	base := "/sessions/" + createSession(t, ts)
	do(t, ts, http.MethodPut, base+"/image", pngBody(t, 200, 100))
	do(t, ts, http.MethodPost, base+"/annotations", `{"text":"HI"}`)

	_, preview := do(t, ts, http.MethodGet, base+"/preview.png", "")
	resp, export := do(t, ts, http.MethodGet, base+"/export.png", "")
	if !strings.Contains(resp.Header.Get("Content-Disposition"), "meme-") {
		t.Fatalf("unexpected disposition %q", resp.Header.Get("Content-Disposition"))
	}
	if bytes.Equal(preview, export) {
		t.Fatal("preview should carry the selection highlight, export should not")
	}
	img, err := png.Decode(bytes.NewReader(export))
	if err != nil {
		t.Fatal(err)
	}
	yellow := color.RGBA{255, 255, 0, 255}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if color.RGBAModel.Convert(img.At(x, y)) == yellow {
				t.Fatalf("highlight colour leaked into export at %d,%d", x, y)
			}
		}
	}
}

func TestCreateFailure(t *testing.T) {
	srv := New(func() (*session.Session, error) { return nil, errors.New("no fonts") })
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, body := do(t, ts, http.MethodPost, "/sessions", "")
	if resp.StatusCode != http.StatusInternalServerError || !strings.Contains(string(body), "no fonts") {
		t.Fatalf("create = %d %s", resp.StatusCode, body)
	}
	if srv.Len() != 0 {
		t.Fatalf("failed create should not register a session, have %d", srv.Len())
	}
}

func TestPatchFontSizeNumbers(t *testing.T) {
	cases := map[string]int{
		`{"font_size":1e30}`:  overlay.DefaultSizeRange.Max,
		`{"font_size":-1e30}`: overlay.DefaultSizeRange.Min,
		`{"font_size":42.7}`:  42,
		`{"font_size":"55"}`:  55,
	}
	for body, want := range cases {
		req := decode[patchJSON](t, []byte(body))
		p, err := req.patch(overlay.DefaultSizeRange)
		if err != nil {
			t.Fatalf("%s: %v", body, err)
		}
		if p.FontSize == nil || *p.FontSize != want {
			t.Fatalf("%s: font size %v, want %d", body, p.FontSize, want)
		}
	}
}
