package server

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/example/memeshot/internal/imagesource"
	"github.com/example/memeshot/internal/overlay"
	"github.com/example/memeshot/internal/session"
)

var (
	errUnknownAnnotation = errors.New("unknown annotation")
	errBadRequest        = errors.New("bad request")
)

func (s *Server) handleCreate(w http.ResponseWriter, _ *http.Request) {
	sess, err := s.newSession()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("new session: %w", err))
		return
	}
	id := uuid.New()
	e := &entry{sess: sess}
	s.mu.Lock()
	s.sessions[id] = e
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, sessionOut(id.String(), e.sess))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, _, err := s.lookup(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGet(w http.ResponseWriter, _ *http.Request, id uuid.UUID, sess *session.Session) {
	writeJSON(w, http.StatusOK, sessionOut(id.String(), sess))
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request, id uuid.UUID, sess *session.Session) {
	body := http.MaxBytesReader(w, r.Body, s.maxImageBytes)
	img, decodeErr := imagesource.DecodeReaderLimit(body, s.maxPixels)
	ref := imagesource.Ref("upload:" + uuid.NewString())
	if _, err := sess.CompleteLoad(sess.BeginLoad(), ref, img, decodeErr); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sessionOut(id.String(), sess))
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request, id uuid.UUID, sess *session.Session) {
	var req settingsJSON
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cs := sess.Settings()
	if req.Filter != nil {
		cs.Filter = *req.Filter
	}
	if req.Frame != nil {
		cs.Frame = *req.Frame
	}
	sess.SetSettings(cs)
	writeJSON(w, http.StatusOK, sessionOut(id.String(), sess))
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request, _ uuid.UUID, sess *session.Session) {
	var req patchJSON
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := req.patch(sess.SizeRange())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a := sess.Add()
	if !p.Empty() {
		sess.Update(a.ID, p)
		a, _ = sess.Annotation(a.ID)
	}
	writeJSON(w, http.StatusCreated, annotationOut(a))
}

func annotationID(r *http.Request, sess *session.Session) (int64, error) {
	raw := chi.URLParam(r, "aid")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w %q", errUnknownAnnotation, raw)
	}
	if _, ok := sess.Annotation(id); !ok {
		return 0, fmt.Errorf("%w %d", errUnknownAnnotation, id)
	}
	return id, nil
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, _ uuid.UUID, sess *session.Session) {
	aid, err := annotationID(r, sess)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	var req patchJSON
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := req.patch(sess.SizeRange())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if cp, _ := strconv.ParseBool(r.URL.Query().Get("checkpoint")); cp {
		sess.Checkpoint()
	}
	sess.Update(aid, p)
	a, _ := sess.Annotation(aid)
	writeJSON(w, http.StatusOK, annotationOut(a))
}

func (s *Server) handleDeleteAnnotation(w http.ResponseWriter, r *http.Request, _ uuid.UUID, sess *session.Session) {
	aid, err := annotationID(r, sess)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	sess.Delete(aid)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNudge(w http.ResponseWriter, r *http.Request, _ uuid.UUID, sess *session.Session) {
	aid, err := annotationID(r, sess)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	var req nudgeJSON
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	axis, err := overlay.ParseAxis(req.Axis)
	if err != nil || req.Dir == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: nudge needs axis x|y and a non-zero dir", errBadRequest))
		return
	}
	steps := req.Steps
	if steps == 0 {
		steps = 1
	}
	if _, err := sess.NudgeBy(aid, axis, req.Dir, steps); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a, _ := sess.Annotation(aid)
	writeJSON(w, http.StatusOK, annotationOut(a))
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request, id uuid.UUID, sess *session.Session) {
	aid, err := annotationID(r, sess)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	sess.Select(aid)
	writeJSON(w, http.StatusOK, sessionOut(id.String(), sess))
}

func (s *Server) handleClearSelection(w http.ResponseWriter, _ *http.Request, id uuid.UUID, sess *session.Session) {
	sess.ClearSelection()
	writeJSON(w, http.StatusOK, sessionOut(id.String(), sess))
}

func (s *Server) handleCheckpoint(w http.ResponseWriter, _ *http.Request, id uuid.UUID, sess *session.Session) {
	sess.Checkpoint()
	writeJSON(w, http.StatusOK, sessionOut(id.String(), sess))
}

func (s *Server) handleUndo(w http.ResponseWriter, _ *http.Request, id uuid.UUID, sess *session.Session) {
	if !sess.Undo() {
		writeError(w, http.StatusConflict, errors.New("nothing to undo"))
		return
	}
	writeJSON(w, http.StatusOK, sessionOut(id.String(), sess))
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handlePreview(w http.ResponseWriter, _ *http.Request, _ uuid.UUID, sess *session.Session) {
	preview := sess.Preview()
	if preview == nil {
		writeError(w, http.StatusConflict, session.ErrNoImage)
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, preview); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("encode png: %w", err))
		return
	}
	writePNG(w, buf.Bytes())
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request, _ uuid.UUID, sess *session.Session) {
	data, err := sess.Export()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sess.ExportName()))
	writePNG(w, data)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request, _ uuid.UUID, sess *session.Session) {
	loc, err := sess.Save(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, locationOut(loc))
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request, _ uuid.UUID, sess *session.Session) {
	loc, shared, err := sess.Share(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	out := locationOut(loc)
	out.Shared = &shared
	writeJSON(w, http.StatusOK, out)
}
