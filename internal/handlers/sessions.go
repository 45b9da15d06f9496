package handlers

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/null000O/StatBuddy/internal/crop"
	"github.com/null000O/StatBuddy/internal/images"
	"github.com/null000O/StatBuddy/internal/models"
)

const (
	statusDecoding  = "decoding"
	statusReady     = "ready"
	statusFailed    = "failed"
	statusCancelled = "cancelled"
	statusCommitted = "committed"

	defaultScreen = "default"
)

// CropSession is one open cropper: the decoded source, its editor, and where
// the result went once committed.
type CropSession struct {
	ID        string
	Screen    string
	Locator   models.Locator
	CreatedAt time.Time

	mu        sync.Mutex
	status    string
	err       string
	requestID string
	source    image.Image
	editor    *crop.Editor
	result    models.Locator
	ready     chan struct{}
	readyOnce sync.Once
}

type cropSessionView struct {
	ID        string         `json:"id"`
	Screen    string         `json:"screen"`
	Locator   models.Locator `json:"locator"`
	Status    string         `json:"status"`
	Error     string         `json:"error,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Width     int            `json:"width,omitempty"`
	Height    int            `json:"height,omitempty"`
	Rect      *crop.Rect     `json:"rect,omitempty"`
	Dragging  bool           `json:"dragging"`
	Result    models.Locator `json:"result,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func newCropSession(screen string, loc models.Locator) *CropSession {
	return &CropSession{
		ID:        uuid.NewString(),
		Screen:    screen,
		Locator:   loc,
		CreatedAt: time.Now(),
		status:    statusDecoding,
		ready:     make(chan struct{}),
	}
}

func (s *CropSession) view() cropSessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *CropSession) viewLocked() cropSessionView {
	v := cropSessionView{
		ID:        s.ID,
		Screen:    s.Screen,
		Locator:   s.Locator,
		Status:    s.status,
		Error:     s.err,
		RequestID: s.requestID,
		Result:    s.result,
		CreatedAt: s.CreatedAt,
	}
	if s.editor != nil {
		w, h := s.editor.Size()
		rect := s.editor.Rect()
		v.Width, v.Height = int(w), int(h)
		v.Rect = &rect
		v.Dragging = s.editor.Dragging()
	}
	return v
}

// settle moves a decoding session to its final decode state and wakes
// whoever waits on it. Later calls are ignored.
func (s *CropSession) settle(res images.Result[image.Image], cancelled bool) {
	s.mu.Lock()
	if s.status == statusDecoding {
		if res.RequestID != "" {
			s.requestID = res.RequestID
		}
		switch {
		case cancelled:
			s.status = statusCancelled
		case res.Err != nil:
			s.status = statusFailed
			s.err = res.Err.Error()
		default:
			editor, err := crop.EditorFor(res.Value)
			if err != nil {
				s.status = statusFailed
				s.err = err.Error()
			} else {
				s.status = statusReady
				s.source = res.Value
				s.editor = editor
			}
		}
	}
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })
}

// HandleCropSessions opens a cropper on a locator (POST) or lists open ones.
func (h *Handler) HandleCropSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		sessions := h.crops.GetAll()
		views := make([]cropSessionView, 0, len(sessions))
		for _, s := range sessions {
			views = append(views, s.view())
		}
		sort.Slice(views, func(i, j int) bool { return views[i].CreatedAt.Before(views[j].CreatedAt) })
		h.writeJSON(w, views)
	case "POST":
		h.createCropSession(w, r)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) createCropSession(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Locator models.Locator `json:"locator"`
		Screen  string         `json:"screen"`
	}
	if !h.readJSON(w, r, &request) {
		return
	}
	if request.Locator == "" {
		h.writeError(w, "locator is required", http.StatusBadRequest)
		return
	}
	if request.Screen == "" {
		request.Screen = defaultScreen
	}

	session := newCropSession(request.Screen, request.Locator)
	loc := session.Locator

	// The screen's current session and its decode task change together.
	h.screensMu.Lock()
	if prevID, ok := h.screens[session.Screen]; ok {
		if prev, exists := h.crops.Get(prevID); exists {
			prev.settle(images.Result[image.Image]{}, true)
			h.crops.Delete(prevID)
			slog.Info("Crop session superseded", "session_id", prevID, "screen", session.Screen)
		}
	}
	h.screens[session.Screen] = session.ID
	h.crops.Set(session.ID, session)
	reqID := h.decodes.Start(context.Background(), session.Screen, func(ctx context.Context) (image.Image, error) {
		return h.decoder.Decode(ctx, loc)
	}, func(res images.Result[image.Image]) {
		session.settle(res, false)
	})
	h.screensMu.Unlock()

	session.mu.Lock()
	if session.requestID == "" {
		session.requestID = reqID
	}
	session.mu.Unlock()

	slog.Info("Crop session opened", "session_id", session.ID, "screen", session.Screen, "locator", loc, "request_id", reqID)

	select {
	case <-session.ready:
	case <-r.Context().Done():
		h.closeCropSession(session)
		return
	}

	view := session.view()
	switch view.Status {
	case statusReady:
		h.writeJSONStatus(w, http.StatusCreated, view)
	case statusCancelled:
		h.writeError(w, "Crop session superseded", http.StatusConflict)
	default:
		h.writeError(w, "Failed to open image: "+view.Error, http.StatusUnprocessableEntity)
	}
}

type cropEvent struct {
	Op           string  `json:"op"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	DX           float64 `json:"dx"`
	DY           float64 `json:"dy"`
	CanvasWidth  float64 `json:"canvas_width"`
	CanvasHeight float64 `json:"canvas_height"`
}

func (h *Handler) HandleCropSessionDetail(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/crop/sessions/")
	sessionID, action, _ := strings.Cut(rest, "/")

	session, ok := h.getCropSessionOrError(w, sessionID)
	if !ok {
		return
	}

	switch {
	case action == "" && r.Method == "GET":
		h.writeJSON(w, session.view())
	case action == "" && r.Method == "PATCH":
		h.applyCropEvents(w, r, session)
	case action == "" && r.Method == "DELETE":
		h.closeCropSession(session)
		w.WriteHeader(http.StatusNoContent)
	case action == "overlay" && r.Method == "GET":
		h.cropOverlay(w, r, session)
	case action == "commit" && r.Method == "POST":
		h.commitCrop(w, r, session)
	case action != "overlay" && action != "commit" && action != "":
		h.writeError(w, "Not found", http.StatusNotFound)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) getCropSessionOrError(w http.ResponseWriter, sessionID string) (*CropSession, bool) {
	session, exists := h.crops.Get(sessionID)
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

// applyCropEvents takes either one event or {"events": [...]} and applies
// them in order.
func (h *Handler) applyCropEvents(w http.ResponseWriter, r *http.Request, session *CropSession) {
	var request struct {
		cropEvent
		Events []cropEvent `json:"events"`
	}
	if !h.readJSON(w, r, &request) {
		return
	}
	events := request.Events
	if len(events) == 0 {
		events = []cropEvent{request.cropEvent}
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.status != statusReady {
		h.writeError(w, "Crop session is "+session.status, http.StatusConflict)
		return
	}

	ed := session.editor
	for i, ev := range events {
		switch ev.Op {
		case "drag_start":
			ed.DragStart(crop.Point{X: ev.X, Y: ev.Y})
		case "drag":
			if ev.CanvasWidth > 0 && ev.CanvasHeight > 0 {
				ed.DragMoveCanvas(ev.DX, ev.DY, ev.CanvasWidth, ev.CanvasHeight)
			} else {
				ed.DragMove(ev.DX, ev.DY)
			}
		case "drag_end":
			ed.DragEnd()
		case "recenter":
			ed.Recenter()
		case "reset":
			ed.Reset()
		default:
			h.writeError(w, fmt.Sprintf("Unknown op %q at event %d", ev.Op, i), http.StatusBadRequest)
			return
		}
	}
	h.writeJSON(w, session.viewLocked())
}

func (h *Handler) cropOverlay(w http.ResponseWriter, r *http.Request, session *CropSession) {
	cw, errW := strconv.ParseFloat(r.URL.Query().Get("w"), 64)
	ch, errH := strconv.ParseFloat(r.URL.Query().Get("h"), 64)
	if errW != nil || errH != nil || cw <= 0 || ch <= 0 {
		h.writeError(w, "w and h must be positive numbers", http.StatusBadRequest)
		return
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.editor == nil {
		h.writeError(w, "Crop session is "+session.status, http.StatusConflict)
		return
	}
	h.writeJSON(w, session.editor.Overlay(cw, ch))
}

// commitCrop cuts the selection, saves it as PNG and puts it in the library:
// in place of the source when the source is saved there, appended otherwise.
func (h *Handler) commitCrop(w http.ResponseWriter, r *http.Request, session *CropSession) {
	ctx := r.Context()

	session.mu.Lock()
	if session.status != statusReady {
		session.mu.Unlock()
		h.writeError(w, "Crop session is "+session.status, http.StatusConflict)
		return
	}

	img, err := session.editor.Cut(session.source)
	if err != nil {
		session.mu.Unlock()
		h.writeError(w, "Failed to crop image: "+err.Error(), statusFor(err))
		return
	}
	path, err := crop.Save(img, h.opts.CropDir)
	if err != nil {
		session.mu.Unlock()
		h.writeError(w, "Failed to save crop: "+err.Error(), http.StatusInternalServerError)
		return
	}
	loc := models.FileLocator(path)

	replaced := false
	if h.controller.Library().Snapshot().Contains(session.Locator) {
		result, err := h.controller.ReplaceImage(ctx, session.Locator, loc)
		if err != nil {
			session.mu.Unlock()
			h.writeError(w, "Failed to replace image: "+err.Error(), statusFor(err))
			return
		}
		replaced = result.Replaced
	} else if err := h.controller.AddImage(ctx, loc); err != nil {
		session.mu.Unlock()
		h.writeError(w, "Failed to add image: "+err.Error(), statusFor(err))
		return
	}

	session.status = statusCommitted
	session.result = loc
	session.source = nil
	view := session.viewLocked()
	session.mu.Unlock()

	// A committed cropper is finished; it no longer holds its screen.
	h.releaseScreen(session)
	h.crops.Delete(session.ID)
	slog.Info("Crop committed", "session_id", session.ID, "source", session.Locator, "result", loc, "replaced", replaced)

	h.writeJSON(w, map[string]any{
		"locator":  loc,
		"replaced": replaced,
		"session":  view,
		"library":  h.controller.Library().Snapshot(),
	})
}

// releaseScreen forgets session as its screen's current cropper and cancels
// the decode running for it.
func (h *Handler) releaseScreen(session *CropSession) {
	h.screensMu.Lock()
	defer h.screensMu.Unlock()
	if h.screens[session.Screen] == session.ID {
		h.decodes.Cancel(session.Screen)
		delete(h.screens, session.Screen)
	}
}

// closeCropSession drops the session and cancels its decode if it is the
// one running for its screen.
func (h *Handler) closeCropSession(session *CropSession) {
	h.releaseScreen(session)
	session.settle(images.Result[image.Image]{}, true)
	h.crops.Delete(session.ID)
	slog.Info("Crop session closed", "session_id", session.ID)
}
