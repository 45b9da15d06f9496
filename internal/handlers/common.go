package handlers

import (
	"encoding/json"
	"errors"
	"image"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/null000O/StatBuddy/internal/crop"
	"github.com/null000O/StatBuddy/internal/images"
	"github.com/null000O/StatBuddy/internal/library"
	"github.com/null000O/StatBuddy/internal/storage"
)

// Options locate the directories the API writes into.
type Options struct {
	UploadsDir     string
	CropDir        string
	MaxUploadBytes int64
}

type Handler struct {
	controller *library.Controller
	decoder    *images.Decoder
	resolver   *images.Resolver
	decodes    *images.Tasks[image.Image]
	crops      *storage.SessionStore[*CropSession]
	opts       Options

	screensMu sync.Mutex
	screens   map[string]string
}

func New(controller *library.Controller, resolver *images.Resolver, opts Options) *Handler {
	if opts.UploadsDir == "" {
		opts.UploadsDir = "uploads"
	}
	if opts.CropDir == "" {
		opts.CropDir = opts.UploadsDir
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 * 1024 * 1024
	}
	if resolver == nil {
		resolver = images.NewResolver()
	}
	return &Handler{
		controller: controller,
		decoder:    images.NewDecoder(resolver),
		resolver:   resolver,
		decodes:    images.NewTasks[image.Image](),
		crops:      storage.NewSessionStore[*CropSession](),
		opts:       opts,
		screens:    make(map[string]string),
	}
}

// Routes wires every endpoint onto a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/library", h.HandleLibrary)
	mux.HandleFunc("/api/library/images", h.HandleLibraryImages)
	mux.HandleFunc("/api/library/active", h.HandleActiveImage)
	mux.HandleFunc("/api/notification", h.HandleNotification)
	mux.HandleFunc("/api/uploads", h.HandleUpload)
	mux.HandleFunc("/api/crop/sessions", h.HandleCropSessions)
	mux.HandleFunc("/api/crop/sessions/", h.HandleCropSessionDetail)
	mux.HandleFunc("/static/", h.HandleStatic)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message, "status", code)
	http.Error(w, message, code)
}

func (h *Handler) readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var decodeErr *images.DecodeError
	var extractErr *crop.ExtractionError
	switch {
	case errors.Is(err, library.ErrEmptyLocator):
		return http.StatusBadRequest
	case errors.Is(err, library.ErrNotMember):
		return http.StatusConflict
	case errors.As(err, &decodeErr), errors.As(err, &extractErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// File operation helpers
func (h *Handler) ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
