package handlers

import (
	"net/http"
	"path/filepath"
	"strings"
)

// HandleStatic serves stored uploads and crops.
func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/static/")

	// Prevent directory traversal attacks
	if strings.Contains(name, "..") {
		http.Error(w, "Invalid file path", http.StatusBadRequest)
		return
	}

	switch {
	case strings.HasPrefix(name, "uploads/"):
		http.ServeFile(w, r, filepath.Join(h.opts.UploadsDir, filepath.Base(name)))
	case strings.HasPrefix(name, "crops/"):
		http.ServeFile(w, r, filepath.Join(h.opts.CropDir, filepath.Base(name)))
	default:
		http.NotFound(w, r)
	}
}
