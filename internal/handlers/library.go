package handlers

import (
	"net/http"

	"github.com/null000O/StatBuddy/internal/models"
)

func (h *Handler) HandleLibrary(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, h.controller.Library().Snapshot())
}

func (h *Handler) HandleLibraryImages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case "POST":
		var request struct {
			Locator models.Locator `json:"locator"`
		}
		if !h.readJSON(w, r, &request) {
			return
		}
		if err := h.controller.AddImage(ctx, request.Locator); err != nil {
			h.writeError(w, "Failed to add image: "+err.Error(), statusFor(err))
			return
		}
		h.writeJSONStatus(w, http.StatusCreated, h.controller.Library().Snapshot())

	case "PUT":
		var request struct {
			Old models.Locator `json:"old"`
			New models.Locator `json:"new"`
		}
		if !h.readJSON(w, r, &request) {
			return
		}
		result, err := h.controller.ReplaceImage(ctx, request.Old, request.New)
		if err != nil {
			h.writeError(w, "Failed to replace image: "+err.Error(), statusFor(err))
			return
		}
		h.writeJSON(w, map[string]any{
			"replaced":       result.Replaced,
			"active_changed": result.ActiveChanged,
			"library":        h.controller.Library().Snapshot(),
		})

	case "DELETE":
		loc := models.Locator(r.URL.Query().Get("locator"))
		if loc == "" {
			h.writeError(w, "locator is required", http.StatusBadRequest)
			return
		}
		removed := h.controller.RemoveImage(ctx, loc)
		h.writeJSON(w, map[string]any{
			"removed": removed,
			"library": h.controller.Library().Snapshot(),
		})

	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleActiveImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != "PUT" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		Locator models.Locator `json:"locator"`
	}
	if !h.readJSON(w, r, &request) {
		return
	}
	if err := h.controller.SetActiveImage(r.Context(), request.Locator); err != nil {
		h.writeError(w, "Failed to set active image: "+err.Error(), statusFor(err))
		return
	}
	h.writeJSON(w, h.controller.Library().Snapshot())
}

type notificationState struct {
	Active bool           `json:"active"`
	Image  models.Locator `json:"image,omitempty"`
}

func (h *Handler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		snap := h.controller.Library().Snapshot()
		h.writeJSON(w, notificationState{Active: snap.NotificationActive, Image: snap.ActiveImage})

	case "PUT":
		var request struct {
			Active *bool `json:"active"`
		}
		if !h.readJSON(w, r, &request) {
			return
		}
		if request.Active == nil {
			h.writeError(w, "active is required", http.StatusBadRequest)
			return
		}
		// The flag is recorded even when the surface cannot be reached.
		if err := h.controller.SetNotificationActive(r.Context(), *request.Active); err != nil {
			h.writeError(w, "Failed to signal notification surface: "+err.Error(), http.StatusBadGateway)
			return
		}
		snap := h.controller.Library().Snapshot()
		h.writeJSON(w, notificationState{Active: snap.NotificationActive, Image: snap.ActiveImage})

	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
