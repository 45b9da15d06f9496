package handlers

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/null000O/StatBuddy/internal/images"
	"github.com/null000O/StatBuddy/internal/models"
)

// processImageFile stores an uploaded image under its content hash so the
// same picture uploaded twice maps to one locator.
func (h *Handler) processImageFile(fileData []byte, filename string) (*models.ImageItem, error) {
	cfg, format, err := images.DecodeConfig(models.Locator(filename), bytes.NewReader(fileData))
	if err != nil {
		return nil, fmt.Errorf("unsupported image: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = "." + format
	}

	sum := md5.Sum(fileData)
	imageFilename := hex.EncodeToString(sum[:]) + ext

	if err := h.ensureDir(h.opts.UploadsDir); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	imageFilePath := filepath.Join(h.opts.UploadsDir, imageFilename)
	if err := os.WriteFile(imageFilePath, fileData, 0644); err != nil {
		return nil, fmt.Errorf("failed to save image: %w", err)
	}

	slog.Info("Image saved", "filename", imageFilename, "format", format, "width", cfg.Width, "height", cfg.Height)

	return &models.ImageItem{
		Locator:     models.FileLocator(imageFilePath),
		ImagePath:   imageFilename,
		ImageURL:    "/static/uploads/" + imageFilename,
		ImageWidth:  cfg.Width,
		ImageHeight: cfg.Height,
	}, nil
}

func (h *Handler) storeImageFromURL(ctx context.Context, imageURL string) (*models.ImageItem, error) {
	u, err := url.Parse(imageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("image_url must be an http(s) URL")
	}

	rc, err := h.resolver.Open(ctx, models.Locator(imageURL))
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	imageData, err := io.ReadAll(io.LimitReader(rc, h.opts.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(imageData)) > h.opts.MaxUploadBytes {
		return nil, fmt.Errorf("image too large")
	}

	filename := path.Base(u.Path)
	if filename == "." || filename == "/" {
		filename = ""
	}

	item, err := h.processImageFile(imageData, filename)
	if err != nil {
		return nil, err
	}
	slog.Info("Image stored from URL", "url", imageURL, "locator", item.Locator)
	return item, nil
}

// finishUpload adds the stored image to the library, optionally making it
// the active one, and replies with the stored item and library snapshot.
func (h *Handler) finishUpload(w http.ResponseWriter, r *http.Request, item *models.ImageItem, activate bool) {
	ctx := r.Context()
	if err := h.controller.AddImage(ctx, item.Locator); err != nil {
		h.writeError(w, "Failed to add image: "+err.Error(), statusFor(err))
		return
	}
	if activate {
		if err := h.controller.SetActiveImage(ctx, item.Locator); err != nil {
			h.writeError(w, "Failed to set active image: "+err.Error(), statusFor(err))
			return
		}
	}

	h.writeJSONStatus(w, http.StatusCreated, map[string]any{
		"image":   item,
		"library": h.controller.Library().Snapshot(),
	})
}
