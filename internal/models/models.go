package models

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// Locator is an opaque reference to image data (a URI or a path).
// Two locators refer to the same image only when the strings are equal.
type Locator string

// LibrarySnapshot is a copy of the image library state at one point in time
type LibrarySnapshot struct {
	Images             []Locator `json:"images"`
	ActiveImage        Locator   `json:"active_image,omitempty"`
	NotificationActive bool      `json:"notification_active"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// HasActive reports whether an active image is set
func (s LibrarySnapshot) HasActive() bool {
	return s.ActiveImage != ""
}

// Contains reports whether loc is part of the snapshot's image list
func (s LibrarySnapshot) Contains(loc Locator) bool {
	for _, img := range s.Images {
		if img == loc {
			return true
		}
	}
	return false
}

// ImageItem describes an image stored by the upload endpoint
type ImageItem struct {
	Locator     Locator `json:"locator"`
	ImagePath   string  `json:"image_path"`
	ImageURL    string  `json:"image_url"`
	ImageWidth  int     `json:"image_width"`
	ImageHeight int     `json:"image_height"`
}

// FileLocator builds a file:// locator for a path on local disk
func FileLocator(path string) Locator {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return Locator(u.String())
}

// LocalPath returns the filesystem path behind a file:// or bare-path locator.
// ok is false for remote locators.
func (l Locator) LocalPath() (string, bool) {
	s := string(l)
	if s == "" {
		return "", false
	}
	if !strings.Contains(s, "://") {
		return s, true
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme != "file" {
		return "", false
	}
	return filepath.FromSlash(u.Path), true
}
