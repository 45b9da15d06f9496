// Package library owns the list of known images, which one is active, and
// whether the notification is supposed to be showing it.
package library

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/null000O/StatBuddy/internal/models"
	"github.com/null000O/StatBuddy/internal/storage"
)

var (
	// ErrEmptyLocator is returned for an empty image reference.
	ErrEmptyLocator = errors.New("empty image locator")
	// ErrNotMember is returned by SetActive when membership is required and
	// the image is not in the library.
	ErrNotMember = errors.New("image is not in the library")
)

// Options tune library behaviour.
type Options struct {
	// RequireMembership makes SetActive reject images outside the library.
	// Off by default so an image can be previewed without saving it.
	RequireMembership bool
}

// Listener receives a snapshot after every mutation.
type Listener func(models.LibrarySnapshot)

// ReplaceResult tells the caller what Replace changed.
type ReplaceResult struct {
	Replaced      bool
	ActiveChanged bool
}

// Library is the image list plus the active pointer and notification flag.
// With a nil store it lives only in memory.
type Library struct {
	mu                 sync.Mutex
	images             []models.Locator
	active             models.Locator
	notificationActive bool
	updatedAt          time.Time

	store storage.Store
	opts  Options

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

// New creates a library and hydrates it from store when one is given.
// A failing store is logged and the library starts empty.
func New(ctx context.Context, store storage.Store, opts Options) *Library {
	l := &Library{
		store:     store,
		opts:      opts,
		listeners: make(map[int]Listener),
		updatedAt: time.Now(),
	}
	if store == nil {
		return l
	}

	state, found, err := store.Load(ctx)
	if err != nil {
		slog.Warn("Unable to load saved library, starting empty", "err", &storage.PersistenceError{Op: "load", Err: err})
		return l
	}
	if !found {
		return l
	}

	for _, img := range state.SavedImages {
		if img != "" {
			l.images = append(l.images, models.Locator(img))
		}
	}
	l.active = models.Locator(state.ActiveImage)
	l.notificationActive = state.NotificationActive
	slog.Debug("Library restored", "images", len(l.images), "active", l.active, "notification_active", l.notificationActive)
	return l
}

// Snapshot returns a copy of the current state.
func (l *Library) Snapshot() models.LibrarySnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Library) snapshotLocked() models.LibrarySnapshot {
	images := make([]models.Locator, len(l.images))
	copy(images, l.images)
	return models.LibrarySnapshot{
		Images:             images,
		ActiveImage:        l.active,
		NotificationActive: l.notificationActive,
		UpdatedAt:          l.updatedAt,
	}
}

func (l *Library) indexOf(ref models.Locator) int {
	for i, img := range l.images {
		if img == ref {
			return i
		}
	}
	return -1
}

// Add appends ref unless it is already present. While no image is active,
// the added image becomes active, so the first pick is usable right away.
func (l *Library) Add(ctx context.Context, ref models.Locator) error {
	if ref == "" {
		return ErrEmptyLocator
	}

	l.mu.Lock()
	changed := false
	if l.indexOf(ref) == -1 {
		l.images = append(l.images, ref)
		changed = true
	}
	if l.active == "" {
		l.active = ref
		changed = true
	}
	if !changed {
		l.mu.Unlock()
		return nil
	}
	snap := l.commitLocked(ctx)
	l.mu.Unlock()

	l.publish(snap)
	return nil
}

// Replace swaps from for to in place. A missing from is a silent no-op. If
// to is already in the library the old entry is dropped instead so entries
// stay unique. When from was active, to becomes active.
func (l *Library) Replace(ctx context.Context, from, to models.Locator) (ReplaceResult, error) {
	if to == "" {
		return ReplaceResult{}, ErrEmptyLocator
	}

	l.mu.Lock()
	idx := l.indexOf(from)
	if idx == -1 || from == to {
		l.mu.Unlock()
		return ReplaceResult{}, nil
	}

	if l.indexOf(to) == -1 {
		l.images[idx] = to
	} else {
		l.images = append(l.images[:idx], l.images[idx+1:]...)
	}

	result := ReplaceResult{Replaced: true}
	if l.active == from {
		l.active = to
		result.ActiveChanged = true
	}
	snap := l.commitLocked(ctx)
	l.mu.Unlock()

	l.publish(snap)
	return result, nil
}

// Remove drops ref from the library and clears the active image if it was
// ref. Missing refs are ignored.
func (l *Library) Remove(ctx context.Context, ref models.Locator) bool {
	l.mu.Lock()
	idx := l.indexOf(ref)
	if idx == -1 {
		l.mu.Unlock()
		return false
	}
	l.images = append(l.images[:idx], l.images[idx+1:]...)
	if l.active == ref {
		l.active = ""
	}
	snap := l.commitLocked(ctx)
	l.mu.Unlock()

	l.publish(snap)
	return true
}

// SetActive marks ref as the image to display. Membership is only checked
// when Options.RequireMembership is set.
func (l *Library) SetActive(ctx context.Context, ref models.Locator) error {
	if ref == "" {
		return ErrEmptyLocator
	}

	l.mu.Lock()
	if l.opts.RequireMembership && l.indexOf(ref) == -1 {
		l.mu.Unlock()
		return ErrNotMember
	}
	l.active = ref
	snap := l.commitLocked(ctx)
	l.mu.Unlock()

	l.publish(snap)
	return nil
}

// SetNotificationActive records whether the notification should be shown.
// Starting or stopping it is up to the caller.
func (l *Library) SetNotificationActive(ctx context.Context, active bool) {
	l.mu.Lock()
	l.notificationActive = active
	snap := l.commitLocked(ctx)
	l.mu.Unlock()

	l.publish(snap)
}

// commitLocked stamps the mutation and writes it through to the store.
// Store failures are logged; memory stays the source of truth.
func (l *Library) commitLocked(ctx context.Context) models.LibrarySnapshot {
	l.updatedAt = time.Now()
	snap := l.snapshotLocked()
	if l.store == nil {
		return snap
	}

	state := storage.State{
		SavedImages:        make([]string, len(snap.Images)),
		ActiveImage:        string(snap.ActiveImage),
		NotificationActive: snap.NotificationActive,
	}
	for i, img := range snap.Images {
		state.SavedImages[i] = string(img)
	}
	if err := l.store.Save(ctx, state); err != nil {
		slog.Warn("Unable to persist library", "err", &storage.PersistenceError{Op: "save", Err: err})
	}
	return snap
}

// Subscribe registers fn for future snapshots and returns a function that
// removes it.
func (l *Library) Subscribe(fn Listener) (cancel func()) {
	l.listenersMu.Lock()
	id := l.nextID
	l.nextID++
	l.listeners[id] = fn
	l.listenersMu.Unlock()

	return func() {
		l.listenersMu.Lock()
		delete(l.listeners, id)
		l.listenersMu.Unlock()
	}
}

func (l *Library) publish(snap models.LibrarySnapshot) {
	l.listenersMu.Lock()
	ids := make([]int, 0, len(l.listeners))
	for id := range l.listeners {
		ids = append(ids, id)
	}
	fns := make([]Listener, 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, l.listeners[id])
	}
	l.listenersMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
