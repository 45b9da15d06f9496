package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Keys of the persisted preference layout.
const (
	KeyNotificationActive = "notification_active"
	KeyActiveImage        = "active_image_uri"
	KeySavedImages        = "saved_images"
	KeySavedImagesOrder   = "saved_images_order"
)

// State is the durable part of the image library.
type State struct {
	SavedImages        []string
	ActiveImage        string
	NotificationActive bool
}

// Store persists library state. Load reports found=false when nothing has
// been saved yet.
type Store interface {
	Load(ctx context.Context) (state State, found bool, err error)
	Save(ctx context.Context, state State) error
	Close() error
}

// PersistenceError wraps a failed store read or write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// record is the key/value layout shared by all backends. SavedImages is a
// set; the order lives in a separate key so older layouts still load.
type record struct {
	NotificationActive bool     `json:"notification_active"`
	ActiveImageURI     *string  `json:"active_image_uri"`
	SavedImages        []string `json:"saved_images"`
	SavedImagesOrder   []string `json:"saved_images_order,omitempty"`
}

func toRecord(s State) record {
	r := record{
		NotificationActive: s.NotificationActive,
		SavedImages:        uniqueSorted(s.SavedImages),
		SavedImagesOrder:   append([]string(nil), s.SavedImages...),
	}
	if s.ActiveImage != "" {
		active := s.ActiveImage
		r.ActiveImageURI = &active
	}
	return r
}

// state rebuilds the ordered list: entries of the order key that are still
// in the set come first, set members the order key does not know follow in
// lexical order.
func (r record) state() State {
	s := State{NotificationActive: r.NotificationActive}
	if r.ActiveImageURI != nil {
		s.ActiveImage = *r.ActiveImageURI
	}

	members := make(map[string]bool, len(r.SavedImages))
	for _, img := range r.SavedImages {
		members[img] = true
	}

	seen := make(map[string]bool, len(r.SavedImages))
	for _, img := range r.SavedImagesOrder {
		if members[img] && !seen[img] {
			seen[img] = true
			s.SavedImages = append(s.SavedImages, img)
		}
	}
	for _, img := range uniqueSorted(r.SavedImages) {
		if !seen[img] {
			s.SavedImages = append(s.SavedImages, img)
		}
	}
	return s
}

func uniqueSorted(in []string) []string {
	set := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := set[v]; ok {
			continue
		}
		set[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// MemoryStore keeps state for the lifetime of the process.
type MemoryStore struct {
	values map[string]record
	mu     sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]record),
	}
}

const memoryKey = "statbuddy"

func (s *MemoryStore) Load(ctx context.Context) (State, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, exists := s.values[memoryKey]
	if !exists {
		return State{}, false, nil
	}
	return r.state(), true, nil
}

func (s *MemoryStore) Save(ctx context.Context, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[memoryKey] = toRecord(state)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// Config selects and configures a Store backend.
type Config struct {
	Backend string      `mapstructure:"backend"`
	Path    string      `mapstructure:"path"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// Open builds the Store named by cfg.Backend: "memory", "file" or "redis".
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		if cfg.Path == "" {
			return nil, fmt.Errorf("storage.path is required for the file backend")
		}
		return NewFileStore(cfg.Path), nil
	case "redis":
		client, err := NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, cfg.Redis.Prefix), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}
