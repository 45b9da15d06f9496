package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// DefaultPrefsFile is the file name used when only a directory is configured.
const DefaultPrefsFile = "statbuddy_prefs.json"

// FileStore keeps state in a JSON preferences file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by path. A directory path gets
// DefaultPrefsFile appended.
func NewFileStore(path string) *FileStore {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, DefaultPrefsFile)
	}
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context) (State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("failed to read preferences: %w", err)
	}

	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return State{}, false, fmt.Errorf("failed to decode preferences %s: %w", s.path, err)
	}
	return r.state(), true, nil
}

// Save writes the file through a temp file and rename so readers never see
// a partial document.
func (s *FileStore) Save(ctx context.Context, state State) error {
	data, err := json.MarshalIndent(toRecord(state), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp preferences: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close preferences: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace preferences: %w", err)
	}

	slog.Debug("Preferences saved", "path", s.path, "images", len(state.SavedImages))
	return nil
}

func (s *FileStore) Close() error { return nil }
