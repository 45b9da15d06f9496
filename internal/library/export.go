package library

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/null000O/StatBuddy/internal/models"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// Entry is one exported library row.
type Entry struct {
	Position int    `json:"position" yaml:"position" parquet:"position"`
	Locator  string `json:"locator" yaml:"locator" parquet:"locator"`
	Active   bool   `json:"active" yaml:"active" parquet:"active"`
}

type yamlDocument struct {
	ExportedAt         time.Time `yaml:"exported_at"`
	NotificationActive bool      `yaml:"notification_active"`
	Images             []Entry   `yaml:"images"`
}

// Entries flattens a snapshot into rows. An active image outside the list is
// appended as the last row so it survives a round trip.
func Entries(snap models.LibrarySnapshot) []Entry {
	entries := make([]Entry, 0, len(snap.Images)+1)
	for i, img := range snap.Images {
		entries = append(entries, Entry{
			Position: i,
			Locator:  string(img),
			Active:   img == snap.ActiveImage,
		})
	}
	if snap.HasActive() && !snap.Contains(snap.ActiveImage) {
		entries = append(entries, Entry{Position: len(entries), Locator: string(snap.ActiveImage), Active: true})
	}
	return entries
}

// Export writes the snapshot to path. The format follows the extension:
// .yaml/.yml, .jsonl/.json or .parquet.
func Export(snap models.LibrarySnapshot, path string) error {
	entries := Entries(snap)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return exportYAML(path, yamlDocument{
			ExportedAt:         time.Now().UTC(),
			NotificationActive: snap.NotificationActive,
			Images:             entries,
		})
	case ".jsonl", ".json":
		return exportJSONL(path, entries)
	case ".parquet":
		return exportParquet(path, entries)
	default:
		return fmt.Errorf("unsupported file format: %s (supported: .yaml, .jsonl, .parquet)", ext)
	}
}

func exportYAML(path string, doc yamlDocument) error {
	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal library: %w", err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func exportJSONL(path string, entries []Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("failed to encode entry %d: %w", e.Position, err)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func exportParquet(path string, entries []Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	writer := parquet.NewGenericWriter[Entry](f)
	if _, err := writer.Write(entries); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return f.Close()
}

// ReadEntries loads rows written by Export, ordered by position.
func ReadEntries(path string) ([]Entry, error) {
	var (
		entries []Entry
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		entries, err = readYAML(path)
	case ".jsonl", ".json":
		entries, err = readJSONL(path)
	case ".parquet":
		entries, err = readParquet(path)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .yaml, .jsonl, .parquet)", ext)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Position < entries[j].Position })
	return entries, nil
}

func readYAML(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return doc.Images, nil
}

func readJSONL(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return entries, nil
}

func readParquet(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	slog.Debug("Parquet file opened", "path", path, "num_rows", pf.NumRows())

	reader := parquet.NewGenericReader[Entry](pf)
	defer reader.Close()

	var entries []Entry
	rows := make([]Entry, 64)
	for {
		n, err := reader.Read(rows)
		entries = append(entries, rows[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return entries, nil
}

// Import adds every entry to the library in position order and activates the
// entry flagged active. It returns how many images were read.
func Import(ctx context.Context, c *Controller, path string) (int, error) {
	entries, err := ReadEntries(path)
	if err != nil {
		return 0, err
	}

	var active models.Locator
	for _, e := range entries {
		loc := models.Locator(e.Locator)
		if loc == "" {
			continue
		}
		if err := c.AddImage(ctx, loc); err != nil {
			return 0, err
		}
		if e.Active {
			active = loc
		}
	}
	if active != "" {
		if err := c.SetActiveImage(ctx, active); err != nil {
			return len(entries), err
		}
	}
	slog.Info("Library imported", "path", path, "entries", len(entries), "active", active)
	return len(entries), nil
}
