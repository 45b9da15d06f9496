package library

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/null000O/StatBuddy/internal/models"
	"github.com/null000O/StatBuddy/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	saves int
}

func (s *failingStore) Load(ctx context.Context) (storage.State, bool, error) {
	return storage.State{}, false, errors.New("disk on fire")
}

func (s *failingStore) Save(ctx context.Context, state storage.State) error {
	s.saves++
	return errors.New("disk on fire")
}

func (s *failingStore) Close() error { return nil }

func TestAddReplaceScenario(t *testing.T) {
	ctx := context.Background()
	lib := New(ctx, nil, Options{})

	require.NoError(t, lib.Add(ctx, "img://a"))
	snap := lib.Snapshot()
	assert.Equal(t, []models.Locator{"img://a"}, snap.Images)
	assert.Equal(t, models.Locator("img://a"), snap.ActiveImage)

	require.NoError(t, lib.Add(ctx, "img://b"))
	snap = lib.Snapshot()
	assert.Equal(t, []models.Locator{"img://a", "img://b"}, snap.Images)
	assert.Equal(t, models.Locator("img://a"), snap.ActiveImage)

	res, err := lib.Replace(ctx, "img://a", "img://c")
	require.NoError(t, err)
	assert.True(t, res.Replaced)
	assert.True(t, res.ActiveChanged)

	snap = lib.Snapshot()
	assert.Equal(t, []models.Locator{"img://c", "img://b"}, snap.Images)
	assert.Equal(t, models.Locator("img://c"), snap.ActiveImage)
}

func TestAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicates are ignored", func(t *testing.T) {
		lib := New(ctx, nil, Options{})
		require.NoError(t, lib.Add(ctx, "img://a"))
		require.NoError(t, lib.Add(ctx, "img://a"))
		assert.Len(t, lib.Snapshot().Images, 1)
	})

	t.Run("empty locator is rejected", func(t *testing.T) {
		lib := New(ctx, nil, Options{})
		assert.ErrorIs(t, lib.Add(ctx, ""), ErrEmptyLocator)
		assert.Empty(t, lib.Snapshot().Images)
	})

	t.Run("add after remove of active picks the new image", func(t *testing.T) {
		lib := New(ctx, nil, Options{})
		require.NoError(t, lib.Add(ctx, "img://a"))
		require.NoError(t, lib.Add(ctx, "img://b"))
		assert.True(t, lib.Remove(ctx, "img://a"))
		assert.False(t, lib.Snapshot().HasActive())

		require.NoError(t, lib.Add(ctx, "img://c"))
		assert.Equal(t, models.Locator("img://c"), lib.Snapshot().ActiveImage)
	})
}

func TestReplace(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		images     []models.Locator
		from, to   models.Locator
		wantImages []models.Locator
		wantActive models.Locator
		wantResult ReplaceResult
	}{
		{
			name:       "missing source is a no-op",
			images:     []models.Locator{"img://a", "img://b"},
			from:       "img://x",
			to:         "img://c",
			wantImages: []models.Locator{"img://a", "img://b"},
			wantActive: "img://a",
		},
		{
			name:       "inactive entry keeps active pointer",
			images:     []models.Locator{"img://a", "img://b"},
			from:       "img://b",
			to:         "img://c",
			wantImages: []models.Locator{"img://a", "img://c"},
			wantActive: "img://a",
			wantResult: ReplaceResult{Replaced: true},
		},
		{
			name:       "target already present drops the source",
			images:     []models.Locator{"img://a", "img://b"},
			from:       "img://a",
			to:         "img://b",
			wantImages: []models.Locator{"img://b"},
			wantActive: "img://b",
			wantResult: ReplaceResult{Replaced: true, ActiveChanged: true},
		},
		{
			name:       "same locator changes nothing",
			images:     []models.Locator{"img://a"},
			from:       "img://a",
			to:         "img://a",
			wantImages: []models.Locator{"img://a"},
			wantActive: "img://a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := New(ctx, nil, Options{})
			for _, img := range tt.images {
				require.NoError(t, lib.Add(ctx, img))
			}

			res, err := lib.Replace(ctx, tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.wantResult, res)

			snap := lib.Snapshot()
			assert.Equal(t, tt.wantImages, snap.Images)
			assert.Equal(t, tt.wantActive, snap.ActiveImage)
		})
	}

	t.Run("empty target is rejected", func(t *testing.T) {
		lib := New(ctx, nil, Options{})
		require.NoError(t, lib.Add(ctx, "img://a"))
		_, err := lib.Replace(ctx, "img://a", "")
		assert.ErrorIs(t, err, ErrEmptyLocator)
	})
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	lib := New(ctx, nil, Options{})
	require.NoError(t, lib.Add(ctx, "img://a"))
	require.NoError(t, lib.Add(ctx, "img://b"))

	assert.False(t, lib.Remove(ctx, "img://x"))
	assert.True(t, lib.Remove(ctx, "img://b"))

	snap := lib.Snapshot()
	assert.Equal(t, []models.Locator{"img://a"}, snap.Images)
	assert.Equal(t, models.Locator("img://a"), snap.ActiveImage)
}

func TestSetActive(t *testing.T) {
	ctx := context.Background()

	t.Run("outside image allowed by default", func(t *testing.T) {
		lib := New(ctx, nil, Options{})
		require.NoError(t, lib.SetActive(ctx, "img://preview"))
		snap := lib.Snapshot()
		assert.Equal(t, models.Locator("img://preview"), snap.ActiveImage)
		assert.Empty(t, snap.Images)
	})

	t.Run("membership required", func(t *testing.T) {
		lib := New(ctx, nil, Options{RequireMembership: true})
		assert.ErrorIs(t, lib.SetActive(ctx, "img://preview"), ErrNotMember)

		require.NoError(t, lib.Add(ctx, "img://a"))
		require.NoError(t, lib.Add(ctx, "img://b"))
		require.NoError(t, lib.SetActive(ctx, "img://b"))
		assert.Equal(t, models.Locator("img://b"), lib.Snapshot().ActiveImage)
	})

	t.Run("empty locator", func(t *testing.T) {
		lib := New(ctx, nil, Options{})
		assert.ErrorIs(t, lib.SetActive(ctx, ""), ErrEmptyLocator)
	})
}

func TestPersistence(t *testing.T) {
	ctx := context.Background()

	stores := map[string]func(t *testing.T) storage.Store{
		"memory": func(t *testing.T) storage.Store {
			return storage.NewMemoryStore()
		},
		"file": func(t *testing.T) storage.Store {
			return storage.NewFileStore(filepath.Join(t.TempDir(), "prefs.json"))
		},
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			store := open(t)

			lib := New(ctx, store, Options{})
			require.NoError(t, lib.Add(ctx, "img://b"))
			require.NoError(t, lib.Add(ctx, "img://a"))
			require.NoError(t, lib.SetActive(ctx, "img://a"))
			lib.SetNotificationActive(ctx, true)

			restored := New(ctx, store, Options{}).Snapshot()
			assert.Equal(t, []models.Locator{"img://b", "img://a"}, restored.Images)
			assert.Equal(t, models.Locator("img://a"), restored.ActiveImage)
			assert.True(t, restored.NotificationActive)
		})
	}
}

func TestFailingStoreDoesNotBlockMutations(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{}

	lib := New(ctx, store, Options{})
	require.NoError(t, lib.Add(ctx, "img://a"))
	lib.SetNotificationActive(ctx, true)

	snap := lib.Snapshot()
	assert.Equal(t, []models.Locator{"img://a"}, snap.Images)
	assert.True(t, snap.NotificationActive)
	assert.Equal(t, 2, store.saves)
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	lib := New(ctx, nil, Options{})

	var got []models.LibrarySnapshot
	cancel := lib.Subscribe(func(s models.LibrarySnapshot) {
		got = append(got, s)
	})

	require.NoError(t, lib.Add(ctx, "img://a"))
	require.NoError(t, lib.Add(ctx, "img://a"))
	lib.Remove(ctx, "img://missing")
	require.Len(t, got, 1)
	assert.Equal(t, models.Locator("img://a"), got[0].ActiveImage)

	cancel()
	require.NoError(t, lib.Add(ctx, "img://b"))
	assert.Len(t, got, 1)
}
