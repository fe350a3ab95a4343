package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"photo-counter/internal/domain/entity"
	"photo-counter/internal/domain/port"
)

type failingStore struct {
	loadErr error
	saveErr error
}

func (f failingStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, f.loadErr
}

func (f failingStore) Save(ctx context.Context, key string, value []byte) error {
	return f.saveErr
}

func (f failingStore) Close() error { return nil }

func sampleSessions() []entity.Session {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return []entity.Session{{
		ID:         "s1",
		Name:       "Widgets",
		ObjectType: "widget",
		CreatedAt:  created,
		Images: []entity.ImageCount{{
			ID:         "i1",
			Path:       "/photos/a.jpg",
			Count:      2,
			Timestamp:  created.Add(time.Minute),
			Detections: []entity.Detection{entity.NewManualDetection("d1", 10, 10), entity.NewManualDetection("d2", 50, 50)},
		}},
		TotalCount: 2,
	}}
}

func TestCollectionStore_SessionsAllBackends(t *testing.T) {
	ctx := context.Background()

	fileStore, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	backends := map[string]port.KeyValueStore{
		"memory": NewMemoryStore(),
		"file":   fileStore,
		"sqlite": sqliteStore,
	}

	for name, kv := range backends {
		t.Run(name, func(t *testing.T) {
			store := NewCollectionStore(kv, nil)
			require.Empty(t, store.LoadSessions(ctx))

			require.NoError(t, store.SaveSessions(ctx, sampleSessions()))
			got := store.LoadSessions(ctx)
			require.Len(t, got, 1)
			require.Equal(t, "Widgets", got[0].Name)
			require.Equal(t, 2, got[0].TotalCount)
			require.Len(t, got[0].Images[0].Detections, 2)
			require.True(t, got[0].CreatedAt.Equal(sampleSessions()[0].CreatedAt))

			// запись заменяется целиком
			require.NoError(t, store.SaveSessions(ctx, nil))
			require.Empty(t, store.LoadSessions(ctx))
		})
	}
}

func TestCollectionStore_CorruptSessionsDegradeToEmpty(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	require.NoError(t, kv.Save(ctx, SessionsKey, []byte("{not json")))

	store := NewCollectionStore(kv, nil)
	got := store.LoadSessions(ctx)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestCollectionStore_ReadErrorDegrades(t *testing.T) {
	ctx := context.Background()
	store := NewCollectionStore(failingStore{loadErr: errors.New("io")}, nil)

	require.Empty(t, store.LoadSessions(ctx))
	require.Equal(t, entity.DefaultSettings(), store.LoadSettings(ctx))
}

func TestCollectionStore_WriteErrorIsPersistenceError(t *testing.T) {
	ctx := context.Background()
	store := NewCollectionStore(failingStore{saveErr: errors.New("disk full")}, nil)

	err := store.SaveSessions(ctx, sampleSessions())
	require.Error(t, err)
	require.True(t, entity.IsPersistence(err))

	err = store.SaveSettings(ctx, entity.DefaultSettings())
	require.True(t, entity.IsPersistence(err))
}

func TestCollectionStore_SettingsDefaultsForMissingFields(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	require.NoError(t, kv.Save(ctx, SettingsKey, []byte(`{"theme":"light","detectorApiKey":"sk-1"}`)))

	got := NewCollectionStore(kv, nil).LoadSettings(ctx)
	require.Equal(t, entity.ThemeLight, got.Theme)
	require.Equal(t, "sk-1", got.DetectorAPIKey)
	require.Equal(t, 0.7, got.Sensitivity)
	require.Equal(t, 20, got.MinObjectSize)
	require.True(t, got.AutoSave)
}

func TestCollectionStore_SettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewCollectionStore(NewMemoryStore(), nil)

	s := entity.DefaultSettings()
	s.EnableSound = true
	s.Sensitivity = 0.4
	require.NoError(t, store.SaveSettings(ctx, s))
	require.Equal(t, s, store.LoadSettings(ctx))
}

func TestFileStore_AtomicWriteLeavesNoTemp(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, fs.Save(ctx, "k", []byte("one")))
	require.NoError(t, fs.Save(ctx, "k", []byte("two")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "k.json", entries[0].Name())

	v, ok, err := fs.Load(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "two", string(v))
}

func TestFileStore_RejectsPathKeys(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.Error(t, fs.Save(context.Background(), "../escape", []byte("x")))
}

func TestOpen_Drivers(t *testing.T) {
	kv, err := Open("memory", "")
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, kv)

	kv, err = Open("sqlite", t.TempDir())
	require.NoError(t, err)
	require.IsType(t, &SQLiteStore{}, kv)
	require.NoError(t, kv.Close())

	_, err = Open("redis", t.TempDir())
	require.Error(t, err)
}
