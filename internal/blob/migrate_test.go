package blob

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atrium/pkg/platform/sentinel"
)

func seedContainer(t *testing.T, store *MemoryStore, container string, blobs map[string]string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.EnsureContainer(ctx, container))
	for name, body := range blobs {
		require.NoError(t, store.Upload(ctx, container, name, strings.NewReader(body)))
	}
}

func readBlob(t *testing.T, store Store, container, name string) string {
	t.Helper()
	r, err := store.Download(context.Background(), container, name)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seedContainer(t, store, "amore-media", map[string]string{
		"uploads/a.jpg": "aaa",
		"uploads/b.jpg": "bbbb",
	})

	assert.Equal(t, "aaa", readBlob(t, store, "amore-media", "uploads/a.jpg"))

	exists, err := store.Exists(ctx, "amore-media", "uploads/b.jpg")
	require.NoError(t, err)
	assert.True(t, exists)

	objects, err := store.List(ctx, "amore-media", "uploads/")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "uploads/a.jpg", objects[0].Name)
	assert.EqualValues(t, 3, objects[0].Size)

	require.NoError(t, store.Delete(ctx, "amore-media", "uploads/a.jpg"))
	_, err = store.Download(ctx, "amore-media", "uploads/a.jpg")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "amore-media", "uploads/a.jpg"), sentinel.ErrNotFound)
}

func TestMemoryStoreListByPrefix(t *testing.T) {
	store := NewMemoryStore()
	seedContainer(t, store, "c", map[string]string{
		"uploads/a.jpg": "a",
		"avatars/b.png": "b",
	})

	objects, err := store.List(context.Background(), "c", "avatars/")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "avatars/b.png", objects[0].Name)
}

func TestMigrateCopiesEverything(t *testing.T) {
	store := NewMemoryStore()
	seedContainer(t, store, "old", map[string]string{
		"uploads/a.jpg": "aaa",
		"uploads/b.jpg": "bbb",
		"avatars/c.png": "ccc",
	})

	report, err := Migrate(context.Background(), store, "old", "new",
		MigrateOptions{}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	assert.Equal(t, 3, report.Copied)
	assert.Zero(t, report.Skipped)
	assert.Equal(t, "aaa", readBlob(t, store, "new", "uploads/a.jpg"))
	assert.Equal(t, "ccc", readBlob(t, store, "new", "avatars/c.png"))
}

func TestMigrateSkipsExisting(t *testing.T) {
	store := NewMemoryStore()
	seedContainer(t, store, "old", map[string]string{
		"uploads/a.jpg": "new-version",
		"uploads/b.jpg": "bbb",
	})
	seedContainer(t, store, "new", map[string]string{
		"uploads/a.jpg": "old-version",
	})

	report, err := Migrate(context.Background(), store, "old", "new",
		MigrateOptions{}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Copied)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, "old-version", readBlob(t, store, "new", "uploads/a.jpg"),
		"existing blob untouched without --overwrite")
}

func TestMigrateOverwrite(t *testing.T) {
	store := NewMemoryStore()
	seedContainer(t, store, "old", map[string]string{"uploads/a.jpg": "new-version"})
	seedContainer(t, store, "new", map[string]string{"uploads/a.jpg": "old-version"})

	report, err := Migrate(context.Background(), store, "old", "new",
		MigrateOptions{Overwrite: true}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Copied)
	assert.Equal(t, "new-version", readBlob(t, store, "new", "uploads/a.jpg"))
}

func TestMigrateDryRunWritesNothing(t *testing.T) {
	store := NewMemoryStore()
	seedContainer(t, store, "old", map[string]string{"uploads/a.jpg": "aaa"})

	report, err := Migrate(context.Background(), store, "old", "new",
		MigrateOptions{DryRun: true}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Copied)
	_, err = store.List(context.Background(), "new", "")
	assert.ErrorIs(t, err, sentinel.ErrNotFound, "target container never created")
}

func TestMigrateRejectsSameContainer(t *testing.T) {
	store := NewMemoryStore()
	_, err := Migrate(context.Background(), store, "c", "c",
		MigrateOptions{}, slog.New(slog.DiscardHandler))
	assert.Error(t, err)
}

func TestAuditFindsOrphans(t *testing.T) {
	store := NewMemoryStore()
	seedContainer(t, store, "amore-media", map[string]string{
		"uploads/a.jpg":  "a",
		"avatars/b.png":  "b",
		"stray.tmp":      "x",
		"backup/old.sql": "y",
	})

	report, err := Audit(context.Background(), store, "amore-media", []string{"uploads", "avatars/"})
	require.NoError(t, err)

	assert.Equal(t, 4, report.Total)
	require.Len(t, report.Orphans, 2)
	assert.Equal(t, "backup/old.sql", report.Orphans[0].Name)
	assert.Equal(t, "stray.tmp", report.Orphans[1].Name)
}
