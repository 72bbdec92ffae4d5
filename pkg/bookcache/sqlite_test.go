package bookcache

import (
	"path/filepath"
	"testing"

	"github.com/shishobooks/bookmeta/pkg/config"
	"github.com/shishobooks/bookmeta/pkg/errcodes"
	"github.com/shishobooks/bookmeta/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	cfg := config.NewForTest(filepath.Join(t.TempDir(), "cache.db"))
	cfg.CacheBackend = config.CacheBackendSQLite
	store, err := NewSQLiteStore(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_AppendThenLoad(t *testing.T) {
	t.Parallel()
	ctx := testContext()
	store := newSQLiteStore(t)

	keys, err := store.LoadExisting(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, store.Append(ctx, []*models.BookRecord{record("a.epub"), record("b.epub")}))
	require.NoError(t, store.Append(ctx, nil))

	keys, err = store.LoadExisting(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"a.epub": {}, "b.epub": {}}, keys)

	lines, err := store.Lines(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"filename":"a.epub","author":"Author of a.epub","title":"a","title_source":"filepath","distinct_word_count":42,"source_path":"/books/a.epub"}`, lines[0])
	assert.Contains(t, lines[1], `"filename":"b.epub"`)
}

func TestSQLiteStore_DuplicateFilenameIsIgnored(t *testing.T) {
	t.Parallel()
	ctx := testContext()
	store := newSQLiteStore(t)

	require.NoError(t, store.Append(ctx, []*models.BookRecord{record("a.epub")}))

	dup := record("a.epub")
	dup.Author = "Someone Else"
	require.NoError(t, store.Append(ctx, []*models.BookRecord{dup, record("b.epub")}))

	lines, err := store.Lines(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"author":"Author of a.epub"`)
	assert.Contains(t, lines[1], `"filename":"b.epub"`)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	t.Parallel()
	ctx := testContext()
	cfg := config.NewForTest(filepath.Join(t.TempDir(), "cache.db"))
	cfg.CacheBackend = config.CacheBackendSQLite

	store, err := NewSQLiteStore(cfg)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, []*models.BookRecord{record("a.epub")}))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(cfg)
	require.NoError(t, err)
	defer store.Close()

	keys, err := store.LoadExisting(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"a.epub": {}}, keys)
}

func TestNew_SelectsBackend(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	cfg := config.NewForTest(filepath.Join(dir, "cache.jsonl"))
	store, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	cfg = config.NewForTest(filepath.Join(dir, "cache.db"))
	cfg.CacheBackend = config.CacheBackendSQLite
	store, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
	require.NoError(t, store.Close())

	cfg = config.NewForTest(filepath.Join(dir, "missing", "cache.db"))
	cfg.CacheBackend = config.CacheBackendSQLite
	_, err = New(cfg)
	require.Error(t, err)
	assert.True(t, errcodes.IsKind(err, errcodes.KindConfiguration))
}
