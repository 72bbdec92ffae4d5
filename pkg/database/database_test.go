package database

import (
	"path/filepath"
	"testing"

	"github.com/shishobooks/bookmeta/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	cfg := config.NewForTest(filepath.Join(t.TempDir(), "cache.db"))
	cfg.CacheBackend = config.CacheBackendSQLite

	db, err := New(cfg)
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestNew_MissingDirectory(t *testing.T) {
	t.Parallel()

	cfg := config.NewForTest(filepath.Join(t.TempDir(), "missing", "cache.db"))

	_, err := New(cfg)
	require.Error(t, err)
}
