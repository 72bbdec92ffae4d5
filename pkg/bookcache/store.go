// Package bookcache persists BookRecords so later scans can skip books that
// were already processed. Stores are append-only: existing entries are never
// rewritten or removed.
package bookcache

import (
	"context"
	"os"
	"path/filepath"

	"github.com/shishobooks/bookmeta/pkg/config"
	"github.com/shishobooks/bookmeta/pkg/errcodes"
	"github.com/shishobooks/bookmeta/pkg/models"
)

type Store interface {
	// LoadExisting returns the filenames that already have an entry. A cache
	// that does not exist yet is empty.
	LoadExisting(ctx context.Context) (map[string]struct{}, error)
	// Append persists records in one write. An empty batch is a no-op.
	Append(ctx context.Context, records []*models.BookRecord) error
	// Lines returns every entry in stored order, one string per entry.
	Lines(ctx context.Context) ([]string, error)
	Close() error
}

// New returns the store selected by cfg.CacheBackend.
func New(cfg *config.Config) (Store, error) {
	if err := checkCachePath(cfg.CacheFilePath); err != nil {
		return nil, err
	}

	switch cfg.CacheBackend {
	case config.CacheBackendFile, "":
		return NewFileStore(cfg.CacheFilePath), nil
	case config.CacheBackendSQLite:
		return NewSQLiteStore(cfg)
	default:
		return nil, errcodes.Configuration("unsupported cache backend "+cfg.CacheBackend, cfg.CacheFilePath, nil)
	}
}

// checkCachePath rejects cache paths that can never be opened: a missing
// parent directory, or a path that is itself a directory.
func checkCachePath(path string) error {
	if path == "" {
		return errcodes.Configuration("cache path is empty", path, nil)
	}

	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return errcodes.Configuration("cache directory is not accessible", dir, err)
	}
	if !info.IsDir() {
		return errcodes.Configuration("cache parent is not a directory", dir, nil)
	}

	info, err = os.Stat(path)
	if err == nil && info.IsDir() {
		return errcodes.Configuration("cache path is a directory", path, nil)
	}
	if err != nil && !os.IsNotExist(err) {
		return errcodes.Configuration("cache path is not accessible", path, err)
	}
	return nil
}
