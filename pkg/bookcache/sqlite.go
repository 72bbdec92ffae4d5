package bookcache

import (
	"context"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/shishobooks/bookmeta/pkg/config"
	"github.com/shishobooks/bookmeta/pkg/database"
	"github.com/shishobooks/bookmeta/pkg/errcodes"
	"github.com/shishobooks/bookmeta/pkg/migrations"
	"github.com/shishobooks/bookmeta/pkg/models"
	"github.com/uptrace/bun"
)

// SQLiteStore keeps the cache in a book_records table. The UNIQUE filename
// column backs up the pre-dispatch diff: a conflicting insert is dropped.
type SQLiteStore struct {
	db   *bun.DB
	path string
}

func NewSQLiteStore(cfg *config.Config) (*SQLiteStore, error) {
	if err := checkCachePath(cfg.CacheFilePath); err != nil {
		return nil, err
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, errcodes.Configuration("cache database could not be opened", cfg.CacheFilePath, err)
	}

	if _, err := migrations.BringUpToDate(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, errcodes.Configuration("cache schema could not be migrated", cfg.CacheFilePath, err)
	}

	return &SQLiteStore{db: db, path: cfg.CacheFilePath}, nil
}

func (s *SQLiteStore) LoadExisting(ctx context.Context) (map[string]struct{}, error) {
	var filenames []string
	err := s.db.NewSelect().
		Model((*models.BookRecord)(nil)).
		Column("filename").
		Scan(ctx, &filenames)
	if err != nil {
		return nil, errcodes.Configuration("cache table is not readable", s.path, err)
	}

	keys := make(map[string]struct{}, len(filenames))
	for _, f := range filenames {
		keys[f] = struct{}{}
	}
	return keys, nil
}

// Append inserts the batch in one transaction, so either every record lands
// or none do.
func (s *SQLiteStore) Append(ctx context.Context, records []*models.BookRecord) error {
	if len(records) == 0 {
		return nil
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&records).
			On("CONFLICT (filename) DO NOTHING").
			Returning("NULL").
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return errcodes.CacheWrite(s.path, err)
	}
	return nil
}

// Lines returns each row JSON-encoded, in insertion order.
func (s *SQLiteStore) Lines(ctx context.Context) ([]string, error) {
	var records []*models.BookRecord
	err := s.db.NewSelect().
		Model(&records).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	lines := make([]string, 0, len(records))
	for _, record := range records {
		b, err := json.Marshal(record)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		lines = append(lines, string(b))
	}
	return lines, nil
}

func (s *SQLiteStore) Close() error {
	return errors.WithStack(s.db.Close())
}
