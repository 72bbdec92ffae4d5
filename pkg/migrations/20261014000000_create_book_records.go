package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE book_records (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				filename TEXT NOT NULL,
				author TEXT NOT NULL,
				title TEXT NOT NULL,
				title_source TEXT,
				distinct_word_count INTEGER NOT NULL,
				source_path TEXT NOT NULL
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}

		// Filename is the cache key.
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_book_records_filename ON book_records(filename)`)
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`DROP TABLE IF EXISTS book_records`)
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
