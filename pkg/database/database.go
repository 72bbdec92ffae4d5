package database

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/bookmeta/pkg/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const busyTimeoutMs = 5000

type logQueryHook struct {
	log logger.Logger
}

func (*logQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (qh *logQueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	qh.log.Debug(event.Query)
}

// New opens the SQLite database at cfg.CacheFilePath.
func New(cfg *config.Config) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.CacheFilePath)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	// The cache has a single writer, and one connection keeps an in-memory
	// database from splitting into one database per connection.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	// print out all queries in debug mode
	if cfg.DatabaseDebug {
		db.AddQueryHook(&logQueryHook{logger.NewWithLevel("debug")})
	}

	if _, err := db.Exec("SELECT 1"); err != nil {
		_ = db.Close()
		return nil, errors.WithStack(err)
	}

	// WAL mode allows concurrent reads during writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to enable WAL mode")
	}

	// busy_timeout makes SQLite wait before returning SQLITE_BUSY.
	if _, err := db.Exec("PRAGMA busy_timeout=?", busyTimeoutMs); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to set busy_timeout")
	}

	return db, nil
}
