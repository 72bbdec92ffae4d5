package models

import (
	"github.com/uptrace/bun"
)

// BookRecord is the metadata computed for one archive file. Filename is the
// cache key and is unique across a cache.
type BookRecord struct {
	bun.BaseModel `bun:"table:book_records,alias:br" json:"-"`

	ID                int    `bun:",pk,autoincrement" json:"-"`
	Filename          string `bun:",unique,notnull" json:"filename"`
	Author            string `bun:",notnull" json:"author"`
	Title             string `bun:",notnull" json:"title"`
	TitleSource       string `bun:",nullzero" json:"title_source,omitempty"`
	DistinctWordCount int    `bun:",notnull" json:"distinct_word_count"`
	SourcePath        string `bun:",notnull" json:"source_path"`
}
