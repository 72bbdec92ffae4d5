package worker

import (
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/bookmeta/pkg/bookcache"
	"github.com/shishobooks/bookmeta/pkg/config"
	"github.com/shishobooks/bookmeta/pkg/scanner"
)

// Parser extracts text and metadata from an archive file. Implementations
// must be safe for concurrent use; every call may be made from its own
// goroutine.
type Parser interface {
	ParseContent(path string) (string, error)
	// ParseAuthor returns "" with a nil error when the archive names no
	// author.
	ParseAuthor(path string) (string, error)
}

// TitleParser is implemented by parsers that can read a title out of the
// archive. Without it, or when it returns "", the title is the file's base
// name without extension.
type TitleParser interface {
	ParseTitle(path string) (string, error)
}

// BookParser is implemented by parsers that can read the text, author and
// title of an archive in a single pass. When the parser implements it, the
// worker makes one call per file instead of one per field.
type BookParser interface {
	ParseBook(path string) (text, author, title string, err error)
}

type Worker struct {
	config *config.Config
	log    logger.Logger

	parser  Parser
	scanner *scanner.Scanner
	store   bookcache.Store
}

func New(cfg *config.Config, parser Parser, store bookcache.Store) *Worker {
	return &Worker{
		config: cfg,
		log:    logger.New(),

		parser: parser,
		scanner: scanner.New(scanner.Options{
			Extension:      cfg.ArchiveExtension,
			VerifyMimeType: cfg.VerifyMimeType,
		}),
		store: store,
	}
}
