// Package scanner finds archive files under a directory tree.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/bookmeta/pkg/errcodes"
)

// expectedMimeTypes lists the content types accepted for an extension when
// MIME verification is on. Extensions not listed here are accepted as is.
var expectedMimeTypes = map[string]map[string]struct{}{
	".epub":  {"application/epub+zip": {}},
	".kepub": {"application/epub+zip": {}, "application/zip": {}},
	".cbz":   {"application/zip": {}},
}

type Options struct {
	// Extension is matched exactly (case-sensitive) against filepath.Ext.
	Extension string
	// VerifyMimeType drops files whose content does not look like the
	// extension claims.
	VerifyMimeType bool
}

type Scanner struct {
	opts Options
}

func New(opts Options) *Scanner {
	return &Scanner{opts: opts}
}

// Scan returns the paths of matching files under root in lexical walk order.
// A root that is missing or not a directory yields no files. Subdirectories
// that cannot be read are logged and skipped. Symbolic links are not
// followed.
func (s *Scanner) Scan(ctx context.Context, root string) []string {
	log := logger.FromContext(ctx).Data(logger.Data{"root": root})
	files := []string{}

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		log.Info("scan root is not a directory")
		return files
	}

	walkRoot := root
	if linfo, err := os.Lstat(root); err == nil && linfo.Mode()&fs.ModeSymlink != 0 {
		// WalkDir does not resolve a symlinked root.
		if resolved, err := filepath.EvalSymlinks(root); err == nil {
			walkRoot = resolved
		}
	}

	_ = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// WalkDir calls back a second time for a directory it could not
			// read; skipping it keeps what was found elsewhere.
			log.Err(errcodes.ScanWarning(path, err)).Warn("skipping unreadable path")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			// Links to regular files count; links to directories are never
			// descended into, so the walk cannot cycle.
			target, err := os.Stat(path)
			if err != nil || !target.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}
		if filepath.Ext(path) != s.opts.Extension {
			return nil
		}
		if s.opts.VerifyMimeType && !s.mimeTypeMatches(log, path) {
			return nil
		}

		files = append(files, underRoot(root, walkRoot, path))
		return nil
	})

	return files
}

// underRoot rewrites a path found under the resolved walkRoot so that it is
// reported under the root the caller passed in.
func underRoot(root, walkRoot, path string) string {
	if walkRoot == root {
		return path
	}
	rel, err := filepath.Rel(walkRoot, path)
	if err != nil {
		return path
	}
	return filepath.Join(root, rel)
}

func (s *Scanner) mimeTypeMatches(log logger.Logger, path string) bool {
	expected, ok := expectedMimeTypes[s.opts.Extension]
	if !ok {
		return true
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		log.Warn("can't detect the mime type of a file with a valid extension", logger.Data{"path": path, "err": err.Error()})
		return false
	}
	for m := mtype; m != nil; m = m.Parent() {
		if _, ok := expected[m.String()]; ok {
			return true
		}
	}
	log.Warn("mime type is not expected for extension", logger.Data{"path": path, "mimetype": mtype.String()})
	return false
}
