package worker

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/bookmeta/pkg/errcodes"
	"github.com/shishobooks/bookmeta/pkg/models"
	"github.com/shishobooks/bookmeta/pkg/words"
	"golang.org/x/sync/errgroup"
)

// ScanResult describes one scan run.
type ScanResult struct {
	// Scanned is every matching file under the root, in walk order.
	Scanned []string
	// AlreadyCached had an entry before the run and were not processed.
	AlreadyCached []string
	// Duplicates share a filename with an earlier file of the same scan. The
	// filename is the cache key, so only the first one is processed.
	Duplicates []string
	// Records were extracted and appended during this run.
	Records  []*models.BookRecord
	Failures []Failure
	// Lines is the whole cache after the run, in stored order.
	Lines []string
}

// PrintMetaBooksFromDirectory scans root, caches every book not cached yet,
// and writes the resulting cache to out, one entry per line. It returns the
// same lines.
func (w *Worker) PrintMetaBooksFromDirectory(ctx context.Context, root string, out io.Writer) ([]string, error) {
	result, err := w.Scan(ctx, root)
	if err != nil {
		return nil, err
	}

	for _, line := range result.Lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	return result.Lines, nil
}

// Scan runs one pass of the pipeline: list the archives under root, drop the
// ones already cached, extract the rest concurrently, and append the new
// records to the cache in a single write.
//
// Only configuration and cache write errors are returned. Unreadable
// directories and files that fail to parse are logged and reported in the
// result.
func (w *Worker) Scan(ctx context.Context, root string) (*ScanResult, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	log := w.log.ID(id.String()).Root(logger.Data{"root": root})
	ctx = log.WithContext(ctx)
	log.Info("processing scan")

	files := w.scanner.Scan(ctx, root)
	log.Info("found archives", logger.Data{"count": len(files)})

	existing, err := w.store.LoadExisting(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	result := &ScanResult{Scanned: files}
	toProcess := w.partition(ctx, files, existing, result)
	log.Info("diffed against cache", logger.Data{
		"cached":     len(result.AlreadyCached),
		"to_process": len(toProcess),
		"duplicates": len(result.Duplicates),
		"cache_size": len(existing),
	})

	batch := w.extractAll(ctx, toProcess)

	records := batch.Records()
	order := make(map[string]int, len(toProcess))
	for i, path := range toProcess {
		order[path] = i
	}
	sort.Slice(records, func(i, j int) bool {
		return order[records[i].SourcePath] < order[records[j].SourcePath]
	})
	result.Records = records
	result.Failures = batch.Failures()

	if err := w.store.Append(ctx, records); err != nil {
		return nil, errors.WithStack(err)
	}
	log.Info("flushed batch", logger.Data{"records": len(records), "failures": len(result.Failures)})

	lines, err := w.store.Lines(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	result.Lines = lines

	log.Info("finished scan")
	return result, nil
}

// partition splits files into those that need extraction and those that
// don't. Matching is exact equality on the base filename.
func (w *Worker) partition(ctx context.Context, files []string, existing map[string]struct{}, result *ScanResult) []string {
	log := logger.FromContext(ctx)
	seen := make(map[string]string, len(files))
	toProcess := make([]string, 0, len(files))

	for _, path := range files {
		filename := filepath.Base(path)
		if _, ok := existing[filename]; ok {
			result.AlreadyCached = append(result.AlreadyCached, path)
			continue
		}
		if first, ok := seen[filename]; ok {
			log.Warn("skipping file with an already scanned filename", logger.Data{"path": path, "first_path": first})
			result.Duplicates = append(result.Duplicates, path)
			continue
		}
		seen[filename] = path
		toProcess = append(toProcess, path)
	}
	return toProcess
}

// extractAll starts one task per path and returns once every task is done.
// With cfg.Workers > 0 at most that many run at a time.
func (w *Worker) extractAll(ctx context.Context, paths []string) *Batch {
	log := logger.FromContext(ctx)
	batch := NewBatch(len(paths))

	var g errgroup.Group
	if w.config.Workers > 0 {
		g.SetLimit(w.config.Workers)
	}

	for _, path := range paths {
		g.Go(func() error {
			record, err := w.extract(path)
			if err != nil {
				log.Err(err).Warn("extraction failed", logger.Data{"path": path})
				batch.Fail(path, err)
				return nil
			}
			log.Info("extracted book", logger.Data{
				"path":                path,
				"title":               record.Title,
				"distinct_word_count": record.DistinctWordCount,
			})
			batch.Add(record)
			return nil
		})
	}

	// Tasks never return an error; a failed file is recorded in the batch.
	_ = g.Wait()
	return batch
}

func (w *Worker) extract(path string) (record *models.BookRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			record = nil
			err = errcodes.Extraction(path, errors.Errorf("parser panic: %v", r))
		}
	}()

	text, author, parsedTitle, err := w.parse(path)
	if err != nil {
		return nil, errcodes.Extraction(path, err)
	}

	filename := filepath.Base(path)
	title := strings.TrimSuffix(filename, filepath.Ext(filename))
	titleSource := models.DataSourceFilepath
	if parsedTitle = strings.TrimSpace(parsedTitle); parsedTitle != "" {
		title = parsedTitle
		titleSource = models.DataSourceEPUBMetadata
	}

	return &models.BookRecord{
		Filename:          filename,
		Author:            author,
		Title:             title,
		TitleSource:       titleSource,
		DistinctWordCount: words.Analyze(text),
		SourcePath:        path,
	}, nil
}

// parse reads one archive through the widest interface the parser offers.
// A missing or unreadable title is not a failure; the filename stands in.
func (w *Worker) parse(path string) (text, author, title string, err error) {
	if bp, ok := w.parser.(BookParser); ok {
		return bp.ParseBook(path)
	}

	text, err = w.parser.ParseContent(path)
	if err != nil {
		return "", "", "", err
	}
	author, err = w.parser.ParseAuthor(path)
	if err != nil {
		return "", "", "", err
	}
	if tp, ok := w.parser.(TitleParser); ok {
		if parsed, err := tp.ParseTitle(path); err == nil {
			title = parsed
		}
	}
	return text, author, title, nil
}
