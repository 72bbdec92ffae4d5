package bookcache

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	"github.com/shishobooks/bookmeta/pkg/errcodes"
	"github.com/shishobooks/bookmeta/pkg/models"
)

// FileStore keeps the cache as a text file with one JSON-encoded BookRecord
// per line. It also reads the older layout where each run appended one
// pretty-printed {"books": [...]} object.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// cacheEntry is the decoding view of one persisted value. It accepts a
// record line as well as a legacy envelope of records.
type cacheEntry struct {
	Filename   string       `json:"filename"`
	SourcePath string       `json:"source_path"`
	FilePath   string       `json:"filePath"`
	Books      []cacheEntry `json:"books"`
}

func (e *cacheEntry) collectKeys(keys map[string]struct{}) {
	switch {
	case e.Filename != "":
		keys[e.Filename] = struct{}{}
	case e.SourcePath != "":
		keys[filepath.Base(e.SourcePath)] = struct{}{}
	case e.FilePath != "":
		keys[filepath.Base(e.FilePath)] = struct{}{}
	}
	for i := range e.Books {
		e.Books[i].collectKeys(keys)
	}
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) LoadExisting(ctx context.Context) (map[string]struct{}, error) {
	if err := checkCachePath(s.path); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keys := map[string]struct{}{}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return keys, nil
		}
		return nil, errcodes.Configuration("cache file is not readable", s.path, err)
	}

	if err := decodeStream(data, keys); err == nil {
		return keys, nil
	}

	// A value that doesn't decode (e.g. a torn final line) only costs that
	// entry; every value around it still yields its keys.
	log := logger.FromContext(ctx).Data(logger.Data{"cache_path": s.path})
	keys = map[string]struct{}{}
	decodeRecovering(log, data, keys)
	return keys, nil
}

// decodeRecovering splits data into values made of whole lines. A value is
// the shortest run of lines, starting at the current line, that is valid
// JSON. Runs stop before the next line opening a top-level object, since both
// record lines and legacy envelopes start with "{" in the first column. A line
// that starts no valid run is skipped.
func decodeRecovering(log logger.Logger, data []byte, keys map[string]struct{}) {
	lines := bytes.SplitAfter(data, []byte("\n"))
	for start := 0; start < len(lines); {
		if len(bytes.TrimSpace(lines[start])) == 0 {
			start++
			continue
		}

		end := validRun(lines, start)
		if end < 0 {
			log.Warn("skipping undecodable cache line", logger.Data{"line": start + 1})
			start++
			continue
		}

		entry := cacheEntry{}
		if err := json.Unmarshal(bytes.Join(lines[start:end], nil), &entry); err != nil {
			log.Err(err).Warn("skipping undecodable cache entry", logger.Data{"line": start + 1})
		} else {
			entry.collectKeys(keys)
		}
		start = end
	}
}

// validRun returns the index just past the shortest valid run starting at
// start, or -1.
func validRun(lines [][]byte, start int) int {
	var buf []byte
	for end := start; end < len(lines); end++ {
		if end > start && bytes.HasPrefix(lines[end], []byte("{")) {
			return -1
		}
		buf = append(buf, lines[end]...)
		if bytes.HasSuffix(bytes.TrimSpace(lines[end]), []byte("}")) && json.Valid(buf) {
			return end + 1
		}
	}
	return -1
}

func decodeStream(data []byte, keys map[string]struct{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		entry := cacheEntry{}
		err := dec.Decode(&entry)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.WithStack(err)
		}
		entry.collectKeys(keys)
	}
}

// Append encodes the whole batch up front and hands it to the file in a
// single append-mode write followed by one fsync.
func (s *FileStore) Append(_ context.Context, records []*models.BookRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	missingNewline, err := endsWithoutNewline(s.path)
	if err != nil {
		return errcodes.CacheWrite(s.path, err)
	}
	if missingNewline {
		buf.WriteByte('\n')
	}
	for _, record := range records {
		b, err := json.Marshal(record)
		if err != nil {
			return errcodes.CacheWrite(s.path, errors.WithStack(err))
		}
		buf.Write(b)
		buf.WriteByte('\n')
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) //nolint:gosec
	if err != nil {
		return errcodes.CacheWrite(s.path, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return errcodes.CacheWrite(s.path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return errcodes.CacheWrite(s.path, err)
	}
	if err := f.Close(); err != nil {
		return errcodes.CacheWrite(s.path, err)
	}

	return nil
}

func (s *FileStore) Lines(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := []string{}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return lines, nil
		}
		return nil, errors.WithStack(err)
	}

	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		lines = append(lines, string(line))
	}
	return lines, nil
}

func (s *FileStore) Close() error {
	return nil
}

func endsWithoutNewline(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.WithStack(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, errors.WithStack(err)
	}
	if info.Size() == 0 {
		return false, nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, errors.WithStack(err)
	}
	return last[0] != '\n', nil
}
