package worker

import (
	"sync"

	"github.com/shishobooks/bookmeta/pkg/models"
)

// Failure is a file whose extraction failed. It has no record in the batch
// and stays uncached, so the next run retries it.
type Failure struct {
	Path string
	Err  error
}

// Batch collects the outcome of every extraction task of one run. All
// methods are safe for concurrent use.
type Batch struct {
	mu       sync.Mutex
	records  []*models.BookRecord
	failures []Failure
}

func NewBatch(capacity int) *Batch {
	return &Batch{
		records: make([]*models.BookRecord, 0, capacity),
	}
}

func (b *Batch) Add(record *models.BookRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = append(b.records, record)
}

func (b *Batch) Fail(path string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = append(b.failures, Failure{Path: path, Err: err})
}

// Records returns a copy of the collected records.
func (b *Batch) Records() []*models.BookRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*models.BookRecord, len(b.records))
	copy(out, b.records)
	return out
}

// Failures returns a copy of the collected failures.
func (b *Batch) Failures() []Failure {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Failure, len(b.failures))
	copy(out, b.failures)
	return out
}

func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}
