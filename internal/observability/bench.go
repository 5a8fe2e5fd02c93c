// File: internal/observability/bench.go
package observability

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Benchmark records the timing of a single automation operation. It is
// created at operation start and completed exactly once at operation end.
type Benchmark struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time,omitempty"`
	Duration  time.Duration  `json:"duration,omitempty"`
	Success   *bool          `json:"success,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Completed reports whether Complete has been called for this benchmark.
func (b *Benchmark) Completed() bool { return !b.EndTime.IsZero() }

// BenchmarkTable is a bounded in-memory record of operation timings. When the
// table exceeds its maximum size the oldest entry is dropped. This is leak
// prevention, not a correctness guarantee; clearing the table at any time is
// harmless.
type BenchmarkTable struct {
	mu      sync.Mutex
	logger  *zap.Logger
	maxSize int
	order   []string
	entries map[string]*Benchmark

	now func() time.Time
}

// NewBenchmarkTable creates a table retaining at most maxSize benchmarks.
func NewBenchmarkTable(maxSize int, logger *zap.Logger) *BenchmarkTable {
	if maxSize <= 0 {
		maxSize = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BenchmarkTable{
		logger:  logger.Named("bench"),
		maxSize: maxSize,
		entries: make(map[string]*Benchmark),
		now:     time.Now,
	}
}

// Start opens a new benchmark for the named operation and returns its id.
func (t *BenchmarkTable) Start(name string, metadata map[string]any) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := uuid.NewString()
	t.entries[id] = &Benchmark{
		ID:        id,
		Name:      name,
		StartTime: t.now(),
		Metadata:  metadata,
	}
	t.order = append(t.order, id)

	for len(t.order) > t.maxSize {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.entries, oldest)
	}
	return id
}

// Complete closes the benchmark with the given id. Completing an unknown or
// already-completed id is ignored; an entry is completed at most once.
func (t *BenchmarkTable) Complete(id string, success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.entries[id]
	if !ok || b.Completed() {
		return
	}
	b.EndTime = t.now()
	b.Duration = b.EndTime.Sub(b.StartTime)
	b.Success = &success

	t.logger.Debug("operation completed",
		zap.String("name", b.Name),
		zap.Duration("duration", b.Duration),
		zap.Bool("success", success),
	)
}

// Get returns a copy of the benchmark with the given id.
func (t *BenchmarkTable) Get(id string) (Benchmark, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.entries[id]
	if !ok {
		return Benchmark{}, false
	}
	return *b, true
}

// History returns copies of all retained benchmarks, oldest first.
func (t *BenchmarkTable) History() []Benchmark {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Benchmark, 0, len(t.order))
	for _, id := range t.order {
		if b, ok := t.entries[id]; ok {
			out = append(out, *b)
		}
	}
	return out
}

// Clear drops all records.
func (t *BenchmarkTable) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.order = nil
	t.entries = make(map[string]*Benchmark)
}

// Len reports the number of retained benchmarks.
func (t *BenchmarkTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.order)
}

// SetClock overrides the table's time source. Tests only.
func (t *BenchmarkTable) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}
