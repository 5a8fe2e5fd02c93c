// File: internal/scripting/pool.go
package scripting

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConnectionRecord marks a window index as recently addressed. It does not
// represent a real OS resource; the pool only bounds how many distinct window
// targets count as "warm" at once, which lets the executor skip redundant
// re-focus round trips.
type ConnectionRecord struct {
	ID          string
	WindowIndex int
	LastUsed    time.Time
}

// ConnectionPool is a bounded table of ConnectionRecords with TTL expiry.
// Expired records are purged on every access.
type ConnectionPool struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	records map[int]*ConnectionRecord

	now func() time.Time
}

// NewConnectionPool creates a pool retaining at most maxSize window targets,
// each warm for ttl since last use.
func NewConnectionPool(maxSize int, ttl time.Duration) *ConnectionPool {
	if maxSize <= 0 {
		maxSize = 8
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ConnectionPool{
		maxSize: maxSize,
		ttl:     ttl,
		records: make(map[int]*ConnectionRecord),
		now:     time.Now,
	}
}

// Touch reports whether windowIndex is warm and, if so, refreshes it.
func (p *ConnectionPool) Touch(windowIndex int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.purgeLocked()

	rec, ok := p.records[windowIndex]
	if !ok {
		return false
	}
	rec.LastUsed = p.now()
	return true
}

// Add marks windowIndex as warm. When the pool is full the stalest record is
// evicted first.
func (p *ConnectionPool) Add(windowIndex int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.purgeLocked()

	if rec, ok := p.records[windowIndex]; ok {
		rec.LastUsed = p.now()
		return
	}

	if len(p.records) >= p.maxSize {
		var stalest *ConnectionRecord
		for _, rec := range p.records {
			if stalest == nil || rec.LastUsed.Before(stalest.LastUsed) {
				stalest = rec
			}
		}
		if stalest != nil {
			delete(p.records, stalest.WindowIndex)
		}
	}

	p.records[windowIndex] = &ConnectionRecord{
		ID:          uuid.NewString(),
		WindowIndex: windowIndex,
		LastUsed:    p.now(),
	}
}

// Len reports the number of live records after purging expired ones.
func (p *ConnectionPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.purgeLocked()
	return len(p.records)
}

// Clear drops every record. Always safe; the only cost is extra re-focus
// calls afterwards.
func (p *ConnectionPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = make(map[int]*ConnectionRecord)
}

// SetClock overrides the pool's time source. Tests only.
func (p *ConnectionPool) SetClock(now func() time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = now
}

func (p *ConnectionPool) purgeLocked() {
	cutoff := p.now().Add(-p.ttl)
	for idx, rec := range p.records {
		if rec.LastUsed.Before(cutoff) {
			delete(p.records, idx)
		}
	}
}
