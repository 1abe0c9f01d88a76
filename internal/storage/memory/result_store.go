// Package memory keeps analysis records in-process for tests and dry runs.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/JakeFAU/siteprobe/internal/analysis"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("memory store closed")

// ResultStore implements analysis.ResultStore with a slice guarded by a mutex.
type ResultStore struct {
	mu          sync.RWMutex
	records     []analysis.Record
	nextID      int64
	initialized bool
	closed      bool
}

// NewResultStore constructs an empty ResultStore.
func NewResultStore() *ResultStore {
	return &ResultStore{nextID: 1}
}

// Init marks the store ready. Calling it again is a no-op.
func (s *ResultStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.initialized = true
	return nil
}

// Append stores a copy of record and returns its assigned id.
func (s *ResultStore) Append(_ context.Context, record analysis.Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	if !s.initialized {
		return 0, errors.New("memory store not initialized")
	}
	record = record.Clone()
	record.ID = s.nextID
	s.nextID++
	s.records = append(s.records, record)
	return record.ID, nil
}

// ListByURL returns copies of every record for rawURL in id order.
func (s *ResultStore) ListByURL(_ context.Context, rawURL string) ([]analysis.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make([]analysis.Record, 0)
	for _, rec := range s.records {
		if rec.URL == rawURL {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

// Len reports how many records have been appended.
func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close releases the store; later calls fail with ErrClosed.
func (s *ResultStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
