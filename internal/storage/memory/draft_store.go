package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/roof-estimate/internal/blog"
)

// DraftStore records draft metadata in insertion order.
type DraftStore struct {
	mu      sync.RWMutex
	records []blog.DraftRecord
}

// NewDraftStore constructs an empty DraftStore.
func NewDraftStore() *DraftStore {
	return &DraftStore{}
}

// SaveDraft appends a record.
func (s *DraftStore) SaveDraft(_ context.Context, record blog.DraftRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// Drafts returns a copy of every saved record.
func (s *DraftStore) Drafts() []blog.DraftRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]blog.DraftRecord, len(s.records))
	copy(out, s.records)
	return out
}
