package store

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/collabhq/deltacollab/delta"
)

type docRecord struct {
	info    DocumentInfo
	history []delta.Delta
}

// MemoryStore is an in-memory implementation of DocumentStore.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*docRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*docRecord)}
}

func (s *MemoryStore) Create(_ context.Context, id string, content delta.Delta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[id]; exists {
		return errors.Errorf("document %q already exists", id)
	}
	now := time.Now()
	s.docs[id] = &docRecord{
		info: DocumentInfo{
			ID:        id,
			Content:   content,
			Version:   0,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*DocumentInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.docs[id]
	if !ok {
		return nil, errors.Errorf("document %q not found", id)
	}
	info := rec.info
	return &info, nil
}

func (s *MemoryStore) List(_ context.Context) ([]DocumentInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]DocumentInfo, 0, len(s.docs))
	for _, rec := range s.docs {
		result = append(result, rec.info)
	}
	return result, nil
}

// ApplyOperation composes op onto the document's stored content, appends op
// to history, and returns the resulting content and version. The store —
// not the caller — owns the compose step, so a base-length mismatch against
// what's actually on record is caught here rather than silently persisted.
func (s *MemoryStore) ApplyOperation(_ context.Context, id string, op delta.Delta) (delta.Delta, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.docs[id]
	if !ok {
		return delta.Delta{}, 0, errors.Errorf("document %q not found", id)
	}
	if op.BaseLength() != rec.info.Content.TargetLength() {
		return delta.Delta{}, 0, errors.Errorf(
			"operation base length %d does not match document %q length %d",
			op.BaseLength(), id, rec.info.Content.TargetLength())
	}
	composed, err := delta.Compose(rec.info.Content, op)
	if err != nil {
		return delta.Delta{}, 0, errors.Wrapf(err, "compose operation onto document %q", id)
	}

	rec.history = append(rec.history, op)
	rec.info.Content = composed
	rec.info.Version++
	rec.info.UpdatedAt = time.Now()
	return composed, rec.info.Version, nil
}

func (s *MemoryStore) GetOperations(_ context.Context, id string, fromVersion int) ([]delta.Delta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.docs[id]
	if !ok {
		return nil, errors.Errorf("document %q not found", id)
	}
	if fromVersion < 0 || fromVersion > len(rec.history) {
		return nil, errors.Errorf("invalid version %d", fromVersion)
	}
	ops := make([]delta.Delta, len(rec.history)-fromVersion)
	copy(ops, rec.history[fromVersion:])
	return ops, nil
}
