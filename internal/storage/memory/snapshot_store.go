package memory

import (
	"context"
	"sync"

	"doom-index/internal/domain"
	"doom-index/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.MarketSnapshot // keyed by hour_bucket
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[string]*domain.MarketSnapshot),
	}
}

// Upsert stores a snapshot; an existing hour bucket is left unchanged.
func (s *SnapshotStore) Upsert(_ context.Context, snap *domain.MarketSnapshot) error {
	if snap == nil || snap.HourBucket == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[snap.HourBucket]; exists {
		return nil
	}

	snapCopy := copySnapshot(snap)
	s.data[snap.HourBucket] = snapCopy
	return nil
}

// GetByHourBucket retrieves the snapshot of an hour bucket. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByHourBucket(_ context.Context, hourBucket string) (*domain.MarketSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.data[hourBucket]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copySnapshot(snap), nil
}

// Count returns the number of stored snapshots.
func (s *SnapshotStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func copySnapshot(in *domain.MarketSnapshot) *domain.MarketSnapshot {
	out := *in
	if in.FearGreedIndex != nil {
		v := *in.FearGreedIndex
		out.FearGreedIndex = &v
	}
	if in.FearGreedLabel != nil {
		v := *in.FearGreedLabel
		out.FearGreedLabel = &v
	}
	return &out
}

// Verify interface compliance at compile time.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)
