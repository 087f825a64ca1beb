package memory

import (
	"context"
	"sort"
	"sync"

	"doom-index/internal/domain"
	"doom-index/internal/storage"
)

// PaintingStore is an in-memory implementation of storage.PaintingStore.
type PaintingStore struct {
	mu       sync.RWMutex
	data     map[string]*domain.Painting // keyed by id
	byBucket map[string]string           // bucket -> id
}

// NewPaintingStore creates a new in-memory painting store.
func NewPaintingStore() *PaintingStore {
	return &PaintingStore{
		data:     make(map[string]*domain.Painting),
		byBucket: make(map[string]string),
	}
}

// Insert adds a new painting. Returns ErrDuplicateKey if the id or bucket exists.
func (s *PaintingStore) Insert(_ context.Context, p *domain.Painting) error {
	if p == nil || p.ID == "" || p.Bucket == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.ID]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.byBucket[p.Bucket]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	paintingCopy := *p
	s.data[p.ID] = &paintingCopy
	s.byBucket[p.Bucket] = p.ID
	return nil
}

// GetByID retrieves a painting by id. Returns ErrNotFound if not exists.
func (s *PaintingStore) GetByID(_ context.Context, id string) (*domain.Painting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	paintingCopy := *p
	return &paintingCopy, nil
}

// GetByBucket retrieves the painting of a dedup bucket. Returns ErrNotFound if not exists.
func (s *PaintingStore) GetByBucket(_ context.Context, bucket string) (*domain.Painting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byBucket[bucket]
	if !exists {
		return nil, storage.ErrNotFound
	}
	paintingCopy := *s.data[id]
	return &paintingCopy, nil
}

// RecentSelections returns the tokens of paintings with ts_unix >= since, newest first.
func (s *PaintingStore) RecentSelections(_ context.Context, since int64) ([]storage.RecentSelection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []storage.RecentSelection
	for _, p := range s.data {
		if p.TsUnix >= since {
			result = append(result, storage.RecentSelection{TokenID: p.TokenID, TsUnix: p.TsUnix})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TsUnix != result[j].TsUnix {
			return result[i].TsUnix > result[j].TsUnix
		}
		return result[i].TokenID < result[j].TokenID
	})
	return result, nil
}

// List returns one keyset page ordered by (ts_unix, id).
func (s *PaintingStore) List(_ context.Context, q storage.ListQuery) (*storage.ListPage, error) {
	n, err := q.Normalize()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	var rows []*domain.Painting
	for _, p := range s.data {
		if n.From != nil && p.TsUnix < *n.From {
			continue
		}
		if n.To != nil && p.TsUnix > *n.To {
			continue
		}
		if n.Cursor != nil && !n.Cursor.After(p.TsUnix, p.ID, n.Direction) {
			continue
		}
		paintingCopy := *p
		rows = append(rows, &paintingCopy)
	}
	s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if n.Direction == storage.Asc {
			return a.TsUnix < b.TsUnix || (a.TsUnix == b.TsUnix && a.ID < b.ID)
		}
		return a.TsUnix > b.TsUnix || (a.TsUnix == b.TsUnix && a.ID > b.ID)
	})

	if len(rows) > n.Limit+1 {
		rows = rows[:n.Limit+1]
	}
	return storage.BuildPage(rows, n.Limit), nil
}

// Count returns the number of stored paintings.
func (s *PaintingStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Verify interface compliance at compile time.
var _ storage.PaintingStore = (*PaintingStore)(nil)
