package memory

import (
	"context"
	"sort"
	"sync"

	"doom-index/internal/domain"
	"doom-index/internal/storage"
)

// ScoreStore is an in-memory implementation of storage.ScoreStore.
type ScoreStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.CandidateScore // keyed by bucket
}

// NewScoreStore creates a new in-memory score ledger.
func NewScoreStore() *ScoreStore {
	return &ScoreStore{
		data: make(map[string][]*domain.CandidateScore),
	}
}

// InsertBulk appends scored candidates.
func (s *ScoreStore) InsertBulk(_ context.Context, scores []*domain.CandidateScore) error {
	for _, sc := range scores {
		if sc == nil || sc.Bucket == "" || sc.TokenID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sc := range scores {
		scoreCopy := *sc
		s.data[sc.Bucket] = append(s.data[sc.Bucket], &scoreCopy)
	}
	return nil
}

// GetByBucket retrieves the scores of a cycle, ordered by rank score DESC then token id ASC.
func (s *ScoreStore) GetByBucket(_ context.Context, bucket string) ([]*domain.CandidateScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.CandidateScore, 0, len(s.data[bucket]))
	for _, sc := range s.data[bucket] {
		scoreCopy := *sc
		result = append(result, &scoreCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].RankScore != result[j].RankScore {
			return result[i].RankScore > result[j].RankScore
		}
		return result[i].TokenID < result[j].TokenID
	})
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.ScoreStore = (*ScoreStore)(nil)
