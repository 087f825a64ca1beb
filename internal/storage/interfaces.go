package storage

import (
	"context"

	"doom-index/internal/domain"
)

// SnapshotStore provides access to market_snapshots storage.
type SnapshotStore interface {
	// Upsert stores a snapshot. A snapshot already present for the hour bucket
	// is kept unchanged and no error is returned.
	Upsert(ctx context.Context, s *domain.MarketSnapshot) error

	// GetByHourBucket retrieves the snapshot of an hour bucket. Returns ErrNotFound if not exists.
	GetByHourBucket(ctx context.Context, hourBucket string) (*domain.MarketSnapshot, error)
}

// PaintingStore provides access to paintings storage. Rows are immutable.
type PaintingStore interface {
	// Insert adds a new painting. Returns ErrDuplicateKey if the id or the dedup bucket exists.
	Insert(ctx context.Context, p *domain.Painting) error

	// GetByID retrieves a painting by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Painting, error)

	// GetByBucket retrieves the painting of a dedup bucket. Returns ErrNotFound if not exists.
	GetByBucket(ctx context.Context, bucket string) (*domain.Painting, error)

	// RecentSelections returns the token of every painting with ts_unix >= since,
	// newest first.
	RecentSelections(ctx context.Context, since int64) ([]RecentSelection, error)

	// List returns one keyset page of paintings.
	List(ctx context.Context, q ListQuery) (*ListPage, error)
}

// ScoreStore provides access to the candidate_scores ledger.
type ScoreStore interface {
	// InsertBulk appends scored candidates of one cycle.
	InsertBulk(ctx context.Context, scores []*domain.CandidateScore) error

	// GetByBucket retrieves the scores of a cycle, ordered by rank score DESC then token id ASC.
	GetByBucket(ctx context.Context, bucket string) ([]*domain.CandidateScore, error)
}

// RecentSelection is one past winner.
type RecentSelection struct {
	TokenID string
	TsUnix  int64
}
