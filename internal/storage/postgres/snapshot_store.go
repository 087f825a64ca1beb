package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"doom-index/internal/domain"
	"doom-index/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Upsert stores a snapshot; an existing hour bucket is left unchanged.
func (s *SnapshotStore) Upsert(ctx context.Context, snap *domain.MarketSnapshot) error {
	if snap == nil || snap.HourBucket == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO market_snapshots (
			hour_bucket, total_market_cap_usd, total_volume_usd, market_cap_change_pct_24h,
			btc_dominance, eth_dominance, active_cryptocurrencies, markets,
			fear_greed_index, fear_greed_label, provider_updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (hour_bucket) DO NOTHING
	`

	_, err := s.pool.Exec(ctx, query,
		snap.HourBucket,
		snap.TotalMarketCapUSD,
		snap.TotalVolumeUSD,
		snap.MarketCapChangePct24h,
		snap.BTCDominance,
		snap.ETHDominance,
		snap.ActiveCryptocurrencies,
		snap.Markets,
		snap.FearGreedIndex,
		snap.FearGreedLabel,
		snap.ProviderUpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert market snapshot: %w", err)
	}
	return nil
}

// GetByHourBucket retrieves the snapshot of an hour bucket. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByHourBucket(ctx context.Context, hourBucket string) (*domain.MarketSnapshot, error) {
	query := `
		SELECT hour_bucket, total_market_cap_usd, total_volume_usd, market_cap_change_pct_24h,
			btc_dominance, eth_dominance, active_cryptocurrencies, markets,
			fear_greed_index, fear_greed_label, provider_updated_at, created_at
		FROM market_snapshots
		WHERE hour_bucket = $1
	`

	snap, err := scanSnapshot(s.pool.QueryRow(ctx, query, hourBucket))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot by hour bucket: %w", err)
	}
	return snap, nil
}

func scanSnapshot(row pgx.Row) (*domain.MarketSnapshot, error) {
	var m domain.MarketSnapshot
	err := row.Scan(
		&m.HourBucket,
		&m.TotalMarketCapUSD,
		&m.TotalVolumeUSD,
		&m.MarketCapChangePct24h,
		&m.BTCDominance,
		&m.ETHDominance,
		&m.ActiveCryptocurrencies,
		&m.Markets,
		&m.FearGreedIndex,
		&m.FearGreedLabel,
		&m.ProviderUpdatedAt,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.ProviderUpdatedAt = m.ProviderUpdatedAt.UTC()
	m.CreatedAt = m.CreatedAt.UTC()
	return &m, nil
}
