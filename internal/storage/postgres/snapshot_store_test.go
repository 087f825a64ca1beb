package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"doom-index/internal/domain"
	"doom-index/internal/storage"
)

func TestSnapshotStore_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSnapshotStore(pool)
	ctx := context.Background()

	updated := time.Date(2025, 11, 14, 12, 5, 0, 0, time.UTC)
	snap := &domain.MarketSnapshot{
		HourBucket:             "2025-11-14T12:00",
		TotalMarketCapUSD:      3.2e12,
		TotalVolumeUSD:         1.1e11,
		MarketCapChangePct24h:  -2.4,
		BTCDominance:           57.1,
		ETHDominance:           12.3,
		ActiveCryptocurrencies: 17000,
		Markets:                1200,
		FearGreedIndex:         ptr(22),
		FearGreedLabel:         ptr("Extreme Fear"),
		ProviderUpdatedAt:      updated,
	}

	if err := store.Upsert(ctx, snap); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	// second upsert for the same hour keeps the first row
	other := *snap
	other.TotalMarketCapUSD = 1
	if err := store.Upsert(ctx, &other); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	got, err := store.GetByHourBucket(ctx, "2025-11-14T12:00")
	if err != nil {
		t.Fatalf("GetByHourBucket failed: %v", err)
	}
	if got.TotalMarketCapUSD != 3.2e12 {
		t.Errorf("TotalMarketCapUSD = %v, want 3.2e12", got.TotalMarketCapUSD)
	}
	if got.FearGreedIndex == nil || *got.FearGreedIndex != 22 {
		t.Errorf("FearGreedIndex = %v, want 22", got.FearGreedIndex)
	}
	if !got.ProviderUpdatedAt.Equal(updated) {
		t.Errorf("ProviderUpdatedAt = %v, want %v", got.ProviderUpdatedAt, updated)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not populated")
	}
}

func TestSnapshotStore_NullSentiment(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSnapshotStore(pool)
	ctx := context.Background()

	if err := store.Upsert(ctx, &domain.MarketSnapshot{HourBucket: "2025-11-14T13:00", ProviderUpdatedAt: time.Now()}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	got, err := store.GetByHourBucket(ctx, "2025-11-14T13:00")
	if err != nil {
		t.Fatalf("GetByHourBucket failed: %v", err)
	}
	if got.FearGreedIndex != nil || got.FearGreedLabel != nil {
		t.Errorf("expected null sentiment, got %v/%v", got.FearGreedIndex, got.FearGreedLabel)
	}

	if _, err := store.GetByHourBucket(ctx, "1999-01-01T00:00"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
