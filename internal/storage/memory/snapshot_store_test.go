package memory

import (
	"context"
	"errors"
	"testing"

	"doom-index/internal/domain"
	"doom-index/internal/storage"
)

func TestSnapshotStore_UpsertKeepsFirst(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	fg := 70
	first := &domain.MarketSnapshot{HourBucket: "2025-11-14T12:00", TotalMarketCapUSD: 3e12, FearGreedIndex: &fg}
	second := &domain.MarketSnapshot{HourBucket: "2025-11-14T12:00", TotalMarketCapUSD: 1}

	if err := store.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Upsert(ctx, second); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	got, err := store.GetByHourBucket(ctx, "2025-11-14T12:00")
	if err != nil {
		t.Fatalf("GetByHourBucket failed: %v", err)
	}
	if got.TotalMarketCapUSD != 3e12 {
		t.Errorf("TotalMarketCapUSD = %v, want first snapshot", got.TotalMarketCapUSD)
	}
	if got.FearGreedIndex == nil || *got.FearGreedIndex != 70 {
		t.Errorf("FearGreedIndex = %v, want 70", got.FearGreedIndex)
	}
	if store.Count() != 1 {
		t.Errorf("Count = %d, want 1", store.Count())
	}

	fg = 10
	again, _ := store.GetByHourBucket(ctx, "2025-11-14T12:00")
	if *again.FearGreedIndex != 70 {
		t.Error("stored snapshot shares caller pointer")
	}
}

func TestSnapshotStore_NotFoundAndInvalid(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	if _, err := store.GetByHourBucket(ctx, "2025-11-14T12:00"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.Upsert(ctx, &domain.MarketSnapshot{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
