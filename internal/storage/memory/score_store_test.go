package memory

import (
	"context"
	"errors"
	"testing"

	"doom-index/internal/domain"
	"doom-index/internal/storage"
)

func TestScoreStore_InsertBulkAndGet(t *testing.T) {
	store := NewScoreStore()
	ctx := context.Background()

	scores := []*domain.CandidateScore{
		{Bucket: "b1", TokenID: "pepe", RankScore: 0.4},
		{Bucket: "b1", TokenID: "bonk", RankScore: 0.7, Selected: true},
		{Bucket: "b1", TokenID: "aave", RankScore: 0.4},
		{Bucket: "b2", TokenID: "sol", RankScore: 0.9},
	}
	if err := store.InsertBulk(ctx, scores); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByBucket(ctx, "b1")
	if err != nil {
		t.Fatalf("GetByBucket failed: %v", err)
	}
	want := []string{"bonk", "aave", "pepe"}
	if len(got) != len(want) {
		t.Fatalf("expected %d scores, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].TokenID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].TokenID, id)
		}
	}
}

func TestScoreStore_InvalidInput(t *testing.T) {
	store := NewScoreStore()
	err := store.InsertBulk(context.Background(), []*domain.CandidateScore{{Bucket: "b1"}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
