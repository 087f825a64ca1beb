package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doom-index/internal/domain"
	"doom-index/internal/storage"
)

func testPainting(i int, ts int64) *domain.Painting {
	return &domain.Painting{
		ID:           fmt.Sprintf("DOOM_2025111412%02d_abc1234%d_def45678901%d", i%60, i%10, i%10),
		Timestamp:    "2025-11-14T12:00:00Z",
		TsUnix:       ts,
		MinuteBucket: fmt.Sprintf("2025-11-14T12:%02d", i%60),
		HourBucket:   "2025-11-14T12:00",
		Bucket:       fmt.Sprintf("bucket-%d", i),
		TokenID:      fmt.Sprintf("token-%d", i%3),
		ParamsHash:   fmt.Sprintf("abc1234%d", i%10),
		Seed:         fmt.Sprintf("def45678901%d", i%10),
		ObjectKey:    "images/2025/11/14/x.webp",
		ImageURL:     "https://cdn.example/x.webp",
		FileSize:     1024,
		VisualParams: `{"tokenId":"solana"}`,
		Prompt:       "prompt",
		Negative:     "negative",
		CreatedAt:    ts,
	}
}

func TestPaintingStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPaintingStore(pool)
	ctx := context.Background()

	p := testPainting(1, 1731587640)
	require.NoError(t, store.Insert(ctx, p))

	got, err := store.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Bucket, got.Bucket)
	assert.Equal(t, p.FileSize, got.FileSize)
	assert.JSONEq(t, p.VisualParams, got.VisualParams)

	got, err = store.GetByBucket(ctx, p.Bucket)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = store.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestPaintingStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPaintingStore(pool)
	ctx := context.Background()

	p := testPainting(1, 100)
	require.NoError(t, store.Insert(ctx, p))

	err := store.Insert(ctx, p)
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey), "duplicate id: got %v", err)

	sameBucket := testPainting(2, 200)
	sameBucket.Bucket = p.Bucket
	err = store.Insert(ctx, sameBucket)
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey), "duplicate bucket: got %v", err)
}

func TestPaintingStore_ListPagination(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPaintingStore(pool)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		require.NoError(t, store.Insert(ctx, testPainting(i, int64(1000+i/2))))
	}

	var ids []string
	cursor := ""
	for {
		page, err := store.List(ctx, storage.ListQuery{Limit: 3, Cursor: cursor})
		require.NoError(t, err)
		for _, p := range page.Items {
			ids = append(ids, p.ID)
		}
		assert.Equal(t, page.HasMore, page.NextCursor != "")
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}
	require.Len(t, ids, 7)

	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "id %s returned twice", id)
		seen[id] = true
	}

	from, to := int64(1001), int64(1002)
	page, err := store.List(ctx, storage.ListQuery{Direction: storage.Asc, From: &from, To: &to, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 4)
	assert.Equal(t, int64(1001), page.Items[0].TsUnix)
	assert.False(t, page.HasMore)
}

func TestPaintingStore_RecentSelections(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPaintingStore(pool)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, store.Insert(ctx, testPainting(i, int64(100*i))))
	}

	got, err := store.RecentSelections(ctx, 150)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(300), got[0].TsUnix)
	assert.Equal(t, "token-0", got[0].TokenID)
}
