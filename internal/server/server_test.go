package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doom-index/internal/apperr"
	"doom-index/internal/domain"
	"doom-index/internal/orchestrator"
	"doom-index/internal/storage/memory"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func seeded(t *testing.T, n int) *memory.PaintingStore {
	t.Helper()
	store := memory.NewPaintingStore()
	for i := 0; i < n; i++ {
		ts := int64(1763121600 + i*60)
		require.NoError(t, store.Insert(context.Background(), &domain.Painting{
			ID:           fmt.Sprintf("DOOM_2025111412%02d_abc12345_def45678901%d", i, i),
			Bucket:       fmt.Sprintf("2025-11-14T12:%02d", i),
			TsUnix:       ts,
			TokenID:      "pepe",
			VisualParams: `{"tokenId":"pepe"}`,
		}))
	}
	return store
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestHealth(t *testing.T) {
	s := New(Options{Paintings: memory.NewPaintingStore(), Logger: zerolog.Nop()})

	w := get(t, s.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetrics(t *testing.T) {
	s := New(Options{Paintings: memory.NewPaintingStore(), Logger: zerolog.Nop()})

	w := get(t, s.Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestListPaintings_Pagination(t *testing.T) {
	s := New(Options{Paintings: seeded(t, 5), Logger: zerolog.Nop()})

	w := get(t, s.Handler(), "/paintings?limit=2")
	require.Equal(t, http.StatusOK, w.Code)

	var page ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)
	assert.NotEmpty(t, page.NextCursor)
	assert.Greater(t, page.Items[0].TsUnix, page.Items[1].TsUnix)
	assert.JSONEq(t, `{"tokenId":"pepe"}`, string(page.Items[0].VisualParams))

	seen := map[string]bool{}
	for _, it := range page.Items {
		seen[it.ID] = true
	}
	cursor := page.NextCursor
	for cursor != "" {
		w = get(t, s.Handler(), "/paintings?limit=2&cursor="+cursor)
		require.Equal(t, http.StatusOK, w.Code)
		page = ListResponse{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
		for _, it := range page.Items {
			assert.False(t, seen[it.ID], "pages must be disjoint")
			seen[it.ID] = true
		}
		cursor = page.NextCursor
	}
	assert.Len(t, seen, 5)
}

func TestListPaintings_BadInput(t *testing.T) {
	s := New(Options{Paintings: seeded(t, 1), Logger: zerolog.Nop()})

	for _, target := range []string{
		"/paintings?limit=abc",
		"/paintings?direction=sideways",
		"/paintings?from=yesterday",
		"/paintings?cursor=%21%21%21",
	} {
		w := get(t, s.Handler(), target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestGetPainting(t *testing.T) {
	store := seeded(t, 1)
	s := New(Options{Paintings: store, Logger: zerolog.Nop()})

	w := get(t, s.Handler(), "/paintings/DOOM_202511141200_abc12345_def456789010")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(t, s.Handler(), "/paintings/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatus(t *testing.T) {
	tracker := NewTracker()
	s := New(Options{Paintings: memory.NewPaintingStore(), Tracker: tracker, Logger: zerolog.Nop()})
	at := time.Date(2025, 11, 14, 12, 0, 0, 0, time.UTC)

	tracker.Begin()
	tracker.Finish(&orchestrator.Result{Status: orchestrator.StatusGenerated, Bucket: "2025-11-14T12:00", PaintingID: "p1"}, nil, at)

	var st RunStatus
	w := get(t, s.Handler(), "/status")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.False(t, st.Running)
	assert.Equal(t, "generated", st.LastStatus)
	assert.Equal(t, "p1", st.LastPainting)
	require.NotNil(t, st.LastSuccess)
	assert.Equal(t, int64(1), st.Runs)

	tracker.Finish(nil, apperr.External("coingecko", 503, "/global", errors.New("unavailable")), at.Add(time.Hour))
	st = tracker.Snapshot()
	assert.Equal(t, "failed", st.LastStatus)
	assert.Equal(t, string(apperr.KindExternalAPI), st.LastErrKind)
	assert.Empty(t, st.LastPainting)
	assert.Equal(t, at, *st.LastSuccess)
}
