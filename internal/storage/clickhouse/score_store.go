package clickhouse

import (
	"context"
	"fmt"
	"time"

	"doom-index/internal/domain"
	"doom-index/internal/observability"
	"doom-index/internal/storage"
)

// ScoreStore implements storage.ScoreStore using ClickHouse.
// The table is a ReplacingMergeTree keyed by (bucket, token_id), so a
// re-inserted cycle collapses to one row per candidate.
type ScoreStore struct {
	conn *Conn
}

// NewScoreStore creates a new ScoreStore.
func NewScoreStore(conn *Conn) *ScoreStore {
	return &ScoreStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ScoreStore = (*ScoreStore)(nil)

// InsertBulk appends the scored candidates of one cycle in a single batch.
func (s *ScoreStore) InsertBulk(ctx context.Context, scores []*domain.CandidateScore) error {
	if len(scores) == 0 {
		return nil
	}
	for _, sc := range scores {
		if sc == nil || sc.Bucket == "" || sc.TokenID == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO candidate_scores (
			bucket, token_id, symbol, source,
			trend, impact, mood, final,
			penalty, rank_score, excluded, selected,
			market_cap_usd, scored_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, sc := range scores {
		err = batch.Append(
			sc.Bucket, sc.TokenID, sc.Symbol, string(sc.Source),
			sc.Trend, sc.Impact, sc.Mood, sc.Final,
			sc.Penalty, sc.RankScore, boolToUInt8(sc.Excluded), boolToUInt8(sc.Selected),
			sc.MarketCapUSD, sc.ScoredAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	start := time.Now()
	err = batch.Send()
	observability.RecordDBQuery("clickhouse", "insert_scores", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByBucket retrieves the scores of a cycle, ordered by rank score DESC then token id ASC.
func (s *ScoreStore) GetByBucket(ctx context.Context, bucket string) ([]*domain.CandidateScore, error) {
	query := `
		SELECT
			bucket, token_id, symbol, source,
			trend, impact, mood, final,
			penalty, rank_score, excluded, selected,
			market_cap_usd, scored_at
		FROM candidate_scores FINAL
		WHERE bucket = ?
		ORDER BY rank_score DESC, token_id ASC
	`

	rows, err := s.conn.Query(ctx, query, bucket)
	if err != nil {
		return nil, fmt.Errorf("query scores by bucket: %w", err)
	}
	defer rows.Close()

	var result []*domain.CandidateScore
	for rows.Next() {
		var sc domain.CandidateScore
		var source string
		var excluded, selected uint8
		if err := rows.Scan(
			&sc.Bucket, &sc.TokenID, &sc.Symbol, &source,
			&sc.Trend, &sc.Impact, &sc.Mood, &sc.Final,
			&sc.Penalty, &sc.RankScore, &excluded, &selected,
			&sc.MarketCapUSD, &sc.ScoredAt,
		); err != nil {
			return nil, fmt.Errorf("scan score row: %w", err)
		}
		sc.Source = domain.Source(source)
		sc.Excluded = excluded == 1
		sc.Selected = selected == 1
		result = append(result, &sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score rows: %w", err)
	}
	return result, nil
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
