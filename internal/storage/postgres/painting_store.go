package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"doom-index/internal/domain"
	"doom-index/internal/observability"
	"doom-index/internal/storage"
)

// PaintingStore implements storage.PaintingStore using PostgreSQL.
type PaintingStore struct {
	pool *Pool
}

// NewPaintingStore creates a new PaintingStore.
func NewPaintingStore(pool *Pool) *PaintingStore {
	return &PaintingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PaintingStore = (*PaintingStore)(nil)

const paintingColumns = `id, ts, ts_unix, minute_bucket, hour_bucket, bucket, token_id,
	params_hash, seed, object_key, image_url, file_size, visual_params::text,
	prompt, negative, created_at`

// Insert adds a new painting. Returns ErrDuplicateKey if the id or bucket exists.
func (s *PaintingStore) Insert(ctx context.Context, p *domain.Painting) error {
	if p == nil || p.ID == "" || p.Bucket == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO paintings (
			id, ts, ts_unix, minute_bucket, hour_bucket, bucket, token_id,
			params_hash, seed, object_key, image_url, file_size, visual_params,
			prompt, negative, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::jsonb, $14, $15, $16)
	`

	visual := p.VisualParams
	if visual == "" {
		visual = "{}"
	}

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		p.ID,
		p.Timestamp,
		p.TsUnix,
		p.MinuteBucket,
		p.HourBucket,
		p.Bucket,
		p.TokenID,
		p.ParamsHash,
		p.Seed,
		p.ObjectKey,
		p.ImageURL,
		p.FileSize,
		visual,
		p.Prompt,
		p.Negative,
		p.CreatedAt,
	)
	if constraint, dup := duplicateConstraint(err); dup {
		observability.RecordDBQuery("postgres", "insert_painting", time.Since(start).Seconds(), nil)
		return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, constraint)
	}
	observability.RecordDBQuery("postgres", "insert_painting", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("insert painting: %w", err)
	}
	return nil
}

// GetByID retrieves a painting by id. Returns ErrNotFound if not exists.
func (s *PaintingStore) GetByID(ctx context.Context, id string) (*domain.Painting, error) {
	query := `SELECT ` + paintingColumns + ` FROM paintings WHERE id = $1`

	p, err := scanPainting(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get painting by id: %w", err)
	}
	return p, nil
}

// GetByBucket retrieves the painting of a dedup bucket. Returns ErrNotFound if not exists.
func (s *PaintingStore) GetByBucket(ctx context.Context, bucket string) (*domain.Painting, error) {
	query := `SELECT ` + paintingColumns + ` FROM paintings WHERE bucket = $1`

	p, err := scanPainting(s.pool.QueryRow(ctx, query, bucket))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get painting by bucket: %w", err)
	}
	return p, nil
}

// RecentSelections returns the tokens of paintings with ts_unix >= since, newest first.
func (s *PaintingStore) RecentSelections(ctx context.Context, since int64) ([]storage.RecentSelection, error) {
	query := `
		SELECT token_id, ts_unix
		FROM paintings
		WHERE ts_unix >= $1
		ORDER BY ts_unix DESC, token_id ASC
	`

	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("get recent selections: %w", err)
	}
	defer rows.Close()

	var result []storage.RecentSelection
	for rows.Next() {
		var r storage.RecentSelection
		if err := rows.Scan(&r.TokenID, &r.TsUnix); err != nil {
			return nil, fmt.Errorf("scan recent selection: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent selections: %w", err)
	}
	return result, nil
}

// List returns one keyset page ordered by (ts_unix, id).
func (s *PaintingStore) List(ctx context.Context, q storage.ListQuery) (*storage.ListPage, error) {
	n, err := q.Normalize()
	if err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if n.From != nil {
		where = append(where, "ts_unix >= "+arg(*n.From))
	}
	if n.To != nil {
		where = append(where, "ts_unix <= "+arg(*n.To))
	}
	order := "ts_unix DESC, id DESC"
	if n.Cursor != nil {
		cmp := "<"
		if n.Direction == storage.Asc {
			cmp = ">"
		}
		where = append(where, fmt.Sprintf("(ts_unix, id) %s (%s, %s)", cmp, arg(n.Cursor.TsUnix), arg(n.Cursor.ID)))
	}
	if n.Direction == storage.Asc {
		order = "ts_unix ASC, id ASC"
	}

	query := `SELECT ` + paintingColumns + ` FROM paintings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + order + " LIMIT " + arg(n.Limit+1)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list paintings: %w", err)
	}
	defer rows.Close()

	var result []*domain.Painting
	for rows.Next() {
		p, err := scanPainting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan painting row: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate painting rows: %w", err)
	}

	return storage.BuildPage(result, n.Limit), nil
}

func scanPainting(row pgx.Row) (*domain.Painting, error) {
	var p domain.Painting
	err := row.Scan(
		&p.ID,
		&p.Timestamp,
		&p.TsUnix,
		&p.MinuteBucket,
		&p.HourBucket,
		&p.Bucket,
		&p.TokenID,
		&p.ParamsHash,
		&p.Seed,
		&p.ObjectKey,
		&p.ImageURL,
		&p.FileSize,
		&p.VisualParams,
		&p.Prompt,
		&p.Negative,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
