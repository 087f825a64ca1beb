package storage

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"doom-index/internal/apperr"
	"doom-index/internal/domain"
)

// Page size bounds.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Direction is the listing order by (ts_unix, id).
type Direction string

const (
	Desc Direction = "desc"
	Asc  Direction = "asc"
)

// ParseDirection accepts "asc" or "desc"; empty means desc.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(s)) {
	case "", Desc:
		return Desc, nil
	case Asc:
		return Asc, nil
	default:
		return "", fmt.Errorf("%w: direction %q", ErrInvalidInput, s)
	}
}

// ListQuery selects one page of paintings.
type ListQuery struct {
	Limit     int       // clamped to [1, MaxListLimit]; 0 means DefaultListLimit
	Cursor    string    // opaque, from a previous ListPage.NextCursor
	From      *int64    // inclusive lower bound on ts_unix
	To        *int64    // inclusive upper bound on ts_unix
	Direction Direction // default desc
}

// ListPage is one page of paintings.
type ListPage struct {
	Items      []*domain.Painting
	HasMore    bool
	NextCursor string // set only when HasMore
}

// Cursor is the decoded keyset position.
type Cursor struct {
	TsUnix int64
	ID     string
}

// EncodeCursor returns base64url("<ts>:<id>").
func EncodeCursor(ts int64, id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(ts, 10) + ":" + id))
}

// DecodeCursor parses a cursor produced by EncodeCursor. Any (ts, id)
// round-trips, the empty id included.
func DecodeCursor(s string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return Cursor{}, apperr.Parsing(s, "cursor is not base64url", ErrInvalidInput)
	}
	tsPart, id, ok := strings.Cut(string(raw), ":")
	if !ok {
		return Cursor{}, apperr.Parsing(s, "cursor must be <ts>:<id>", ErrInvalidInput)
	}
	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return Cursor{}, apperr.Parsing(s, "cursor timestamp", ErrInvalidInput)
	}
	return Cursor{TsUnix: ts, ID: id}, nil
}

// Normalized is a validated ListQuery.
type Normalized struct {
	Limit     int
	Cursor    *Cursor
	From      *int64
	To        *int64
	Direction Direction
}

// Normalize clamps the limit, defaults the direction and decodes the cursor.
func (q ListQuery) Normalize() (Normalized, error) {
	n := Normalized{Limit: q.Limit, From: q.From, To: q.To, Direction: q.Direction}
	switch {
	case n.Limit == 0:
		n.Limit = DefaultListLimit
	case n.Limit < 1:
		n.Limit = 1
	case n.Limit > MaxListLimit:
		n.Limit = MaxListLimit
	}

	dir, err := ParseDirection(string(q.Direction))
	if err != nil {
		return Normalized{}, err
	}
	n.Direction = dir

	if q.Cursor != "" {
		c, err := DecodeCursor(q.Cursor)
		if err != nil {
			return Normalized{}, err
		}
		n.Cursor = &c
	}
	return n, nil
}

// After reports whether (ts, id) lies strictly past the cursor in direction d.
func (c Cursor) After(ts int64, id string, d Direction) bool {
	if d == Asc {
		return ts > c.TsUnix || (ts == c.TsUnix && id > c.ID)
	}
	return ts < c.TsUnix || (ts == c.TsUnix && id < c.ID)
}

// BuildPage trims rows fetched with limit+1 into a page.
func BuildPage(rows []*domain.Painting, limit int) *ListPage {
	page := &ListPage{Items: rows}
	if len(rows) > limit {
		page.Items = rows[:limit]
		page.HasMore = true
		last := page.Items[limit-1]
		page.NextCursor = EncodeCursor(last.TsUnix, last.ID)
	}
	if page.Items == nil {
		page.Items = []*domain.Painting{}
	}
	return page
}
