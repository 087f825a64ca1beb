// Package selection picks the representative token of a generation cycle.
package selection

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"doom-index/internal/apperr"
	"doom-index/internal/classify"
	"doom-index/internal/domain"
	"doom-index/internal/observability"
	"doom-index/internal/scoring"
	"doom-index/internal/storage"
)

// CandidateSource supplies token candidates.
type CandidateSource interface {
	GetTrendingCandidates(ctx context.Context, limit int) ([]domain.TokenCandidate, error)
	GetCandidatesByIDs(ctx context.Context, ids []string) ([]domain.TokenCandidate, error)
}

// MarketReader supplies the hour bucket snapshot the climate is derived from.
type MarketReader interface {
	FetchGlobalMarketData(ctx context.Context, hourBucket string) (*domain.MarketSnapshot, error)
}

// HistoryReader supplies past winners.
type HistoryReader interface {
	RecentSelections(ctx context.Context, since int64) ([]storage.RecentSelection, error)
}

// ForcedToken is an operator allow-list entry.
type ForcedToken struct {
	ID       string
	Priority int
}

// Options configures the Service.
type Options struct {
	Candidates     CandidateSource
	Market         MarketReader
	History        HistoryReader
	Scores         storage.ScoreStore // optional ledger
	Scorer         *scoring.Scorer
	Forced         []ForcedToken
	TrendingLimit  int
	RecencyWindow  time.Duration
	RecencyPenalty float64
	Timeout        time.Duration // candidate fetch
	Logger         zerolog.Logger
	Now            func() time.Time
}

// Service is the token selection service.
type Service struct {
	opts Options
}

// New creates a Service.
func New(opts Options) *Service {
	if opts.Scorer == nil {
		opts.Scorer = scoring.New(scoring.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TrendingLimit <= 0 {
		opts.TrendingLimit = 15
	}
	opts.Logger = opts.Logger.With().Str("component", "selection").Logger()
	return &Service{opts: opts}
}

// Select returns the winning candidate for bucket.
func (s *Service) Select(ctx context.Context, bucket, hourBucket string) (*domain.SelectedToken, error) {
	candidates, err := s.fetchCandidates(ctx)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, apperr.External("candidates", 0, "no token candidates", nil)
	}

	snap, err := s.opts.Market.FetchGlobalMarketData(ctx, hourBucket)
	if err != nil {
		return nil, err
	}
	climate := classify.ClassifyMarketClimate(*snap)

	now := s.opts.Now().UTC()
	recent := s.recentSelections(ctx, now)

	ranked := Rank(candidates, climate, s.opts.Scorer, recent, s.opts.RecencyPenalty)
	winner := ranked[0]
	if winner.Score.Excluded {
		return nil, apperr.External("candidates", 0, "every candidate was excluded", nil)
	}
	ranked[0].Score.Selected = true

	s.record(ctx, bucket, now, ranked)
	observability.RecordSelection(len(ranked), winner.Candidate.Source.String())

	s.opts.Logger.Info().
		Str("bucket", bucket).
		Str("token_id", winner.Candidate.ID).
		Str("climate", string(climate)).
		Float64("final_score", winner.Score.Final).
		Float64("rank_score", winner.Score.RankScore).
		Int("candidates", len(ranked)).
		Msg("token selected")

	return &domain.SelectedToken{
		TokenCandidate: winner.Candidate,
		Scores: domain.Scores{
			Trend:  winner.Score.Trend,
			Impact: winner.Score.Impact,
			Mood:   winner.Score.Mood,
			Final:  winner.Score.Final,
		},
	}, nil
}

func (s *Service) fetchCandidates(ctx context.Context) ([]domain.TokenCandidate, error) {
	cctx := ctx
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	var (
		candidates []domain.TokenCandidate
		err        error
	)
	if len(s.opts.Forced) > 0 {
		ids := make([]string, len(s.opts.Forced))
		priority := make(map[string]int, len(s.opts.Forced))
		for i, f := range s.opts.Forced {
			ids[i] = f.ID
			priority[f.ID] = f.Priority
		}
		candidates, err = s.opts.Candidates.GetCandidatesByIDs(cctx, ids)
		for i := range candidates {
			p := priority[candidates[i].ID]
			candidates[i].ForcePriority = &p
			candidates[i].Source = domain.SourceForced
		}
	} else {
		candidates, err = s.opts.Candidates.GetTrendingCandidates(cctx, s.opts.TrendingLimit)
	}
	if err != nil {
		if apperr.KindOf(err) == apperr.KindExternalAPI {
			return nil, err
		}
		return nil, apperr.External("candidates", 0, "fetch candidates", err)
	}
	return dedupe(candidates), nil
}

func (s *Service) recentSelections(ctx context.Context, now time.Time) []storage.RecentSelection {
	if s.opts.History == nil || s.opts.RecencyWindow <= 0 {
		return nil
	}
	since := now.Add(-s.opts.RecencyWindow).Unix()
	recent, err := s.opts.History.RecentSelections(ctx, since)
	if err != nil {
		s.opts.Logger.Warn().Err(err).Msg("recent selections unavailable, recency policy skipped")
		return nil
	}
	return recent
}

func (s *Service) record(ctx context.Context, bucket string, now time.Time, ranked []Ranked) {
	if s.opts.Scores == nil {
		return
	}
	rows := make([]*domain.CandidateScore, len(ranked))
	for i := range ranked {
		row := ranked[i].Score
		row.Bucket = bucket
		row.ScoredAt = now.Unix()
		rows[i] = &row
	}
	if err := s.opts.Scores.InsertBulk(ctx, rows); err != nil {
		s.opts.Logger.Warn().Err(err).Str("bucket", bucket).Msg("candidate score ledger write failed")
	}
}

func dedupe(in []domain.TokenCandidate) []domain.TokenCandidate {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, c := range in {
		if c.ID == "" || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}
