// Package market fetches, caches and persists the global market snapshot of
// an hour bucket, and the market caps of the prompt basket.
package market

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"doom-index/internal/apperr"
	"doom-index/internal/domain"
	"doom-index/internal/observability"
	"doom-index/internal/storage"
)

// GlobalProvider returns market-wide aggregates.
type GlobalProvider interface {
	GetGlobalMarketData(ctx context.Context) (*domain.GlobalMarketData, error)
}

// SentimentProvider returns the Fear & Greed reading.
type SentimentProvider interface {
	GetIndex(ctx context.Context) (*domain.SentimentIndex, error)
}

// CapsProvider returns market caps by coin id.
type CapsProvider interface {
	GetMarketCaps(ctx context.Context, ids []string) (map[string]float64, error)
}

// SnapshotCache is a shared cache of snapshots by hour bucket. Get returns
// nil on a miss.
type SnapshotCache interface {
	Get(ctx context.Context, hourBucket string) (*domain.MarketSnapshot, error)
	Set(ctx context.Context, snap *domain.MarketSnapshot) error
}

// Timeouts bounds each provider call.
type Timeouts struct {
	Market    time.Duration
	Sentiment time.Duration
	Basket    time.Duration
	Storage   time.Duration
}

// Options configures the Service.
type Options struct {
	Global    GlobalProvider
	Sentiment SentimentProvider // optional
	Caps      CapsProvider
	Store     storage.SnapshotStore
	Cache     SnapshotCache // optional
	Timeouts  Timeouts
	Logger    zerolog.Logger
	Now       func() time.Time
}

// memoSize bounds the in-process memo. Only the current and previous
// hours are ever looked up.
const memoSize = 4

// Service is the market data service.
type Service struct {
	opts Options

	mu    sync.Mutex
	memo  map[string]*domain.MarketSnapshot
	order []string
}

// New creates a Service.
func New(opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.Logger = opts.Logger.With().Str("component", "market").Logger()
	return &Service{opts: opts, memo: make(map[string]*domain.MarketSnapshot)}
}

// FetchGlobalMarketData returns the snapshot for hourBucket. Lookup order is
// the in-process memo, the shared cache, the snapshot store, and finally the
// providers. Global data and sentiment are fetched concurrently; a sentiment
// failure leaves the index nil.
func (s *Service) FetchGlobalMarketData(ctx context.Context, hourBucket string) (*domain.MarketSnapshot, error) {
	if snap := s.memoGet(hourBucket); snap != nil {
		observability.RecordCacheLookup("memo", true)
		return snap, nil
	}
	observability.RecordCacheLookup("memo", false)

	if s.opts.Cache != nil {
		snap, err := s.opts.Cache.Get(ctx, hourBucket)
		if err != nil {
			s.opts.Logger.Warn().Err(err).Str("hour_bucket", hourBucket).Msg("snapshot cache read failed")
		} else if snap != nil {
			s.memoPut(snap)
			return copySnapshot(snap), nil
		}
	}

	if stored, err := s.FindByHourBucket(ctx, hourBucket); err != nil {
		s.opts.Logger.Warn().Err(err).Str("hour_bucket", hourBucket).Msg("snapshot store read failed")
	} else if stored != nil {
		s.remember(ctx, stored)
		return copySnapshot(stored), nil
	}

	snap, err := s.fetch(ctx, hourBucket)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, snap)
	return copySnapshot(snap), nil
}

func (s *Service) fetch(ctx context.Context, hourBucket string) (*domain.MarketSnapshot, error) {
	var (
		global *domain.GlobalMarketData
		senti  *domain.SentimentIndex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cctx, cancel := withTimeout(gctx, s.opts.Timeouts.Market)
		defer cancel()
		var err error
		global, err = s.opts.Global.GetGlobalMarketData(cctx)
		return err
	})
	if s.opts.Sentiment != nil {
		g.Go(func() error {
			cctx, cancel := withTimeout(gctx, s.opts.Timeouts.Sentiment)
			defer cancel()
			idx, err := s.opts.Sentiment.GetIndex(cctx)
			if err != nil {
				s.opts.Logger.Warn().
					Err(err).
					Str("error_kind", string(apperr.KindOf(err))).
					Msg("sentiment unavailable, continuing without index")
				return nil
			}
			senti = idx
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &domain.MarketSnapshot{
		HourBucket:             hourBucket,
		TotalMarketCapUSD:      global.TotalMarketCapUSD,
		TotalVolumeUSD:         global.TotalVolumeUSD,
		MarketCapChangePct24h:  global.MarketCapChangePct24h,
		BTCDominance:           global.BTCDominance,
		ETHDominance:           global.ETHDominance,
		ActiveCryptocurrencies: global.ActiveCryptocurrencies,
		Markets:                global.Markets,
		ProviderUpdatedAt:      global.UpdatedAt.UTC(),
		CreatedAt:              s.opts.Now().UTC(),
	}
	if senti != nil {
		v := senti.Value
		label := senti.Classification
		snap.FearGreedIndex = &v
		snap.FearGreedLabel = &label
	}
	return snap, nil
}

// StoreMarketSnapshot persists snap. An existing row for the hour bucket is
// kept unchanged.
func (s *Service) StoreMarketSnapshot(ctx context.Context, snap *domain.MarketSnapshot) error {
	cctx, cancel := withTimeout(ctx, s.opts.Timeouts.Storage)
	defer cancel()
	if err := s.opts.Store.Upsert(cctx, snap); err != nil {
		return apperr.Storage("upsert", snap.HourBucket, "store market snapshot", err)
	}
	return nil
}

// FindByHourBucket returns the persisted snapshot, or nil when none exists.
func (s *Service) FindByHourBucket(ctx context.Context, hourBucket string) (*domain.MarketSnapshot, error) {
	cctx, cancel := withTimeout(ctx, s.opts.Timeouts.Storage)
	defer cancel()
	snap, err := s.opts.Store.GetByHourBucket(cctx, hourBucket)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage("get", hourBucket, "find market snapshot", err)
	}
	return snap, nil
}

// FetchBasketMarketCaps returns the market caps of ids. Failures degrade to
// an empty map.
func (s *Service) FetchBasketMarketCaps(ctx context.Context, ids []string) map[string]float64 {
	cctx, cancel := withTimeout(ctx, s.opts.Timeouts.Basket)
	defer cancel()
	caps, err := s.opts.Caps.GetMarketCaps(cctx, ids)
	if err != nil {
		s.opts.Logger.Warn().
			Err(err).
			Str("error_kind", string(apperr.KindOf(err))).
			Msg("basket market caps unavailable, using minimum weights")
		return map[string]float64{}
	}
	return caps
}

func (s *Service) remember(ctx context.Context, snap *domain.MarketSnapshot) {
	s.memoPut(snap)
	if s.opts.Cache == nil {
		return
	}
	if err := s.opts.Cache.Set(ctx, snap); err != nil {
		s.opts.Logger.Warn().Err(err).Str("hour_bucket", snap.HourBucket).Msg("snapshot cache write failed")
	}
}

func (s *Service) memoGet(hourBucket string) *domain.MarketSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap, ok := s.memo[hourBucket]; ok {
		return copySnapshot(snap)
	}
	return nil
}

func (s *Service) memoPut(snap *domain.MarketSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.memo[snap.HourBucket]; !ok {
		s.order = append(s.order, snap.HourBucket)
	}
	s.memo[snap.HourBucket] = copySnapshot(snap)
	for len(s.order) > memoSize {
		delete(s.memo, s.order[0])
		s.order = s.order[1:]
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func copySnapshot(in *domain.MarketSnapshot) *domain.MarketSnapshot {
	out := *in
	if in.FearGreedIndex != nil {
		v := *in.FearGreedIndex
		out.FearGreedIndex = &v
	}
	if in.FearGreedLabel != nil {
		v := *in.FearGreedLabel
		out.FearGreedLabel = &v
	}
	return &out
}
