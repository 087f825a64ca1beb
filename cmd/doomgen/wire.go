package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"doom-index/internal/blob"
	"doom-index/internal/cache"
	"doom-index/internal/coingecko"
	"doom-index/internal/config"
	"doom-index/internal/events"
	"doom-index/internal/gemini"
	"doom-index/internal/httpclient"
	"doom-index/internal/imagegen"
	"doom-index/internal/logging"
	"doom-index/internal/market"
	"doom-index/internal/orchestrator"
	"doom-index/internal/prompt"
	"doom-index/internal/scoring"
	"doom-index/internal/selection"
	"doom-index/internal/sentiment"
	"doom-index/internal/storage"
	chstore "doom-index/internal/storage/clickhouse"
	"doom-index/internal/storage/memory"
	pgstore "doom-index/internal/storage/postgres"
)

// stores holds the persistence layer.
type stores struct {
	snapshots storage.SnapshotStore
	paintings storage.PaintingStore
	scores    storage.ScoreStore
}

// app holds every wired component and the cleanups to run on exit.
type app struct {
	stores       *stores
	orchestrator *orchestrator.Orchestrator
	closers      []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// openStores picks Postgres and ClickHouse when DSNs are configured and
// in-memory stores otherwise.
func openStores(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*stores, func(), error) {
	s := &stores{}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Postgres.DSN == "" {
		logger.Warn().Msg("postgres dsn not set, using in-memory snapshot and painting stores")
		s.snapshots = memory.NewSnapshotStore()
		s.paintings = memory.NewPaintingStore()
	} else {
		pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		s.snapshots = pgstore.NewSnapshotStore(pool)
		s.paintings = pgstore.NewPaintingStore(pool)
	}

	if cfg.ClickHouse.DSN == "" {
		s.scores = memory.NewScoreStore()
	} else {
		conn, err := chstore.NewConn(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		closers = append(closers, func() { _ = conn.Close() })
		s.scores = chstore.NewScoreStore(conn)
	}

	return s, cleanup, nil
}

func openBlobStore(cfg config.BlobConfig) (blob.Store, error) {
	switch cfg.Driver {
	case "s3":
		return blob.NewS3Store(blob.S3Options{
			Endpoint:      cfg.Endpoint,
			Region:        cfg.Region,
			Bucket:        cfg.Bucket,
			AccessKey:     cfg.AccessKey,
			SecretKey:     cfg.SecretKey,
			UseSSL:        cfg.UseSSL,
			PublicBaseURL: cfg.PublicBaseURL,
		})
	case "fs":
		return blob.NewFSStore(cfg.Dir, cfg.PublicBaseURL)
	default:
		return blob.NewMemoryStore(cfg.PublicBaseURL), nil
	}
}

func promptConfig(cfg config.PromptConfig) prompt.Config {
	pc := prompt.DefaultConfig()
	pc.MinWeight = cfg.MinWeight
	pc.MaxWeight = cfg.MaxWeight
	pc.Exponent = cfg.Exponent
	if len(cfg.Tokens) > 0 {
		pc.Tokens = make([]prompt.Token, 0, len(cfg.Tokens))
		for _, t := range cfg.Tokens {
			pc.Tokens = append(pc.Tokens, prompt.Token{ID: t.ID, Phrase: t.Phrase})
		}
	}
	return pc
}

// buildApp wires the full generation stack.
func buildApp(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	st, closeStores, err := openStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.stores = st
	a.closers = append(a.closers, closeStores)

	blobs, err := openBlobStore(cfg.Blob)
	if err != nil {
		return nil, err
	}

	cg := coingecko.New(httpclient.New(coingecko.ProviderName, cfg.CoinGecko.BaseURL,
		httpclient.WithHeader(coingecko.APIKeyHeader(cfg.CoinGecko.BaseURL), cfg.CoinGecko.APIKey),
		httpclient.WithRateLimit(cfg.CoinGecko.RPS, 1),
		httpclient.WithMaxAttempts(cfg.CoinGecko.MaxAttempts),
		httpclient.WithLogger(logging.Component(logger, coingecko.ProviderName)),
	),
		coingecko.WithTagCategories(cfg.CoinGecko.TagCategories),
		coingecko.WithLogger(logging.Component(logger, coingecko.ProviderName)),
	)
	fng := sentiment.New(httpclient.New(sentiment.ProviderName, cfg.Sentiment.BaseURL,
		httpclient.WithLogger(logging.Component(logger, sentiment.ProviderName)),
	))

	marketOpts := market.Options{
		Global:    cg,
		Sentiment: fng,
		Caps:      cg,
		Store:     st.snapshots,
		Timeouts: market.Timeouts{
			Market:    cfg.Timeouts.Market,
			Sentiment: cfg.Timeouts.Sentiment,
			Basket:    cfg.Timeouts.Basket,
			Storage:   cfg.Timeouts.Storage,
		},
		Logger: logger,
	}

	var lease orchestrator.Lease
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewClient(ctx, cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closeRedis(rdb))
		marketOpts.Cache = cache.NewSnapshotCache(rdb, cfg.Redis.SnapshotTTL)
		lease = cache.NewLease(rdb, cfg.Generation.LeaseTTL)
	} else {
		logger.Info().Msg("redis addr not set, snapshot cache and bucket lease disabled")
	}
	marketSvc := market.New(marketOpts)

	forced := make([]selection.ForcedToken, 0, len(cfg.Selection.ForcedTokens))
	for _, ft := range cfg.Selection.ForcedTokens {
		forced = append(forced, selection.ForcedToken{ID: ft.ID, Priority: ft.Priority})
	}
	selector := selection.New(selection.Options{
		Candidates: cg,
		Market:     marketSvc,
		History:    st.paintings,
		Scores:     st.scores,
		Scorer: scoring.New(scoring.Config{
			Change24hCeiling: cfg.Scoring.Change24hCeiling,
			Change7dCeiling:  cfg.Scoring.Change7dCeiling,
		}),
		Forced:         forced,
		TrendingLimit:  cfg.Selection.TrendingLimit,
		RecencyWindow:  cfg.Selection.RecencyWindow,
		RecencyPenalty: cfg.Selection.RecencyPenalty,
		Timeout:        cfg.Timeouts.Candidates,
		Logger:         logger,
	})

	geminiOpts := gemini.Options{
		APIKey:     cfg.Gemini.APIKey,
		ImageModel: cfg.Gemini.ImageModel,
		TextModel:  cfg.Gemini.TextModel,
	}
	genaiClient, err := gemini.NewClient(ctx, geminiOpts)
	if err != nil {
		return nil, err
	}

	pc := promptConfig(cfg.Prompt)
	images := imagegen.New(imagegen.Options{
		Provider: gemini.NewImageGenerator(genaiClient, geminiOpts, logger),
		Prompt:   pc,
		Width:    cfg.Prompt.Width,
		Height:   cfg.Prompt.Height,
		Format:   cfg.Prompt.Format,
		Timeout:  cfg.Timeouts.Image,
		Logger:   logger,
	})

	var enricher orchestrator.Enricher
	if cfg.Generation.EnrichTokens {
		enricher = gemini.NewEnricher(gemini.NewJSONGenerator(genaiClient, geminiOpts))
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		a.closers = append(a.closers, func() {
			if err := kp.Close(); err != nil {
				logger.Warn().Err(err).Msg("close kafka publisher")
			}
		})
		publisher = kp
	}

	basket := make([]string, 0, len(pc.Tokens))
	for _, t := range pc.Tokens {
		basket = append(basket, t.ID)
	}

	a.orchestrator = orchestrator.New(orchestrator.Options{
		Selector:    selector,
		Market:      marketSvc,
		Images:      images,
		Paintings:   st.paintings,
		Blobs:       blobs,
		Lease:       lease,
		Enricher:    enricher,
		Events:      publisher,
		Granularity: cfg.Granularity(),
		BasketIDs:   basket,
		Timeouts: orchestrator.Timeouts{
			Storage:    cfg.Timeouts.Storage,
			Enrichment: cfg.Timeouts.Enrichment,
		},
		Logger: logger,
	})

	ok = true
	return a, nil
}

func closeRedis(rdb *redis.Client) func() {
	return func() { _ = rdb.Close() }
}
