// Package coingecko fetches trending candidates, global market data and
// market caps from the CoinGecko v3 API.
package coingecko

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"doom-index/internal/apperr"
	"doom-index/internal/domain"
	"doom-index/internal/httpclient"
)

// ProviderName identifies CoinGecko in errors and metrics.
const ProviderName = "coingecko"

// Client is a CoinGecko v3 client.
type Client struct {
	http       *httpclient.Client
	categories []string
	logger     zerolog.Logger
}

// Option configures Client.
type Option func(*Client)

// WithTagCategories sets the CoinGecko category ids candidates are tagged
// with. Each id costs one extra /coins/markets call per candidate fetch.
func WithTagCategories(ids []string) Option {
	return func(c *Client) {
		c.categories = ids
	}
}

// WithLogger sets the logger used for degraded tagging.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client on top of a configured httpclient.Client.
func New(http *httpclient.Client, opts ...Option) *Client {
	c := &Client{http: http, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIKeyHeader returns the header name CoinGecko expects for baseURL.
func APIKeyHeader(baseURL string) string {
	if strings.Contains(baseURL, "pro-api.coingecko.com") {
		return "x-cg-pro-api-key"
	}
	return "x-cg-demo-api-key"
}

// GetTrendingCandidates returns up to limit trending coins, enriched with
// market data. TrendingRank is the 1-based trending position.
func (c *Client) GetTrendingCandidates(ctx context.Context, limit int) ([]domain.TokenCandidate, error) {
	var trending trendingResponse
	if err := c.http.GetJSON(ctx, "/search/trending", nil, &trending); err != nil {
		return nil, err
	}

	ranks := make(map[string]int)
	var ids []string
	for i, coin := range trending.Coins {
		if limit > 0 && len(ids) >= limit {
			break
		}
		if coin.Item.ID == "" {
			continue
		}
		if _, dup := ranks[coin.Item.ID]; dup {
			continue
		}
		ranks[coin.Item.ID] = i + 1
		ids = append(ids, coin.Item.ID)
	}
	if len(ids) == 0 {
		return nil, apperr.External(ProviderName, 0, "trending list is empty", nil)
	}

	markets, err := c.markets(ctx, ids, "")
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.TokenCandidate, 0, len(markets))
	for _, m := range markets {
		cand := toCandidate(m, domain.SourceTrending)
		if r, ok := ranks[m.ID]; ok {
			rank := r
			cand.TrendingRank = &rank
		}
		candidates = append(candidates, cand)
	}
	c.tag(ctx, candidates)
	return candidates, nil
}

// GetCandidatesByIDs returns market data for the given coin ids as forced candidates.
func (c *Client) GetCandidatesByIDs(ctx context.Context, ids []string) ([]domain.TokenCandidate, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	markets, err := c.markets(ctx, ids, "")
	if err != nil {
		return nil, err
	}
	candidates := make([]domain.TokenCandidate, 0, len(markets))
	for _, m := range markets {
		candidates = append(candidates, toCandidate(m, domain.SourceForced))
	}
	c.tag(ctx, candidates)
	return candidates, nil
}

// TagCategories adds to each candidate the ids of the categories that list
// it, one /coins/markets call per category. Tags found before an error are
// kept.
func (c *Client) TagCategories(ctx context.Context, candidates []domain.TokenCandidate, categories []string) error {
	if len(candidates) == 0 {
		return nil
	}
	ids := make([]string, 0, len(candidates))
	index := make(map[string][]int, len(candidates))
	for i, cand := range candidates {
		if _, ok := index[cand.ID]; !ok {
			ids = append(ids, cand.ID)
		}
		index[cand.ID] = append(index[cand.ID], i)
	}

	for _, category := range categories {
		markets, err := c.markets(ctx, ids, category)
		if err != nil {
			return err
		}
		for _, m := range markets {
			for _, i := range index[m.ID] {
				candidates[i].Categories = appendTag(candidates[i].Categories, category)
			}
		}
	}
	return nil
}

// tag applies the configured categories. A failure leaves the candidates
// usable with fewer tags.
func (c *Client) tag(ctx context.Context, candidates []domain.TokenCandidate) {
	if len(c.categories) == 0 {
		return
	}
	if err := c.TagCategories(ctx, candidates, c.categories); err != nil {
		c.logger.Warn().
			Err(err).
			Str("error_kind", string(apperr.KindOf(err))).
			Int("candidates", len(candidates)).
			Msg("category tagging failed, scoring with partial tags")
	}
}

func appendTag(tags []string, tag string) []string {
	for _, t := range tags {
		if t == tag {
			return tags
		}
	}
	return append(tags, tag)
}

// GetMarketCaps returns the USD market cap of each id the provider knows.
func (c *Client) GetMarketCaps(ctx context.Context, ids []string) (map[string]float64, error) {
	caps := make(map[string]float64, len(ids))
	if len(ids) == 0 {
		return caps, nil
	}
	markets, err := c.markets(ctx, ids, "")
	if err != nil {
		return nil, err
	}
	for _, m := range markets {
		caps[m.ID] = deref(m.MarketCap)
	}
	return caps, nil
}

// GetGlobalMarketData returns the global market aggregates.
func (c *Client) GetGlobalMarketData(ctx context.Context) (*domain.GlobalMarketData, error) {
	var resp globalResponse
	if err := c.http.GetJSON(ctx, "/global", nil, &resp); err != nil {
		return nil, err
	}
	d := resp.Data
	if d.TotalMarketCap == nil {
		return nil, apperr.External(ProviderName, 0, "global response without total_market_cap", nil)
	}

	updated := time.Now().UTC()
	if d.UpdatedAt > 0 {
		updated = time.Unix(d.UpdatedAt, 0).UTC()
	}

	return &domain.GlobalMarketData{
		TotalMarketCapUSD:      d.TotalMarketCap["usd"],
		TotalVolumeUSD:         d.TotalVolume["usd"],
		MarketCapChangePct24h:  d.MarketCapChangePercentage24hUSD,
		BTCDominance:           d.MarketCapPercentage["btc"],
		ETHDominance:           d.MarketCapPercentage["eth"],
		ActiveCryptocurrencies: d.ActiveCryptocurrencies,
		Markets:                d.Markets,
		UpdatedAt:              updated,
	}, nil
}

// markets queries /coins/markets for ids, narrowed to category when set.
func (c *Client) markets(ctx context.Context, ids []string, category string) ([]marketCoin, error) {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("ids", strings.Join(ids, ","))
	if category != "" {
		q.Set("category", category)
	}
	q.Set("price_change_percentage", "7d")
	q.Set("per_page", "250")

	var markets []marketCoin
	if err := c.http.GetJSON(ctx, "/coins/markets", q, &markets); err != nil {
		return nil, err
	}
	return markets, nil
}

func toCandidate(m marketCoin, source domain.Source) domain.TokenCandidate {
	return domain.TokenCandidate{
		ID:             m.ID,
		Symbol:         strings.ToUpper(m.Symbol),
		Name:           m.Name,
		LogoURL:        m.Image,
		PriceUSD:       deref(m.CurrentPrice),
		PriceChange24h: deref(m.PriceChangePercentage24h),
		PriceChange7d:  m.PriceChange7dInCurrency,
		Volume24hUSD:   deref(m.TotalVolume),
		MarketCapUSD:   deref(m.MarketCap),
		Source:         source,
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
