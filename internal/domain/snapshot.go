package domain

import "time"

// MarketSnapshot is the global market state for one hour bucket.
// Corresponds to market_snapshots table in PostgreSQL.
type MarketSnapshot struct {
	HourBucket             string    // PRIMARY KEY, "YYYY-MM-DDTHH:00" (UTC)
	TotalMarketCapUSD      float64   // all assets
	TotalVolumeUSD         float64   // all assets, 24h
	MarketCapChangePct24h  float64   // percent
	BTCDominance           float64   // percent
	ETHDominance           float64   // percent
	ActiveCryptocurrencies int       // listed assets
	Markets                int       // listed markets
	FearGreedIndex         *int      // 0..100 (nullable)
	FearGreedLabel         *string   // provider classification (nullable)
	ProviderUpdatedAt      time.Time // provider timestamp
	CreatedAt              time.Time // record creation
}

// GlobalMarketData is the market-data collaborator's view of the whole market.
type GlobalMarketData struct {
	TotalMarketCapUSD      float64
	TotalVolumeUSD         float64
	MarketCapChangePct24h  float64
	BTCDominance           float64
	ETHDominance           float64
	ActiveCryptocurrencies int
	Markets                int
	UpdatedAt              time.Time
}

// SentimentIndex is the sentiment-index collaborator's reading.
type SentimentIndex struct {
	Value          int // 0..100
	Classification string
	Timestamp      time.Time
}
