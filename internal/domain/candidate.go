package domain

// TokenCandidate represents a token eligible to become the representative
// token of a generation cycle.
type TokenCandidate struct {
	ID             string   // provider coin id, e.g. "bitcoin"
	Symbol         string   // upper-case ticker
	Name           string   // display name
	LogoURL        string   // provider image URL
	PriceUSD       float64  // last price
	PriceChange24h float64  // percent
	PriceChange7d  *float64 // percent (nullable)
	Volume24hUSD   float64  // 24h traded volume
	MarketCapUSD   float64  // market capitalization
	Categories     []string // provider category tags
	TrendingRank   *int     // 1-based position in the trending list (nullable)
	ForcePriority  *int     // operator override, higher wins (nullable)
	Source         Source   // trending | forced
}

// Scores holds the per-candidate scores, each in [0,1].
type Scores struct {
	Trend  float64 `json:"trend"`
	Impact float64 `json:"impact"`
	Mood   float64 `json:"mood"`
	Final  float64 `json:"final"`
}

// SelectedToken is the winning candidate of a cycle together with its scores.
type SelectedToken struct {
	TokenCandidate
	Scores Scores
}

// CandidateScore is one scored candidate of a cycle, as recorded in the
// candidate score ledger.
type CandidateScore struct {
	Bucket       string  // dedup bucket of the cycle
	TokenID      string  // candidate id
	Symbol       string  // candidate symbol
	Source       Source  // trending | forced
	Trend        float64 // trend score
	Impact       float64 // impact score
	Mood         float64 // mood score
	Final        float64 // final score
	Penalty      float64 // recency penalty applied to the ranking score [0,1]
	RankScore    float64 // final * (1 - penalty)
	Excluded     bool    // removed by the recency policy
	Selected     bool    // winner of the cycle
	MarketCapUSD float64 // tie-break input
	ScoredAt     int64   // unix seconds
}
