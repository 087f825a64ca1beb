// Package scoring computes per-candidate trend, impact, mood and final scores.
// All functions are pure and every returned score is within [0,1].
package scoring

import (
	"math"
	"strings"

	"doom-index/internal/domain"
)

// Final score weights.
const (
	FinalTrendWeight  = 0.50
	FinalImpactWeight = 0.35
	FinalMoodWeight   = 0.15
)

// Trend score parameters.
const (
	trendRankWeight   = 0.6
	trendVolumeWeight = 0.4
	trendRankSpan     = 14.0 // rank 15 and below scores 0
	trendVolumeCeil   = 10e9
)

// Impact score parameters.
const (
	impactPriceWeight = 0.6
	impactSizeWeight  = 0.4
	marketCapCeil     = 1e12
)

// Mood thresholds on |Δ24h| in percent.
const (
	moodNeutralBelow = 2.0
	moodBigFrom      = 8.0
)

// Config holds tunable ceilings for the impact price term.
type Config struct {
	Change24hCeiling float64 // |Δ24h| mapping to 1.0
	Change7dCeiling  float64 // |Δ7d| mapping to 1.0
}

// DefaultConfig returns the production ceilings.
func DefaultConfig() Config {
	return Config{Change24hCeiling: 20, Change7dCeiling: 50}
}

// Scorer scores candidates with a fixed Config.
type Scorer struct {
	cfg Config
}

// New creates a Scorer. Non-positive ceilings fall back to defaults.
func New(cfg Config) *Scorer {
	def := DefaultConfig()
	if !(cfg.Change24hCeiling > 0) {
		cfg.Change24hCeiling = def.Change24hCeiling
	}
	if !(cfg.Change7dCeiling > 0) {
		cfg.Change7dCeiling = def.Change7dCeiling
	}
	return &Scorer{cfg: cfg}
}

// Score returns every score of c under the given climate.
func (s *Scorer) Score(c domain.TokenCandidate, climate domain.MarketClimate) domain.Scores {
	sc := domain.Scores{
		Trend:  TrendScore(c),
		Impact: s.ImpactScore(c),
		Mood:   MoodScore(c, climate),
	}
	sc.Final = FinalScore(sc)
	return sc
}

// TrendScore combines trending rank and 24h volume.
func TrendScore(c domain.TokenCandidate) float64 {
	rankTerm := 0.0
	if c.TrendingRank != nil && *c.TrendingRank >= 1 {
		rankTerm = Clamp01(1 - float64(*c.TrendingRank-1)/trendRankSpan)
	}
	volumeTerm := Clamp01(logRatio(finite(c.Volume24hUSD), trendVolumeCeil))
	return Clamp01(trendRankWeight*rankTerm + trendVolumeWeight*volumeTerm)
}

// ImpactScore combines price movement and size, scaled by the category multiplier.
func (s *Scorer) ImpactScore(c domain.TokenCandidate) float64 {
	priceTerm := math.Abs(finite(c.PriceChange24h)) / s.cfg.Change24hCeiling
	if c.PriceChange7d != nil {
		priceTerm = math.Max(priceTerm, math.Abs(finite(*c.PriceChange7d))/s.cfg.Change7dCeiling)
	}
	priceTerm = Clamp01(priceTerm)

	mcap := finite(c.MarketCapUSD)
	vol := finite(c.Volume24hUSD)
	turnover := 0.0
	if mcap > 0 {
		turnover = math.Min(math.Max(vol, 0)/mcap, 1)
	}
	sizeTerm := 0.5*Clamp01(logRatio(mcap, marketCapCeil)) + 0.5*turnover

	raw := impactPriceWeight*priceTerm + impactSizeWeight*sizeTerm
	return Clamp01(raw * CategoryMultiplier(c.Categories))
}

// ImpactScore scores with the default configuration.
func ImpactScore(c domain.TokenCandidate) float64 {
	return New(DefaultConfig()).ImpactScore(c)
}

// CategoryMultiplier returns the strongest multiplier among the tags.
// layer-1 1.20, defi 1.05, meme 0.85, otherwise 1.0. Boosts win over
// the meme discount.
func CategoryMultiplier(categories []string) float64 {
	var layer1, defi, meme bool
	for _, raw := range categories {
		tag := strings.ToLower(strings.TrimSpace(raw))
		switch {
		case tag == "layer-1" || tag == "layer 1" || tag == "layer-1 (l1)" || tag == "smart-contract-platform" || tag == "smart contract platform":
			layer1 = true
		case tag == "defi" || tag == "decentralized-finance-defi" || tag == "decentralized finance (defi)":
			defi = true
		case tag == "meme" || tag == "meme-token" || tag == "memes":
			meme = true
		}
	}
	switch {
	case layer1:
		return 1.20
	case defi:
		return 1.05
	case meme:
		return 0.85
	default:
		return 1.0
	}
}

type moodBands struct {
	direction   int // +1 up, -1 down, 0 agnostic
	alignedBig  float64
	alignedMod  float64
	neutral     float64
	oppositeMod float64
	oppositeBig float64
}

func bandsFor(climate domain.MarketClimate) moodBands {
	switch climate {
	case domain.ClimateEuphoria:
		return moodBands{direction: 1, alignedBig: 1.0, alignedMod: 0.8, neutral: 0.5, oppositeMod: 0.2, oppositeBig: 0.0}
	case domain.ClimateCooling:
		return moodBands{direction: 1, alignedBig: 0.8, alignedMod: 0.7, neutral: 0.5, oppositeMod: 0.35, oppositeBig: 0.2}
	case domain.ClimateDespair:
		return moodBands{direction: -1, alignedBig: 1.0, alignedMod: 0.8, neutral: 0.5, oppositeMod: 0.2, oppositeBig: 0.0}
	case domain.ClimatePanic:
		return moodBands{direction: -1, alignedBig: 1.0, alignedMod: 0.85, neutral: 0.5, oppositeMod: 0.15, oppositeBig: 0.0}
	case domain.ClimateTransition:
		return moodBands{direction: 0, alignedBig: 0.6, alignedMod: 0.55, neutral: 0.5, oppositeMod: 0.55, oppositeBig: 0.6}
	default:
		return moodBands{direction: 0, alignedBig: 0.5, alignedMod: 0.5, neutral: 0.5, oppositeMod: 0.5, oppositeBig: 0.5}
	}
}

// MoodScore measures how well the token's 24h move matches the climate.
func MoodScore(c domain.TokenCandidate, climate domain.MarketClimate) float64 {
	b := bandsFor(climate)
	delta := finite(c.PriceChange24h)
	abs := math.Abs(delta)
	if abs < moodNeutralBelow {
		return b.neutral
	}
	big := abs >= moodBigFrom

	aligned := true
	if b.direction > 0 {
		aligned = delta > 0
	} else if b.direction < 0 {
		aligned = delta < 0
	}

	switch {
	case aligned && big:
		return b.alignedBig
	case aligned:
		return b.alignedMod
	case big:
		return b.oppositeBig
	default:
		return b.oppositeMod
	}
}

// FinalScore is the weighted sum of trend, impact and mood.
func FinalScore(s domain.Scores) float64 {
	return Clamp01(FinalTrendWeight*finite(s.Trend) + FinalImpactWeight*finite(s.Impact) + FinalMoodWeight*finite(s.Mood))
}

// Clamp01 bounds v to [0,1]; non-finite values become 0.
func Clamp01(v float64) float64 {
	v = finite(v)
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// logRatio returns log10(1+v)/log10(1+ceil); negative v counts as 0.
func logRatio(v, ceil float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Log10(1+v) / math.Log10(1+ceil)
}
