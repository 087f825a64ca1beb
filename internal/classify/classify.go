// Package classify maps a market snapshot and the selected token into the
// symbolic vocabulary used to describe a painting.
//
// Every function is total over its inputs and deterministic.
package classify

import (
	"math"
	"strings"

	"doom-index/internal/domain"
)

// Climate thresholds on the 24h total market cap change, in percent.
const (
	euphoriaChange    = 3.0
	euphoriaSentiment = 70
	coolingChange     = 0.5
	despairChange     = -5.0
	panicChange       = -1.5
)

// ClassifyMarketClimate returns the climate of a snapshot. First match wins.
func ClassifyMarketClimate(s domain.MarketSnapshot) domain.MarketClimate {
	delta := finite(s.MarketCapChangePct24h)
	switch {
	case delta > euphoriaChange && s.FearGreedIndex != nil && *s.FearGreedIndex >= euphoriaSentiment:
		return domain.ClimateEuphoria
	case delta > coolingChange:
		return domain.ClimateCooling
	case delta < despairChange:
		return domain.ClimateDespair
	case delta < panicChange:
		return domain.ClimatePanic
	default:
		return domain.ClimateTransition
	}
}

// archetypeAliases maps lower-cased provider tags to archetypes.
var archetypeAliases = map[domain.TokenArchetype][]string{
	domain.ArchetypePerp:      {"perp", "perps", "perpetual", "perpetuals", "derivatives", "perpetual-futures"},
	domain.ArchetypeMeme:      {"meme", "memes", "meme-token", "memecoin", "dog-themed-coins", "cat-themed-coins"},
	domain.ArchetypeLayer1:    {"layer-1", "layer 1", "layer-1 (l1)", "l1", "smart-contract-platform", "smart contract platform"},
	domain.ArchetypePrivacy:   {"privacy", "privacy-coins", "privacy coins", "zero-knowledge-zk"},
	domain.ArchetypeAI:        {"ai", "artificial-intelligence", "artificial intelligence", "ai-agents", "ai agents"},
	domain.ArchetypePolitical: {"political", "politifi", "political-memes"},
}

// ClassifyTokenArchetype merges the token's tags with extra categories and
// returns the highest-precedence archetype they match.
func ClassifyTokenArchetype(token domain.TokenCandidate, extra []string) domain.TokenArchetype {
	tags := make(map[string]struct{}, len(token.Categories)+len(extra))
	for _, list := range [][]string{token.Categories, extra} {
		for _, raw := range list {
			tag := strings.ToLower(strings.TrimSpace(raw))
			if tag != "" {
				tags[tag] = struct{}{}
			}
		}
	}

	for _, archetype := range AllArchetypesByPrecedence() {
		for _, alias := range archetypeAliases[archetype] {
			if _, ok := tags[alias]; ok {
				return archetype
			}
		}
	}
	return domain.ArchetypeUnknown
}

// AllArchetypesByPrecedence lists the matchable archetypes, strongest first.
func AllArchetypesByPrecedence() []domain.TokenArchetype {
	return []domain.TokenArchetype{
		domain.ArchetypePerp,
		domain.ArchetypeMeme,
		domain.ArchetypeLayer1,
		domain.ArchetypePrivacy,
		domain.ArchetypeAI,
		domain.ArchetypePolitical,
	}
}

// ClassifyEventPressure derives the event kind and intensity from the 24h move.
func ClassifyEventPressure(ts domain.TokenSnapshot) domain.EventPressure {
	delta := finite(ts.PriceChange24h)
	abs := math.Abs(delta)

	intensity := 0
	switch {
	case abs >= 20:
		intensity = 3
	case abs >= 10:
		intensity = 2
	case abs >= 3:
		intensity = 1
	}
	if intensity == 0 {
		return domain.EventPressure{Kind: domain.EventRitual, Intensity: 1}
	}
	if delta >= 0 {
		return domain.EventPressure{Kind: domain.EventRally, Intensity: intensity}
	}
	return domain.EventPressure{Kind: domain.EventCollapse, Intensity: intensity}
}

// ClassifyDynamics returns trend direction and volatility level.
func ClassifyDynamics(ts domain.TokenSnapshot) domain.Dynamics {
	d := domain.Dynamics{Trend: domain.TrendFlat, Volatility: domain.VolatilityHigh}

	delta := finite(ts.PriceChange24h)
	switch {
	case delta > 2:
		d.Trend = domain.TrendUp
	case delta < -2:
		d.Trend = domain.TrendDown
	}

	v := finite(ts.VolatilityScore)
	switch {
	case v < 0.33:
		d.Volatility = domain.VolatilityLow
	case v < 0.66:
		d.Volatility = domain.VolatilityMedium
	}
	return d
}

// VolatilityScore = clamp(0.7·|Δ24h|/20 + 0.3·|Δ7d|/50). A missing Δ7d counts as 0.
func VolatilityScore(change24h float64, change7d *float64) float64 {
	v := 0.7 * math.Abs(finite(change24h)) / 20
	if change7d != nil {
		v += 0.3 * math.Abs(finite(*change7d)) / 50
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
