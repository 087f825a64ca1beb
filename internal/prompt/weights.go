// Package prompt turns basket market caps into a weighted text-to-image prompt.
package prompt

import (
	"math"
	"sort"

	"doom-index/internal/domain"
)

// Token is one basket member and the phrase that represents it.
type Token struct {
	ID     string
	Phrase string
}

// Config controls weight calculation and prompt rendering.
type Config struct {
	MinWeight float64
	MaxWeight float64
	Exponent  float64
	Tokens    []Token // configuration order, used for tie-breaks
}

// DefaultConfig returns the production basket and weight range.
func DefaultConfig() Config {
	return Config{
		MinWeight: 0.1,
		MaxWeight: 2.0,
		Exponent:  2.0,
		Tokens: []Token{
			{ID: "bitcoin", Phrase: "a colossal golden monolith engraved with a single glyph"},
			{ID: "ethereum", Phrase: "a crystalline cathedral of interlocking prisms"},
			{ID: "solana", Phrase: "a violet lightning storm over a neon harbor"},
			{ID: "binancecoin", Phrase: "a fortified exchange citadel on a yellow cliff"},
			{ID: "ripple", Phrase: "silver tides flowing between distant banks"},
			{ID: "dogecoin", Phrase: "a grinning shiba statue guarding the gates"},
			{ID: "cardano", Phrase: "a blue observatory of concentric rings"},
			{ID: "chainlink", Phrase: "an endless chain of linked hexagonal beacons"},
		},
	}
}

// CalculateDominanceWeights maps each configured token to a weight in
// [MinWeight, MaxWeight]. Missing, negative or non-finite caps count as 0.
// When every cap is 0 all weights are MinWeight.
func CalculateDominanceWeights(caps map[string]float64, cfg Config) map[string]float64 {
	ids := basketIDs(caps, cfg)
	weights := make(map[string]float64, len(ids))

	maxCap := 0.0
	for _, id := range ids {
		if c := sanitizeCap(caps[id]); c > maxCap {
			maxCap = c
		}
	}

	for _, id := range ids {
		if maxCap == 0 {
			weights[id] = cfg.MinWeight
			continue
		}
		ratio := sanitizeCap(caps[id]) / maxCap
		w := cfg.MinWeight + math.Pow(ratio, cfg.Exponent)*(cfg.MaxWeight-cfg.MinWeight)
		weights[id] = clamp(w, cfg.MinWeight, cfg.MaxWeight)
	}
	return weights
}

// ToWeightedFragments renders the basket as fragments sorted by weight
// descending (ties keep configuration order), then appends the human element.
func ToWeightedFragments(caps map[string]float64, cfg Config) []domain.WeightedFragment {
	weights := CalculateDominanceWeights(caps, cfg)

	phrases := make(map[string]string, len(cfg.Tokens))
	for _, tok := range cfg.Tokens {
		phrases[tok.ID] = tok.Phrase
	}

	ids := basketIDs(caps, cfg)
	fragments := make([]domain.WeightedFragment, 0, len(ids)+1)
	for _, id := range ids {
		text := phrases[id]
		if text == "" {
			text = id
		}
		fragments = append(fragments, domain.WeightedFragment{Text: text, Weight: weights[id]})
	}
	sort.SliceStable(fragments, func(i, j int) bool {
		return fragments[i].Weight > fragments[j].Weight
	})

	return append(fragments, domain.WeightedFragment{Text: HumanElement, Weight: 1.0})
}

// basketIDs returns the configured token ids, or the sorted keys of caps
// when no basket is configured.
func basketIDs(caps map[string]float64, cfg Config) []string {
	if len(cfg.Tokens) > 0 {
		ids := make([]string, len(cfg.Tokens))
		for i, tok := range cfg.Tokens {
			ids[i] = tok.ID
		}
		return ids
	}
	ids := make([]string, 0, len(caps))
	for id := range caps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sanitizeCap(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
