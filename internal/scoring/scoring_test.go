package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"doom-index/internal/domain"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestFinalScore(t *testing.T) {
	got := FinalScore(domain.Scores{Trend: 0.8, Impact: 0.6, Mood: 0.4})
	if math.Abs(got-0.67) > 1e-9 {
		t.Errorf("FinalScore = %v, want 0.67", got)
	}
}

func TestMoodScore_EuphoriaBigRally(t *testing.T) {
	c := domain.TokenCandidate{ID: "sol", PriceChange24h: 12}
	assert.Equal(t, 1.0, MoodScore(c, domain.ClimateEuphoria))
}

func TestMoodScore_Bands(t *testing.T) {
	tests := []struct {
		climate domain.MarketClimate
		delta   float64
		want    float64
	}{
		{domain.ClimateEuphoria, 1.5, 0.5},
		{domain.ClimateEuphoria, 4, 0.8},
		{domain.ClimateEuphoria, -4, 0.2},
		{domain.ClimateEuphoria, -9, 0.0},
		{domain.ClimateCooling, 9, 0.8},
		{domain.ClimateCooling, 3, 0.7},
		{domain.ClimateCooling, -3, 0.35},
		{domain.ClimateCooling, -30, 0.2},
		{domain.ClimateDespair, -8, 1.0},
		{domain.ClimateDespair, -2, 0.8},
		{domain.ClimateDespair, 5, 0.2},
		{domain.ClimatePanic, -5, 0.85},
		{domain.ClimatePanic, 5, 0.15},
		{domain.ClimatePanic, 10, 0.0},
		{domain.ClimateTransition, 10, 0.6},
		{domain.ClimateTransition, -10, 0.6},
		{domain.ClimateTransition, -3, 0.55},
		{domain.ClimateTransition, 0, 0.5},
	}

	for _, tt := range tests {
		t.Run(string(tt.climate), func(t *testing.T) {
			got := MoodScore(domain.TokenCandidate{PriceChange24h: tt.delta}, tt.climate)
			if got != tt.want {
				t.Errorf("MoodScore(%v, %s) = %v, want %v", tt.delta, tt.climate, got, tt.want)
			}
		})
	}
}

func TestTrendScore(t *testing.T) {
	top := domain.TokenCandidate{TrendingRank: intPtr(1), Volume24hUSD: 10e9}
	assert.InDelta(t, 1.0, TrendScore(top), 1e-9)

	unranked := domain.TokenCandidate{Volume24hUSD: 0}
	assert.Equal(t, 0.0, TrendScore(unranked))

	rank15 := domain.TokenCandidate{TrendingRank: intPtr(15)}
	assert.Equal(t, 0.0, TrendScore(rank15))

	better := TrendScore(domain.TokenCandidate{TrendingRank: intPtr(2), Volume24hUSD: 1e6})
	worse := TrendScore(domain.TokenCandidate{TrendingRank: intPtr(7), Volume24hUSD: 1e6})
	assert.Greater(t, better, worse)
}

func TestCategoryMultiplier(t *testing.T) {
	assert.Equal(t, 1.20, CategoryMultiplier([]string{"Meme", "Layer 1"}))
	assert.Equal(t, 1.05, CategoryMultiplier([]string{"DeFi"}))
	assert.Equal(t, 0.85, CategoryMultiplier([]string{"meme-token"}))
	assert.Equal(t, 1.0, CategoryMultiplier(nil))
}

func TestImpactScore_CategoryOrdering(t *testing.T) {
	base := domain.TokenCandidate{
		PriceChange24h: 6,
		PriceChange7d:  floatPtr(15),
		Volume24hUSD:   2e8,
		MarketCapUSD:   4e9,
	}
	l1, defi, plain, meme := base, base, base, base
	l1.Categories = []string{"layer-1"}
	defi.Categories = []string{"defi"}
	meme.Categories = []string{"meme"}

	assert.Greater(t, ImpactScore(l1), ImpactScore(defi))
	assert.Greater(t, ImpactScore(defi), ImpactScore(plain))
	assert.Greater(t, ImpactScore(plain), ImpactScore(meme))
}

func TestScores_WithinUnitInterval(t *testing.T) {
	s := New(DefaultConfig())
	inputs := []domain.TokenCandidate{
		{},
		{PriceChange24h: math.NaN(), Volume24hUSD: math.Inf(1), MarketCapUSD: math.Inf(-1)},
		{PriceChange24h: 900, PriceChange7d: floatPtr(-5000), Volume24hUSD: 1e15, MarketCapUSD: 1, Categories: []string{"layer-1"}, TrendingRank: intPtr(1)},
		{PriceChange24h: -99, Volume24hUSD: -10, MarketCapUSD: -10, TrendingRank: intPtr(-3)},
	}

	for i, c := range inputs {
		for _, climate := range domain.AllClimates() {
			sc := s.Score(c, climate)
			for name, v := range map[string]float64{"trend": sc.Trend, "impact": sc.Impact, "mood": sc.Mood, "final": sc.Final} {
				if v < 0 || v > 1 || math.IsNaN(v) {
					t.Errorf("input %d climate %s: %s score %v out of [0,1]", i, climate, name, v)
				}
			}
		}
	}
}
