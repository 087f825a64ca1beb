package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doom-index/internal/domain"
)

func abcConfig() Config {
	return Config{
		MinWeight: 0.1,
		MaxWeight: 2.0,
		Exponent:  2.0,
		Tokens: []Token{
			{ID: "A", Phrase: "phrase a"},
			{ID: "B", Phrase: "phrase b"},
			{ID: "C", Phrase: "phrase c"},
		},
	}
}

func TestCalculateDominanceWeights_SingleDominant(t *testing.T) {
	w := CalculateDominanceWeights(map[string]float64{"A": 1000, "B": 0, "C": 0}, abcConfig())

	assert.InDelta(t, 2.0, w["A"], 1e-9)
	assert.InDelta(t, 0.1, w["B"], 1e-9)
	assert.InDelta(t, 0.1, w["C"], 1e-9)
}

func TestCalculateDominanceWeights_AllZero(t *testing.T) {
	cfg := DefaultConfig()
	w := CalculateDominanceWeights(map[string]float64{}, cfg)

	require.Len(t, w, len(cfg.Tokens))
	for id, v := range w {
		if v != cfg.MinWeight {
			t.Errorf("weight[%s] = %v, want MinWeight %v", id, v, cfg.MinWeight)
		}
	}
}

func TestCalculateDominanceWeights_Monotonic(t *testing.T) {
	cases := []map[string]float64{
		{"A": 10, "B": 5, "C": 1},
		{"A": 3e12, "B": 1e9, "C": 0},
		{"A": 1, "B": 0.999, "C": 0.5},
	}
	for _, caps := range cases {
		w := CalculateDominanceWeights(caps, abcConfig())
		assert.GreaterOrEqual(t, w["A"], w["B"])
		assert.GreaterOrEqual(t, w["B"], w["C"])
	}
}

func TestCalculateDominanceWeights_InvalidCapsCountAsZero(t *testing.T) {
	w := CalculateDominanceWeights(map[string]float64{"A": 100, "B": -5}, abcConfig())
	assert.InDelta(t, 0.1, w["B"], 1e-9)
	assert.InDelta(t, 0.1, w["C"], 1e-9)
}

func TestToWeightedFragments_OrderAndHumanElement(t *testing.T) {
	fragments := ToWeightedFragments(map[string]float64{"A": 1, "B": 100, "C": 1}, abcConfig())

	require.Len(t, fragments, 4)
	assert.Equal(t, "phrase b", fragments[0].Text)
	// ties keep configuration order
	assert.Equal(t, "phrase a", fragments[1].Text)
	assert.Equal(t, "phrase c", fragments[2].Text)
	assert.Equal(t, domain.WeightedFragment{Text: HumanElement, Weight: 1.0}, fragments[3])
}

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt(map[string]float64{"A": 1000, "B": 0, "C": 0}, abcConfig())

	lines := strings.Split(got.Prompt, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, OpeningLine, lines[0])
	assert.Equal(t, StyleBase, lines[1])
	assert.Equal(t, "(phrase a:2.00), (phrase b:0.10), (phrase c:0.10), ("+HumanElement+":1.00)", lines[2])
	assert.Equal(t, "sum=2.200 min=0.100 max=2.000", lines[3])
	assert.Equal(t, NegativePrompt, got.Negative)
}

func TestBuildScenePrompt_AddsSceneLine(t *testing.T) {
	pc := domain.PaintingContext{
		Climate:        domain.ClimatePanic,
		Composition:    domain.CompositionVortex,
		Palette:        domain.PaletteEmberRed,
		Motifs:         []string{"torn flags"},
		NarrativeHints: []string{"alarms echo through the streets"},
	}
	got := BuildScenePrompt(map[string]float64{"A": 1}, abcConfig(), &pc)

	lines := strings.Split(got.Prompt, "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[1], "vortex")
	assert.Contains(t, lines[1], "ember-red")
	assert.Contains(t, lines[1], "alarms echo")
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	caps := map[string]float64{"bitcoin": 1.3e12, "ethereum": 4e11, "solana": 8e10}
	a := BuildPrompt(caps, DefaultConfig())
	b := BuildPrompt(caps, DefaultConfig())
	assert.Equal(t, a, b)
}
