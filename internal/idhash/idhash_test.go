package idhash

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doom-index/internal/domain"
)

func sampleParams() domain.VisualParams {
	return domain.VisualParams{
		TokenID:     "solana",
		Climate:     domain.ClimatePanic,
		Archetype:   domain.ArchetypeLayer1,
		Event:       domain.EventPressure{Kind: domain.EventCollapse, Intensity: 2},
		Composition: domain.CompositionSkylineRuins,
		Palette:     domain.PaletteEmberRed,
		Dynamics:    domain.Dynamics{Trend: domain.TrendDown, Volatility: domain.VolatilityMedium},
		Motifs:      []string{"stone ledgers"},
		Weights:     map[string]float64{"bitcoin": 2.0, "ethereum": 0.4123456},
	}
}

func TestBuckets(t *testing.T) {
	ts := time.Date(2025, 11, 14, 12, 34, 56, 0, time.UTC)

	assert.Equal(t, "2025-11-14T12:00", HourBucket(ts))
	assert.Equal(t, "2025-11-14T12:34", MinuteBucket(ts))
	assert.Equal(t, "2025-11-14T12:00", DedupBucket(ts, GranularityHour))
	assert.Equal(t, "2025-11-14T12:34", DedupBucket(ts, GranularityMinute))

	tokyo := time.FixedZone("JST", 9*3600)
	assert.Equal(t, "2025-11-14T12:00", HourBucket(ts.In(tokyo)))
}

func TestParseGranularity(t *testing.T) {
	g, err := ParseGranularity("")
	require.NoError(t, err)
	assert.Equal(t, GranularityHour, g)

	g, err = ParseGranularity("Minute")
	require.NoError(t, err)
	assert.Equal(t, GranularityMinute, g)

	_, err = ParseGranularity("day")
	assert.Error(t, err)
}

func TestComputeParamsHash_Determinism(t *testing.T) {
	results := make([]string, 10)
	for i := range results {
		h, err := ComputeParamsHash(sampleParams())
		require.NoError(t, err)
		results[i] = h
	}
	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Errorf("Determinism failed: results[%d]=%s != results[0]=%s", i, results[i], results[0])
		}
	}
	assert.Len(t, results[0], 8)
}

func TestComputeParamsHash_RoundsWeights(t *testing.T) {
	a := sampleParams()
	b := sampleParams()
	b.Weights = map[string]float64{"ethereum": 0.41249, "bitcoin": 2.0}

	ha, err := ComputeParamsHash(a)
	require.NoError(t, err)
	hb, err := ComputeParamsHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)

	c := sampleParams()
	c.Palette = domain.PaletteAshenGrey
	hc, err := ComputeParamsHash(c)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)
}

func TestComputeSeed(t *testing.T) {
	s := ComputeSeed("2025-11-14T12:34", "abc12345")
	assert.Len(t, s, 12)
	assert.Equal(t, s, ComputeSeed("2025-11-14T12:34", "abc12345"))
	assert.NotEqual(t, s, ComputeSeed("2025-11-14T12:35", "abc12345"))
}

func TestProviderSeed(t *testing.T) {
	v, err := ProviderSeed("ffffffff0000")
	require.NoError(t, err)
	assert.Equal(t, int32(0x7fffffff), v)

	v, err = ProviderSeed("0000002a1234")
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)

	_, err = ProviderSeed("zz")
	assert.Error(t, err)
	_, err = ProviderSeed("zzzzzzzzzzzz")
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	ts := time.Date(2025, 11, 14, 12, 34, 0, 0, time.UTC)
	name := Filename(ts, "abc12345", "def456789012")

	assert.Equal(t, "DOOM_202511141234_abc12345_def456789012.webp", name)
	assert.True(t, ValidFilename(name))
	assert.Equal(t, "DOOM_202511141234_abc12345_def456789012", PaintingID(name))
	assert.Equal(t, "images/2025/11/14/DOOM_202511141234_abc12345_def456789012.webp", ObjectKey(ts, PaintingID(name)))
}

func TestValidFilename(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"DOOM_202511141234_abc12345_def456789012.webp", true},
		{"DOOM_202511141234_ABC12345_def456789012.webp", false},
		{"DOOM_202511141234_abc12345_def456789012.png", false},
		{"DOOM_20251114123_abc12345_def456789012.webp", false},
		{"doom_202511141234_abc12345_def456789012.webp", false},
	}
	for _, tt := range tests {
		if got := ValidFilename(tt.name); got != tt.want {
			t.Errorf("ValidFilename(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
