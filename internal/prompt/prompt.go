package prompt

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"doom-index/internal/domain"
)

// Fixed prompt text.
const (
	OpeningLine    = "A vast allegorical oil painting of the state of the crypto markets, one scene holding every symbol at once"
	StyleBase      = "dramatic chiaroscuro, baroque detail, apocalyptic atmosphere, museum-grade fine art, highly detailed"
	HumanElement   = "small human figures bearing witness at the edge of the scene"
	NegativePrompt = "text, letters, watermark, signature, logo, frame, border, blurry, low quality, cartoon, anime, 3d render, photograph"
)

// Composed is the rendered prompt pair.
type Composed struct {
	Prompt   string
	Negative string
}

// BuildPrompt renders the basket caps into the final prompt pair.
func BuildPrompt(caps map[string]float64, cfg Config) Composed {
	return BuildScenePrompt(caps, cfg, nil)
}

// BuildScenePrompt is BuildPrompt with an extra scene line describing the
// painting context. A nil context omits the line.
func BuildScenePrompt(caps map[string]float64, cfg Config, pc *domain.PaintingContext) Composed {
	fragments := ToWeightedFragments(caps, cfg)

	rendered := make([]string, 0, len(fragments))
	for _, f := range fragments {
		rendered = append(rendered, fmt.Sprintf("(%s:%.2f)", f.Text, f.Weight))
	}

	lines := []string{OpeningLine}
	if pc != nil {
		lines = append(lines, SceneLine(*pc))
	}
	lines = append(lines,
		StyleBase,
		strings.Join(rendered, ", "),
		Fingerprint(CalculateDominanceWeights(caps, cfg)),
	)

	return Composed{
		Prompt:   strings.Join(lines, "\n"),
		Negative: NegativePrompt,
	}
}

// SceneLine describes the context symbols in plain words.
func SceneLine(pc domain.PaintingContext) string {
	parts := []string{
		fmt.Sprintf("a %s composition in a %s palette", pc.Composition, pc.Palette),
		fmt.Sprintf("the market mood is %s", pc.Climate),
	}
	if len(pc.Motifs) > 0 {
		parts = append(parts, "motifs of "+strings.Join(pc.Motifs, ", "))
	}
	parts = append(parts, pc.NarrativeHints...)
	return strings.Join(parts, "; ")
}

// Fingerprint summarizes the token weights as "sum=… min=… max=…".
func Fingerprint(weights map[string]float64) string {
	if len(weights) == 0 {
		return "sum=0.000 min=0.000 max=0.000"
	}
	sum, lo, hi := 0.0, math.Inf(1), math.Inf(-1)
	ids := make([]string, 0, len(weights))
	for id := range weights {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		w := weights[id]
		sum += w
		lo = math.Min(lo, w)
		hi = math.Max(hi, w)
	}
	return fmt.Sprintf("sum=%.3f min=%.3f max=%.3f", sum, lo, hi)
}
