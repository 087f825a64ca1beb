package classify

import (
	"fmt"

	"doom-index/internal/domain"
)

// sceneRule matches an archetype and optionally an event kind with a
// minimum intensity.
type sceneRule[T any] struct {
	archetype    domain.TokenArchetype
	event        domain.EventKind // empty matches any kind
	minIntensity int
	value        T
}

func (r sceneRule[T]) matches(a domain.TokenArchetype, e domain.EventPressure) bool {
	if r.archetype != a {
		return false
	}
	if r.event != "" && r.event != e.Kind {
		return false
	}
	return e.Intensity >= r.minIntensity
}

var compositionRules = []sceneRule[domain.Composition]{
	{archetype: domain.ArchetypePerp, event: domain.EventCollapse, minIntensity: 2, value: domain.CompositionVortex},
	{archetype: domain.ArchetypePerp, event: domain.EventRally, minIntensity: 2, value: domain.CompositionVortex},
	{archetype: domain.ArchetypeMeme, event: domain.EventRally, value: domain.CompositionProcession},
	{archetype: domain.ArchetypeLayer1, event: domain.EventCollapse, value: domain.CompositionSkylineRuins},
	{archetype: domain.ArchetypeLayer1, event: domain.EventRally, minIntensity: 2, value: domain.CompositionCentralAltar},
	{archetype: domain.ArchetypeAI, value: domain.CompositionMonolith},
	{archetype: domain.ArchetypePrivacy, value: domain.CompositionMonolith},
	{archetype: domain.ArchetypePolitical, value: domain.CompositionSplitHorizon},
}

// PickComposition returns the scene layout. Archetype/event rules are
// checked first, then the climate decides.
func PickComposition(climate domain.MarketClimate, archetype domain.TokenArchetype, event domain.EventPressure) domain.Composition {
	for _, r := range compositionRules {
		if r.matches(archetype, event) {
			return r.value
		}
	}
	switch climate {
	case domain.ClimateEuphoria:
		return domain.CompositionCentralAltar
	case domain.ClimateCooling:
		return domain.CompositionProcession
	case domain.ClimateDespair:
		return domain.CompositionSkylineRuins
	case domain.ClimatePanic:
		return domain.CompositionVortex
	case domain.ClimateTransition:
		return domain.CompositionSplitHorizon
	default:
		return domain.CompositionSplitHorizon
	}
}

var paletteRules = []sceneRule[domain.Palette]{
	{archetype: domain.ArchetypeMeme, event: domain.EventRally, value: domain.PaletteToxicGreen},
	{archetype: domain.ArchetypePerp, event: domain.EventCollapse, minIntensity: 2, value: domain.PaletteEmberRed},
	{archetype: domain.ArchetypeLayer1, event: domain.EventRally, minIntensity: 2, value: domain.PaletteGildedDawn},
	{archetype: domain.ArchetypePrivacy, value: domain.PaletteAbyssalBlue},
	{archetype: domain.ArchetypeAI, value: domain.PaletteVioletDusk},
}

// PickPalette returns the dominant color scheme.
func PickPalette(climate domain.MarketClimate, archetype domain.TokenArchetype, event domain.EventPressure) domain.Palette {
	for _, r := range paletteRules {
		if r.matches(archetype, event) {
			return r.value
		}
	}
	switch climate {
	case domain.ClimateEuphoria:
		return domain.PaletteGildedDawn
	case domain.ClimateCooling:
		return domain.PaletteVioletDusk
	case domain.ClimateDespair:
		return domain.PaletteAshenGrey
	case domain.ClimatePanic:
		return domain.PaletteEmberRed
	case domain.ClimateTransition:
		return domain.PaletteAbyssalBlue
	default:
		return domain.PaletteAbyssalBlue
	}
}

// DeriveMotifs returns the ordered symbolic motifs of an archetype.
func DeriveMotifs(archetype domain.TokenArchetype) []string {
	switch archetype {
	case domain.ArchetypePerp:
		return []string{"chained pendulums", "leveraged towers", "liquidation fire"}
	case domain.ArchetypeMeme:
		return []string{"grinning masks", "carnival banners", "swarming crowds"}
	case domain.ArchetypeLayer1:
		return []string{"cathedral foundations", "stone ledgers", "load-bearing pillars"}
	case domain.ArchetypePrivacy:
		return []string{"veiled figures", "sealed vaults", "smoke screens"}
	case domain.ArchetypeAI:
		return []string{"clockwork oracles", "glowing circuitry", "mirrored eyes"}
	case domain.ArchetypePolitical:
		return []string{"torn flags", "rostrums", "divided crowds"}
	case domain.ArchetypeUnknown:
		return []string{"nameless idol", "drifting fog"}
	default:
		return []string{"nameless idol", "drifting fog"}
	}
}

// DeriveNarrativeHints returns the climate hints followed by one event hint.
func DeriveNarrativeHints(climate domain.MarketClimate, event domain.EventPressure) []string {
	var hints []string
	switch climate {
	case domain.ClimateEuphoria:
		hints = []string{"crowds celebrate beneath a blinding sky", "gold spills from overflowing altars"}
	case domain.ClimateCooling:
		hints = []string{"the feast winds down", "embers fade in the evening air"}
	case domain.ClimateDespair:
		hints = []string{"the city lies in ruin", "survivors wander through ash"}
	case domain.ClimatePanic:
		hints = []string{"people flee across collapsing bridges", "alarms echo through the streets"}
	case domain.ClimateTransition:
		hints = []string{"the horizon is split between storm and calm", "nobody knows which way the wind will turn"}
	default:
		hints = []string{"the horizon is split between storm and calm"}
	}
	return append(hints, eventHint(event))
}

func eventHint(e domain.EventPressure) string {
	switch e.Kind {
	case domain.EventRally:
		return fmt.Sprintf("a rally of intensity %d lifts the scene", e.Intensity)
	case domain.EventCollapse:
		return fmt.Sprintf("a collapse of intensity %d tears through the scene", e.Intensity)
	case domain.EventRitual:
		return fmt.Sprintf("a quiet ritual of intensity %d holds the scene still", e.Intensity)
	default:
		return fmt.Sprintf("an omen of intensity %d hangs over the scene", e.Intensity)
	}
}
