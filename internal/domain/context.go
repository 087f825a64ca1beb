package domain

// MarketClimate is the coarse sentiment label of the whole market.
type MarketClimate string

const (
	ClimateEuphoria   MarketClimate = "euphoria"
	ClimateCooling    MarketClimate = "cooling"
	ClimateDespair    MarketClimate = "despair"
	ClimatePanic      MarketClimate = "panic"
	ClimateTransition MarketClimate = "transition"
)

// AllClimates lists every MarketClimate value.
func AllClimates() []MarketClimate {
	return []MarketClimate{ClimateEuphoria, ClimateCooling, ClimateDespair, ClimatePanic, ClimateTransition}
}

// TokenArchetype is the coarse category of the selected token.
type TokenArchetype string

const (
	ArchetypePerp      TokenArchetype = "perp"
	ArchetypeMeme      TokenArchetype = "meme"
	ArchetypeLayer1    TokenArchetype = "layer-1"
	ArchetypePrivacy   TokenArchetype = "privacy"
	ArchetypeAI        TokenArchetype = "ai"
	ArchetypePolitical TokenArchetype = "political"
	ArchetypeUnknown   TokenArchetype = "unknown"
)

// AllArchetypes lists every TokenArchetype value in precedence order.
func AllArchetypes() []TokenArchetype {
	return []TokenArchetype{
		ArchetypePerp, ArchetypeMeme, ArchetypeLayer1, ArchetypePrivacy,
		ArchetypeAI, ArchetypePolitical, ArchetypeUnknown,
	}
}

// EventKind describes the price pressure acting on the selected token.
type EventKind string

const (
	EventRally    EventKind = "rally"
	EventCollapse EventKind = "collapse"
	EventRitual   EventKind = "ritual"
)

// AllEventKinds lists every EventKind value.
func AllEventKinds() []EventKind {
	return []EventKind{EventRally, EventCollapse, EventRitual}
}

// EventPressure pairs an EventKind with an intensity in {1,2,3}.
type EventPressure struct {
	Kind      EventKind `json:"kind"`
	Intensity int       `json:"intensity"`
}

// Composition is the scene layout of the painting.
type Composition string

const (
	CompositionCentralAltar Composition = "central-altar"
	CompositionVortex       Composition = "vortex"
	CompositionProcession   Composition = "procession"
	CompositionSkylineRuins Composition = "skyline-ruins"
	CompositionSplitHorizon Composition = "split-horizon"
	CompositionMonolith     Composition = "monolith"
)

// AllCompositions lists every Composition value.
func AllCompositions() []Composition {
	return []Composition{
		CompositionCentralAltar, CompositionVortex, CompositionProcession,
		CompositionSkylineRuins, CompositionSplitHorizon, CompositionMonolith,
	}
}

// Palette is the dominant color scheme of the painting.
type Palette string

const (
	PaletteGildedDawn  Palette = "gilded-dawn"
	PaletteEmberRed    Palette = "ember-red"
	PaletteAshenGrey   Palette = "ashen-grey"
	PaletteAbyssalBlue Palette = "abyssal-blue"
	PaletteToxicGreen  Palette = "toxic-green"
	PaletteVioletDusk  Palette = "violet-dusk"
)

// AllPalettes lists every Palette value.
func AllPalettes() []Palette {
	return []Palette{
		PaletteGildedDawn, PaletteEmberRed, PaletteAshenGrey,
		PaletteAbyssalBlue, PaletteToxicGreen, PaletteVioletDusk,
	}
}

// TrendDirection is the short-term direction of the selected token.
type TrendDirection string

const (
	TrendUp   TrendDirection = "up"
	TrendDown TrendDirection = "down"
	TrendFlat TrendDirection = "flat"
)

// VolatilityLevel buckets the selected token's volatility score.
type VolatilityLevel string

const (
	VolatilityLow    VolatilityLevel = "low"
	VolatilityMedium VolatilityLevel = "medium"
	VolatilityHigh   VolatilityLevel = "high"
)

// Dynamics pairs trend direction and volatility level.
type Dynamics struct {
	Trend      TrendDirection  `json:"trend"`
	Volatility VolatilityLevel `json:"volatility"`
}

// TokenRef identifies the selected token inside a PaintingContext.
type TokenRef struct {
	ID      string `json:"id"`
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
	LogoURL string `json:"logoUrl,omitempty"`
}

// SnapshotSummary is the part of a MarketSnapshot carried into a PaintingContext.
type SnapshotSummary struct {
	HourBucket            string  `json:"hourBucket"`
	TotalMarketCapUSD     float64 `json:"totalMarketCapUsd"`
	MarketCapChangePct24h float64 `json:"marketCapChangePct24h"`
	BTCDominance          float64 `json:"btcDominance"`
	ETHDominance          float64 `json:"ethDominance"`
	FearGreedIndex        *int    `json:"fearGreedIndex,omitempty"`
}

// TokenSnapshot is the selected token's price/volume data at selection time.
type TokenSnapshot struct {
	PriceUSD        float64  `json:"priceUsd"`
	PriceChange24h  float64  `json:"priceChange24h"`
	PriceChange7d   *float64 `json:"priceChange7d,omitempty"`
	Volume24hUSD    float64  `json:"volume24hUsd"`
	MarketCapUSD    float64  `json:"marketCapUsd"`
	VolatilityScore float64  `json:"volatilityScore"`
}

// PaintingContext is the symbolic description of one cycle. It is always
// rebuilt from a snapshot and a selected token, never mutated.
type PaintingContext struct {
	Token          TokenRef        `json:"token"`
	Snapshot       SnapshotSummary `json:"snapshot"`
	TokenSnapshot  TokenSnapshot   `json:"tokenSnapshot"`
	Climate        MarketClimate   `json:"climate"`
	Archetype      TokenArchetype  `json:"archetype"`
	Event          EventPressure   `json:"event"`
	Composition    Composition     `json:"composition"`
	Palette        Palette         `json:"palette"`
	Dynamics       Dynamics        `json:"dynamics"`
	Motifs         []string        `json:"motifs"`
	NarrativeHints []string        `json:"narrativeHints"`
}
