package classify

import "doom-index/internal/domain"

// Build composes the painting context of a cycle from the market snapshot
// and the selected token. extra categories are merged into the archetype
// lookup.
func Build(snapshot domain.MarketSnapshot, selected domain.SelectedToken, extra ...string) domain.PaintingContext {
	ts := domain.TokenSnapshot{
		PriceUSD:        selected.PriceUSD,
		PriceChange24h:  selected.PriceChange24h,
		PriceChange7d:   selected.PriceChange7d,
		Volume24hUSD:    selected.Volume24hUSD,
		MarketCapUSD:    selected.MarketCapUSD,
		VolatilityScore: VolatilityScore(selected.PriceChange24h, selected.PriceChange7d),
	}

	climate := ClassifyMarketClimate(snapshot)
	archetype := ClassifyTokenArchetype(selected.TokenCandidate, extra)
	event := ClassifyEventPressure(ts)

	return domain.PaintingContext{
		Token: domain.TokenRef{
			ID:      selected.ID,
			Symbol:  selected.Symbol,
			Name:    selected.Name,
			LogoURL: selected.LogoURL,
		},
		Snapshot: domain.SnapshotSummary{
			HourBucket:            snapshot.HourBucket,
			TotalMarketCapUSD:     snapshot.TotalMarketCapUSD,
			MarketCapChangePct24h: snapshot.MarketCapChangePct24h,
			BTCDominance:          snapshot.BTCDominance,
			ETHDominance:          snapshot.ETHDominance,
			FearGreedIndex:        snapshot.FearGreedIndex,
		},
		TokenSnapshot:  ts,
		Climate:        climate,
		Archetype:      archetype,
		Event:          event,
		Composition:    PickComposition(climate, archetype, event),
		Palette:        PickPalette(climate, archetype, event),
		Dynamics:       ClassifyDynamics(ts),
		Motifs:         DeriveMotifs(archetype),
		NarrativeHints: DeriveNarrativeHints(climate, event),
	}
}
