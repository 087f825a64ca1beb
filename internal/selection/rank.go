package selection

import (
	"sort"

	"doom-index/internal/domain"
	"doom-index/internal/scoring"
	"doom-index/internal/storage"
)

// Ranked is one scored candidate in ranking order.
type Ranked struct {
	Candidate domain.TokenCandidate
	Score     domain.CandidateScore
}

// Rank scores every candidate under climate, applies the recency policy and
// sorts the result. Excluded candidates sort last.
//
// recent is newest first. Its first token is excluded unless it is the only
// candidate; every other recent token has its ranking score multiplied by
// 1 - penalty.
func Rank(candidates []domain.TokenCandidate, climate domain.MarketClimate, scorer *scoring.Scorer, recent []storage.RecentSelection, penalty float64) []Ranked {
	penalty = scoring.Clamp01(penalty)

	var latest string
	recentSet := make(map[string]bool, len(recent))
	if len(recent) > 0 {
		latest = recent[0].TokenID
	}
	for _, r := range recent {
		recentSet[r.TokenID] = true
	}

	out := make([]Ranked, len(candidates))
	for i, c := range candidates {
		sc := scorer.Score(c, climate)
		row := domain.CandidateScore{
			TokenID:      c.ID,
			Symbol:       c.Symbol,
			Source:       c.Source,
			Trend:        sc.Trend,
			Impact:       sc.Impact,
			Mood:         sc.Mood,
			Final:        sc.Final,
			RankScore:    sc.Final,
			MarketCapUSD: c.MarketCapUSD,
		}
		switch {
		case c.ID == latest && len(candidates) > 1:
			row.Excluded = true
		case recentSet[c.ID]:
			row.Penalty = penalty
			row.RankScore = sc.Final * (1 - penalty)
		}
		out[i] = Ranked{Candidate: c, Score: row}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j])
	})
	return out
}

func less(a, b Ranked) bool {
	if a.Score.Excluded != b.Score.Excluded {
		return !a.Score.Excluded
	}
	pa, pb := priority(a.Candidate), priority(b.Candidate)
	if (pa > 0) != (pb > 0) {
		return pa > 0
	}
	if pa != pb {
		return pa > pb
	}
	if a.Score.RankScore != b.Score.RankScore {
		return a.Score.RankScore > b.Score.RankScore
	}
	if a.Candidate.MarketCapUSD != b.Candidate.MarketCapUSD {
		return a.Candidate.MarketCapUSD > b.Candidate.MarketCapUSD
	}
	return a.Candidate.ID < b.Candidate.ID
}

func priority(c domain.TokenCandidate) int {
	if c.ForcePriority == nil {
		return 0
	}
	return *c.ForcePriority
}
