package gemini

import (
	"context"
	"fmt"
	"strings"

	"doom-index/internal/domain"
)

const enrichSystem = `You classify crypto assets. Answer with JSON only: {"categories": ["..."]}.
Use short lower-case tags such as "meme", "layer-1", "perpetuals", "privacy", "ai", "politifi", "defi".
Return at most 5 tags.`

// JSONClient is the JSON generation collaborator.
type JSONClient interface {
	GenerateJSON(ctx context.Context, system, user string, out any) error
}

// Enricher derives category tags for tokens the market data provider
// returned without any.
type Enricher struct {
	json JSONClient
}

// NewEnricher creates an enricher.
func NewEnricher(json JSONClient) *Enricher {
	return &Enricher{json: json}
}

// Categories returns lower-cased, de-duplicated tags for the token.
func (e *Enricher) Categories(ctx context.Context, token domain.TokenCandidate) ([]string, error) {
	user := fmt.Sprintf("Token id: %s\nSymbol: %s\nName: %s", token.ID, token.Symbol, token.Name)

	var out struct {
		Categories []string `json:"categories"`
	}
	if err := e.json.GenerateJSON(ctx, enrichSystem, user, &out); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(out.Categories))
	tags := make([]string, 0, len(out.Categories))
	for _, c := range out.Categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		tags = append(tags, c)
		if len(tags) == 5 {
			break
		}
	}
	return tags, nil
}
