package server

import (
	"encoding/json"

	"doom-index/internal/domain"
)

// PaintingResponse is the JSON shape of a painting.
type PaintingResponse struct {
	ID           string          `json:"id"`
	Timestamp    string          `json:"timestamp"`
	TsUnix       int64           `json:"tsUnix"`
	MinuteBucket string          `json:"minuteBucket"`
	HourBucket   string          `json:"hourBucket"`
	TokenID      string          `json:"tokenId"`
	ParamsHash   string          `json:"paramsHash"`
	Seed         string          `json:"seed"`
	ImageURL     string          `json:"imageUrl"`
	FileSize     int64           `json:"fileSize"`
	VisualParams json.RawMessage `json:"visualParams,omitempty"`
	Prompt       string          `json:"prompt"`
	Negative     string          `json:"negative"`
}

// ListResponse is one page of paintings.
type ListResponse struct {
	Items      []PaintingResponse `json:"items"`
	HasMore    bool               `json:"hasMore"`
	NextCursor string             `json:"nextCursor,omitempty"`
}

func toResponse(p *domain.Painting) PaintingResponse {
	r := PaintingResponse{
		ID:           p.ID,
		Timestamp:    p.Timestamp,
		TsUnix:       p.TsUnix,
		MinuteBucket: p.MinuteBucket,
		HourBucket:   p.HourBucket,
		TokenID:      p.TokenID,
		ParamsHash:   p.ParamsHash,
		Seed:         p.Seed,
		ImageURL:     p.ImageURL,
		FileSize:     p.FileSize,
		Prompt:       p.Prompt,
		Negative:     p.Negative,
	}
	if json.Valid([]byte(p.VisualParams)) {
		r.VisualParams = json.RawMessage(p.VisualParams)
	}
	return r
}
