// Package sentiment reads the crypto Fear & Greed index from alternative.me.
package sentiment

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"doom-index/internal/apperr"
	"doom-index/internal/domain"
	"doom-index/internal/httpclient"
)

// ProviderName identifies the sentiment provider in errors and metrics.
const ProviderName = "alternative.me"

type fngResponse struct {
	Data []struct {
		Value          string `json:"value"`
		Classification string `json:"value_classification"`
		Timestamp      string `json:"timestamp"`
	} `json:"data"`
	Metadata struct {
		Error *string `json:"error"`
	} `json:"metadata"`
}

// Client fetches the latest index reading.
type Client struct {
	http *httpclient.Client
}

// New creates a sentiment client.
func New(http *httpclient.Client) *Client {
	return &Client{http: http}
}

// GetIndex returns the most recent reading.
func (c *Client) GetIndex(ctx context.Context) (*domain.SentimentIndex, error) {
	q := url.Values{}
	q.Set("limit", "1")

	var resp fngResponse
	if err := c.http.GetJSON(ctx, "/fng/", q, &resp); err != nil {
		return nil, err
	}
	if resp.Metadata.Error != nil && *resp.Metadata.Error != "" {
		return nil, apperr.External(ProviderName, 0, *resp.Metadata.Error, nil)
	}
	if len(resp.Data) == 0 {
		return nil, apperr.External(ProviderName, 0, "empty index data", nil)
	}

	d := resp.Data[0]
	value, err := strconv.Atoi(d.Value)
	if err != nil {
		return nil, apperr.Parsing(d.Value, "fear & greed value", err)
	}
	if value < 0 || value > 100 {
		return nil, apperr.Parsing(d.Value, "fear & greed value out of range", nil)
	}

	ts := time.Now().UTC()
	if d.Timestamp != "" {
		sec, err := strconv.ParseInt(d.Timestamp, 10, 64)
		if err != nil {
			return nil, apperr.Parsing(d.Timestamp, "fear & greed timestamp", err)
		}
		ts = time.Unix(sec, 0).UTC()
	}

	return &domain.SentimentIndex{
		Value:          value,
		Classification: d.Classification,
		Timestamp:      ts,
	}, nil
}
