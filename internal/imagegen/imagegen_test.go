package imagegen

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doom-index/internal/apperr"
	"doom-index/internal/classify"
	"doom-index/internal/domain"
	"doom-index/internal/gemini"
	"doom-index/internal/idhash"
	"doom-index/internal/prompt"
)

type fakeProvider struct {
	calls int
	req   gemini.ImageRequest
	res   *gemini.ImageResult
	err   error
}

func (f *fakeProvider) Generate(ctx context.Context, req gemini.ImageRequest) (*gemini.ImageResult, error) {
	f.calls++
	f.req = req
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("missing deadline")
	}
	return f.res, f.err
}

func testContext() domain.PaintingContext {
	fg := 75
	snap := domain.MarketSnapshot{HourBucket: "2025-11-14T12:00", MarketCapChangePct24h: 4.5, FearGreedIndex: &fg}
	sel := domain.SelectedToken{TokenCandidate: domain.TokenCandidate{
		ID: "pepe", Symbol: "PEPE", Name: "Pepe", PriceChange24h: 12, Categories: []string{"meme"},
	}}
	return classify.Build(snap, sel)
}

var at = time.Date(2025, 11, 14, 12, 34, 56, 0, time.UTC)

func newService(p Provider) *Service {
	return New(Options{
		Provider: p,
		Prompt:   prompt.DefaultConfig(),
		Timeout:  time.Second,
		Logger:   zerolog.Nop(),
	})
}

func TestCompose(t *testing.T) {
	svc := newService(nil)
	caps := map[string]float64{"bitcoin": 2e12, "ethereum": 4e11}

	c, err := svc.Compose(testContext(), caps, at)
	require.NoError(t, err)

	assert.Len(t, c.ParamsHash, 8)
	assert.Len(t, c.Seed, 12)
	assert.Equal(t, idhash.ComputeSeed("2025-11-14T12:34", c.ParamsHash), c.Seed)
	assert.True(t, idhash.ValidFilename(c.Filename), c.Filename)
	assert.Contains(t, c.Filename, "DOOM_202511141234_")
	assert.Equal(t, "2025-11-14T12:34", c.MinuteBucket)
	assert.Equal(t, prompt.NegativePrompt, c.Negative)
	assert.Contains(t, c.Prompt, "procession")
	assert.Equal(t, 1024, c.Width)
	assert.Equal(t, "webp", c.Format)
	assert.Equal(t, 2.0, c.Params.Weights["bitcoin"])
	assert.Contains(t, c.ParamsJSON, `"tokenId":"pepe"`)
}

func TestCompose_Deterministic(t *testing.T) {
	svc := newService(nil)
	caps := map[string]float64{"bitcoin": 2e12}

	a, err := svc.Compose(testContext(), caps, at)
	require.NoError(t, err)
	b, err := svc.Compose(testContext(), caps, at)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	later, err := svc.Compose(testContext(), caps, at.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, a.ParamsHash, later.ParamsHash)
	assert.NotEqual(t, a.Seed, later.Seed)
}

func TestGenerate(t *testing.T) {
	p := &fakeProvider{res: &gemini.ImageResult{Bytes: []byte("img"), MIMEType: "image/webp"}}
	svc := newService(p)

	c, err := svc.Compose(testContext(), nil, at)
	require.NoError(t, err)

	res, err := svc.Generate(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), res.Bytes)
	assert.Equal(t, 1, p.calls)

	wantSeed, err := idhash.ProviderSeed(c.Seed)
	require.NoError(t, err)
	assert.Equal(t, wantSeed, p.req.Seed)
	assert.Equal(t, c.Prompt, p.req.Prompt)
	assert.Equal(t, c.Negative, p.req.Negative)
}

func TestGenerate_NoRetry(t *testing.T) {
	p := &fakeProvider{err: apperr.External(gemini.ProviderName, 500, "boom", nil)}
	svc := newService(p)

	c, err := svc.Compose(testContext(), nil, at)
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), c)
	assert.Equal(t, apperr.KindExternalAPI, apperr.KindOf(err))
	assert.Equal(t, 1, p.calls)
}

func TestGenerate_TimeoutBudget(t *testing.T) {
	p := &fakeProvider{err: &apperr.TimeoutError{Message: "image generation"}}
	svc := newService(p)

	c, err := svc.Compose(testContext(), nil, at)
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), c)
	var te *apperr.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, int64(1000), te.TimeoutMs)
}
