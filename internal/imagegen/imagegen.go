// Package imagegen turns a painting context into a provider request and
// issues the single image generation call of a cycle.
package imagegen

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"doom-index/internal/apperr"
	"doom-index/internal/domain"
	"doom-index/internal/gemini"
	"doom-index/internal/idhash"
	"doom-index/internal/prompt"
)

// Provider is the text-to-image collaborator.
type Provider interface {
	Generate(ctx context.Context, req gemini.ImageRequest) (*gemini.ImageResult, error)
}

// Options configures the Service.
type Options struct {
	Provider Provider
	Prompt   prompt.Config
	Width    int
	Height   int
	Format   string
	Timeout  time.Duration
	Logger   zerolog.Logger
}

// Service is the image generation service.
type Service struct {
	opts Options
}

// New creates a Service.
func New(opts Options) *Service {
	if opts.Width <= 0 {
		opts.Width = 1024
	}
	if opts.Height <= 0 {
		opts.Height = 1024
	}
	if opts.Format == "" {
		opts.Format = "webp"
	}
	opts.Logger = opts.Logger.With().Str("component", "imagegen").Logger()
	return &Service{opts: opts}
}

// Composition is a resolved request together with the parameters it was
// derived from.
type Composition struct {
	domain.PromptComposition
	Params       domain.VisualParams
	ParamsJSON   string
	MinuteBucket string
}

// Compose derives prompt, params hash, seed and filename for a cycle at t.
// It performs no I/O.
func (s *Service) Compose(pc domain.PaintingContext, caps map[string]float64, t time.Time) (*Composition, error) {
	params := VisualParams(pc, prompt.CalculateDominanceWeights(caps, s.opts.Prompt))

	canonical, err := idhash.CanonicalParams(params)
	if err != nil {
		return nil, apperr.Internal("canonical visual params", err)
	}
	hash, err := idhash.ComputeParamsHash(params)
	if err != nil {
		return nil, apperr.Internal("params hash", err)
	}

	minute := idhash.MinuteBucket(t)
	seed := idhash.ComputeSeed(minute, hash)
	composed := prompt.BuildScenePrompt(caps, s.opts.Prompt, &pc)

	return &Composition{
		PromptComposition: domain.PromptComposition{
			Prompt:     composed.Prompt,
			Negative:   composed.Negative,
			Width:      s.opts.Width,
			Height:     s.opts.Height,
			Format:     s.opts.Format,
			Seed:       seed,
			ParamsHash: hash,
			Filename:   idhash.Filename(t, hash, seed),
		},
		Params:       params,
		ParamsJSON:   string(canonical),
		MinuteBucket: minute,
	}, nil
}

// Generate issues one provider call bounded by the image timeout. It never
// retries.
func (s *Service) Generate(ctx context.Context, c *Composition) (*gemini.ImageResult, error) {
	seed, err := idhash.ProviderSeed(c.Seed)
	if err != nil {
		return nil, apperr.Internal("provider seed", err)
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	res, err := s.opts.Provider.Generate(ctx, gemini.ImageRequest{
		Prompt:   c.Prompt,
		Negative: c.Negative,
		Width:    c.Width,
		Height:   c.Height,
		Seed:     seed,
		Format:   c.Format,
	})
	if err != nil {
		var te *apperr.TimeoutError
		if errors.As(err, &te) && te.TimeoutMs == 0 {
			te.TimeoutMs = s.opts.Timeout.Milliseconds()
		}
		return nil, err
	}
	if len(res.Bytes) == 0 {
		return nil, apperr.External(gemini.ProviderName, 0, "empty image", nil)
	}

	s.opts.Logger.Debug().
		Str("filename", c.Filename).
		Int("bytes", len(res.Bytes)).
		Msg("image generated")
	return res, nil
}

// VisualParams collects the hashed values of a cycle.
func VisualParams(pc domain.PaintingContext, weights map[string]float64) domain.VisualParams {
	motifs := make([]string, len(pc.Motifs))
	copy(motifs, pc.Motifs)
	return domain.VisualParams{
		TokenID:     pc.Token.ID,
		Climate:     pc.Climate,
		Archetype:   pc.Archetype,
		Event:       pc.Event,
		Composition: pc.Composition,
		Palette:     pc.Palette,
		Dynamics:    pc.Dynamics,
		Motifs:      motifs,
		Weights:     weights,
	}
}
