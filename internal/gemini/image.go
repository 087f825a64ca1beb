package gemini

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"doom-index/internal/apperr"
	"doom-index/internal/observability"
)

// ImageRequest is one text-to-image call.
type ImageRequest struct {
	Prompt   string
	Negative string
	Width    int
	Height   int
	Seed     int32
	Format   string // webp|png|jpeg
}

// ImageResult is the provider response.
type ImageResult struct {
	Bytes    []byte
	MIMEType string
	Metadata map[string]string
}

// defaultOutputMIME is what the Gemini API returns when it may not be asked
// for a format.
const defaultOutputMIME = "image/png"

// ImageGenerator produces images with an Imagen model.
type ImageGenerator struct {
	models imageModels
	model  string
	// full enables negative prompt, seed and output format, which only the
	// Vertex AI backend accepts.
	full   bool
	logger zerolog.Logger
}

// NewImageGenerator creates an image generator on top of a genai client.
func NewImageGenerator(client *genai.Client, opts Options, logger zerolog.Logger) *ImageGenerator {
	return newImageGenerator(client.Models, opts, logger)
}

func newImageGenerator(models imageModels, opts Options, logger zerolog.Logger) *ImageGenerator {
	model := opts.ImageModel
	if model == "" {
		model = DefaultImageModel
	}
	g := &ImageGenerator{
		models: models,
		model:  model,
		full:   opts.APIKey == "",
		logger: logger.With().Str("component", "gemini_image").Logger(),
	}
	if !g.full {
		g.logger.Warn().
			Str("model", model).
			Str("stored_mime", defaultOutputMIME).
			Msg("gemini api key backend ignores seed, negative prompt and output format; artifacts keep the .webp name but hold the returned bytes")
	}
	return g
}

// Generate issues exactly one provider call.
func (g *ImageGenerator) Generate(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	prompt := req.Prompt
	cfg := &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    AspectRatio(req.Width, req.Height),
	}
	if g.full {
		seed := req.Seed
		cfg.Seed = &seed
		cfg.NegativePrompt = req.Negative
		cfg.OutputMIMEType = MIMEType(req.Format)
	} else if req.Negative != "" {
		prompt += "\nAvoid: " + req.Negative
	}

	start := time.Now()
	resp, err := g.models.GenerateImages(ctx, g.model, prompt, cfg)
	observability.RecordProviderCall(ProviderName, "generate_images", time.Since(start).Seconds(), err)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &apperr.TimeoutError{Message: "image generation", Err: err}
		}
		return nil, apperr.External(ProviderName, 0, "generate images", err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, apperr.External(ProviderName, 0, "no image returned", nil)
	}

	img := resp.GeneratedImages[0].Image
	if len(img.ImageBytes) == 0 {
		return nil, apperr.External(ProviderName, 0, "empty image bytes", nil)
	}
	mime := img.MIMEType
	if mime == "" {
		mime = cfg.OutputMIMEType
	}
	if mime == "" {
		mime = defaultOutputMIME
	}

	g.logger.Debug().
		Int("bytes", len(img.ImageBytes)).
		Str("mime", mime).
		Str("aspect_ratio", cfg.AspectRatio).
		Msg("image generated")

	return &ImageResult{
		Bytes:    img.ImageBytes,
		MIMEType: mime,
		Metadata: map[string]string{
			"model":        g.model,
			"aspect_ratio": cfg.AspectRatio,
			"seed":         strconv.FormatInt(int64(req.Seed), 10),
			"seed_applied": strconv.FormatBool(g.full),
		},
	}, nil
}

// MIMEType maps an output format to its MIME type. Unknown formats map to webp.
func MIMEType(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "jpeg", "jpg":
		return "image/jpeg"
	default:
		return "image/webp"
	}
}

var aspectRatios = []struct {
	label string
	ratio float64
}{
	{"1:1", 1},
	{"3:4", 3.0 / 4.0},
	{"4:3", 4.0 / 3.0},
	{"9:16", 9.0 / 16.0},
	{"16:9", 16.0 / 9.0},
}

// AspectRatio returns the supported aspect ratio closest to width:height.
func AspectRatio(width, height int) string {
	if width <= 0 || height <= 0 {
		return "1:1"
	}
	want := float64(width) / float64(height)
	best := aspectRatios[0]
	for _, ar := range aspectRatios[1:] {
		if math.Abs(ar.ratio-want) < math.Abs(best.ratio-want) {
			best = ar
		}
	}
	return best.label
}
