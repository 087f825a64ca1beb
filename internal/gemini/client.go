// Package gemini adapts the genai SDK to the image and JSON generation
// collaborators of the pipeline.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// ProviderName identifies Gemini in errors and metrics.
const ProviderName = "gemini"

// Default models.
const (
	DefaultImageModel = "imagen-4.0-generate-001"
	DefaultTextModel  = "gemini-2.5-flash"
)

type imageModels interface {
	GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Options configures the genai client.
type Options struct {
	// APIKey selects the Gemini API backend. When empty the client falls back
	// to Vertex AI application default credentials (GOOGLE_CLOUD_PROJECT,
	// GOOGLE_CLOUD_LOCATION, GOOGLE_GENAI_USE_VERTEXAI).
	APIKey     string
	ImageModel string
	TextModel  string
}

// NewClient creates the underlying genai client.
func NewClient(ctx context.Context, opts Options) (*genai.Client, error) {
	var cfg *genai.ClientConfig
	if opts.APIKey != "" {
		cfg = &genai.ClientConfig{APIKey: opts.APIKey}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client, nil
}
