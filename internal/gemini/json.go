package gemini

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"google.golang.org/genai"

	"doom-index/internal/apperr"
	"doom-index/internal/observability"
)

// JSONGenerator asks a text model for a JSON document.
type JSONGenerator struct {
	models contentModels
	model  string
}

// NewJSONGenerator creates a JSON generator on top of a genai client.
func NewJSONGenerator(client *genai.Client, opts Options) *JSONGenerator {
	model := opts.TextModel
	if model == "" {
		model = DefaultTextModel
	}
	return &JSONGenerator{models: client.Models, model: model}
}

// GenerateJSON sends system and user instructions and decodes the JSON
// answer into out.
func (g *JSONGenerator) GenerateJSON(ctx context.Context, system, user string, out any) error {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(user), cfg)
	observability.RecordProviderCall(ProviderName, "generate_json", time.Since(start).Seconds(), err)
	if err != nil {
		if ctx.Err() != nil {
			return &apperr.TimeoutError{Message: "json generation", Err: err}
		}
		return apperr.External(ProviderName, 0, "generate content", err)
	}

	text := stripFence(resp.Text())
	if text == "" {
		return apperr.External(ProviderName, 0, "empty response", nil)
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return apperr.Parsing(text, "gemini json response", err)
	}
	return nil
}

// stripFence removes a markdown code fence some models wrap JSON in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
