package gemini

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"doom-index/internal/apperr"
	"doom-index/internal/domain"
)

type fakeImageModels struct {
	calls  int
	prompt string
	cfg    *genai.GenerateImagesConfig
	resp   *genai.GenerateImagesResponse
	err    error
}

func (f *fakeImageModels) GenerateImages(ctx context.Context, model, prompt string, cfg *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	f.calls++
	f.prompt = prompt
	f.cfg = cfg
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func imageResponse(b []byte, mime string) *genai.GenerateImagesResponse {
	return &genai.GenerateImagesResponse{
		GeneratedImages: []*genai.GeneratedImage{{Image: &genai.Image{ImageBytes: b, MIMEType: mime}}},
	}
}

func TestImageGenerator_Vertex(t *testing.T) {
	fake := &fakeImageModels{resp: imageResponse([]byte("RIFF"), "image/webp")}
	g := &ImageGenerator{models: fake, model: DefaultImageModel, full: true, logger: zerolog.Nop()}

	res, err := g.Generate(context.Background(), ImageRequest{
		Prompt: "a painting", Negative: "text", Width: 1024, Height: 1024, Seed: 42, Format: "webp",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, "a painting", fake.prompt)
	assert.Equal(t, "text", fake.cfg.NegativePrompt)
	require.NotNil(t, fake.cfg.Seed)
	assert.Equal(t, int32(42), *fake.cfg.Seed)
	assert.Equal(t, "1:1", fake.cfg.AspectRatio)
	assert.Equal(t, "image/webp", fake.cfg.OutputMIMEType)
	assert.Equal(t, []byte("RIFF"), res.Bytes)
	assert.Equal(t, "image/webp", res.MIMEType)
	assert.Equal(t, "42", res.Metadata["seed"])
}

func TestImageGenerator_APIKeyBackendFoldsNegative(t *testing.T) {
	fake := &fakeImageModels{resp: imageResponse([]byte("x"), "")}
	g := &ImageGenerator{models: fake, model: DefaultImageModel, logger: zerolog.Nop()}

	res, err := g.Generate(context.Background(), ImageRequest{Prompt: "p", Negative: "blur", Format: "png"})
	require.NoError(t, err)
	assert.Equal(t, "p\nAvoid: blur", fake.prompt)
	assert.Nil(t, fake.cfg.Seed)
	assert.Empty(t, fake.cfg.NegativePrompt)
	assert.Empty(t, fake.cfg.OutputMIMEType)
	assert.Equal(t, "image/png", res.MIMEType)
	assert.Equal(t, "false", res.Metadata["seed_applied"])
}

func TestNewImageGenerator_WarnsOnAPIKeyBackend(t *testing.T) {
	var buf bytes.Buffer
	g := newImageGenerator(&fakeImageModels{}, Options{APIKey: "key"}, zerolog.New(&buf))
	assert.False(t, g.full)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"stored_mime":"image/png"`)

	buf.Reset()
	g = newImageGenerator(&fakeImageModels{}, Options{}, zerolog.New(&buf))
	assert.True(t, g.full)
	assert.Empty(t, buf.String())
}

func TestImageGenerator_Errors(t *testing.T) {
	t.Run("provider error", func(t *testing.T) {
		g := &ImageGenerator{models: &fakeImageModels{err: errors.New("quota")}, logger: zerolog.Nop()}
		_, err := g.Generate(context.Background(), ImageRequest{Prompt: "p"})
		assert.Equal(t, apperr.KindExternalAPI, apperr.KindOf(err))
	})

	t.Run("no images", func(t *testing.T) {
		g := &ImageGenerator{models: &fakeImageModels{resp: &genai.GenerateImagesResponse{}}, logger: zerolog.Nop()}
		_, err := g.Generate(context.Background(), ImageRequest{Prompt: "p"})
		assert.Equal(t, apperr.KindExternalAPI, apperr.KindOf(err))
	})

	t.Run("deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
		defer cancel()
		<-ctx.Done()
		g := &ImageGenerator{models: &fakeImageModels{err: context.DeadlineExceeded}, logger: zerolog.Nop()}
		_, err := g.Generate(ctx, ImageRequest{Prompt: "p"})
		assert.Equal(t, apperr.KindTimeout, apperr.KindOf(err))
	})
}

func TestAspectRatio(t *testing.T) {
	tests := []struct {
		w, h int
		want string
	}{
		{1024, 1024, "1:1"},
		{1920, 1080, "16:9"},
		{1080, 1920, "9:16"},
		{1200, 900, "4:3"},
		{900, 1200, "3:4"},
		{0, 100, "1:1"},
	}
	for _, tt := range tests {
		if got := AspectRatio(tt.w, tt.h); got != tt.want {
			t.Errorf("AspectRatio(%d, %d) = %s, want %s", tt.w, tt.h, got, tt.want)
		}
	}
}

type fakeContentModels struct {
	text string
	err  error
	cfg  *genai.GenerateContentConfig
}

func (f *fakeContentModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.cfg = cfg
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(f.text, genai.RoleModel)}},
	}, nil
}

func TestGenerateJSON(t *testing.T) {
	fake := &fakeContentModels{text: "```json\n{\"categories\":[\"meme\"]}\n```"}
	g := &JSONGenerator{models: fake, model: DefaultTextModel}

	var out struct {
		Categories []string `json:"categories"`
	}
	require.NoError(t, g.GenerateJSON(context.Background(), "sys", "user", &out))
	assert.Equal(t, []string{"meme"}, out.Categories)
	assert.Equal(t, "application/json", fake.cfg.ResponseMIMEType)
	assert.NotNil(t, fake.cfg.SystemInstruction)
}

func TestGenerateJSON_Invalid(t *testing.T) {
	g := &JSONGenerator{models: &fakeContentModels{text: "not json"}}
	var out map[string]any
	err := g.GenerateJSON(context.Background(), "", "user", &out)
	assert.Equal(t, apperr.KindParsing, apperr.KindOf(err))
}

type stubJSON struct{ body string }

func (s stubJSON) GenerateJSON(ctx context.Context, system, user string, out any) error {
	g := &JSONGenerator{models: &fakeContentModels{text: s.body}}
	return g.GenerateJSON(ctx, system, user, out)
}

func TestEnricher_Categories(t *testing.T) {
	e := NewEnricher(stubJSON{body: `{"categories":[" Meme ","meme","Solana Ecosystem","a","b","c","d"]}`})

	tags, err := e.Categories(context.Background(), domain.TokenCandidate{ID: "bonk", Symbol: "BONK", Name: "Bonk"})
	require.NoError(t, err)
	assert.Equal(t, []string{"meme", "solana ecosystem", "a", "b", "c"}, tags)
}
