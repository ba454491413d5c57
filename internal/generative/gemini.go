package generative

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

// GeminiGenerator translates with a Gemini model.
type GeminiGenerator struct {
	model  string
	client *genai.Client
}

// NewGeminiGenerator creates a generator using the Gemini API backend.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, newServiceError(providerGemini, 0, errors.New("Gemini API key not found"))
	}
	if model == "" {
		model = DefaultConfig().GeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, newServiceError(providerGemini, 0, err)
	}
	return &GeminiGenerator{model: model, client: client}, nil
}

// Name returns the provider name.
func (g *GeminiGenerator) Name() string {
	return providerGemini
}

// Generate asks Gemini for a translation of text into lang.
func (g *GeminiGenerator) Generate(ctx context.Context, text, lang string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.3),
		MaxOutputTokens: 50,
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(Prompt(text, lang)), cfg)
	if err != nil {
		return "", classifyGemini(err)
	}

	translation := cleanResponse(resp.Text())
	if translation == "" {
		return "", newServiceError(providerGemini, 0, errors.New("empty translation returned"))
	}
	return translation, nil
}
