package generative

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIGenerator translates with an OpenAI chat model.
type OpenAIGenerator struct {
	apiKey string
	model  string
	client *openai.Client
}

// NewOpenAIGenerator creates a generator for the given chat model.
func NewOpenAIGenerator(apiKey, model string) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, newServiceError(providerOpenAI, 0, errors.New("OpenAI API key not found"))
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIGenerator{
		apiKey: apiKey,
		model:  model,
		client: openai.NewClient(apiKey),
	}, nil
}

// Name returns the provider name.
func (g *OpenAIGenerator) Name() string {
	return providerOpenAI
}

// Generate asks the chat model for a translation of text into lang.
func (g *OpenAIGenerator) Generate(ctx context.Context, text, lang string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: Prompt(text, lang),
			},
		},
		MaxTokens:   50,
		Temperature: 0.3,
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyOpenAI(err)
	}
	if len(resp.Choices) == 0 {
		return "", newServiceError(providerOpenAI, 0, errors.New("no translation returned"))
	}

	translation := cleanResponse(resp.Choices[0].Message.Content)
	if translation == "" {
		return "", newServiceError(providerOpenAI, 0, errors.New("empty translation returned"))
	}
	return translation, nil
}

// cleanResponse strips whitespace and surrounding quotes models like to add.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`«» ")
	return strings.TrimSpace(s)
}
