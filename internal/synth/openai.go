package synth

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/ibeckermayer/proofshot/internal/config"
	"github.com/ibeckermayer/proofshot/internal/store"
)

// OpenAIGenerator implements Generator using chat completions. BaseURL lets
// it target any OpenAI-compatible endpoint.
type OpenAIGenerator struct {
	model  string
	opts   []option.RequestOption
	cache  *store.ExchangeCache
	logger *zap.Logger
}

// NewOpenAIGenerator creates a new OpenAI generator. cache may be nil.
func NewOpenAIGenerator(apiKey, model, baseURL string, cache *store.ExchangeCache, logger *zap.Logger) *OpenAIGenerator {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIGenerator{model: model, opts: opts, cache: cache, logger: logger}
}

// Complete sends a system and user message and returns the first choice
func (g *OpenAIGenerator) Complete(ctx context.Context, prompt Prompt, maxChars int, sampling Sampling) (string, error) {
	client := openai.NewClient(g.opts...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
		MaxTokens:        openai.Int(maxTokensFor(maxChars)),
		Temperature:      openai.Float(sampling.Temperature),
		PresencePenalty:  openai.Float(sampling.PresencePenalty),
		FrequencyPenalty: openai.Float(sampling.FrequencyPenalty),
	})
	if err != nil {
		recordExchange(g.cache, g.logger, config.ProviderOpenAI, g.model, prompt, "", err)
		return "", fmt.Errorf("failed to call OpenAI API: %w", err)
	}
	if len(resp.Choices) == 0 {
		recordExchange(g.cache, g.logger, config.ProviderOpenAI, g.model, prompt, "", errors.New("empty choices"))
		return "", errors.New("openai: empty choices")
	}

	text := resp.Choices[0].Message.Content
	recordExchange(g.cache, g.logger, config.ProviderOpenAI, g.model, prompt, text, nil)
	return text, nil
}
