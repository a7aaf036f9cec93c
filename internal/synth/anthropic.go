package synth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/ibeckermayer/proofshot/internal/config"
	"github.com/ibeckermayer/proofshot/internal/store"
)

// AnthropicGenerator implements Generator using Anthropic's Messages API
type AnthropicGenerator struct {
	client   *anthropic.Client
	provider string // e.g. "anthropic"
	model    string
	cache    *store.ExchangeCache
	logger   *zap.Logger
}

// NewAnthropicGenerator creates a new Anthropic generator. cache may be nil.
func NewAnthropicGenerator(apiKey, model, baseURL string, cache *store.ExchangeCache, logger *zap.Logger) *AnthropicGenerator {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicGenerator{
		client:   &client,
		provider: config.ProviderAnthropic,
		model:    model,
		cache:    cache,
		logger:   logger,
	}
}

// Complete sends one message and returns the first text block. The Messages
// API has no repetition penalties, so only temperature is mapped.
func (g *AnthropicGenerator) Complete(ctx context.Context, prompt Prompt, maxChars int, sampling Sampling) (string, error) {
	message, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(g.model),
		MaxTokens:   maxTokensFor(maxChars),
		Temperature: anthropic.Float(min(sampling.Temperature, 1.0)),
		System:      []anthropic.TextBlockParam{{Text: prompt.System}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.User)),
		},
	})
	if err != nil {
		recordExchange(g.cache, g.logger, g.provider, g.model, prompt, "", err)
		return "", fmt.Errorf("failed to call Anthropic API: %w", err)
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	recordExchange(g.cache, g.logger, g.provider, g.model, prompt, responseText, nil)

	if strings.TrimSpace(responseText) == "" {
		return "", fmt.Errorf("Anthropic returned empty response")
	}
	return responseText, nil
}

// maxTokensFor leaves headroom over the character budget; the synthesizer
// enforces the exact limit
func maxTokensFor(maxChars int) int64 {
	return int64(maxChars/2 + 64)
}

// recordExchange caches the prompt/response for debugging. Failures are
// logged and never affect the generation result.
func recordExchange(cache *store.ExchangeCache, logger *zap.Logger, provider, model string, prompt Prompt, response string, callErr error) {
	if cache == nil {
		return
	}
	ex := store.LLMExchange{
		Timestamp: time.Now(),
		Provider:  provider,
		Model:     model,
		System:    prompt.System,
		Prompt:    prompt.User,
		Response:  response,
	}
	if callErr != nil {
		ex.Error = callErr.Error()
	}

	path, err := cache.Save(ex)
	if err != nil {
		logger.Warn("failed to cache LLM exchange", zap.Error(err))
		return
	}
	logger.Debug("cached LLM exchange", zap.String("path", path))
}
