package synth

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ibeckermayer/proofshot/internal/config"
	"github.com/ibeckermayer/proofshot/internal/store"
)

// NewGenerator picks the generator for the configured LLM provider
func NewGenerator(cfg config.GenerationConfig, cache *store.ExchangeCache, logger *zap.Logger) (Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for %s", cfg.LLMProvider)
	}
	if !cfg.CacheExchanges {
		cache = nil
	}
	logger = logger.Named("llm")

	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		return NewAnthropicGenerator(cfg.APIKey, cfg.Model, cfg.BaseURL, cache, logger), nil
	case config.ProviderOpenAI:
		return NewOpenAIGenerator(cfg.APIKey, cfg.Model, cfg.BaseURL, cache, logger), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.LLMProvider)
	}
}

// SamplingFrom reads sampling settings, keeping defaults for zero values
func SamplingFrom(cfg config.GenerationConfig) Sampling {
	s := DefaultSampling
	if cfg.Temperature > 0 {
		s.Temperature = cfg.Temperature
	}
	if cfg.PresencePenalty != 0 {
		s.PresencePenalty = cfg.PresencePenalty
	}
	if cfg.FrequencyPenalty != 0 {
		s.FrequencyPenalty = cfg.FrequencyPenalty
	}
	return s
}
