// Package synth generates platform-shaped testimonial text from a product
// context with a single language-model call.
package synth

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ibeckermayer/proofshot/internal/apperr"
	"github.com/ibeckermayer/proofshot/internal/types"
)

// Character budgets per platform
const (
	MicroPostBudget = 280
	DefaultBudget   = 1000
)

// Prompt is the system/user pair sent to a generator
type Prompt struct {
	System string
	User   string
}

// Sampling controls generation randomness. Generators map the fields they
// support and ignore the rest.
type Sampling struct {
	Temperature      float64
	PresencePenalty  float64
	FrequencyPenalty float64
}

// DefaultSampling favors varied, non-repetitive output
var DefaultSampling = Sampling{
	Temperature:      0.9,
	PresencePenalty:  0.6,
	FrequencyPenalty: 0.6,
}

// Generator is a text-completion backend
type Generator interface {
	Complete(ctx context.Context, prompt Prompt, maxChars int, sampling Sampling) (string, error)
}

// Budget returns the character budget for a platform
func Budget(p types.Platform) int {
	if p == types.PlatformMicroPost {
		return MicroPostBudget
	}
	return DefaultBudget
}

// Synthesizer turns synthesis requests into text
type Synthesizer struct {
	gen      Generator
	sampling Sampling
	logger   *zap.Logger
}

// Option configures a Synthesizer
type Option func(*Synthesizer)

// WithSampling overrides DefaultSampling
func WithSampling(s Sampling) Option {
	return func(sy *Synthesizer) { sy.sampling = s }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(sy *Synthesizer) { sy.logger = l.Named("synth") }
}

// New creates a synthesizer backed by gen
func New(gen Generator, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		gen:      gen,
		sampling: DefaultSampling,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize makes exactly one generator call and returns the trimmed text,
// cut to the platform budget. There is no fallback text: an empty result is
// a generation error.
func (s *Synthesizer) Synthesize(ctx context.Context, req types.SynthesisRequest) (string, error) {
	if !req.Platform.Valid() {
		return "", apperr.Errorf(apperr.KindValidation, "synthesize", "unknown platform %q", req.Platform)
	}

	budget := Budget(req.Platform)
	prompt := BuildPrompt(req, budget)

	out, err := s.gen.Complete(ctx, prompt, budget, s.sampling)
	if err != nil {
		return "", apperr.Wrap(err, apperr.KindGeneration, "synthesize", "generator call failed")
	}

	text := truncate(strings.TrimSpace(out), budget)
	if text == "" {
		return "", apperr.New(apperr.KindGeneration, "synthesize", "generator returned empty text")
	}

	s.logger.Debug("synthesized text",
		zap.String("platform", string(req.Platform)),
		zap.String("tone", string(req.Tone)),
		zap.Int("chars", utf8.RuneCountInString(text)))

	return text, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}
