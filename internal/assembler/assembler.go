// Package assembler composes resolution, synthesis and normalization into
// finished artifacts.
package assembler

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ibeckermayer/proofshot/internal/apperr"
	"github.com/ibeckermayer/proofshot/internal/normalize"
	"github.com/ibeckermayer/proofshot/internal/resolver"
	"github.com/ibeckermayer/proofshot/internal/synth"
	"github.com/ibeckermayer/proofshot/internal/types"
)

// MaxBatch bounds AssembleMany
const MaxBatch = 20

// Request describes one artifact to build
type Request struct {
	Input    string         `json:"input" validate:"required,notblank,max=20000"`
	Platform types.Platform `json:"platform" validate:"required,platform"`
	Tone     types.Tone     `json:"tone" validate:"omitempty,tone"`
	Metrics  map[string]any `json:"metrics,omitempty"`
}

// Resolver produces the text context for an input
type Resolver interface {
	Resolve(ctx context.Context, input string) resolver.Resolution
}

// Synthesizer produces raw text for a request
type Synthesizer interface {
	Synthesize(ctx context.Context, req types.SynthesisRequest) (string, error)
}

// Assembler runs the generation pipeline for one artifact at a time
type Assembler struct {
	resolver Resolver
	synth    Synthesizer
	logger   *zap.Logger

	mu   sync.Mutex // guards norm
	norm *normalize.Normalizer

	now   func() time.Time
	newID func() string
}

// Option configures an Assembler
type Option func(*Assembler)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(a *Assembler) { a.logger = l.Named("assembler") }
}

// WithClock overrides the creation time source
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// WithIDs overrides artifact id generation
func WithIDs(newID func() string) Option {
	return func(a *Assembler) { a.newID = newID }
}

// New creates an assembler
func New(r Resolver, s Synthesizer, n *normalize.Normalizer, opts ...Option) *Assembler {
	a := &Assembler{
		resolver: r,
		synth:    s,
		norm:     n,
		logger:   zap.NewNop(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble validates req and builds one artifact. A degraded resolution is
// not an error: the artifact carries the warning instead.
func (a *Assembler) Assemble(ctx context.Context, req Request) (types.Artifact, error) {
	if err := req.Validate(); err != nil {
		return types.Artifact{}, err
	}
	return a.assemble(ctx, req)
}

// AssembleMany runs n independent assemblies in sequence. On failure it
// returns the artifacts built so far along with the error.
func (a *Assembler) AssembleMany(ctx context.Context, req Request, n int) ([]types.Artifact, error) {
	if n < 1 || n > MaxBatch {
		return nil, apperr.Errorf(apperr.KindValidation, "assemble", "count must be between 1 and %d", MaxBatch)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	artifacts := make([]types.Artifact, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return artifacts, err
		}
		art, err := a.assemble(ctx, req)
		if err != nil {
			return artifacts, fmt.Errorf("failed to assemble artifact %d of %d: %w", i+1, n, err)
		}
		artifacts = append(artifacts, art)
	}
	return artifacts, nil
}

func (a *Assembler) assemble(ctx context.Context, req Request) (types.Artifact, error) {
	res := a.resolver.Resolve(ctx, req.Input)

	// The persona is drawn first so an email can be signed with its name
	a.mu.Lock()
	author := a.norm.PersonaFor(req.Platform, normalize.PinnedFrom(req.Metrics))
	a.mu.Unlock()

	text, err := a.synth.Synthesize(ctx, types.SynthesisRequest{
		Platform:       req.Platform,
		Context:        res.Context,
		Tone:           req.Tone,
		SenderNameHint: author.DisplayName,
	})
	if err != nil {
		return types.Artifact{}, err
	}

	var title string
	content := text
	if req.Platform.HasTitle() {
		title, content = synth.SplitTitle(text)
		if content == "" {
			content, title = title, ""
		}
	}

	overrides := withDerivedDefaults(req, title, author)

	a.mu.Lock()
	metrics := a.norm.Normalize(req.Platform, overrides)
	timestamp := a.norm.TimestampFromRelative(metrics.Relative())
	a.mu.Unlock()
	if _, ok := normalize.ParseRelative(metrics.Relative()); !ok {
		a.logger.Debug("unrecognized relative time, using one hour ago",
			zap.String("time", metrics.Relative()))
	}

	art := types.Artifact{
		ID:            a.newID(),
		Platform:      req.Platform,
		Content:       content,
		Title:         title,
		Author:        author,
		Metrics:       metrics,
		Timestamp:     timestamp,
		SourceContext: res.Context.Description,
		CreatedAt:     a.now(),
	}
	if res.Warning != nil {
		art.ResolverWarning = res.Warning.Error()
	}

	a.logger.Info("assembled artifact",
		zap.String("id", art.ID),
		zap.String("platform", string(art.Platform)),
		zap.String("provider", res.Provider),
		zap.Bool("degraded", res.Degraded()))

	return art, nil
}

// withDerivedDefaults fills overrides that depend on the generated text or
// persona, leaving caller-supplied values alone
func withDerivedDefaults(req Request, title string, author types.Persona) map[string]any {
	out := make(map[string]any, len(req.Metrics)+1)
	maps.Copy(out, req.Metrics)

	switch req.Platform {
	case types.PlatformEmail:
		if _, ok := out[normalize.KeySubject]; !ok && title != "" {
			out[normalize.KeySubject] = title
		}
	case types.PlatformReview:
		if _, ok := out[normalize.KeyLocale]; !ok && author.Locale != "" {
			out[normalize.KeyLocale] = author.Locale
		}
	}
	return out
}
