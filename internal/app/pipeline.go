package app

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/ibeckermayer/proofshot/internal/assembler"
	"github.com/ibeckermayer/proofshot/internal/config"
	"github.com/ibeckermayer/proofshot/internal/export"
	"github.com/ibeckermayer/proofshot/internal/normalize"
	"github.com/ibeckermayer/proofshot/internal/resolver"
	"github.com/ibeckermayer/proofshot/internal/store"
	"github.com/ibeckermayer/proofshot/internal/synth"
)

// PageSurface is an export surface that can load a rendered page
type PageSurface interface {
	export.Surface
	Load(ctx context.Context, html string) error
}

// SurfaceOpener starts a surface; the returned func releases it
type SurfaceOpener func(ctx context.Context) (PageSurface, func(), error)

// chromeOpener launches a fresh headless tab per export
func chromeOpener(cfg *config.Config) SurfaceOpener {
	return func(ctx context.Context) (PageSurface, func(), error) {
		s, err := export.OpenChromeSurface(ctx, cfg.Export.Headless, cfg.Resolver.BrowserPath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
}

// buildAssembler wires resolver, generator and normalizer from config
func buildAssembler(cfg *config.Config, logger *zap.Logger) (*assembler.Assembler, error) {
	names := cfg.Resolver.Providers
	if cfg.Resolver.UseBrowser && !slices.Contains(names, "browser") {
		names = append(slices.Clone(names), "browser")
	}
	client := &http.Client{Timeout: time.Duration(cfg.Resolver.TimeoutMS) * time.Millisecond}
	providers, err := resolver.ProvidersByName(names, client, cfg.Resolver.BrowserPath)
	if err != nil {
		return nil, err
	}

	res := resolver.New(providers,
		resolver.WithRetryPolicy(resolver.RetryPolicy{
			Attempts: cfg.Resolver.Attempts,
			Backoff:  time.Duration(cfg.Resolver.BackoffMS) * time.Millisecond,
			Timeout:  time.Duration(cfg.Resolver.TimeoutMS) * time.Millisecond,
		}),
		resolver.WithMaxChars(cfg.Resolver.MaxChars),
		resolver.WithLogger(logger),
	)

	var cache *store.ExchangeCache
	if cfg.Generation.CacheExchanges {
		if cache, err = store.DefaultExchangeCache(); err != nil {
			logger.Warn("LLM exchange cache unavailable", zap.Error(err))
			cache = nil
		} else {
			logger.Debug("caching LLM exchanges", zap.String("dir", cache.Dir()))
		}
	}
	gen, err := synth.NewGenerator(cfg.Generation, cache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}
	syn := synth.New(gen,
		synth.WithSampling(synth.SamplingFrom(cfg.Generation)),
		synth.WithLogger(logger),
	)

	return assembler.New(res, syn, normalize.New(), assembler.WithLogger(logger)), nil
}

// exportOptions maps the export section to engine options
func exportOptions(cfg *config.Config, logger *zap.Logger) []export.Option {
	return []export.Option{
		export.WithSettleDelay(time.Duration(cfg.Export.SettleMS) * time.Millisecond),
		export.WithScale(cfg.Export.PixelRatio),
		export.WithPadding(cfg.Export.PaddingPX),
		export.WithLogger(logger),
	}
}
