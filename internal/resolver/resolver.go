// Package resolver turns a product URL or free-text description into the
// bounded text context used for synthesis.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ibeckermayer/proofshot/internal/apperr"
	"github.com/ibeckermayer/proofshot/internal/types"
)

// MaxDescriptionChars bounds every TextContext description
const MaxDescriptionChars = 1000

// RetryPolicy bounds the work spent on one provider
type RetryPolicy struct {
	Attempts int           // total tries per provider
	Backoff  time.Duration // wait after the n-th failure is n*Backoff
	Timeout  time.Duration // per attempt
}

// DefaultRetryPolicy is three tries, 1s/2s backoff, 3s per try
var DefaultRetryPolicy = RetryPolicy{
	Attempts: 3,
	Backoff:  time.Second,
	Timeout:  3 * time.Second,
}

// Resolution is the outcome of Resolve. Warning is set when the context is
// a placeholder because the page could not be retrieved or read.
type Resolution struct {
	Context  types.TextContext
	Warning  error
	Provider string
}

// Degraded reports whether the context is a placeholder
func (r Resolution) Degraded() bool { return r.Warning != nil }

// Resolver fetches pages through an ordered list of providers
type Resolver struct {
	providers []Provider
	retry     RetryPolicy
	maxChars  int
	logger    *zap.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option configures a Resolver
type Option func(*Resolver)

// WithRetryPolicy overrides the retry policy
func WithRetryPolicy(p RetryPolicy) Option {
	return func(r *Resolver) { r.retry = p }
}

// WithMaxChars lowers the description bound; it never exceeds
// MaxDescriptionChars
func WithMaxChars(n int) Option {
	return func(r *Resolver) {
		if n > 0 && n <= MaxDescriptionChars {
			r.maxChars = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) { r.logger = l.Named("resolver") }
}

// New creates a resolver trying providers in order
func New(providers []Provider, opts ...Option) *Resolver {
	r := &Resolver{
		providers: providers,
		retry:     DefaultRetryPolicy,
		maxChars:  MaxDescriptionChars,
		logger:    zap.NewNop(),
		sleep:     sleepCtx,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.retry.Attempts < 1 {
		r.retry.Attempts = 1
	}
	return r
}

// IsURL reports whether input should be fetched rather than used as text
func IsURL(input string) bool {
	s := strings.ToLower(strings.TrimSpace(input))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Resolve never fails: free text is returned as-is (bounded), and URLs that
// cannot be read yield a placeholder context with Warning set.
func (r *Resolver) Resolve(ctx context.Context, input string) Resolution {
	if !IsURL(input) {
		return Resolution{Context: types.TextContext{Description: truncate(input, r.maxChars)}}
	}

	raw := strings.TrimSpace(input)
	pageURL, err := url.Parse(raw)
	if err != nil || pageURL.Host == "" {
		return r.degrade(raw, nil, apperr.Wrap(orInvalid(err), apperr.KindValidation, "resolve", "unparseable url"))
	}

	var failures []error
	for _, p := range r.providers {
		html, err := r.fetchWithRetry(ctx, p, pageURL.String())
		if err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", p.Name(), err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		ex, err := extract(html, pageURL, r.maxChars)
		if err != nil || ex.Description == "" {
			failures = append(failures, fmt.Errorf("%s: no usable text extracted", p.Name()))
			continue
		}

		r.logger.Debug("resolved page",
			zap.String("url", pageURL.String()),
			zap.String("provider", p.Name()),
			zap.Int("chars", len([]rune(ex.Description))))

		return Resolution{
			Context: types.TextContext{
				Description:     ex.Description,
				CompanyNameHint: ex.Company,
				ProductNameHint: ex.Product,
			},
			Provider: p.Name(),
		}
	}

	if len(failures) == 0 {
		failures = append(failures, errors.New("no retrieval providers configured"))
	}
	warning := apperr.Wrap(errors.Join(failures...), apperr.KindNetwork, "resolve",
		"could not retrieve page; describe the product manually")
	return r.degrade(raw, pageURL, warning)
}

func (r *Resolver) degrade(raw string, pageURL *url.URL, warning error) Resolution {
	r.logger.Warn("resolver degraded to placeholder",
		zap.String("url", raw),
		zap.Error(warning))

	return Resolution{
		Context: types.TextContext{
			Description:     truncate("Product website: "+raw, r.maxChars),
			CompanyNameHint: domainLabel(pageURL),
		},
		Warning: warning,
	}
}

// fetchWithRetry runs up to Attempts tries, each under Timeout, waiting
// n*Backoff after the n-th failure
func (r *Resolver) fetchWithRetry(ctx context.Context, p Provider, pageURL string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= r.retry.Attempts; attempt++ {
		html, err := r.attempt(ctx, p, pageURL)
		if err == nil {
			return html, nil
		}
		lastErr = err

		r.logger.Debug("fetch attempt failed",
			zap.String("provider", p.Name()),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt == r.retry.Attempts {
			break
		}
		if err := r.sleep(ctx, time.Duration(attempt)*r.retry.Backoff); err != nil {
			return "", apperr.Wrap(err, apperr.KindNetwork, "fetch", "cancelled")
		}
	}

	return "", lastErr
}

func (r *Resolver) attempt(ctx context.Context, p Provider, pageURL string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.retry.Timeout)
	defer cancel()

	html, err := p.Fetch(attemptCtx, pageURL)
	if err == nil {
		return html, nil
	}
	if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return "", apperr.Wrap(err, apperr.KindTimeout, "fetch", "attempt timed out")
	}
	return "", apperr.Wrap(err, apperr.KindNetwork, "fetch", "attempt failed")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func orInvalid(err error) error {
	if err != nil {
		return err
	}
	return errors.New("missing host")
}
