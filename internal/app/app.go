// Package app wires configuration, the generation pipeline, persistence and
// export into the operations exposed by the CLI and HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ibeckermayer/proofshot/internal/apperr"
	"github.com/ibeckermayer/proofshot/internal/assembler"
	"github.com/ibeckermayer/proofshot/internal/config"
	"github.com/ibeckermayer/proofshot/internal/export"
	"github.com/ibeckermayer/proofshot/internal/normalize"
	"github.com/ibeckermayer/proofshot/internal/render"
	"github.com/ibeckermayer/proofshot/internal/scheduler"
	"github.com/ibeckermayer/proofshot/internal/store"
	"github.com/ibeckermayer/proofshot/internal/types"
)

// Generator builds artifacts; *assembler.Assembler satisfies it
type Generator interface {
	AssembleMany(ctx context.Context, req assembler.Request, n int) ([]types.Artifact, error)
}

// App holds the application state.
type App struct {
	store   *store.Store    // immutable after creation
	builder *render.Builder // immutable after creation
	logger  *zap.Logger

	normMu sync.Mutex // guards norm
	norm   *normalize.Normalizer

	// Exports share one document per call and must not overlap
	exportMu sync.Mutex

	mu        sync.RWMutex
	config    *config.Config
	generator Generator
	opener    SurfaceOpener
}

// snapshot holds fields that may be replaced by ReloadConfig.
// Use getSnapshot() to obtain a consistent, point-in-time copy.
type snapshot struct {
	config    *config.Config
	generator Generator
	opener    SurfaceOpener
}

// getSnapshot returns a snapshot of mutable fields under read lock.
func (a *App) getSnapshot() snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return snapshot{
		config:    a.config,
		generator: a.generator,
		opener:    a.opener,
	}
}

// Option configures an App
type Option func(*App)

// WithGenerator replaces the generation pipeline built from config
func WithGenerator(g Generator) Option {
	return func(a *App) { a.generator = g }
}

// WithNormalizer replaces the normalizer used for metric edits
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(a *App) { a.norm = n }
}

// WithSurfaceOpener replaces the headless Chrome surface
func WithSurfaceOpener(o SurfaceOpener) Option {
	return func(a *App) { a.opener = o }
}

// New creates a new App instance.
func New(cfg *config.Config, st *store.Store, logger *zap.Logger, opts ...Option) (*App, error) {
	builder, err := render.New()
	if err != nil {
		return nil, err
	}

	a := &App{
		store:   st,
		builder: builder,
		logger:  logger,
		norm:    normalize.New(),
		config:  cfg,
		opener:  chromeOpener(cfg),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.generator == nil {
		gen, err := buildAssembler(cfg, logger)
		if err != nil {
			return nil, err
		}
		a.generator = gen
	}
	return a, nil
}

// Config returns the current configuration
func (a *App) Config() *config.Config {
	return a.getSnapshot().config
}

// Generate assembles n artifacts and persists them. Artifacts built before a
// failure are saved and returned with the error.
func (a *App) Generate(ctx context.Context, req assembler.Request, n int) ([]types.Artifact, error) {
	s := a.getSnapshot()

	artifacts, genErr := s.generator.AssembleMany(ctx, req, n)
	if len(artifacts) > 0 {
		if err := a.store.SaveArtifacts(artifacts); err != nil {
			return artifacts, errors.Join(genErr, fmt.Errorf("failed to save artifacts: %w", err))
		}
	}
	if genErr != nil {
		a.logger.Warn("generation stopped early",
			zap.Int("requested", n),
			zap.Int("built", len(artifacts)),
			zap.Error(genErr))
		return artifacts, genErr
	}

	a.logger.Info("generated artifacts",
		zap.String("platform", string(req.Platform)),
		zap.Int("count", len(artifacts)))
	return artifacts, nil
}

// Artifact returns a stored artifact
func (a *App) Artifact(id string) (types.Artifact, error) {
	return a.store.GetArtifact(id)
}

// Artifacts lists recent artifacts
func (a *App) Artifacts(limit int) ([]types.Artifact, error) {
	return a.store.ListArtifacts(limit)
}

// UpdateMetrics applies metric overrides to a stored artifact. The current
// metrics are the base, so keys left out keep their values; the result is
// normalized for the artifact's platform like at generation time.
func (a *App) UpdateMetrics(id string, overrides map[string]any) (types.Artifact, error) {
	art, err := a.store.GetArtifact(id)
	if err != nil {
		return types.Artifact{}, err
	}

	bag := normalize.OverridesFrom(art.Metrics)
	maps.Copy(bag, overrides)

	a.normMu.Lock()
	metrics := a.norm.Normalize(art.Platform, bag)
	edited := art.WithMetrics(metrics)
	if art.Metrics == nil || metrics.Relative() != art.Metrics.Relative() {
		edited.Timestamp = a.norm.TimestampFromRelative(metrics.Relative())
	}
	a.normMu.Unlock()

	if err := a.store.SaveArtifact(edited); err != nil {
		return types.Artifact{}, err
	}
	return edited, nil
}

// DeleteArtifact removes a stored artifact
func (a *App) DeleteArtifact(id string) error {
	return a.store.DeleteArtifact(id)
}

// Page renders stored artifacts as the HTML page used for capture
func (a *App) Page(ids []string) (*render.Page, error) {
	artifacts := make([]types.Artifact, 0, len(ids))
	for _, id := range ids {
		art, err := a.store.GetArtifact(id)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, art)
	}
	return a.builder.Build(artifacts)
}

// ExportArtifact renders one stored artifact and captures it as PNG
func (a *App) ExportArtifact(ctx context.Context, id string) (types.ImagePayload, error) {
	art, err := a.store.GetArtifact(id)
	if err != nil {
		return types.ImagePayload{}, err
	}

	var img types.ImagePayload
	err = a.withSurface(ctx, []types.Artifact{art}, func(engine *export.Engine, page *render.Page) error {
		var err error
		img, err = engine.ExportOne(ctx, page.Targets[0])
		return err
	})
	return img, err
}

// ExportArtifacts captures stored artifacts into a zip. Unknown ids are
// reported as skipped alongside targets that failed to capture.
func (a *App) ExportArtifacts(ctx context.Context, ids []string) (types.ArchivePayload, error) {
	if len(ids) == 0 {
		return types.ArchivePayload{}, apperr.New(apperr.KindValidation, "export", "no artifact ids given")
	}

	var artifacts []types.Artifact
	var missing []types.SkippedTarget
	for _, id := range ids {
		art, err := a.store.GetArtifact(id)
		if err != nil {
			if !apperr.Is(err, apperr.KindNotFound) {
				return types.ArchivePayload{}, err
			}
			missing = append(missing, types.SkippedTarget{DOMID: types.Artifact{ID: id}.DOMID(), Reason: err.Error()})
			continue
		}
		artifacts = append(artifacts, art)
	}
	if len(artifacts) == 0 {
		return types.ArchivePayload{Skipped: missing}, apperr.New(apperr.KindExportFailed, "export", "all captures failed")
	}

	var archive types.ArchivePayload
	err := a.withSurface(ctx, artifacts, func(engine *export.Engine, page *render.Page) error {
		var err error
		archive, err = engine.ExportMany(ctx, page.Targets)
		return err
	})
	archive.Skipped = append(missing, archive.Skipped...)
	return archive, err
}

// withSurface renders artifacts into a fresh surface and runs fn on it.
// Calls are serialized.
func (a *App) withSurface(ctx context.Context, artifacts []types.Artifact, fn func(*export.Engine, *render.Page) error) error {
	s := a.getSnapshot()

	page, err := a.builder.Build(artifacts)
	if err != nil {
		return apperr.Wrap(err, apperr.KindExportFailed, "export", "failed to render page")
	}

	a.exportMu.Lock()
	defer a.exportMu.Unlock()

	surface, release, err := s.opener(ctx)
	if err != nil {
		return apperr.Wrap(err, apperr.KindExportFailed, "export", "failed to open capture surface")
	}
	defer release()

	if err := surface.Load(ctx, page.HTML); err != nil {
		return apperr.Wrap(err, apperr.KindExportFailed, "export", "failed to load page")
	}

	engine := export.New(surface, exportOptions(s.config, a.logger)...)
	return fn(engine, page)
}

// SaveExport writes an export payload to the configured output directory
func (a *App) SaveExport(name string, data []byte) (string, error) {
	dir, err := a.getSnapshot().config.OutputDir()
	if err != nil {
		return "", err
	}
	return store.SaveOutput(dir, name, data)
}

// RunJob runs one configured generation job and records the outcome
func (a *App) RunJob(ctx context.Context, job config.JobConfig) error {
	count := job.Count
	if count < 1 {
		count = 1
	}
	req := assembler.Request{
		Input:    job.Input,
		Platform: types.Platform(job.Platform),
		Tone:     types.Tone(job.Tone),
		Metrics:  job.Metrics,
	}

	run := store.JobRun{JobName: job.Name, StartedAt: time.Now()}
	artifacts, err := a.Generate(ctx, req, count)
	run.FinishedAt = time.Now()
	run.Artifacts = len(artifacts)
	if err != nil {
		run.Error = err.Error()
	}

	if recErr := a.store.RecordJobRun(run); recErr != nil {
		a.logger.Error("failed to record job run", zap.String("job", job.Name), zap.Error(recErr))
	}
	return err
}

// ScheduleJobs registers every configured job with s
func (a *App) ScheduleJobs(s *scheduler.Scheduler) error {
	for _, job := range a.getSnapshot().config.Jobs {
		if err := s.AddJob(job.Name, job.Schedule, func(ctx context.Context) error {
			return a.RunJob(ctx, job)
		}); err != nil {
			return err
		}
	}
	return nil
}

// ReloadConfig reloads the configuration from disk.
func (a *App) ReloadConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Recreate the pipeline with the new config
	gen, err := buildAssembler(cfg, a.logger)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.config = cfg
	a.generator = gen
	a.opener = chromeOpener(cfg)
	a.mu.Unlock()

	a.logger.Info("configuration reloaded")
	return nil
}
