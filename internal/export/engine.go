// Package export captures rendered artifacts as PNG images, one at a time or
// bundled into a zip archive.
package export

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"github.com/ibeckermayer/proofshot/internal/apperr"
	"github.com/ibeckermayer/proofshot/internal/types"
)

// Capture defaults
const (
	DefaultSettleDelay = 500 * time.Millisecond
	DefaultScale       = 2.0
	DefaultPadding     = 20.0
)

// state is the progress of one capture
type state int

const (
	stateIdle state = iota
	stateStylePrepared
	stateImagesSettled
	stateCaptured
	stateRestored
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateStylePrepared:
		return "style_prepared"
	case stateImagesSettled:
		return "images_settled"
	case stateCaptured:
		return "captured"
	case stateRestored:
		return "restored"
	default:
		return "unknown"
	}
}

// Engine captures elements from a Surface. Calls must not overlap: every
// capture mutates the shared document.
type Engine struct {
	surface Surface
	settle  time.Duration
	scale   float64
	padding float64
	logger  *zap.Logger
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option configures an Engine
type Option func(*Engine)

// WithSettleDelay overrides the pause between image load and capture
func WithSettleDelay(d time.Duration) Option {
	return func(e *Engine) { e.settle = d }
}

// WithScale overrides the device pixel ratio used for capture
func WithScale(s float64) Option {
	return func(e *Engine) {
		if s > 0 {
			e.scale = s
		}
	}
}

// WithPadding overrides the margin added around single exports
func WithPadding(p float64) Option {
	return func(e *Engine) {
		if p >= 0 {
			e.padding = p
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l.Named("export") }
}

// WithClock overrides the time source used for archive names
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine over surface
func New(surface Surface, opts ...Option) *Engine {
	e := &Engine{
		surface: surface,
		settle:  DefaultSettleDelay,
		scale:   DefaultScale,
		padding: DefaultPadding,
		logger:  zap.NewNop(),
		now:     time.Now,
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExportOne captures a single element with padding around it
func (e *Engine) ExportOne(ctx context.Context, target types.ExportTarget) (types.ImagePayload, error) {
	data, clip, err := e.capture(ctx, target, e.padding)
	if err != nil {
		return types.ImagePayload{}, err
	}
	return e.payload(target, data, clip), nil
}

// ExportMany captures targets one after another and zips the successes.
// Missing or failing targets are skipped; the export fails only when nothing
// was captured.
func (e *Engine) ExportMany(ctx context.Context, targets []types.ExportTarget) (types.ArchivePayload, error) {
	if len(targets) == 0 {
		return types.ArchivePayload{}, apperr.New(apperr.KindValidation, "export", "no targets given")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	archive := types.ArchivePayload{
		FileName: fmt.Sprintf("proofshot-%s.zip", e.now().UTC().Format("20060102-150405")),
	}
	used := make(map[string]int)

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return types.ArchivePayload{}, apperr.Wrap(err, apperr.KindExportFailed, "export", "cancelled")
		}

		data, _, err := e.capture(ctx, target, 0)
		if err != nil {
			e.logger.Warn("skipping export target",
				zap.String("dom_id", target.DOMID),
				zap.Error(err))
			archive.Skipped = append(archive.Skipped, types.SkippedTarget{DOMID: target.DOMID, Reason: err.Error()})
			continue
		}

		name := uniqueName(used, target.FileName())
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: e.now(),
		})
		if err != nil {
			return types.ArchivePayload{}, apperr.Wrap(err, apperr.KindExportFailed, "export", "failed to add archive entry")
		}
		if _, err := w.Write(data); err != nil {
			return types.ArchivePayload{}, apperr.Wrap(err, apperr.KindExportFailed, "export", "failed to write archive entry")
		}
		archive.Entries = append(archive.Entries, name)
	}

	if len(archive.Entries) == 0 {
		_ = zw.Close()
		return types.ArchivePayload{Skipped: archive.Skipped},
			apperr.New(apperr.KindExportFailed, "export", "all captures failed")
	}
	if err := zw.Close(); err != nil {
		return types.ArchivePayload{}, apperr.Wrap(err, apperr.KindExportFailed, "export", "failed to finish archive")
	}

	archive.Data = buf.Bytes()
	e.logger.Info("exported archive",
		zap.String("file", archive.FileName),
		zap.Int("entries", len(archive.Entries)),
		zap.Int("skipped", len(archive.Skipped)))
	return archive, nil
}

// capture runs one element through snapshot, restyle, image settle and
// capture. The original inline style is restored on every exit path.
func (e *Engine) capture(ctx context.Context, target types.ExportTarget, pad float64) (data []byte, clip Rect, err error) {
	id := target.DOMID
	log := e.logger.With(zap.String("dom_id", id))

	exists, err := e.surface.Exists(ctx, id)
	if err != nil {
		return nil, Rect{}, apperr.Wrap(err, apperr.KindExportFailed, "capture", "failed to query surface")
	}
	if !exists {
		return nil, Rect{}, apperr.Errorf(apperr.KindExportNotFound, "capture", "element %q not found", id)
	}

	original, err := e.surface.InlineStyle(ctx, id)
	if err != nil {
		return nil, Rect{}, apperr.Wrap(err, apperr.KindExportFailed, "capture", "failed to snapshot style")
	}
	computed, err := e.surface.ComputedStyle(ctx, id, backgroundProps)
	if err != nil {
		return nil, Rect{}, apperr.Wrap(err, apperr.KindExportFailed, "capture", "failed to read computed style")
	}

	width := target.DeclaredWidth
	if width <= 0 {
		measured, err := e.surface.Bounds(ctx, id)
		if err != nil {
			return nil, Rect{}, apperr.Wrap(err, apperr.KindExportFailed, "capture", "failed to measure element")
		}
		width = measured.Width
	}

	st := stateIdle
	defer func() {
		// Restore even when ctx is already cancelled
		rerr := e.surface.SetInlineStyle(context.WithoutCancel(ctx), id, original)
		if rerr != nil {
			log.Error("failed to restore style", zap.Stringer("state", st), zap.Error(rerr))
			if err == nil {
				data, clip = nil, Rect{}
				err = apperr.Wrap(rerr, apperr.KindExportFailed, "capture", "failed to restore style")
			}
			return
		}
		log.Debug("capture finished", zap.Stringer("from", st), zap.Stringer("to", stateRestored))
	}()

	if err := e.surface.SetInlineStyle(ctx, id, captureStyle(original, computed, width, target.DeclaredHeight)); err != nil {
		return nil, Rect{}, apperr.Wrap(err, apperr.KindExportFailed, "capture", "failed to apply capture style")
	}
	st = stateStylePrepared

	failed, err := e.surface.WaitImages(ctx, id)
	if err != nil {
		return nil, Rect{}, apperr.Wrap(err, apperr.KindExportFailed, "capture", "failed waiting for images")
	}
	for _, src := range failed {
		log.Warn("image failed to load", zap.String("src", src))
	}
	if err := e.sleep(ctx, e.settle); err != nil {
		return nil, Rect{}, apperr.Wrap(err, apperr.KindExportFailed, "capture", "cancelled while settling")
	}
	st = stateImagesSettled

	bounds, err := e.surface.Bounds(ctx, id)
	if err != nil {
		return nil, Rect{}, apperr.Wrap(err, apperr.KindExportFailed, "capture", "failed to measure element")
	}
	if bounds.Width <= 0 || bounds.Height <= 0 {
		return nil, Rect{}, apperr.Errorf(apperr.KindExportFailed, "capture", "element %q has no visible area", id)
	}
	clip = bounds.Pad(pad)

	data, err = e.surface.Capture(ctx, clip, e.scale)
	if err != nil {
		return nil, Rect{}, apperr.Wrap(err, apperr.KindExportFailed, "capture", "screenshot failed")
	}
	if len(data) == 0 {
		return nil, Rect{}, apperr.New(apperr.KindExportFailed, "capture", "screenshot was empty")
	}
	st = stateCaptured

	return data, clip, nil
}

func (e *Engine) payload(target types.ExportTarget, data []byte, clip Rect) types.ImagePayload {
	p := types.ImagePayload{
		FileName: target.FileName(),
		Data:     data,
		Width:    int(clip.Width * e.scale),
		Height:   int(clip.Height * e.scale),
	}
	// Prefer the real pixel size when the PNG header is readable
	if cfg, err := png.DecodeConfig(bytes.NewReader(data)); err == nil {
		p.Width, p.Height = cfg.Width, cfg.Height
	}
	return p
}

// uniqueName suffixes repeated file names: a.png, a-2.png, a-3.png
func uniqueName(used map[string]int, name string) string {
	used[name]++
	n := used[name]
	if n == 1 {
		return name
	}
	base, ext := name, ""
	if i := strings.LastIndex(name, "."); i > 0 {
		base, ext = name[:i], name[i:]
	}
	return fmt.Sprintf("%s-%d%s", base, n, ext)
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

// IsNotFound reports whether err means the target element was missing
func IsNotFound(err error) bool {
	return apperr.Is(err, apperr.KindExportNotFound)
}
