package export

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/ibeckermayer/proofshot/internal/browser"
)

// ChromeSurface is a Surface backed by a chromedp tab
type ChromeSurface struct {
	tab    context.Context
	cancel context.CancelFunc
}

// OpenChromeSurface starts a browser with a single tab. Close releases it.
func OpenChromeSurface(ctx context.Context, headless bool, execPath string) (*ChromeSurface, error) {
	tab, cancel := browser.NewTab(ctx, headless, execPath)
	// Starts the browser so launch failures surface here
	if err := chromedp.Run(tab); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return &ChromeSurface{tab: tab, cancel: cancel}, nil
}

// Close shuts the browser down
func (s *ChromeSurface) Close() {
	s.cancel()
}

// Load replaces the tab's document with html
func (s *ChromeSurface) Load(ctx context.Context, html string) error {
	return s.run(ctx, browser.ContentTasks(html))
}

// run executes actions on the tab, cancelled when either the tab or ctx is
func (s *ChromeSurface) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// elementJS wraps body in a function receiving the element with id
func elementJS(id, body string) string {
	quoted, _ := json.Marshal(id)
	return fmt.Sprintf(`(() => { const el = document.getElementById(%s); %s })()`, quoted, body)
}

func (s *ChromeSurface) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := s.run(ctx, chromedp.Evaluate(elementJS(id, `return el !== null;`), &ok))
	return ok, err
}

func (s *ChromeSurface) InlineStyle(ctx context.Context, id string) (string, error) {
	var css string
	err := s.run(ctx, chromedp.Evaluate(elementJS(id, `return el.getAttribute("style") || "";`), &css))
	return css, err
}

func (s *ChromeSurface) ComputedStyle(ctx context.Context, id string, props []string) (map[string]string, error) {
	list, _ := json.Marshal(props)
	js := elementJS(id, fmt.Sprintf(`
		const cs = getComputedStyle(el);
		const out = {};
		for (const p of %s) out[p] = cs.getPropertyValue(p);
		return out;`, list))

	out := make(map[string]string)
	err := s.run(ctx, chromedp.Evaluate(js, &out))
	return out, err
}

func (s *ChromeSurface) SetInlineStyle(ctx context.Context, id, css string) error {
	quoted, _ := json.Marshal(css)
	js := elementJS(id, fmt.Sprintf(`
		const css = %s;
		if (css === "") el.removeAttribute("style"); else el.setAttribute("style", css);
		return true;`, quoted))

	var ok bool
	return s.run(ctx, chromedp.Evaluate(js, &ok))
}

// waitImagesBody resolves with the sources of images that failed to load
const waitImagesBody = `
	const imgs = Array.from(el.querySelectorAll("img"));
	return Promise.all(imgs.map(img => {
		if (img.complete) return img.naturalWidth > 0 ? null : (img.currentSrc || img.src);
		return new Promise(resolve => {
			img.addEventListener("load", () => resolve(null), { once: true });
			img.addEventListener("error", () => resolve(img.currentSrc || img.src), { once: true });
		});
	})).then(results => results.filter(Boolean));`

func (s *ChromeSurface) WaitImages(ctx context.Context, id string) ([]string, error) {
	var failed []string
	err := s.run(ctx, chromedp.Evaluate(elementJS(id, waitImagesBody), &failed,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
	return failed, err
}

func (s *ChromeSurface) Bounds(ctx context.Context, id string) (Rect, error) {
	js := elementJS(id, `
		const r = el.getBoundingClientRect();
		return { x: r.left + window.scrollX, y: r.top + window.scrollY, width: r.width, height: r.height };`)

	var r Rect
	err := s.run(ctx, chromedp.Evaluate(js, &r))
	return r, err
}

func (s *ChromeSurface) Capture(ctx context.Context, clip Rect, scale float64) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithCaptureBeyondViewport(true).
			WithFromSurface(true).
			WithClip(&page.Viewport{
				X:      clip.X,
				Y:      clip.Y,
				Width:  clip.Width,
				Height: clip.Height,
				Scale:  scale,
			}).
			Do(ctx)
		return err
	}))
	return buf, err
}
