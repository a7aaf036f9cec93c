// Package browser provides shared chromedp configuration for page retrieval
// and artifact capture.
package browser

import (
	"context"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// DefaultUserAgent is a realistic Chrome user agent
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Options returns chromedp allocator options. Retrieval and capture share
// them so pages render the same way in both.
func Options(headless bool, execPath string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),

		// Some marketing sites hide content from automation
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(DefaultUserAgent),

		// Wide enough that cards lay out at desktop breakpoints
		chromedp.WindowSize(1440, 1024),

		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("hide-scrollbars", true),
	)

	if headless {
		opts = append(opts, chromedp.Flag("disable-gpu", true))
	}
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}

	return opts
}

// NewTab starts a browser and returns a tab context. The returned cancel
// closes both the tab and the browser process.
func NewTab(ctx context.Context, headless bool, execPath string) (context.Context, context.CancelFunc) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, Options(headless, execPath)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	return tabCtx, func() {
		tabCancel()
		allocCancel()
	}
}

// ContentTasks loads html into a blank page and waits for the body
func ContentTasks(html string) chromedp.Tasks {
	return chromedp.Tasks{
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
}
