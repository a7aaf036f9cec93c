package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/ibeckermayer/proofshot/internal/browser"
)

// Provider fetches the HTML of a page through one retrieval route
type Provider interface {
	Name() string
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// maxBodyBytes bounds how much of a response is read
const maxBodyBytes = 4 << 20

// relayTemplates maps provider names to URL templates; {url} is replaced
// with the query-escaped target
var relayTemplates = map[string]string{
	"direct":     "",
	"allorigins": "https://api.allorigins.win/raw?url={url}",
	"corsproxy":  "https://corsproxy.io/?url={url}",
	"codetabs":   "https://api.codetabs.com/v1/proxy?quest={url}",
}

// HTTPProvider fetches a page directly or through a relay endpoint
type HTTPProvider struct {
	name     string
	template string
	client   *http.Client
}

// NewHTTPProvider creates a provider; an empty template fetches directly
func NewHTTPProvider(name, template string, client *http.Client) *HTTPProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProvider{name: name, template: template, client: client}
}

// Name returns the provider label
func (p *HTTPProvider) Name() string { return p.name }

// Fetch GETs the page and returns its body
func (p *HTTPProvider) Fetch(ctx context.Context, pageURL string) (string, error) {
	target := pageURL
	if p.template != "" {
		target = strings.ReplaceAll(p.template, "{url}", url.QueryEscape(pageURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", browser.DefaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%s returned status %d", p.name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if strings.TrimSpace(string(body)) == "" {
		return "", fmt.Errorf("%s returned an empty document", p.name)
	}
	return string(body), nil
}

// BrowserProvider renders the page in headless Chrome so client-side
// content is present in the returned HTML
type BrowserProvider struct {
	execPath string
}

// NewBrowserProvider creates a chromedp-backed provider
func NewBrowserProvider(execPath string) *BrowserProvider {
	return &BrowserProvider{execPath: execPath}
}

// Name returns the provider label
func (p *BrowserProvider) Name() string { return "browser" }

// Fetch navigates to the page and returns the rendered document
func (p *BrowserProvider) Fetch(ctx context.Context, pageURL string) (string, error) {
	tabCtx, cancel := browser.NewTab(ctx, true, p.execPath)
	defer cancel()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render page: %w", err)
	}
	return html, nil
}

// ProvidersByName builds providers in the given order. Unknown names are an
// error so typos in config surface at startup.
func ProvidersByName(names []string, client *http.Client, browserPath string) ([]Provider, error) {
	providers := make([]Provider, 0, len(names))
	for _, name := range names {
		if name == "browser" {
			providers = append(providers, NewBrowserProvider(browserPath))
			continue
		}
		tmpl, ok := relayTemplates[name]
		if !ok {
			return nil, fmt.Errorf("unknown retrieval provider: %s", name)
		}
		providers = append(providers, NewHTTPProvider(name, tmpl, client))
	}
	return providers, nil
}
