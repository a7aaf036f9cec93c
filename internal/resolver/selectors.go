package resolver

// Page selectors used during extraction. They are isolated here because
// marketing sites vary wildly; extend these lists when extraction misses.

// Company name signals, in priority order
var (
	SiteNameMeta = []string{
		`meta[property="og:site_name"]`,
		`meta[name="application-name"]`,
		`meta[name="apple-mobile-web-app-title"]`,
	}

	BrandElements = []string{
		`[class*="logo"]`,
		`[id*="logo"]`,
		`[class*="brand"]`,
		`.navbar-brand`,
		`header a[href="/"]`,
	}
)

// Product name signals, in priority order
var (
	ProductTitleMeta = []string{
		`meta[property="og:title"]`,
		`meta[name="twitter:title"]`,
	}

	ProductHeading = `h1`
)

// contentSelector is one prioritized body-content source. Meta selectors read
// the content attribute instead of element text.
type contentSelector struct {
	query string
	meta  bool
}

// ContentSelectors lists body sources from most to least specific
var ContentSelectors = []contentSelector{
	// Explicit description blocks
	{query: `[itemprop="description"]`},
	{query: `[class*="description"]`},
	{query: `[id*="description"]`},

	// Main content containers
	{query: `main`},
	{query: `[role="main"]`},
	{query: `#content, .content`},
	{query: `article`},

	// Meta descriptions
	{query: `meta[name="description"]`, meta: true},
	{query: `meta[property="og:description"]`, meta: true},
	{query: `meta[name="twitter:description"]`, meta: true},

	// Hero / landing sections
	{query: `[class*="hero"]`},
	{query: `[class*="landing"]`},
	{query: `[class*="banner"]`},

	// About sections
	{query: `#about, [id*="about"]`},
	{query: `[class*="about"]`},

	// Feature sections
	{query: `#features, [id*="feature"]`},
	{query: `[class*="feature"]`},
}

// NoiseElements are removed before any text is read
const NoiseElements = `script, style, noscript, template, svg, iframe`
