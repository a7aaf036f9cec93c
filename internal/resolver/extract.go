package resolver

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// extraction is what the resolver reads from one HTML document
type extraction struct {
	Company     string
	Product     string
	Description string
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	// keeps letters, digits, whitespace and sentence punctuation
	nonLinguistic = regexp.MustCompile(`[^\p{L}\p{N}\s.,!?;:'"()&%$/-]`)
)

// extract pulls hints and a cleaned description out of html
func extract(html string, pageURL *url.URL, maxChars int) (extraction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return extraction{}, err
	}
	doc.Find(NoiseElements).Remove()

	return extraction{
		Company:     companyName(doc, pageURL),
		Product:     productName(doc),
		Description: description(doc, maxChars),
	}, nil
}

func companyName(doc *goquery.Document, pageURL *url.URL) string {
	if v := firstMeta(doc, SiteNameMeta); v != "" {
		return v
	}
	for _, sel := range BrandElements {
		var found string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := collapse(s.Text())
			if text == "" {
				text = collapse(s.Find("img[alt]").AttrOr("alt", ""))
			}
			if text != "" && utf8.RuneCountInString(text) <= 60 {
				found = text
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return domainLabel(pageURL)
}

func productName(doc *goquery.Document) string {
	if v := firstMeta(doc, ProductTitleMeta); v != "" {
		return v
	}
	return collapse(doc.Find(ProductHeading).First().Text())
}

func description(doc *goquery.Document, maxChars int) string {
	var parts []string
	seen := make(map[string]bool)
	total := 0

	for _, cs := range ContentSelectors {
		if total >= maxChars {
			break
		}
		sel := doc.Find(cs.query).First()
		if sel.Length() == 0 {
			continue
		}

		var text string
		if cs.meta {
			text = sel.AttrOr("content", "")
		} else {
			text = sel.Text()
		}
		text = clean(text)
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true
		parts = append(parts, text)
		total += utf8.RuneCountInString(text) + 1
	}

	if len(parts) == 0 {
		return truncate(clean(doc.Find("body").Text()), maxChars)
	}
	return truncate(strings.Join(parts, " "), maxChars)
}

func firstMeta(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if v := collapse(doc.Find(sel).First().AttrOr("content", "")); v != "" {
			return v
		}
	}
	return ""
}

// domainLabel returns the leftmost host label without "www.", title-cased
func domainLabel(u *url.URL) string {
	if u == nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	label, _, _ := strings.Cut(host, ".")
	if label == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(label)
	return strings.ToUpper(string(r)) + label[size:]
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

func clean(s string) string {
	return collapse(nonLinguistic.ReplaceAllString(s, " "))
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
