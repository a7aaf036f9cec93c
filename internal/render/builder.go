// Package render lays artifacts out as an HTML page of cards, one element per
// artifact, ready for the export engine to capture.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/ibeckermayer/proofshot/internal/types"
)

// Builder renders artifact pages
type Builder struct {
	template *template.Template
	markdown goldmark.Markdown
}

// New creates a new page builder
func New() (*Builder, error) {
	tmpl, err := template.New("cards").Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return &Builder{
		template: tmpl,
		// Raw HTML in generated text is escaped, line breaks are kept
		markdown: goldmark.New(goldmark.WithRendererOptions(html.WithHardWraps())),
	}, nil
}

// Page is a rendered document and the targets it contains
type Page struct {
	HTML    string
	Targets []types.ExportTarget
}

// PageData is the template data structure
type PageData struct {
	Title string
	Cards []CardData
}

// CardData represents one artifact in the template
type CardData struct {
	DOMID     string
	Platform  string
	Title     string
	Body      template.HTML
	Author    types.Persona
	Initials  string
	When      string
	Date      string
	Stats     []string
	Stars     []bool
	Reactions []string
	Verified  bool
	Subject   string
	Starred   bool
	Important bool
	Locale    string
}

// Build renders artifacts in order
func (b *Builder) Build(artifacts []types.Artifact) (*Page, error) {
	if len(artifacts) == 0 {
		return nil, fmt.Errorf("no artifacts to render")
	}

	data := PageData{
		Title: "proofshot",
		Cards: make([]CardData, len(artifacts)),
	}
	targets := make([]types.ExportTarget, len(artifacts))

	for i, a := range artifacts {
		card, err := b.card(a)
		if err != nil {
			return nil, err
		}
		data.Cards[i] = card
		targets[i] = types.TargetFor(a)
	}

	var htmlBuf bytes.Buffer
	if err := b.template.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	return &Page{HTML: htmlBuf.String(), Targets: targets}, nil
}

func (b *Builder) card(a types.Artifact) (CardData, error) {
	var body bytes.Buffer
	if err := b.markdown.Convert([]byte(a.Content), &body); err != nil {
		return CardData{}, fmt.Errorf("failed to render content of %s: %w", a.ID, err)
	}

	c := CardData{
		DOMID:    a.DOMID(),
		Platform: string(a.Platform),
		Title:    a.Title,
		Body:     template.HTML(body.String()),
		Author:   a.Author,
		Initials: initials(a.Author.DisplayName),
		Date:     a.Timestamp.Format("Jan 2, 2006"),
	}
	if a.Metrics != nil {
		c.When = a.Metrics.Relative()
	}

	switch m := a.Metrics.(type) {
	case types.CommentFeedMetrics:
		for _, r := range m.Reactions {
			c.Reactions = append(c.Reactions, reactionGlyphs[r])
		}
		c.Stats = []string{compact(m.Likes), plural(m.Replies, "reply", "replies")}
	case types.MicroPostMetrics:
		c.Verified = m.Verified
		c.Stats = []string{
			plural(m.Replies, "reply", "replies"),
			plural(m.Reposts, "repost", "reposts"),
			plural(m.Likes, "like", "likes"),
			plural(m.Views, "view", "views"),
		}
	case types.ReviewMetrics:
		c.Stars = make([]bool, 5)
		for i := range c.Stars {
			c.Stars[i] = i < m.Rating
		}
		c.Locale = m.Locale
		c.Stats = []string{plural(m.ReviewCount, "review", "reviews")}
		if m.HelpfulCount > 0 {
			c.Stats = append(c.Stats, fmt.Sprintf("%s found this helpful", plural(m.HelpfulCount, "person", "people")))
		}
	case types.EmailMetrics:
		c.Subject = m.Subject
		c.Starred = m.Starred
		c.Important = m.Important
		if m.Attachments > 0 {
			c.Stats = []string{plural(m.Attachments, "attachment", "attachments")}
		}
	}

	return c, nil
}

var reactionGlyphs = map[types.Reaction]string{
	types.ReactionLike:  "👍",
	types.ReactionLove:  "❤️",
	types.ReactionCare:  "🤗",
	types.ReactionHaha:  "😆",
	types.ReactionWow:   "😮",
	types.ReactionSad:   "😢",
	types.ReactionAngry: "😡",
}

// compact formats counts the way social feeds do: 950, 1.2K, 3.4M
func compact(n int) string {
	switch {
	case n >= 1_000_000:
		return trimZero(fmt.Sprintf("%.1f", float64(n)/1_000_000)) + "M"
	case n >= 1_000:
		return trimZero(fmt.Sprintf("%.1f", float64(n)/1_000)) + "K"
	default:
		return fmt.Sprintf("%d", n)
	}
}

func trimZero(s string) string {
	return strings.TrimSuffix(s, ".0")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return compact(n) + " " + many
}

func initials(name string) string {
	var out []rune
	for _, f := range strings.Fields(name) {
		out = append(out, []rune(strings.ToUpper(f))[0])
		if len(out) == 2 {
			break
		}
	}
	return string(out)
}
