package types

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Platform identifies the social surface an artifact imitates
type Platform string

const (
	PlatformCommentFeed Platform = "comment-feed"
	PlatformMicroPost   Platform = "micro-post"
	PlatformReview      Platform = "review"
	PlatformEmail       Platform = "email"
	PlatformHandwritten Platform = "handwritten"
)

// Platforms lists every supported platform in display order
var Platforms = []Platform{
	PlatformCommentFeed,
	PlatformMicroPost,
	PlatformReview,
	PlatformEmail,
	PlatformHandwritten,
}

// Valid reports whether p is one of the known platforms
func (p Platform) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// HasTitle reports whether synthesized text for p carries a title/subject line
func (p Platform) HasTitle() bool {
	return p == PlatformReview || p == PlatformEmail
}

// Tone is an open bucket of style words ("positive", "grateful", ...)
type Tone string

// TextContext is the bounded product description handed to the synthesizer
type TextContext struct {
	Description     string `json:"description"`
	CompanyNameHint string `json:"company_name_hint,omitempty"`
	ProductNameHint string `json:"product_name_hint,omitempty"`
}

// SynthesisRequest describes a single text generation
type SynthesisRequest struct {
	Platform       Platform
	Context        TextContext
	Tone           Tone
	SenderNameHint string
}

// Persona is the author identity attached to an artifact
type Persona struct {
	DisplayName  string `json:"display_name"`
	Handle       string `json:"handle,omitempty"`
	AvatarURL    string `json:"avatar_url,omitempty"`
	Locale       string `json:"locale,omitempty"`
	EmailAddress string `json:"email_address,omitempty"`
}

// PinnedIdentity is an identity the caller fixed explicitly (email sender)
type PinnedIdentity struct {
	Name  string
	Email string
}

// Artifact is one assembled testimonial. Treat it as a value: use WithMetrics
// to derive an edited copy.
type Artifact struct {
	ID              string    `json:"id"`
	Platform        Platform  `json:"platform"`
	Content         string    `json:"content"`
	Title           string    `json:"title,omitempty"`
	Author          Persona   `json:"author"`
	Metrics         Metrics   `json:"metrics"`
	Timestamp       time.Time `json:"timestamp"`
	SourceContext   string    `json:"source_context,omitempty"`
	ResolverWarning string    `json:"resolver_warning,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// DOMID is the element id used when the artifact is rendered
func (a Artifact) DOMID() string {
	return "artifact-" + a.ID
}

// WithMetrics returns a copy of a carrying m. Slices inside m are cloned so
// the copy shares no backing arrays with the caller.
func (a Artifact) WithMetrics(m Metrics) Artifact {
	if c, ok := m.(CommentFeedMetrics); ok {
		c.Reactions = slices.Clone(c.Reactions)
		m = c
	}
	a.Metrics = m
	return a
}

// artifactJSON mirrors Artifact with metrics left raw for two-phase decoding
type artifactJSON struct {
	ID              string          `json:"id"`
	Platform        Platform        `json:"platform"`
	Content         string          `json:"content"`
	Title           string          `json:"title,omitempty"`
	Author          Persona         `json:"author"`
	Metrics         json.RawMessage `json:"metrics"`
	Timestamp       time.Time       `json:"timestamp"`
	SourceContext   string          `json:"source_context,omitempty"`
	ResolverWarning string          `json:"resolver_warning,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// UnmarshalJSON decodes the metrics variant selected by the platform field
func (a *Artifact) UnmarshalJSON(data []byte) error {
	var raw artifactJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	metrics, err := DecodeMetrics(raw.Platform, raw.Metrics)
	if err != nil {
		return fmt.Errorf("failed to decode metrics for artifact %s: %w", raw.ID, err)
	}

	*a = Artifact{
		ID:              raw.ID,
		Platform:        raw.Platform,
		Content:         raw.Content,
		Title:           raw.Title,
		Author:          raw.Author,
		Metrics:         metrics,
		Timestamp:       raw.Timestamp,
		SourceContext:   raw.SourceContext,
		ResolverWarning: raw.ResolverWarning,
		CreatedAt:       raw.CreatedAt,
	}
	return nil
}

// ExportTarget references a rendered element to capture
type ExportTarget struct {
	DOMID          string
	ArtifactID     string
	Platform       Platform
	DeclaredWidth  float64
	DeclaredHeight float64
}

// TargetFor builds the export target for a rendered artifact
func TargetFor(a Artifact) ExportTarget {
	return ExportTarget{
		DOMID:      a.DOMID(),
		ArtifactID: a.ID,
		Platform:   a.Platform,
	}
}

// FileName is the suggested PNG name for the target
func (t ExportTarget) FileName() string {
	if t.ArtifactID == "" {
		return t.DOMID + ".png"
	}
	platform := t.Platform
	if platform == "" {
		platform = "artifact"
	}
	return fmt.Sprintf("%s-%s.png", platform, t.ArtifactID)
}

// ImagePayload is a single captured PNG
type ImagePayload struct {
	FileName string
	Data     []byte
	Width    int
	Height   int
}

// SkippedTarget records a batch entry that could not be captured
type SkippedTarget struct {
	DOMID  string
	Reason string
}

// ArchivePayload is a zip of captured PNGs
type ArchivePayload struct {
	FileName string
	Data     []byte
	Entries  []string
	Skipped  []SkippedTarget
}
