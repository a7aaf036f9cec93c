package types

import (
	"encoding/json"
	"fmt"
)

// Metrics is the closed set of per-platform engagement records.
// Only the variants declared in this file implement it.
type Metrics interface {
	Platform() Platform
	Relative() string
	isMetrics()
}

// Reaction is a comment-feed reaction kind
type Reaction string

const (
	ReactionLike  Reaction = "like"
	ReactionLove  Reaction = "love"
	ReactionCare  Reaction = "care"
	ReactionHaha  Reaction = "haha"
	ReactionWow   Reaction = "wow"
	ReactionSad   Reaction = "sad"
	ReactionAngry Reaction = "angry"
)

// Reactions lists the known reaction kinds
var Reactions = []Reaction{
	ReactionLike, ReactionLove, ReactionCare, ReactionHaha,
	ReactionWow, ReactionSad, ReactionAngry,
}

// Valid reports whether r is a known reaction kind
func (r Reaction) Valid() bool {
	for _, known := range Reactions {
		if r == known {
			return true
		}
	}
	return false
}

// CommentFeedMetrics carries counters for a feed comment
type CommentFeedMetrics struct {
	Likes        int        `json:"likes"`
	Replies      int        `json:"replies"`
	Reactions    []Reaction `json:"reactions"`
	RelativeTime string     `json:"relative_time"`
}

// MicroPostMetrics carries counters for a short post
type MicroPostMetrics struct {
	Replies      int    `json:"replies"`
	Reposts      int    `json:"reposts"`
	Likes        int    `json:"likes"`
	Views        int    `json:"views"`
	Verified     bool   `json:"verified"`
	RelativeTime string `json:"relative_time"`
}

// ReviewMetrics carries rating data for a product review
type ReviewMetrics struct {
	Rating       int    `json:"rating"`
	Locale       string `json:"locale"`
	ReviewCount  int    `json:"review_count"`
	HelpfulCount int    `json:"helpful_count"`
	RelativeTime string `json:"relative_time"`
}

// EmailMetrics carries inbox flags for an email
type EmailMetrics struct {
	Starred      bool   `json:"starred"`
	Important    bool   `json:"important"`
	Subject      string `json:"subject"`
	Attachments  int    `json:"attachments"`
	RelativeTime string `json:"relative_time"`
}

// HandwrittenMetrics only dates the note
type HandwrittenMetrics struct {
	RelativeTime string `json:"relative_time"`
}

func (CommentFeedMetrics) Platform() Platform { return PlatformCommentFeed }
func (MicroPostMetrics) Platform() Platform   { return PlatformMicroPost }
func (ReviewMetrics) Platform() Platform      { return PlatformReview }
func (EmailMetrics) Platform() Platform       { return PlatformEmail }
func (HandwrittenMetrics) Platform() Platform { return PlatformHandwritten }

func (m CommentFeedMetrics) Relative() string { return m.RelativeTime }
func (m MicroPostMetrics) Relative() string   { return m.RelativeTime }
func (m ReviewMetrics) Relative() string      { return m.RelativeTime }
func (m EmailMetrics) Relative() string       { return m.RelativeTime }
func (m HandwrittenMetrics) Relative() string { return m.RelativeTime }

func (CommentFeedMetrics) isMetrics() {}
func (MicroPostMetrics) isMetrics()   {}
func (ReviewMetrics) isMetrics()      {}
func (EmailMetrics) isMetrics()       {}
func (HandwrittenMetrics) isMetrics() {}

// DecodeMetrics unmarshals the variant belonging to platform
func DecodeMetrics(platform Platform, data []byte) (Metrics, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, fmt.Errorf("missing metrics")
	}

	switch platform {
	case PlatformCommentFeed:
		var m CommentFeedMetrics
		err := json.Unmarshal(data, &m)
		return m, err
	case PlatformMicroPost:
		var m MicroPostMetrics
		err := json.Unmarshal(data, &m)
		return m, err
	case PlatformReview:
		var m ReviewMetrics
		err := json.Unmarshal(data, &m)
		return m, err
	case PlatformEmail:
		var m EmailMetrics
		err := json.Unmarshal(data, &m)
		return m, err
	case PlatformHandwritten:
		var m HandwrittenMetrics
		err := json.Unmarshal(data, &m)
		return m, err
	default:
		return nil, fmt.Errorf("unknown platform: %s", platform)
	}
}
