// Package normalize turns loosely typed metric overrides into the
// per-platform metrics variants and picks display personas.
package normalize

import (
	"math"
	"math/rand/v2"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ibeckermayer/proofshot/internal/types"
)

// DefaultRelativeTime is used when the caller supplies no time string
const DefaultRelativeTime = "1h"

// Override keys understood by Normalize
const (
	KeyLikes        = "likes"
	KeyReplies      = "replies"
	KeyReactions    = "reactions"
	KeyReposts      = "reposts"
	KeyViews        = "views"
	KeyVerified     = "verified"
	KeyRating       = "rating"
	KeyLocale       = "locale"
	KeyReviewCount  = "reviewCount"
	KeyHelpfulCount = "helpfulCount"
	KeyStarred      = "starred"
	KeyImportant    = "important"
	KeySubject      = "subject"
	KeyAttachments  = "attachments"
	KeyTime         = "time"
	KeySenderName   = "senderName"
	KeySenderEmail  = "senderEmail"
)

// Normalizer is safe for use by one goroutine at a time
type Normalizer struct {
	now func() time.Time
	rng *rand.Rand
}

// Option configures a Normalizer
type Option func(*Normalizer)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

// WithRand overrides the persona random source
func WithRand(rng *rand.Rand) Option {
	return func(n *Normalizer) { n.rng = rng }
}

// New creates a normalizer using wall-clock time and a random seed
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		now: time.Now,
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize builds the fully defaulted metrics variant for platform. Only
// keys belonging to that platform are read, so nothing leaks across
// variants. It never fails.
func (n *Normalizer) Normalize(platform types.Platform, raw map[string]any) types.Metrics {
	if raw == nil {
		raw = map[string]any{}
	}
	rel := relativeField(raw)

	switch platform {
	case types.PlatformCommentFeed:
		return types.CommentFeedMetrics{
			Likes:        intField(raw, KeyLikes, 0),
			Replies:      intField(raw, KeyReplies, 0),
			Reactions:    cleanReactions(raw[KeyReactions]),
			RelativeTime: rel,
		}
	case types.PlatformMicroPost:
		return types.MicroPostMetrics{
			Replies:      intField(raw, KeyReplies, 0),
			Reposts:      intField(raw, KeyReposts, 0),
			Likes:        intField(raw, KeyLikes, 0),
			Views:        intField(raw, KeyViews, 0),
			Verified:     boolField(raw, KeyVerified, false),
			RelativeTime: rel,
		}
	case types.PlatformReview:
		return types.ReviewMetrics{
			Rating:       clampRating(intField(raw, KeyRating, 4)),
			Locale:       strings.ToUpper(stringField(raw, KeyLocale, "US")),
			ReviewCount:  max(intField(raw, KeyReviewCount, 1), 1),
			HelpfulCount: intField(raw, KeyHelpfulCount, 0),
			RelativeTime: rel,
		}
	case types.PlatformEmail:
		return types.EmailMetrics{
			Starred:      boolField(raw, KeyStarred, false),
			Important:    boolField(raw, KeyImportant, false),
			Subject:      stringField(raw, KeySubject, ""),
			Attachments:  intField(raw, KeyAttachments, 0),
			RelativeTime: rel,
		}
	default:
		return types.HandwrittenMetrics{RelativeTime: rel}
	}
}

// OverridesFrom turns m back into the override bag Normalize reads, so an
// edit can start from the current values
func OverridesFrom(m types.Metrics) map[string]any {
	switch v := m.(type) {
	case types.CommentFeedMetrics:
		return map[string]any{
			KeyLikes:     v.Likes,
			KeyReplies:   v.Replies,
			KeyReactions: slices.Clone(v.Reactions),
			KeyTime:      v.RelativeTime,
		}
	case types.MicroPostMetrics:
		return map[string]any{
			KeyReplies:  v.Replies,
			KeyReposts:  v.Reposts,
			KeyLikes:    v.Likes,
			KeyViews:    v.Views,
			KeyVerified: v.Verified,
			KeyTime:     v.RelativeTime,
		}
	case types.ReviewMetrics:
		return map[string]any{
			KeyRating:       v.Rating,
			KeyLocale:       v.Locale,
			KeyReviewCount:  v.ReviewCount,
			KeyHelpfulCount: v.HelpfulCount,
			KeyTime:         v.RelativeTime,
		}
	case types.EmailMetrics:
		return map[string]any{
			KeyStarred:     v.Starred,
			KeyImportant:   v.Important,
			KeySubject:     v.Subject,
			KeyAttachments: v.Attachments,
			KeyTime:        v.RelativeTime,
		}
	case types.HandwrittenMetrics:
		return map[string]any{KeyTime: v.RelativeTime}
	default:
		return map[string]any{}
	}
}

func clampRating(r int) int {
	if r < 1 {
		return 1
	}
	if r > 5 {
		return 5
	}
	return r
}

func relativeField(raw map[string]any) string {
	rel := stringField(raw, KeyTime, DefaultRelativeTime)
	if _, ok := ParseRelative(rel); !ok {
		return DefaultRelativeTime
	}
	return strings.ToLower(rel)
}

var relativePattern = regexp.MustCompile(`^(\d+)\s*([ywdhm])$`)

var relativeUnits = map[string]time.Duration{
	"y": 365 * 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
	"d": 24 * time.Hour,
	"h": time.Hour,
	"m": time.Minute,
}

// ParseRelative parses "2h", "15m", "3d", "1w", "1y" or "now"
func ParseRelative(rel string) (time.Duration, bool) {
	rel = strings.ToLower(strings.TrimSpace(rel))
	if rel == "now" {
		return 0, true
	}

	m := relativePattern.FindStringSubmatch(rel)
	if m == nil {
		return 0, false
	}
	count, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	unit := relativeUnits[m[2]]
	if count > math.MaxInt64/int64(unit) {
		return 0, false
	}
	return time.Duration(count) * unit, true
}

// TimestampFromRelative subtracts rel from the current instant. Strings that
// do not parse are treated as one hour ago.
func (n *Normalizer) TimestampFromRelative(rel string) time.Time {
	now := n.now()
	d, ok := ParseRelative(rel)
	if !ok {
		d = time.Hour
	}
	return now.Add(-d)
}
