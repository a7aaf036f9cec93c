package render

import (
	"strings"
	"testing"
	"time"

	"github.com/ibeckermayer/proofshot/internal/types"
)

func sampleArtifacts() []types.Artifact {
	ts := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)
	return []types.Artifact{
		{
			ID:        "r1",
			Platform:  types.PlatformReview,
			Title:     "Solid buy",
			Content:   "Works **great**.\nSecond line <script>alert(1)</script>",
			Author:    types.Persona{DisplayName: "Mia Tanaka", Handle: "miatanaka", AvatarURL: "https://i.pravatar.cc/128?u=miatanaka"},
			Metrics:   types.ReviewMetrics{Rating: 4, Locale: "JP", ReviewCount: 3, HelpfulCount: 12, RelativeTime: "1h"},
			Timestamp: ts,
		},
		{
			ID:        "c1",
			Platform:  types.PlatformCommentFeed,
			Content:   "So good 😍",
			Author:    types.Persona{DisplayName: "Carlos Rivera", Handle: "crivera"},
			Metrics:   types.CommentFeedMetrics{Likes: 1250, Replies: 1, Reactions: []types.Reaction{types.ReactionLike, types.ReactionLove}, RelativeTime: "2h"},
			Timestamp: ts,
		},
	}
}

func TestBuild(t *testing.T) {
	b, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	page, err := b.Build(sampleArtifacts())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	for _, want := range []string{
		`id="artifact-r1"`,
		`id="artifact-c1"`,
		"<strong>great</strong>",
		"<br",
		"Reviewed in JP on Mar 14, 2026",
		"12 people found this helpful",
		"1.2K",
		"1 reply",
		"👍❤️",
	} {
		if !strings.Contains(page.HTML, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(page.HTML, "<script>alert") {
		t.Fatalf("raw html from content was not escaped")
	}

	if len(page.Targets) != 2 || page.Targets[0].DOMID != "artifact-r1" || page.Targets[1].FileName() != "comment-feed-c1.png" {
		t.Fatalf("targets=%+v", page.Targets)
	}
}

func TestBuild_Empty(t *testing.T) {
	b, _ := New()
	if _, err := b.Build(nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestCompact(t *testing.T) {
	cases := map[int]string{0: "0", 999: "999", 1000: "1K", 1250: "1.2K", 2_500_000: "2.5M"}
	for n, want := range cases {
		if got := compact(n); got != want {
			t.Errorf("compact(%d)=%q, want %q", n, got, want)
		}
	}
}

func TestInitials(t *testing.T) {
	if got := initials("mia ann tanaka"); got != "MA" {
		t.Fatalf("initials=%q", got)
	}
	if got := initials(""); got != "" {
		t.Fatalf("initials=%q", got)
	}
}
