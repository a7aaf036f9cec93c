package synth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ibeckermayer/proofshot/internal/apperr"
	"github.com/ibeckermayer/proofshot/internal/types"
)

type call struct {
	prompt   Prompt
	maxChars int
	sampling Sampling
}

// stubGenerator returns a canned reply and records every call
type stubGenerator struct {
	reply string
	err   error
	calls []call
}

func (g *stubGenerator) Complete(_ context.Context, p Prompt, maxChars int, s Sampling) (string, error) {
	g.calls = append(g.calls, call{prompt: p, maxChars: maxChars, sampling: s})
	return g.reply, g.err
}

func request(p types.Platform) types.SynthesisRequest {
	return types.SynthesisRequest{
		Platform: p,
		Context: types.TextContext{
			Description:     "A note-taking app that syncs instantly.",
			CompanyNameHint: "Rocket",
			ProductNameHint: "Rocket Notes",
		},
		Tone: "enthusiastic",
	}
}

func TestSynthesize_SingleCallWithBudgetAndSampling(t *testing.T) {
	for _, p := range types.Platforms {
		gen := &stubGenerator{reply: "  Love it.  "}
		out, err := New(gen).Synthesize(context.Background(), request(p))
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		if out != "Love it." {
			t.Fatalf("%s: out=%q", p, out)
		}
		if len(gen.calls) != 1 {
			t.Fatalf("%s: calls=%d, want 1", p, len(gen.calls))
		}
		want := DefaultBudget
		if p == types.PlatformMicroPost {
			want = MicroPostBudget
		}
		if gen.calls[0].maxChars != want {
			t.Fatalf("%s: maxChars=%d, want %d", p, gen.calls[0].maxChars, want)
		}
		if gen.calls[0].sampling != DefaultSampling {
			t.Fatalf("%s: sampling=%+v", p, gen.calls[0].sampling)
		}
	}
}

func TestSynthesize_TruncatesToBudget(t *testing.T) {
	gen := &stubGenerator{reply: strings.Repeat("ü", 600)}
	out, err := New(gen).Synthesize(context.Background(), request(types.PlatformMicroPost))
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if n := utf8.RuneCountInString(out); n != MicroPostBudget {
		t.Fatalf("len=%d, want %d", n, MicroPostBudget)
	}
}

func TestSynthesize_EmptyOutputIsGenerationError(t *testing.T) {
	gen := &stubGenerator{reply: " \n\t "}
	_, err := New(gen).Synthesize(context.Background(), request(types.PlatformReview))
	if !apperr.Is(err, apperr.KindGeneration) {
		t.Fatalf("err=%v, want generation error", err)
	}
}

func TestSynthesize_GeneratorErrorPropagates(t *testing.T) {
	cause := errors.New("rate limited")
	gen := &stubGenerator{err: cause}
	_, err := New(gen).Synthesize(context.Background(), request(types.PlatformEmail))
	if !apperr.Is(err, apperr.KindGeneration) {
		t.Fatalf("err=%v, want generation error", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause not wrapped: %v", err)
	}
}

func TestSynthesize_UnknownPlatform(t *testing.T) {
	gen := &stubGenerator{reply: "x"}
	_, err := New(gen).Synthesize(context.Background(), request("fax"))
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err=%v", err)
	}
	if len(gen.calls) != 0 {
		t.Fatalf("generator should not be called")
	}
}

func TestBuildPrompt_PlatformShaping(t *testing.T) {
	cases := []struct {
		platform types.Platform
		want     []string
	}{
		{types.PlatformCommentFeed, []string{"emoji", "hashtags"}},
		{types.PlatformMicroPost, []string{"terse", "hashtags", "280"}},
		{types.PlatformReview, []string{"title", "2-3"}},
		{types.PlatformEmail, []string{"subject line", "Sign the email as Dana"}},
		{types.PlatformHandwritten, []string{"personal", "emotional"}},
	}
	for _, tc := range cases {
		req := request(tc.platform)
		req.SenderNameHint = "Dana"
		p := BuildPrompt(req, Budget(tc.platform))
		for _, w := range tc.want {
			if !strings.Contains(p.User, w) {
				t.Errorf("%s prompt missing %q:\n%s", tc.platform, w, p.User)
			}
		}
		if !strings.Contains(p.User, "Rocket Notes") || !strings.Contains(p.User, "enthusiastic") {
			t.Errorf("%s prompt missing context or tone", tc.platform)
		}
		if p.System == "" {
			t.Errorf("%s: empty system prompt", tc.platform)
		}
	}
}

func TestSplitTitle(t *testing.T) {
	cases := []struct {
		in, title, body string
	}{
		{"\"Best app ever\"\n\nIt syncs fast.", "Best app ever", "It syncs fast."},
		{"Subject: Thank you!\nHi team,\nGreat work.\nDana", "Thank you!", "Hi team,\nGreat work.\nDana"},
		{"“Title: Solid buy”\nWorks well.", "Solid buy", "Works well."},
		{"‘Quick’\nShort body", "Quick", "Short body"},
		{"Only one line", "", "Only one line"},
	}
	for _, tc := range cases {
		title, body := SplitTitle(tc.in)
		if title != tc.title || body != tc.body {
			t.Errorf("SplitTitle(%q) = %q, %q; want %q, %q", tc.in, title, body, tc.title, tc.body)
		}
	}
}

func TestSamplingFrom(t *testing.T) {
	s := SamplingFrom(configWithTemperature(0.5))
	if s.Temperature != 0.5 || s.PresencePenalty != 0.6 || s.FrequencyPenalty != 0.6 {
		t.Fatalf("sampling=%+v", s)
	}
}
