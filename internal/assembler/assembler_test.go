package assembler

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/ibeckermayer/proofshot/internal/apperr"
	"github.com/ibeckermayer/proofshot/internal/normalize"
	"github.com/ibeckermayer/proofshot/internal/resolver"
	"github.com/ibeckermayer/proofshot/internal/types"
)

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type stubResolver struct {
	res   resolver.Resolution
	calls int
}

func (r *stubResolver) Resolve(_ context.Context, _ string) resolver.Resolution {
	r.calls++
	return r.res
}

type stubSynth struct {
	replies []string
	err     error
	reqs    []types.SynthesisRequest
}

func (s *stubSynth) Synthesize(_ context.Context, req types.SynthesisRequest) (string, error) {
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return "", s.err
	}
	reply := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return reply, nil
}

func newTestAssembler(r Resolver, s Synthesizer) *Assembler {
	n := normalize.New(
		normalize.WithClock(func() time.Time { return fixedNow }),
		normalize.WithRand(rand.New(rand.NewPCG(7, 9))),
	)
	seq := 0
	return New(r, s, n,
		WithClock(func() time.Time { return fixedNow }),
		WithIDs(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
	)
}

func inPool(p types.Persona) bool {
	for _, q := range normalize.Pool() {
		if q.DisplayName == p.DisplayName {
			return true
		}
	}
	return false
}

func TestAssemble_ReviewEndToEnd(t *testing.T) {
	res := &stubResolver{res: resolver.Resolution{
		Context: types.TextContext{Description: "Product website: https://example.com", CompanyNameHint: "Example"},
		Warning: apperr.New(apperr.KindNetwork, "resolve", "could not retrieve page"),
	}}
	syn := &stubSynth{replies: []string{"\"Does exactly what it says\"\nSetup took two minutes and support replied the same day."}}
	a := newTestAssembler(res, syn)

	art, err := a.Assemble(context.Background(), Request{
		Input:    "https://example.com",
		Platform: types.PlatformReview,
		Tone:     "positive",
	})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	if art.Title != "Does exactly what it says" {
		t.Fatalf("title=%q", art.Title)
	}
	if art.Content != "Setup took two minutes and support replied the same day." {
		t.Fatalf("content=%q", art.Content)
	}
	m, ok := art.Metrics.(types.ReviewMetrics)
	if !ok {
		t.Fatalf("metrics type %T", art.Metrics)
	}
	if m.Rating != 4 {
		t.Fatalf("rating=%d, want 4", m.Rating)
	}
	if !inPool(art.Author) {
		t.Fatalf("author %q not from pool", art.Author.DisplayName)
	}
	if m.Locale != art.Author.Locale {
		t.Fatalf("locale=%q, want persona locale %q", m.Locale, art.Author.Locale)
	}
	if art.ResolverWarning == "" {
		t.Fatalf("degraded resolution should surface a warning")
	}
	if art.ID != "id-1" || art.DOMID() != "artifact-id-1" {
		t.Fatalf("id=%q", art.ID)
	}
	if !art.Timestamp.Equal(fixedNow.Add(-time.Hour)) {
		t.Fatalf("timestamp=%v", art.Timestamp)
	}
	if art.SourceContext != res.res.Context.Description {
		t.Fatalf("source context=%q", art.SourceContext)
	}
}

func TestAssemble_EmailSubjectAndPinnedSender(t *testing.T) {
	res := &stubResolver{res: resolver.Resolution{Context: types.TextContext{Description: "Budget app"}}}
	syn := &stubSynth{replies: []string{"Subject: You saved my month\nHi team,\nThanks!\nDana"}}
	a := newTestAssembler(res, syn)

	art, err := a.Assemble(context.Background(), Request{
		Input:    "Budget app",
		Platform: types.PlatformEmail,
		Tone:     "grateful",
		Metrics:  map[string]any{"senderName": "Dana Whitfield", "senderEmail": "dana@example.org", "time": "2d"},
	})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	if syn.reqs[0].SenderNameHint != "Dana Whitfield" {
		t.Fatalf("sender hint=%q", syn.reqs[0].SenderNameHint)
	}
	if art.Author.DisplayName != "Dana Whitfield" || art.Author.EmailAddress != "dana@example.org" {
		t.Fatalf("author=%+v", art.Author)
	}
	m := art.Metrics.(types.EmailMetrics)
	if m.Subject != "You saved my month" || art.Title != "You saved my month" {
		t.Fatalf("subject=%q title=%q", m.Subject, art.Title)
	}
	if !art.Timestamp.Equal(fixedNow.Add(-48 * time.Hour)) {
		t.Fatalf("timestamp=%v", art.Timestamp)
	}
}

func TestAssemble_ExplicitSubjectWins(t *testing.T) {
	res := &stubResolver{res: resolver.Resolution{Context: types.TextContext{Description: "x"}}}
	syn := &stubSynth{replies: []string{"Generated subject\nBody"}}
	a := newTestAssembler(res, syn)

	overrides := map[string]any{"subject": "Custom"}
	art, err := a.Assemble(context.Background(), Request{Input: "x", Platform: types.PlatformEmail, Metrics: overrides})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if got := art.Metrics.(types.EmailMetrics).Subject; got != "Custom" {
		t.Fatalf("subject=%q", got)
	}
	if len(overrides) != 1 {
		t.Fatalf("caller overrides mutated: %v", overrides)
	}
}

func TestAssemble_NoTitleForOtherPlatforms(t *testing.T) {
	res := &stubResolver{res: resolver.Resolution{Context: types.TextContext{Description: "x"}}}
	syn := &stubSynth{replies: []string{"line one\nline two"}}
	a := newTestAssembler(res, syn)

	art, err := a.Assemble(context.Background(), Request{Input: "x", Platform: types.PlatformCommentFeed})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if art.Title != "" || art.Content != "line one\nline two" {
		t.Fatalf("title=%q content=%q", art.Title, art.Content)
	}
	m := art.Metrics.(types.CommentFeedMetrics)
	if len(m.Reactions) != 1 || m.Reactions[0] != types.ReactionLike {
		t.Fatalf("reactions=%v", m.Reactions)
	}
}

func TestAssemble_Validation(t *testing.T) {
	cases := []struct {
		name string
		req  Request
		want string
	}{
		{"empty input", Request{Input: "   ", Platform: types.PlatformReview}, "input"},
		{"unknown platform", Request{Input: "x", Platform: "fax"}, "platform"},
		{"missing platform", Request{Input: "x"}, "platform"},
		{"bad tone", Request{Input: "x", Platform: types.PlatformReview, Tone: "LOUD!!"}, "tone"},
		{"bad url", Request{Input: "https://", Platform: types.PlatformReview}, "URL"},
	}
	for _, tc := range cases {
		res := &stubResolver{}
		syn := &stubSynth{replies: []string{"x"}}
		a := newTestAssembler(res, syn)

		_, err := a.Assemble(context.Background(), tc.req)
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("%s: err=%v, want validation error", tc.name, err)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: err=%q should mention %q", tc.name, err, tc.want)
		}
		if res.calls != 0 || len(syn.reqs) != 0 {
			t.Fatalf("%s: pipeline ran despite invalid request", tc.name)
		}
	}
}

func TestAssemble_GenerationErrorPropagates(t *testing.T) {
	res := &stubResolver{res: resolver.Resolution{Context: types.TextContext{Description: "x"}}}
	syn := &stubSynth{err: apperr.New(apperr.KindGeneration, "synthesize", "empty")}
	a := newTestAssembler(res, syn)

	_, err := a.Assemble(context.Background(), Request{Input: "x", Platform: types.PlatformMicroPost})
	if !apperr.Is(err, apperr.KindGeneration) {
		t.Fatalf("err=%v", err)
	}
}

// failAfter fails every call after the first n
type failAfter struct {
	n     int
	calls int
}

func (f *failAfter) Synthesize(context.Context, types.SynthesisRequest) (string, error) {
	f.calls++
	if f.calls > f.n {
		return "", errors.New("quota exceeded")
	}
	return "great", nil
}

func TestAssembleMany_SequentialWithPartialResults(t *testing.T) {
	res := &stubResolver{res: resolver.Resolution{Context: types.TextContext{Description: "x"}}}
	syn := &failAfter{n: 2}
	a := newTestAssembler(res, syn)

	arts, err := a.AssembleMany(context.Background(), Request{Input: "x", Platform: types.PlatformHandwritten}, 4)
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(arts) != 2 {
		t.Fatalf("got %d artifacts, want 2", len(arts))
	}
	if arts[0].ID == arts[1].ID {
		t.Fatalf("ids should be unique")
	}
	if res.calls != 3 {
		t.Fatalf("resolver calls=%d, want 3", res.calls)
	}
}

func TestAssembleMany_CountBounds(t *testing.T) {
	a := newTestAssembler(&stubResolver{}, &stubSynth{replies: []string{"x"}})
	for _, n := range []int{0, MaxBatch + 1} {
		if _, err := a.AssembleMany(context.Background(), Request{Input: "x", Platform: types.PlatformReview}, n); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("n=%d err=%v", n, err)
		}
	}
}
