package api

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ibeckermayer/proofshot/internal/apperr"
	"github.com/ibeckermayer/proofshot/internal/assembler"
	"github.com/ibeckermayer/proofshot/internal/normalize"
	"github.com/ibeckermayer/proofshot/internal/render"
	"github.com/ibeckermayer/proofshot/internal/types"
)

// fakeService keeps artifacts in a map
type fakeService struct {
	artifacts map[string]types.Artifact
	genErr    error
	genCount  int
	lastReq   assembler.Request
}

func newFakeService() *fakeService {
	return &fakeService{artifacts: map[string]types.Artifact{
		"r1": {
			ID:       "r1",
			Platform: types.PlatformReview,
			Content:  "Solid tool.",
			Metrics:  types.ReviewMetrics{Rating: 5, Locale: "US", RelativeTime: "1d"},
		},
	}}
}

func (f *fakeService) Generate(_ context.Context, req assembler.Request, n int) ([]types.Artifact, error) {
	f.lastReq = req
	if err := req.Validate(); err != nil {
		return nil, err
	}
	built := n
	if f.genErr != nil {
		built = f.genCount
	}
	out := make([]types.Artifact, built)
	for i := range out {
		out[i] = f.artifacts["r1"]
	}
	return out, f.genErr
}

func (f *fakeService) Artifact(id string) (types.Artifact, error) {
	a, ok := f.artifacts[id]
	if !ok {
		return types.Artifact{}, apperr.Errorf(apperr.KindNotFound, "get", "artifact %s not found", id)
	}
	return a, nil
}

func (f *fakeService) Artifacts(limit int) ([]types.Artifact, error) {
	var out []types.Artifact
	for _, a := range f.artifacts {
		if len(out) == limit {
			break
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeService) UpdateMetrics(id string, overrides map[string]any) (types.Artifact, error) {
	a, err := f.Artifact(id)
	if err != nil {
		return a, err
	}
	bag := normalize.OverridesFrom(a.Metrics)
	maps.Copy(bag, overrides)
	a = a.WithMetrics(normalize.New().Normalize(a.Platform, bag))
	f.artifacts[id] = a
	return a, nil
}

func (f *fakeService) DeleteArtifact(id string) error {
	if _, err := f.Artifact(id); err != nil {
		return err
	}
	delete(f.artifacts, id)
	return nil
}

func (f *fakeService) Page(ids []string) (*render.Page, error) {
	if _, err := f.Artifact(ids[0]); err != nil {
		return nil, err
	}
	return &render.Page{HTML: `<div id="artifact-` + ids[0] + `"></div>`}, nil
}

func (f *fakeService) ExportArtifact(_ context.Context, id string) (types.ImagePayload, error) {
	if _, err := f.Artifact(id); err != nil {
		return types.ImagePayload{}, err
	}
	return types.ImagePayload{FileName: "review-" + id + ".png", Data: []byte("\x89PNG")}, nil
}

func (f *fakeService) ExportArtifacts(_ context.Context, ids []string) (types.ArchivePayload, error) {
	archive := types.ArchivePayload{FileName: "proofshot-20260314-120000.zip", Data: []byte("PK")}
	for _, id := range ids {
		if _, ok := f.artifacts[id]; !ok {
			archive.Skipped = append(archive.Skipped, types.SkippedTarget{DOMID: "artifact-" + id, Reason: "not found"})
		}
	}
	if len(archive.Skipped) == len(ids) {
		return types.ArchivePayload{}, apperr.New(apperr.KindExportFailed, "export", "all captures failed")
	}
	return archive, nil
}

func do(t *testing.T, svc Service, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	srv := NewServer(":0", svc, zap.NewNop())
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestHealthz(t *testing.T) {
	rec := do(t, newFakeService(), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestGenerate_Created(t *testing.T) {
	svc := newFakeService()
	rec := do(t, svc, http.MethodPost, "/api/artifacts",
		`{"input":"A budgeting app","platform":"review","tone":"casual","count":3,"metrics":{"rating":4}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body)
	}

	var resp generateResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Artifacts) != 3 || resp.Error != "" {
		t.Fatalf("resp=%+v", resp)
	}
	if svc.lastReq.Platform != types.PlatformReview || svc.lastReq.Metrics["rating"] != float64(4) {
		t.Fatalf("request=%+v", svc.lastReq)
	}
}

func TestGenerate_PartialBatch(t *testing.T) {
	svc := newFakeService()
	svc.genErr = apperr.New(apperr.KindGeneration, "synthesize", "model unavailable")
	svc.genCount = 1

	rec := do(t, svc, http.MethodPost, "/api/artifacts", `{"input":"x","platform":"review","count":2}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d", rec.Code)
	}
	var resp generateResponse
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if len(resp.Artifacts) != 1 || !strings.Contains(resp.Error, "model unavailable") {
		t.Fatalf("resp=%+v", resp)
	}

	svc.genCount = 0
	rec = do(t, svc, http.MethodPost, "/api/artifacts", `{"input":"x","platform":"review"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestServerErrorsAreLoggedWithOp(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	svc := newFakeService()
	svc.genErr = apperr.New(apperr.KindGeneration, "synthesize", "model unavailable")

	srv := NewServer(":0", svc, zap.New(core))
	req := httptest.NewRequest(http.MethodPost, "/api/artifacts", strings.NewReader(`{"input":"x","platform":"review"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status=%d", rec.Code)
	}
	entries := logs.FilterMessage("request failed").All()
	if len(entries) != 1 {
		t.Fatalf("logged %d failures", len(entries))
	}
	if op := entries[0].ContextMap()["op"]; op != "synthesize" {
		t.Fatalf("op=%v", op)
	}
}

func TestGenerate_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"input":`},
		{"empty body", ``},
		{"unknown field", `{"input":"x","platform":"review","colour":"red"}`},
		{"count too large", `{"input":"x","platform":"review","count":25}`},
		{"missing platform", `{"input":"x"}`},
		{"unknown platform", `{"input":"x","platform":"fax"}`},
		{"trailing data", `{"input":"x","platform":"review"} {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newFakeService(), http.MethodPost, "/api/artifacts", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status=%d body=%s", rec.Code, rec.Body)
			}
			if body := decodeError(t, rec); body.Kind != "validation" {
				t.Fatalf("kind=%q", body.Kind)
			}
		})
	}
}

func TestGetAndDelete(t *testing.T) {
	svc := newFakeService()

	rec := do(t, svc, http.MethodGet, "/api/artifacts/r1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var art types.Artifact
	if err := json.NewDecoder(rec.Body).Decode(&art); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if art.Metrics.(types.ReviewMetrics).Rating != 5 {
		t.Fatalf("art=%+v", art)
	}

	if rec := do(t, svc, http.MethodDelete, "/api/artifacts/r1", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rec.Code)
	}
	rec = do(t, svc, http.MethodGet, "/api/artifacts/r1", "")
	if rec.Code != http.StatusNotFound || decodeError(t, rec).Kind != "not_found" {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestList(t *testing.T) {
	rec := do(t, newFakeService(), http.MethodGet, "/api/artifacts?limit=10", "")
	var resp listResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Artifacts) != 1 {
		t.Fatalf("resp=%+v", resp)
	}

	if rec := do(t, newFakeService(), http.MethodGet, "/api/artifacts?limit=-1", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestUpdateMetrics(t *testing.T) {
	svc := newFakeService()
	rec := do(t, svc, http.MethodPut, "/api/artifacts/r1/metrics", `{"metrics":{"rating":2,"locale":"DE"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body)
	}
	if got := svc.artifacts["r1"].Metrics.(types.ReviewMetrics); got.Rating != 2 || got.Locale != "DE" || got.RelativeTime != "1d" {
		t.Fatalf("metrics=%+v", got)
	}
}

func TestUpdateMetrics_CoercesBadValues(t *testing.T) {
	svc := newFakeService()

	// non-numeric rating keeps the default rather than failing the edit
	rec := do(t, svc, http.MethodPut, "/api/artifacts/r1/metrics", `{"metrics":{"rating":"five"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body)
	}
	if got := svc.artifacts["r1"].Metrics.(types.ReviewMetrics); got.Rating != 4 {
		t.Fatalf("rating=%d, want default 4", got.Rating)
	}

	rec = do(t, svc, http.MethodPut, "/api/artifacts/r1/metrics", `{"metrics":{"rating":99,"reviewCount":-7}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var art types.Artifact
	if err := json.NewDecoder(rec.Body).Decode(&art); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := art.Metrics.(types.ReviewMetrics); got.Rating != 5 || got.ReviewCount != 1 {
		t.Fatalf("metrics=%+v", got)
	}
}

func TestUpdateMetrics_Errors(t *testing.T) {
	if rec := do(t, newFakeService(), http.MethodPut, "/api/artifacts/r1/metrics", `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing metrics status=%d", rec.Code)
	}
	if rec := do(t, newFakeService(), http.MethodPut, "/api/artifacts/nope/metrics", `{"metrics":{"rating":3}}`); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id status=%d", rec.Code)
	}
}

func TestCard(t *testing.T) {
	rec := do(t, newFakeService(), http.MethodGet, "/api/artifacts/r1/card", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `id="artifact-r1"`) {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content type=%q", ct)
	}
}

func TestImage(t *testing.T) {
	rec := do(t, newFakeService(), http.MethodGet, "/api/artifacts/r1/image", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("content type=%q", rec.Header().Get("Content-Type"))
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="review-r1.png"` {
		t.Fatalf("disposition=%q", cd)
	}

	if rec := do(t, newFakeService(), http.MethodGet, "/api/artifacts/nope/image", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing status=%d", rec.Code)
	}
}

func TestExport_SkippedHeader(t *testing.T) {
	rec := do(t, newFakeService(), http.MethodPost, "/api/exports", `{"ids":["r1","ghost"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get(SkippedHeader); got != "artifact-ghost" {
		t.Fatalf("skipped=%q", got)
	}
	if rec.Header().Get("Content-Type") != "application/zip" {
		t.Fatalf("content type=%q", rec.Header().Get("Content-Type"))
	}
}

func TestExport_Errors(t *testing.T) {
	if rec := do(t, newFakeService(), http.MethodPost, "/api/exports", `{"ids":[]}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty ids status=%d", rec.Code)
	}
	if rec := do(t, newFakeService(), http.MethodPost, "/api/exports", `{"ids":[""]}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("blank id status=%d", rec.Code)
	}
	rec := do(t, newFakeService(), http.MethodPost, "/api/exports", `{"ids":["x"]}`)
	if rec.Code != http.StatusUnprocessableEntity || decodeError(t, rec).Kind != "export_failed" {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := NewServer(":0", newFakeService(), zap.NewNop())
	req := httptest.NewRequest(http.MethodOptions, "/api/exports", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow origin=%q", got)
	}
}
