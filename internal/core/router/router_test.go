package router

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mohammed-shakir/gridsight/internal/core/model"
	"github.com/mohammed-shakir/gridsight/internal/demo"
)

type stubAnalyzer struct {
	res  model.AnalysisResult
	meta model.Meta
	got  string
}

func (s *stubAnalyzer) Analyze(_ context.Context, image string) (model.AnalysisResult, model.Meta) {
	s.got = image
	return s.res, s.meta
}

type stubProjector struct {
	res  model.FutureResult
	meta model.Meta
}

func (s *stubProjector) Project(context.Context, string) (model.FutureResult, model.Meta) {
	return s.res, s.meta
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleAnalyze_OK(t *testing.T) {
	stub := &stubAnalyzer{
		res:  model.AnalysisResult{Components: []model.Component{{Type: "Poteau électrique", Confidence: 0.9}}},
		meta: model.Meta{Source: "api", Status: "generated"},
	}
	h := HandleAnalyze(discard(), stub)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze-image", strings.NewReader(`{"image":"data:image/jpeg;base64,AAAA"}`))
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if stub.got != "data:image/jpeg;base64,AAAA" {
		t.Fatalf("analyzer got %q", stub.got)
	}
	var out model.AnalyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Components) != 1 || out.Components[0].Type != "Poteau électrique" {
		t.Fatalf("unexpected components: %+v", out.Components)
	}
	if out.Meta.Source != "api" {
		t.Fatalf("meta source = %q", out.Meta.Source)
	}
}

func TestHandleAnalyze_BadBody(t *testing.T) {
	h := HandleAnalyze(discard(), &stubAnalyzer{})

	for _, body := range []string{`{`, `{"image":""}`, `{"image":"   "}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/analyze-image", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestHandleFuture_OK(t *testing.T) {
	stub := &stubProjector{
		res: model.FutureResult{
			FutureImage: "data:image/png;base64,BBBB",
			Analysis:    model.FutureAnalysis{ProjectionDate: "2031"},
		},
		meta: model.Meta{Source: "demo", Status: "build_flag"},
	}
	h := HandleFuture(discard(), stub)

	req := httptest.NewRequest(http.MethodPost, "/api/generate-future", strings.NewReader(`{"image":"data:image/jpeg;base64,AAAA"}`))
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out model.FutureResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.FutureImage != "data:image/png;base64,BBBB" {
		t.Fatalf("futureImage = %q", out.FutureImage)
	}
	if out.Meta.Source != "demo" {
		t.Fatalf("meta source = %q", out.Meta.Source)
	}
}

func TestHandleDemoStatus(t *testing.T) {
	ctrl := demo.NewController(demo.ControllerConfig{CredentialPresent: true})
	h := HandleDemoStatus(discard(), ctrl)

	req := httptest.NewRequest(http.MethodGet, "/api/demo/status", nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out demoStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Enabled {
		t.Fatal("demo should be off with a credential and no flags")
	}
	if len(out.Scenarios) == 0 {
		t.Fatal("expected scenario list")
	}
}

func TestHandleDemoToggle_SetAndFlip(t *testing.T) {
	ctrl := demo.NewController(demo.ControllerConfig{CredentialPresent: true})
	h := HandleDemoToggle(discard(), ctrl)

	// explicit enable with a scenario switch
	req := httptest.NewRequest(http.MethodPost, "/api/demo/toggle", strings.NewReader(`{"enabled":true,"scenario":"transformer"}`))
	rec := httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out demoStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Enabled || out.Scenario != "transformer" {
		t.Fatalf("got enabled=%v scenario=%q", out.Enabled, out.Scenario)
	}

	// empty body flips
	req = httptest.NewRequest(http.MethodPost, "/api/demo/toggle", nil)
	rec = httptest.NewRecorder()
	h(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Enabled {
		t.Fatal("flip should disable after explicit enable")
	}
}

func TestHandleDemoToggle_UnknownScenario(t *testing.T) {
	ctrl := demo.NewController(demo.ControllerConfig{CredentialPresent: true})
	h := HandleDemoToggle(discard(), ctrl)

	req := httptest.NewRequest(http.MethodPost, "/api/demo/toggle", strings.NewReader(`{"scenario":"volcano"}`))
	rec := httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
