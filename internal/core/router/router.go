package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mohammed-shakir/gridsight/internal/core/model"
	"github.com/mohammed-shakir/gridsight/internal/core/observability"
	"github.com/mohammed-shakir/gridsight/internal/demo"
)

const maxImageBody = 16 << 20 // generous for base64 phone photos

// Analyzer identifies components on an infrastructure photo.
type Analyzer interface {
	Analyze(ctx context.Context, image string) (model.AnalysisResult, model.Meta)
}

// Projector renders the vegetation growth projection for a photo.
type Projector interface {
	Project(ctx context.Context, image string) (model.FutureResult, model.Meta)
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// validates the posted image and serves the component analysis
func HandleAnalyze(logger *slog.Logger, a Analyzer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

		img, err := parseImageRequest(r)
		if err != nil {
			http.Error(sw, err.Error(), http.StatusBadRequest)
			observability.ObserveHTTP(r.Method, "/api/analyze-image", http.StatusBadRequest, time.Since(start).Seconds())
			return
		}

		res, meta := a.Analyze(r.Context(), img)
		writeJSON(sw, logger, model.AnalyzeResponse{AnalysisResult: res, Meta: meta})
		observability.ObserveHTTP(r.Method, "/api/analyze-image", sw.code, time.Since(start).Seconds())
	}
}

// validates the posted image and serves the future projection
func HandleFuture(logger *slog.Logger, p Projector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

		img, err := parseImageRequest(r)
		if err != nil {
			http.Error(sw, err.Error(), http.StatusBadRequest)
			observability.ObserveHTTP(r.Method, "/api/generate-future", http.StatusBadRequest, time.Since(start).Seconds())
			return
		}

		res, meta := p.Project(r.Context(), img)
		writeJSON(sw, logger, model.FutureResponse{FutureResult: res, Meta: meta})
		observability.ObserveHTTP(r.Method, "/api/generate-future", sw.code, time.Since(start).Seconds())
	}
}

type demoStatusResponse struct {
	demo.Status
	Scenarios []string     `json:"scenarios"`
	Events    []demo.Event `json:"events"`
}

func HandleDemoStatus(logger *slog.Logger, ctrl *demo.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

		writeJSON(sw, logger, demoStatusResponse{
			Status:    ctrl.Status(),
			Scenarios: demo.Names(),
			Events:    ctrl.Events(),
		})
		observability.ObserveHTTP(r.Method, "/api/demo/status", sw.code, time.Since(start).Seconds())
	}
}

type demoToggleRequest struct {
	// nil means flip, otherwise set to the given state.
	Enabled  *bool  `json:"enabled"`
	Scenario string `json:"scenario"`
}

func HandleDemoToggle(logger *slog.Logger, ctrl *demo.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

		var req demoToggleRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
				http.Error(sw, "invalid toggle body: "+err.Error(), http.StatusBadRequest)
				observability.ObserveHTTP(r.Method, "/api/demo/toggle", http.StatusBadRequest, time.Since(start).Seconds())
				return
			}
		}

		if req.Scenario != "" && !ctrl.SetScenario(req.Scenario) {
			http.Error(sw, "unknown scenario: "+req.Scenario, http.StatusBadRequest)
			observability.ObserveHTTP(r.Method, "/api/demo/toggle", http.StatusBadRequest, time.Since(start).Seconds())
			return
		}

		var st demo.Status
		if req.Enabled != nil {
			st = ctrl.SetManual(*req.Enabled)
		} else {
			st = ctrl.Toggle()
		}
		logger.Info("demo toggled", "enabled", st.Enabled, "reason", st.Reason, "scenario", st.Scenario)

		writeJSON(sw, logger, demoStatusResponse{
			Status:    st,
			Scenarios: demo.Names(),
			Events:    ctrl.Events(),
		})
		observability.ObserveHTTP(r.Method, "/api/demo/toggle", sw.code, time.Since(start).Seconds())
	}
}

func parseImageRequest(r *http.Request) (string, error) {
	var req model.ImageRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxImageBody)).Decode(&req); err != nil {
		return "", errors.New("invalid request body: " + err.Error())
	}
	if strings.TrimSpace(req.Image) == "" {
		return "", errors.New("missing required field: image")
	}
	return req.Image, nil
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode", "err", err)
	}
}
