package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/gridsight/internal/core/config"
	"github.com/mohammed-shakir/gridsight/internal/core/health"
	"github.com/mohammed-shakir/gridsight/internal/core/middleware"
	"github.com/mohammed-shakir/gridsight/internal/core/router"
	"github.com/mohammed-shakir/gridsight/internal/demo"
)

// Deps collects the wired application pieces the HTTP surface needs.
type Deps struct {
	Analyzer   router.Analyzer
	Projector  router.Projector
	Controller *demo.Controller
}

func newRouter(logger *slog.Logger, deps Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recover())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Post("/api/analyze-image", router.HandleAnalyze(logger, deps.Analyzer))
	r.Post("/api/generate-future", router.HandleFuture(logger, deps.Projector))
	r.Get("/api/demo/status", router.HandleDemoStatus(logger, deps.Controller))
	r.Post("/api/demo/toggle", router.HandleDemoToggle(logger, deps.Controller))
	return r
}

// sets up http and starts serving
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, deps Deps) error {
	r := newRouter(logger, deps)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
