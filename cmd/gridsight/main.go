package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mohammed-shakir/gridsight/internal/cache"
	"github.com/mohammed-shakir/gridsight/internal/cache/snapshot"
	"github.com/mohammed-shakir/gridsight/internal/core/config"
	"github.com/mohammed-shakir/gridsight/internal/core/httpclient"
	"github.com/mohammed-shakir/gridsight/internal/core/model"
	"github.com/mohammed-shakir/gridsight/internal/core/observability"
	"github.com/mohammed-shakir/gridsight/internal/core/router"
	"github.com/mohammed-shakir/gridsight/internal/core/server"
	"github.com/mohammed-shakir/gridsight/internal/demo"
	"github.com/mohammed-shakir/gridsight/internal/events"
	"github.com/mohammed-shakir/gridsight/internal/fallback"
	"github.com/mohammed-shakir/gridsight/internal/future"
	"github.com/mohammed-shakir/gridsight/internal/logger"
	"github.com/mohammed-shakir/gridsight/internal/metrics"
	"github.com/mohammed-shakir/gridsight/internal/netstatus"
	"github.com/mohammed-shakir/gridsight/internal/vision"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func run() int {
	// overriding scenario via flag
	scenarioFlag := flag.String("scenario", "", "demo scenario name")
	flag.Parse()

	cfg := config.FromEnv()
	if *scenarioFlag != "" {
		cfg.DemoScenario = strings.TrimSpace(*scenarioFlag)
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		SampleN:   envInt("LOG_SAMPLE_N", 0),
		Scenario:  cfg.DemoScenario,
		Component: "gridsight",
	}, os.Stdout)

	appLog := logger.NewSlog(&zl)

	observability.SetScenario(cfg.DemoScenario)
	observability.ExposeBuildInfo(Version)
	appLog.Info("starting gridsight",
		"addr", cfg.Addr,
		"version", Version,
		"scenario", cfg.DemoScenario,
		"demo_mode", cfg.DemoMode)

	if _, ok := demo.Lookup(cfg.DemoScenario); !ok {
		appLog.Error("unknown demo scenario", "scenario", cfg.DemoScenario, "known", demo.Names())
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newSnapshotStore(ctx, cfg)
	if err != nil {
		appLog.Error("snapshot store setup failed", "driver", cfg.SnapshotDriver, "err", err)
		return 1
	}

	responseCache := cache.New(cache.Config{
		TTL: cache.TTLTable{
			Analyze:     cfg.CacheTTLAnalyze,
			Future:      cfg.CacheTTLFuture,
			FutureImage: cfg.CacheTTLFutureImage,
			Canned:      cfg.CacheTTLCanned,
		},
		Caps: cache.Caps{
			Analyze:     cfg.CacheCapAnalyze,
			Future:      cfg.CacheCapFuture,
			FutureImage: cfg.CacheCapFutureImage,
		},
		Store: store,
		Log:   appLog,
	})
	responseCache.Load(ctx)
	responseCache.StartSweeper(ctx, cfg.CacheSweepInterval)
	fallback.Seed(ctx, responseCache)

	prober := netstatus.NewProber(cfg.ProbeURL, cfg.ProbeInterval, httpclient.NewOutbound(10*time.Second), appLog)
	prober.Start(ctx)

	var publisher *events.Publisher
	var sink func(demo.Event)
	if cfg.Events.Enabled {
		publisher, err = events.NewPublisher(strings.Split(cfg.Events.Brokers, ","), cfg.Events.Topic, cfg.Events.Queue)
		if err != nil {
			appLog.Error("event publisher setup failed", "brokers", cfg.Events.Brokers, "err", err)
			return 1
		}
		defer func() {
			if cerr := publisher.Close(); cerr != nil {
				appLog.Warn("event publisher close", "err", cerr)
			}
		}()
		sink = func(ev demo.Event) {
			publisher.Publish(events.Event{
				Kind:     "demo_toggle",
				Scenario: ev.Scenario,
				Enabled:  ev.Enabled,
				TS:       ev.Time,
			})
		}
	}

	ctrl := demo.NewController(demo.ControllerConfig{
		BuildFlag:         cfg.DemoMode,
		CredentialPresent: cfg.VisionAPIKey != "",
		Scenario:          cfg.DemoScenario,
		Online:            prober.Online,
		Sink:              sink,
	})

	outbound := httpclient.NewOutbound(cfg.UpstreamTimeout)
	assets := demo.NewAssetLoader(cfg.DemoAssetDir)

	var analyzer router.Analyzer = vision.New(vision.Config{
		APIURL:     cfg.VisionAPIURL,
		APIKey:     cfg.VisionAPIKey,
		Model:      cfg.VisionModel,
		HTTP:       outbound,
		Cache:      responseCache,
		Controller: ctrl,
		Log:        appLog,
	})
	var projector router.Projector = future.New(future.Config{
		APIURL:     cfg.ImageGenAPIURL,
		APIKey:     cfg.VisionAPIKey,
		Model:      cfg.ImageGenModel,
		HTTP:       outbound,
		Cache:      responseCache,
		Controller: ctrl,
		Assets:     assets,
		Log:        appLog,
	})

	if publisher != nil {
		analyzer = publishingAnalyzer{inner: analyzer, pub: publisher}
		projector = publishingProjector{inner: projector, pub: publisher}
	}

	if os.Getenv("METRICS_ENABLED") == "true" {
		startMetricsListener(ctx)
	}

	err = server.Run(ctx, cfg, appLog, server.Deps{
		Analyzer:   analyzer,
		Projector:  projector,
		Controller: ctrl,
	})

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if cerr := responseCache.Close(flushCtx); cerr != nil {
		appLog.Warn("cache close", "err", cerr)
	}

	if err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

// publishingAnalyzer emits one event per served analysis so the outcome
// stream shows which source answered.
type publishingAnalyzer struct {
	inner router.Analyzer
	pub   *events.Publisher
}

func (a publishingAnalyzer) Analyze(ctx context.Context, image string) (model.AnalysisResult, model.Meta) {
	res, meta := a.inner.Analyze(ctx, image)
	a.pub.Publish(events.Event{Kind: "analyze", Source: meta.Source, Hash: meta.Hash})
	return res, meta
}

type publishingProjector struct {
	inner router.Projector
	pub   *events.Publisher
}

func (p publishingProjector) Project(ctx context.Context, image string) (model.FutureResult, model.Meta) {
	res, meta := p.inner.Project(ctx, image)
	p.pub.Publish(events.Event{Kind: "future", Source: meta.Source, Hash: meta.Hash})
	return res, meta
}

func newSnapshotStore(ctx context.Context, cfg config.Config) (snapshot.Store, error) {
	switch cfg.SnapshotDriver {
	case "file":
		return snapshot.NewFileStore(cfg.SnapshotPath, snapshot.WithMaxBytes(cfg.SnapshotMaxBytes))
	case "redis":
		return snapshot.NewRedisStore(ctx, cfg.RedisAddr)
	case "none", "":
		return snapshot.Noop{}, nil
	default:
		return nil, errors.New("unknown snapshot driver: " + cfg.SnapshotDriver)
	}
}

// startMetricsListener exposes a second scrape endpoint on its own port for
// deployments where the main port sits behind an auth proxy.
func startMetricsListener(ctx context.Context) {
	addr := os.Getenv("METRICS_ADDR")
	if addr == "" {
		addr = ":9090"
	}
	path := os.Getenv("METRICS_PATH")
	if path == "" {
		path = "/metrics"
	}

	p := metrics.Init(metrics.Config{
		Enabled: true,
		Addr:    addr,
		Path:    path,
		Build: metrics.BuildInfo{
			Version:   os.Getenv("BUILD_VERSION"),
			Revision:  os.Getenv("BUILD_REVISION"),
			Branch:    os.Getenv("BUILD_BRANCH"),
			BuildDate: os.Getenv("BUILD_DATE"),
		},
	})

	mux := http.NewServeMux()
	mux.Handle(path, p.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("metrics: listening on %s%s", addr, path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("metrics: shutdown error: %v", err)
		}
	}()
}
