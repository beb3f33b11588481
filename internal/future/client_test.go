package future

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-shakir/gridsight/internal/cache"
	"github.com/mohammed-shakir/gridsight/internal/core/model"
	"github.com/mohammed-shakir/gridsight/internal/demo"
	"github.com/mohammed-shakir/gridsight/internal/imagehash"
)

func testCache() *cache.Cache {
	return cache.New(cache.Config{
		TTL: cache.TTLTable{
			Analyze: 30 * time.Minute, Future: time.Hour,
			FutureImage: time.Hour, Canned: 24 * time.Hour,
		},
		Caps: cache.Caps{Analyze: 10, Future: 10, FutureImage: 10},
		Log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func noDelay(context.Context) error { return nil }

func genReply(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Contains(t, r.Header.Get("Authorization"), "Bearer ")
		w.Header().Set("Content-Type", "application/json")
		out := map[string]any{
			"data": []map[string]any{
				{"b64_json": base64.StdEncoding.EncodeToString([]byte("generated"))},
			},
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}

func TestProject_LiveGenerationAndCache(t *testing.T) {
	srv := httptest.NewServer(genReply(t))
	defer srv.Close()

	ctrl := demo.NewController(demo.ControllerConfig{CredentialPresent: true})
	c := New(Config{
		APIURL:     srv.URL,
		APIKey:     "test-key",
		Model:      "test-model",
		Cache:      testCache(),
		Controller: ctrl,
		Log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Delay:      noDelay,
	})

	res, meta := c.Project(context.Background(), "data:image/jpeg;base64,AAAA")
	assert.Equal(t, "api", meta.Source)
	assert.Equal(t, "generated", meta.Status)
	assert.Contains(t, res.FutureImage, "data:image/png;base64,")
	assert.NotEmpty(t, res.Analysis.PotentialIssues)
	assert.NotEmpty(t, res.Analysis.Recommendations)

	res2, meta2 := c.Project(context.Background(), "data:image/jpeg;base64,AAAA")
	assert.Equal(t, "cache", meta2.Source)
	assert.Equal(t, "hit", meta2.Status)
	assert.Equal(t, res.FutureImage, res2.FutureImage)
}

func TestProject_ReportUsesCachedAnalysis(t *testing.T) {
	srv := httptest.NewServer(genReply(t))
	defer srv.Close()

	cc := testCache()
	image := "data:image/jpeg;base64,BBBB"
	analysis := model.AnalysisResult{Components: []model.Component{{Type: "Transformateur", Confidence: 0.9}}}
	b, err := json.Marshal(analysis)
	require.NoError(t, err)
	cc.Put(context.Background(), cache.OpAnalyze, imagehash.Sum(image), b, cache.SourceAPI)

	ctrl := demo.NewController(demo.ControllerConfig{CredentialPresent: true})
	c := New(Config{
		APIURL:     srv.URL,
		APIKey:     "test-key",
		Cache:      cc,
		Controller: ctrl,
		Log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Delay:      noDelay,
	})

	res, _ := c.Project(context.Background(), image)
	require.Len(t, res.Analysis.PotentialIssues, 1)
	assert.Equal(t, "Transformateur", res.Analysis.PotentialIssues[0].Component)
	assert.Equal(t, "Élevé", res.Analysis.PotentialIssues[0].Risk)
}

func TestProject_UpstreamFailureServesFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctrl := demo.NewController(demo.ControllerConfig{CredentialPresent: true})
	c := New(Config{
		APIURL:     srv.URL,
		APIKey:     "test-key",
		Cache:      testCache(),
		Controller: ctrl,
		Log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Delay:      noDelay,
	})

	image := "data:image/jpeg;base64,CCCC"
	res, meta := c.Project(context.Background(), image)
	assert.Equal(t, "fallback", meta.Source)
	assert.Equal(t, "api_error", meta.Status)
	assert.Equal(t, image, res.FutureImage)
	assert.NotEmpty(t, res.Analysis.PotentialIssues)

	// the failure response is cached and survives for the next request
	_, meta2 := c.Project(context.Background(), image)
	assert.Equal(t, "cache", meta2.Source)
}

func TestProject_DemoModeServesScenario(t *testing.T) {
	ctrl := demo.NewController(demo.ControllerConfig{
		BuildFlag:         true,
		CredentialPresent: true,
		Scenario:          demo.DefaultScenario,
	})
	c := New(Config{
		APIURL:     "http://127.0.0.1:1", // never dialed
		APIKey:     "test-key",
		Cache:      testCache(),
		Controller: ctrl,
		Log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Delay:      noDelay,
	})

	sc, ok := demo.Lookup(demo.DefaultScenario)
	require.True(t, ok)

	res, meta := c.Project(context.Background(), "data:image/jpeg;base64,DDDD")
	assert.Equal(t, "demo", meta.Source)
	assert.Equal(t, demo.ReasonBuildFlag, meta.Status)
	assert.Equal(t, sc.Future.Analysis.PotentialIssues, res.Analysis.PotentialIssues)
}
