package fallback

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mohammed-shakir/gridsight/internal/cache"
)

func TestAnalysis_Shape(t *testing.T) {
	res := Analysis()
	if len(res.Components) == 0 {
		t.Fatal("fallback analysis must carry components")
	}
	if len(res.Annotations) != len(res.Components) {
		t.Fatalf("annotations/components mismatch: %d vs %d", len(res.Annotations), len(res.Components))
	}
	for _, comp := range res.Components {
		if comp.Type == "" || comp.Confidence <= 0 || comp.Confidence > 1 {
			t.Fatalf("bad component: %+v", comp)
		}
	}
}

func TestFuture_DefaultProjectionDate(t *testing.T) {
	res := Future("")
	want := time.Now().AddDate(5, 0, 0).Format("2006")
	if res.Analysis.ProjectionDate != want {
		t.Fatalf("projectionDate = %q, want %q", res.Analysis.ProjectionDate, want)
	}
	if len(res.Analysis.PotentialIssues) == 0 || len(res.Analysis.Recommendations) == 0 {
		t.Fatal("fallback projection must carry issues and recommendations")
	}
}

func TestSeed_PopulatesCache(t *testing.T) {
	c := cache.New(cache.Config{
		TTL: cache.TTLTable{
			Analyze: time.Hour, Future: time.Hour,
			FutureImage: time.Hour, Canned: 24 * time.Hour,
		},
		Caps: cache.Caps{Analyze: 4, Future: 4, FutureImage: 4},
		Log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	Seed(context.Background(), c)

	if st, data := c.Get(cache.OpAnalyze, SessionHash, false); st != cache.StatusHit || len(data) == 0 {
		t.Fatalf("analyze seed missing: status=%v", st)
	}
	if st, _ := c.Get(cache.OpFuture, SessionHash, false); st != cache.StatusHit {
		t.Fatalf("future seed missing: status=%v", st)
	}

	// seeding a nil cache is a no-op
	Seed(context.Background(), nil)
}
