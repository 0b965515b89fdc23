package prom

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matzehuels/flowmap/pkg/observability"
)

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.OnCatalogLoad(ctx, "sample", 4, 3, 2, 1, time.Millisecond, nil)
	m.OnLayoutComplete(ctx, 3, 1, time.Millisecond, nil)
	m.OnRenderComplete(ctx, []string{"svg"}, time.Millisecond, errors.New("boom"))
	m.OnResolve("selection", "flow", false)
	m.OnResolve("selection", "flow", true)
	m.OnResolve("selection", "flow", true)
	m.OnCacheSet(ctx, "layout", 128)
	m.OnRequest(ctx, "GET", "/api/scene", 200, time.Millisecond)
	m.OnSessionCreated(ctx)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"services", testutil.ToFloat64(m.catalogSize.WithLabelValues("services")), 4},
		{"issues", testutil.ToFloat64(m.catalogIssues), 1},
		{"unplaced", testutil.ToFloat64(m.unplaced), 1},
		{"render errors", testutil.ToFloat64(m.stageTotal.WithLabelValues("render", "error")), 1},
		{"memo hits", testutil.ToFloat64(m.resolvesTotal.WithLabelValues("selection", "flow", "hit")), 2},
		{"memo misses", testutil.ToFloat64(m.resolvesTotal.WithLabelValues("selection", "flow", "miss")), 1},
		{"cache bytes", testutil.ToFloat64(m.cacheBytes.WithLabelValues("layout")), 128},
		{"http", testutil.ToFloat64(m.httpTotal.WithLabelValues("GET", "/api/scene", "200")), 1},
		{"sessions", testutil.ToFloat64(m.sessionsTotal), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestInstall(t *testing.T) {
	defer observability.Reset()

	m := New(prometheus.NewRegistry())
	m.Install()

	if observability.Pipeline() != observability.PipelineHooks(m) {
		t.Error("Install should register pipeline hooks")
	}
	observability.Highlight().OnResolve("gesture", "feed", false)
	if got := testutil.ToFloat64(m.resolvesTotal.WithLabelValues("gesture", "feed", "miss")); got != 1 {
		t.Errorf("resolves = %v, want 1", got)
	}
}
