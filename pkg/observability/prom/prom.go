// Package prom implements the observability hooks with Prometheus metrics.
package prom

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/flowmap/pkg/observability"
)

const namespace = "flowmap"

const (
	labelStage   = "stage"
	labelResult  = "result"
	labelChannel = "channel"
	labelKind    = "kind"
	labelKeyType = "key_type"
	labelMethod  = "method"
	labelRoute   = "route"
	labelCode    = "code"
)

var durationBuckets = []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5}

// Metrics holds every collector and implements all hook interfaces.
type Metrics struct {
	stageDuration *prometheus.HistogramVec
	stageTotal    *prometheus.CounterVec
	catalogSize   *prometheus.GaugeVec
	catalogIssues prometheus.Gauge
	unplaced      prometheus.Gauge
	resolvesTotal *prometheus.CounterVec
	cacheTotal    *prometheus.CounterVec
	cacheBytes    *prometheus.CounterVec
	httpTotal     *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	sessionsTotal prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of pipeline stages.",
			Buckets:   durationBuckets,
		}, []string{labelStage}),
		stageTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_total",
			Help:      "Pipeline stage runs by result.",
		}, []string{labelStage, labelResult}),
		catalogSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_entities",
			Help:      "Entities in the most recently loaded catalog.",
		}, []string{labelKind}),
		catalogIssues: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_issues",
			Help:      "Dangling references in the most recently loaded catalog.",
		}),
		unplaced: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "layout_unplaced_services",
			Help:      "Services no root reached in the most recent layout.",
		}),
		resolvesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "highlight_resolves_total",
			Help:      "Highlight resolutions by channel, kind and memo result.",
		}, []string{labelChannel, labelKind, labelResult}),
		cacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Cache lookups and writes.",
		}, []string{labelKeyType, labelResult}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache.",
		}, []string{labelKeyType}),
		httpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Served HTTP requests.",
		}, []string{labelMethod, labelRoute, labelCode}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of served HTTP requests.",
			Buckets:   durationBuckets,
		}, []string{labelMethod, labelRoute}),
		sessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Interaction sessions created.",
		}),
	}

	reg.MustRegister(
		m.stageDuration, m.stageTotal, m.catalogSize, m.catalogIssues, m.unplaced,
		m.resolvesTotal, m.cacheTotal, m.cacheBytes, m.httpTotal, m.httpDuration, m.sessionsTotal,
	)
	return m
}

// Install registers m as the global hook implementation.
func (m *Metrics) Install() {
	observability.SetPipelineHooks(m)
	observability.SetHighlightHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) observeStage(stage string, d time.Duration, err error) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	m.stageTotal.WithLabelValues(stage, result(err)).Inc()
}

func (m *Metrics) OnCatalogLoad(_ context.Context, _ string, services, feeds, flows, issues int, d time.Duration, err error) {
	m.observeStage("load", d, err)
	if err != nil {
		return
	}
	m.catalogSize.WithLabelValues("services").Set(float64(services))
	m.catalogSize.WithLabelValues("feeds").Set(float64(feeds))
	m.catalogSize.WithLabelValues("flows").Set(float64(flows))
	m.catalogIssues.Set(float64(issues))
}

func (m *Metrics) OnLayoutStart(context.Context, int) {}

func (m *Metrics) OnLayoutComplete(_ context.Context, _ int, unplaced int, d time.Duration, err error) {
	m.observeStage("layout", d, err)
	if err == nil {
		m.unplaced.Set(float64(unplaced))
	}
}

func (m *Metrics) OnRenderStart(context.Context, []string) {}

func (m *Metrics) OnRenderComplete(_ context.Context, _ []string, d time.Duration, err error) {
	m.observeStage("render", d, err)
}

func (m *Metrics) OnResolve(channel, kind string, cached bool) {
	res := "miss"
	if cached {
		res = "hit"
	}
	m.resolvesTotal.WithLabelValues(channel, kind, res).Inc()
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheTotal.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheTotal.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheTotal.WithLabelValues(keyType, "set").Inc()
	m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (m *Metrics) OnRequest(_ context.Context, method, route string, status int, d time.Duration) {
	m.httpTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) OnSessionCreated(context.Context) {
	m.sessionsTotal.Inc()
}

var (
	_ observability.PipelineHooks  = (*Metrics)(nil)
	_ observability.HighlightHooks = (*Metrics)(nil)
	_ observability.CacheHooks     = (*Metrics)(nil)
	_ observability.HTTPHooks      = (*Metrics)(nil)
)
