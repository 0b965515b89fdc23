package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowmap/pkg/cache"
	"github.com/matzehuels/flowmap/pkg/catalog"
	"github.com/matzehuels/flowmap/pkg/interact"
	"github.com/matzehuels/flowmap/pkg/layout"
	"github.com/matzehuels/flowmap/pkg/observability"
	"github.com/matzehuels/flowmap/pkg/render"
)

// Runner encapsulates pipeline execution with caching.
// The CLI and the server both use it to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// LayoutTTL overrides cache.LayoutTTL when positive.
	LayoutTTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete load → layout → scene → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}

	// Stage 1: Load
	loadStart := time.Now()
	cat, err := r.LoadCatalog(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Catalog = cat
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.Services = len(cat.Services())
	result.Stats.Feeds = len(cat.Feeds())
	result.Stats.Flows = len(cat.Flows())
	result.Stats.Issues = len(cat.Issues())

	// Stage 2: Layout
	layoutStart := time.Now()
	res, layoutHit, err := r.ComputeLayoutWithCacheInfo(ctx, cat, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Layout = res
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.Placed = len(res.Positions)
	result.Stats.Unplaced = len(res.Unplaced)
	result.CacheInfo.LayoutHit = layoutHit

	r.Logger.Info("computed layout",
		"placed", result.Stats.Placed,
		"unplaced", result.Stats.Unplaced,
		"duration", result.Stats.LayoutTime)

	// Stage 3: Scene
	ctrl, matched := r.NewSession(cat, res, opts)
	result.Controller = ctrl
	if matched {
		result.Scene = render.BuildScene(ctrl)
	} else {
		result.Scene = UnmatchedScene(ctrl, opts.Selection)
	}
	if result.Scene.Message != "" {
		r.Logger.Warn(result.Scene.Message, "selection", opts.Selection)
	}

	// Stage 4: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, result.Scene, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// LoadCatalog loads the catalog, reports it to the pipeline hooks and logs
// its issues. Catalogs are not cached: sources are local or authoritative.
func (r *Runner) LoadCatalog(ctx context.Context, opts Options) (*catalog.Catalog, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLoad(); err != nil {
		return nil, err
	}

	start := time.Now()
	cat, err := Load(ctx, opts)
	hooks := observability.Pipeline()
	if err != nil {
		hooks.OnCatalogLoad(ctx, opts.Source(), 0, 0, 0, 0, time.Since(start), err)
		return nil, err
	}
	hooks.OnCatalogLoad(ctx, opts.Source(),
		len(cat.Services()), len(cat.Feeds()), len(cat.Flows()), len(cat.Issues()),
		time.Since(start), nil)

	r.Logger.Info("loaded catalog",
		"source", opts.Source(),
		"services", len(cat.Services()),
		"feeds", len(cat.Feeds()),
		"flows", len(cat.Flows()),
		"version", shortHash(cat.Version()))
	LogIssues(opts, cat)
	return cat, nil
}

// ComputeLayoutWithCacheInfo computes a layout with caching and returns cache hit info.
func (r *Runner) ComputeLayoutWithCacheInfo(ctx context.Context, cat *catalog.Catalog, opts Options) (layout.Result, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return layout.Result{}, false, err
	}

	cacheKey := r.Keyer.LayoutKey(cat.Version(), opts.LayoutKeyOpts())
	cacheHooks := observability.Cache()

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var cached layout.Result
			if err := json.Unmarshal(data, &cached); err == nil {
				cacheHooks.OnCacheHit(ctx, "layout")
				return cached, true, nil
			}
			// If deserialization fails, fall through to recompute
		}
		cacheHooks.OnCacheMiss(ctx, "layout")
	}

	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, len(cat.Services()))
	start := time.Now()
	res, err := ComputeLayout(cat, opts)
	hooks.OnLayoutComplete(ctx, len(res.Positions), len(res.Unplaced), time.Since(start), err)
	if err != nil {
		return layout.Result{}, false, err
	}
	if len(res.Unplaced) > 0 {
		r.Logger.Warn("services unreachable from any root",
			"services", res.Unplaced,
			"fallback", res.Fallback)
	}

	if data, err := json.Marshal(res); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, r.layoutTTL()); err != nil {
			r.Logger.Debug("cache layout", "error", err)
		} else {
			cacheHooks.OnCacheSet(ctx, "layout", len(data))
		}
	}

	return res, false, nil
}

// ComputeLayout is a convenience wrapper that calls ComputeLayoutWithCacheInfo and discards the cache hit info.
func (r *Runner) ComputeLayout(ctx context.Context, cat *catalog.Catalog, opts Options) (layout.Result, error) {
	res, _, err := r.ComputeLayoutWithCacheInfo(ctx, cat, opts)
	return res, err
}

// NewSession starts a controller over a computed layout and applies the
// options' selection. matched is false when the selection names an id the
// catalog does not know; the controller then starts with nothing selected.
func (r *Runner) NewSession(cat *catalog.Catalog, res layout.Result, opts Options) (c *interact.Controller, matched bool) {
	c = NewController(cat, res, opts)
	matched = ApplySelection(c, opts.Selection)
	if !matched {
		r.Logger.Warn("unknown selection", "selection", opts.Selection)
	}
	return c, matched
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, scene render.Scene, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	sceneHash := scene.Hash()
	cacheHooks := observability.Cache()

	// Try to get all formats from cache
	artifacts := make(map[string][]byte)
	for _, format := range opts.Formats {
		cacheKey := r.Keyer.ArtifactKey(sceneHash, opts.ArtifactKeyOpts(format))
		data, hit, err := r.Cache.Get(ctx, cacheKey)
		if err != nil || !hit {
			cacheHooks.OnCacheMiss(ctx, "artifact")
			break
		}
		cacheHooks.OnCacheHit(ctx, "artifact")
		artifacts[format] = data
	}
	if len(artifacts) == len(opts.Formats) {
		return artifacts, true, nil
	}

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()
	rendered, err := Render(ctx, scene, opts)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	// Cache each format
	for format, data := range rendered {
		cacheKey := r.Keyer.ArtifactKey(sceneHash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, cacheKey, data, cache.ArtifactTTL); err == nil {
			cacheHooks.OnCacheSet(ctx, "artifact", len(data))
		}
	}

	return rendered, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, scene render.Scene, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, scene, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func (r *Runner) layoutTTL() time.Duration {
	if r.LayoutTTL > 0 {
		return r.LayoutTTL
	}
	return cache.LayoutTTL
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
