// Package observability provides hooks for metrics and tracing.
//
// Libraries emit events through hook interfaces whose defaults do nothing.
// main registers real implementations (see the prom subpackage) at startup,
// so the core packages never import a metrics backend.
//
//	func main() {
//	    prom.New(reg).Install() // registers every hook set
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnLayoutStart(ctx, serviceCount)
//	// ... compute ...
//	observability.Pipeline().OnLayoutComplete(ctx, placed, unplaced, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the load -> layout -> render pipeline.
type PipelineHooks interface {
	// Catalog events
	OnCatalogLoad(ctx context.Context, source string, services, feeds, flows, issues int, duration time.Duration, err error)

	// Layout events
	OnLayoutStart(ctx context.Context, serviceCount int)
	OnLayoutComplete(ctx context.Context, placed, unplaced int, duration time.Duration, err error)

	// Render events
	OnRenderStart(ctx context.Context, formats []string)
	OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error)
}

// =============================================================================
// Highlight Hooks
// =============================================================================

// HighlightHooks receives events from the memoizing highlight resolver.
// Resolution is in-memory and synchronous, so no context is passed.
type HighlightHooks interface {
	// OnResolve records one resolution. channel is "selection" or
	// "gesture"; cached reports a memo hit.
	OnResolve(channel, kind string, cached bool)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP API server.
type HTTPHooks interface {
	// OnRequest records a served request. route is the chi route pattern.
	OnRequest(ctx context.Context, method, route string, statusCode int, duration time.Duration)

	// OnSessionCreated records a new interaction session.
	OnSessionCreated(ctx context.Context)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnCatalogLoad(context.Context, string, int, int, int, int, time.Duration, error) {
}
func (NoopPipelineHooks) OnLayoutStart(context.Context, int)                               {}
func (NoopPipelineHooks) OnLayoutComplete(context.Context, int, int, time.Duration, error) {}
func (NoopPipelineHooks) OnRenderStart(context.Context, []string)                          {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, []string, time.Duration, error) {}

// NoopHighlightHooks is a no-op implementation of HighlightHooks.
type NoopHighlightHooks struct{}

func (NoopHighlightHooks) OnResolve(string, string, bool) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnSessionCreated(context.Context)                              {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks  PipelineHooks  = NoopPipelineHooks{}
	highlightHooks HighlightHooks = NoopHighlightHooks{}
	cacheHooks     CacheHooks     = NoopCacheHooks{}
	httpHooks      HTTPHooks      = NoopHTTPHooks{}
	hooksMu        sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks. Nil is ignored.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetHighlightHooks registers custom highlight hooks. Nil is ignored.
func SetHighlightHooks(h HighlightHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		highlightHooks = h
	}
}

// SetCacheHooks registers custom cache hooks. Nil is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks. Nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Highlight returns the registered highlight hooks.
func Highlight() HighlightHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return highlightHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	highlightHooks = NoopHighlightHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
