package highlight

import (
	"sync"

	"github.com/matzehuels/flowmap/pkg/catalog"
	"github.com/matzehuels/flowmap/pkg/observability"
)

// maxMemoEntries bounds the memo; it is reset when full.
const maxMemoEntries = 4096

type memoKey struct {
	channel string
	kind    Kind
	id      string
	version string
	filter  bool
}

// Resolver memoizes Resolve and ResolveGesture for one catalog. Returned
// states are shared between callers and must not be modified.
// A Resolver is safe for concurrent use.
type Resolver struct {
	cat  *catalog.Catalog
	opts Options

	mu   sync.Mutex
	memo map[memoKey]State
}

// NewResolver creates a memoizing resolver.
func NewResolver(cat *catalog.Catalog, opts Options) *Resolver {
	return &Resolver{cat: cat, opts: opts, memo: make(map[memoKey]State)}
}

// Catalog returns the catalog the resolver reads.
func (r *Resolver) Catalog() *catalog.Catalog { return r.cat }

// Options returns the presentation options.
func (r *Resolver) Options() Options { return r.opts }

// Resolve is the memoized form of the package-level Resolve.
func (r *Resolver) Resolve(sel Selection) State {
	if sel.IsNone() {
		sel = None()
	}
	key := memoKey{channel: "selection", kind: sel.Kind, id: sel.ID, version: r.cat.Version(), filter: r.opts.FilterToSelection}
	return r.lookup(key, func() State { return Resolve(r.cat, sel, r.opts) })
}

// ResolveGesture is the memoized form of the package-level ResolveGesture.
func (r *Resolver) ResolveGesture(g Gesture) State {
	key := memoKey{channel: "gesture", kind: g.Kind, id: g.ID, version: r.cat.Version()}
	return r.lookup(key, func() State { return ResolveGesture(r.cat, g) })
}

// Len returns the number of memoized states.
func (r *Resolver) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.memo)
}

func (r *Resolver) lookup(key memoKey, compute func() State) State {
	r.mu.Lock()
	if st, ok := r.memo[key]; ok {
		r.mu.Unlock()
		observability.Highlight().OnResolve(key.channel, string(key.kind), true)
		return st
	}
	r.mu.Unlock()

	st := compute()
	observability.Highlight().OnResolve(key.channel, string(key.kind), false)

	r.mu.Lock()
	if len(r.memo) >= maxMemoEntries {
		clear(r.memo)
	}
	r.memo[key] = st
	r.mu.Unlock()
	return st
}
