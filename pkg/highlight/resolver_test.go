package highlight

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/matzehuels/flowmap/pkg/catalog"
	"github.com/matzehuels/flowmap/pkg/observability"
)

type countingHooks struct {
	mu           sync.Mutex
	hits, misses int
}

func (h *countingHooks) OnResolve(_, _ string, cached bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cached {
		h.hits++
	} else {
		h.misses++
	}
}

func TestResolverMemoizes(t *testing.T) {
	hooks := &countingHooks{}
	observability.SetHighlightHooks(hooks)
	defer observability.Reset()

	r := NewResolver(catalog.MustNew(catalog.Sample()), Options{})
	a := r.Resolve(SelectFlow("FL002"))
	b := r.Resolve(SelectFlow("FL002"))
	r.Resolve(None())
	r.Resolve(Selection{})
	r.ResolveGesture(Gesture{Kind: KindFeed, ID: "F002"})

	if !a.Equal(b) {
		t.Error("memoized result differs")
	}
	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}
	if hooks.hits != 2 || hooks.misses != 3 {
		t.Errorf("hits = %d, misses = %d; want 2, 3", hooks.hits, hooks.misses)
	}
}

func TestResolverMatchesResolve(t *testing.T) {
	c := catalog.MustNew(catalog.Sample())
	opts := Options{FilterToSelection: true}
	r := NewResolver(c, opts)

	for _, sel := range []Selection{None(), SelectService("INV001"), SelectFlow("FL001"), SelectFeed("F001"), SelectFeed("F404")} {
		if !r.Resolve(sel).Equal(Resolve(c, sel, opts)) {
			t.Errorf("Resolver.Resolve(%s) differs from Resolve", sel)
		}
	}
}

func TestResolverConcurrent(t *testing.T) {
	r := NewResolver(catalog.MustNew(catalog.Sample()), Options{})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Resolve(SelectService("BIL001"))
			r.ResolveGesture(Gesture{Kind: KindService, ID: "BIL001"})
		}()
	}
	wg.Wait()
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

func TestStateJSON(t *testing.T) {
	st := Resolve(catalog.MustNew(catalog.Sample()), SelectFeed("F002"), Options{FilterToSelection: true})
	data, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back State
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !back.Equal(st) {
		t.Errorf("decoded state differs: %s", data)
	}
}
