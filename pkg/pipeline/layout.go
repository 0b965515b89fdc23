package pipeline

import (
	"github.com/matzehuels/flowmap/pkg/catalog"
	"github.com/matzehuels/flowmap/pkg/highlight"
	"github.com/matzehuels/flowmap/pkg/interact"
	"github.com/matzehuels/flowmap/pkg/layout"
)

// =============================================================================
// Layout Generation
// =============================================================================

// ComputeLayout runs the layout engine with the options' gaps and fallback.
func ComputeLayout(cat *catalog.Catalog, opts Options) (layout.Result, error) {
	lo, err := opts.LayoutOptions().WithDefaults()
	if err != nil {
		return layout.Result{}, err
	}
	return layout.Compute(cat, lo), nil
}

// NewController starts an interaction session over a computed layout.
func NewController(cat *catalog.Catalog, res layout.Result, opts Options) *interact.Controller {
	return interact.New(highlight.NewResolver(cat, opts.HighlightOptions()), res)
}
