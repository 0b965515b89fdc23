// Package pipeline provides the load → layout → render pipeline for flowmap.
//
// The CLI, the HTTP server and the terminal browser all go through a
// [Runner], so catalog loading, layout caching and artifact rendering behave
// the same from every entry point.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Load: read a catalog from a file, MongoDB, or the built-in sample
//  2. Layout: compute service positions (cached by catalog version)
//  3. Scene: build an interaction controller, apply the selection, and
//     derive the render scene
//  4. Render: produce artifacts (SVG, DOT, JSON, PDF, PNG), cached by scene hash
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Catalog:   "catalog.yaml",
//	    Selection: highlight.SelectFlow("FL001"),
//	    Formats:   []string{"svg"},
//	})
//	svg := result.Artifacts["svg"]
//
// Run individual stages:
//
//	cat, err := runner.LoadCatalog(ctx, opts)
//	res, err := runner.ComputeLayout(ctx, cat, opts)
//	ctrl := runner.NewController(cat, res, opts)
package pipeline

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowmap/pkg/cache"
	"github.com/matzehuels/flowmap/pkg/catalog"
	"github.com/matzehuels/flowmap/pkg/errors"
	"github.com/matzehuels/flowmap/pkg/highlight"
	"github.com/matzehuels/flowmap/pkg/interact"
	"github.com/matzehuels/flowmap/pkg/layout"
	"github.com/matzehuels/flowmap/pkg/render"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultPNGScale is the resolution multiplier for PNG output.
	DefaultPNGScale = 2.0

	// DefaultMongoDatabase is the database read when only a URI is given.
	DefaultMongoDatabase = "flowmap"
)

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatDOT  = "dot"
	FormatJSON = "json"
	FormatPDF  = "pdf"
	FormatPNG  = "png"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatDOT:  true,
	FormatJSON: true,
	FormatPDF:  true,
	FormatPNG:  true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Load options. Exactly one source is used, in this order: Sample,
	// MongoURI, Catalog.
	Catalog       string `json:"catalog,omitempty"`
	CatalogFormat string `json:"catalog_format,omitempty"` // overrides the file extension
	MongoURI      string `json:"-"`
	MongoDatabase string `json:"mongo_database,omitempty"`
	Sample        bool   `json:"sample,omitempty"`

	// Layout options
	HorizontalGap float64         `json:"horizontal_gap,omitempty"`
	VerticalGap   float64         `json:"vertical_gap,omitempty"`
	Fallback      layout.Fallback `json:"fallback,omitempty"`
	Refresh       bool            `json:"refresh,omitempty"`

	// Highlight options
	Selection         highlight.Selection `json:"selection"`
	FilterToSelection bool                `json:"filter_to_selection,omitempty"`

	// Render options
	Formats  []string `json:"formats,omitempty"`
	Detailed bool     `json:"detailed,omitempty"`
	Scale    float64  `json:"scale,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Catalog is the loaded catalog.
	Catalog *catalog.Catalog

	// Layout holds the computed positions.
	Layout layout.Result

	// Controller is the interaction state the scene was built from.
	Controller *interact.Controller

	// Scene is the render scene after applying the selection.
	Scene render.Scene

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Services   int
	Feeds      int
	Flows      int
	Issues     int
	Placed     int
	Unplaced   int
	LoadTime   time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool // Whether the layout came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidOptions, "invalid format: %q (must be one of: svg, dot, json, pdf, png)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ParseFormats splits a comma-separated format list, trimming blanks.
func ParseFormats(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(strings.ToLower(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// ValidateSelection checks that a selection names a known kind and, unless
// it is none, an id.
func ValidateSelection(sel highlight.Selection) error {
	kind, err := highlight.ParseKind(string(sel.Kind))
	if err != nil {
		return err
	}
	if kind != highlight.KindNone && sel.ID == "" {
		return errors.New(errors.ErrCodeInvalidSelection, "%s selection requires an id", kind)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks that a catalog source is set.
func (o *Options) ValidateForLoad() error {
	if !o.Sample && o.MongoURI == "" && o.Catalog == "" {
		return errors.New(errors.ErrCodeInvalidInput, "catalog path, mongo URI or sample is required")
	}
	if o.Source() == "file" {
		if err := errors.ValidatePath(o.Catalog); err != nil {
			return err
		}
	}
	if o.CatalogFormat != "" {
		if _, err := catalog.ParseFormat(o.CatalogFormat); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidFormat, err, "catalog format")
		}
	}
	if o.MongoURI != "" && o.MongoDatabase == "" {
		o.MongoDatabase = DefaultMongoDatabase
	}
	o.setLogger()
	return nil
}

// ValidateForLayout validates and sets defaults for layout computation.
func (o *Options) ValidateForLayout() error {
	lo, err := o.LayoutOptions().WithDefaults()
	if err != nil {
		return err
	}
	o.HorizontalGap = lo.HorizontalGap
	o.VerticalGap = lo.VerticalGap
	o.Fallback = lo.Fallback
	o.setLogger()
	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Scale == 0 {
		o.Scale = DefaultPNGScale
	}
	if o.Selection.Kind == "" {
		o.Selection = highlight.None()
	}
	o.setLogger()
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if o.Scale < 0 {
		return errors.New(errors.ErrCodeInvalidOptions, "scale must be positive")
	}
	if err := ValidateSelection(o.Selection); err != nil {
		return err
	}
	return ValidateFormats(o.Formats)
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Source describes where the catalog comes from, for logs and metrics.
func (o *Options) Source() string {
	switch {
	case o.Sample:
		return "sample"
	case o.MongoURI != "":
		return "mongo"
	}
	return "file"
}

// LayoutOptions returns the layout engine options.
func (o *Options) LayoutOptions() layout.Options {
	return layout.Options{
		HorizontalGap: o.HorizontalGap,
		VerticalGap:   o.VerticalGap,
		Fallback:      o.Fallback,
	}
}

// HighlightOptions returns the highlight resolver options.
func (o *Options) HighlightOptions() highlight.Options {
	return highlight.Options{FilterToSelection: o.FilterToSelection}
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		HorizontalGap: o.HorizontalGap,
		VerticalGap:   o.VerticalGap,
		Fallback:      string(o.Fallback),
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{Format: format, Detailed: o.Detailed}
	if format == FormatPNG {
		k.Scale = o.Scale
	}
	return k
}

func (o *Options) String() string {
	return fmt.Sprintf("source=%s selection=%s formats=%s", o.Source(), o.Selection, strings.Join(o.Formats, ","))
}
