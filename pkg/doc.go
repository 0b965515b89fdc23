// Package pkg provides the core libraries for Flowmap data-flow visualization.
//
// # Overview
//
// Flowmap takes a catalog of IT services, the feeds that carry data between
// them and the flows that chain feeds end to end, and turns it into an
// interactive node-link diagram. Services are placed in columns by feed
// depth; selecting a service, feed or flow emphasizes what it touches and
// dims the rest. The pkg directory is organized into four main areas:
//
//  1. [catalog] - Domain model (services, feeds, flows) and decoding
//  2. [layout], [highlight], [interact] - Placement, highlight propagation
//     and per-session interaction state
//  3. [render] - Scene derivation and Graphviz output
//  4. [pipeline] - Orchestration (load → layout → scene → render)
//
// # Architecture
//
// The typical data flow through Flowmap:
//
//	Catalog file / MongoDB / built-in sample
//	         ↓
//	    [catalog] package (validate, index)
//	         ↓
//	    [layout] package (depth columns, fallback placement)
//	         ↓
//	    [interact] package (selection, drag, click, connect)
//	         ↓
//	    [render] package (scene) → [render/nodelink] (DOT, SVG/PDF/PNG)
//
// # Quick Start
//
// Load a catalog, lay it out, select a flow and render it:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/flowmap/pkg/catalog"
//	    "github.com/matzehuels/flowmap/pkg/pipeline"
//	    "github.com/matzehuels/flowmap/pkg/render"
//	    "github.com/matzehuels/flowmap/pkg/render/nodelink"
//	)
//
//	// 1. Load the catalog
//	cat, _ := catalog.Load("catalog.yaml")
//
//	// 2. Compute the layout
//	opts := pipeline.Options{}
//	res, _ := pipeline.ComputeLayout(cat, opts)
//
//	// 3. Build a controller and select a flow
//	ctrl := pipeline.NewController(cat, res, opts)
//	ctrl.SelectFlow("FL001")
//
//	// 4. Render to SVG
//	dot := nodelink.ToDOT(render.BuildScene(ctrl), nodelink.Options{})
//	svg, _ := nodelink.RenderSVG(context.Background(), dot)
//
// # Main Packages
//
// ## Domain
//
// [catalog] - Services, feeds and flows with referential checks reported as
// issues rather than failures. Decodes JSON, YAML and TOML; [catalog/mongosrc]
// reads the same documents from MongoDB.
//
// [layout] - Deterministic placement: roots in column zero, each service one
// column right of its deepest supplier, and a configurable fallback for
// services on cycles.
//
// [highlight] - Highlight propagation for a selection and for click
// gestures. Pure functions over a catalog.
//
// [interact] - The mutable state of one viewer: positions, drags, selection,
// click gesture and drawn connections.
//
// ## Visualization
//
// [render] - Scene derivation (what to draw and how emphasized), the gesture
// [render.Surface], and SVG to PDF/PNG conversion.
//
// [render/nodelink] - Graphviz DOT with pinned positions, rendered by the
// neato engine.
//
// ## Infrastructure
//
// [pipeline] - Complete pipeline (load → layout → render) used by the CLI,
// the terminal browser and the HTTP server. Ensures consistent behavior
// across all entry points.
//
// [cache] - Layout and artifact caching with file, Redis and null backends.
//
// [session] - In-memory viewer sessions with idle expiry.
//
// [errors] - Error codes shared by the CLI and the HTTP API.
//
// [observability] - Hook interfaces for pipeline and HTTP events;
// [observability/prom] implements them with Prometheus collectors.
//
// [buildinfo] - Version information stamped at build time.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...              # All tests
//	go test ./pkg/highlight/...    # Specific package
//	go test -run Example           # Examples only
//	go test -short ./...           # Skip Graphviz rendering
//
// [catalog]: https://pkg.go.dev/github.com/matzehuels/flowmap/pkg/catalog
// [catalog/mongosrc]: https://pkg.go.dev/github.com/matzehuels/flowmap/pkg/catalog/mongosrc
// [layout]: https://pkg.go.dev/github.com/matzehuels/flowmap/pkg/layout
// [highlight]: https://pkg.go.dev/github.com/matzehuels/flowmap/pkg/highlight
// [interact]: https://pkg.go.dev/github.com/matzehuels/flowmap/pkg/interact
// [render]: https://pkg.go.dev/github.com/matzehuels/flowmap/pkg/render
// [render.Surface]: https://pkg.go.dev/github.com/matzehuels/flowmap/pkg/render#Surface
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/flowmap/pkg/render/nodelink
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/flowmap/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/flowmap/pkg/cache
// [session]: https://pkg.go.dev/github.com/matzehuels/flowmap/pkg/session
// [errors]: https://pkg.go.dev/github.com/matzehuels/flowmap/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/flowmap/pkg/observability
// [observability/prom]: https://pkg.go.dev/github.com/matzehuels/flowmap/pkg/observability/prom
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/flowmap/pkg/buildinfo
package pkg
