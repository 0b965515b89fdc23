package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/flowmap/pkg/errors"
	"github.com/matzehuels/flowmap/pkg/highlight"
	"github.com/matzehuels/flowmap/pkg/interact"
	"github.com/matzehuels/flowmap/pkg/render"
	"github.com/matzehuels/flowmap/pkg/render/nodelink"
)

// =============================================================================
// Scene
// =============================================================================

// ApplySelection selects sel on c and reports whether the catalog knows the
// selected id. An unknown id leaves c unchanged.
func ApplySelection(c *interact.Controller, sel highlight.Selection) bool {
	if sel.IsNone() {
		if !c.Selection().IsNone() {
			c.ClearSelection()
		}
		return true
	}
	if c.Selection() == sel {
		return true
	}
	return c.Select(sel)
}

// UnmatchedScene is the scene shown for a selection naming an unknown id:
// nothing is highlighted, so nothing is drawn and the empty-selection message
// is set.
func UnmatchedScene(c *interact.Controller, sel highlight.Selection) render.Scene {
	s := render.BuildScene(c)
	if s.Message == render.MessageEmptyCatalog {
		return s
	}
	s.Selection = sel
	s.Nodes = []render.NodeDescriptor{}
	s.Edges = []render.EdgeDescriptor{}
	s.Flows = []string{}
	s.Gesture = nil
	s.Message = render.MessageEmptySelection
	return s
}

// =============================================================================
// Render
// =============================================================================

// Render generates output artifacts in the requested formats.
func Render(ctx context.Context, scene render.Scene, opts Options) (map[string][]byte, error) {
	dot := nodelink.ToDOT(scene, nodelink.Options{Detailed: opts.Detailed})
	artifacts := make(map[string][]byte, len(opts.Formats))

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatSVG:
			data, err = nodelink.RenderSVG(ctx, dot)
		case FormatDOT:
			data = []byte(dot)
		case FormatJSON:
			data, err = scene.JSON()
		case FormatPDF:
			data, err = nodelink.RenderPDF(ctx, dot)
		case FormatPNG:
			data, err = nodelink.RenderPNG(ctx, dot, opts.Scale)
		default:
			return nil, errors.New(errors.ErrCodeUnsupported, "unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}
