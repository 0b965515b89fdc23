package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/flowmap/pkg/interact"
	"github.com/matzehuels/flowmap/pkg/render"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the service id and description to node labels and the
	// feed type, frequency and format to edge labels. When false, only
	// names are shown.
	Detailed bool
}

// ToDOT converts a scene to Graphviz DOT with every node pinned to its
// scene position. The result is meant for the neato engine, which honors
// pinned positions; [RenderSVG] selects it.
//
// Scene coordinates grow downward, Graphviz coordinates grow upward, so y
// is negated. An empty scene renders its message as a single plain node.
func ToDOT(s render.Scene, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  inputscale=72;\n")
	buf.WriteString("  splines=true;\n")
	buf.WriteString("  overlap=true;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=10, arrowsize=0.8];\n")
	buf.WriteString("\n")

	if s.Empty() {
		fmt.Fprintf(&buf, "  %q [shape=plaintext, style=\"\", pos=\"0,0!\"];\n", s.Message)
		buf.WriteString("}\n")
		return buf.String()
	}

	for _, n := range s.Nodes {
		attrs := nodeAttrs(n, opts.Detailed)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range s.Edges {
		attrs := edgeAttrs(e, opts.Detailed)
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.SourceID, e.TargetID, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n render.NodeDescriptor, detailed bool) []string {
	label := n.Label
	if detailed {
		label = n.Label + "\n" + n.ID
		if n.Description != "" {
			label += "\n" + n.Description
		}
	}
	attrs := []string{
		fmt.Sprintf("id=%q", "node-"+n.ID),
		fmt.Sprintf("label=%q", label),
		fmt.Sprintf("pos=\"%s,%s!\"", fmtCoord(n.Position.X), fmtCoord(flipY(n.Position.Y))),
		fmt.Sprintf("color=%q", n.Style.Stroke),
		fmt.Sprintf("penwidth=%s", fmtCoord(n.Style.Width)),
	}
	if n.Description != "" {
		attrs = append(attrs, fmt.Sprintf("tooltip=%q", n.Description))
	}
	if n.Dimmed {
		attrs = append(attrs, fmt.Sprintf("fontcolor=%q", render.StyleDimmed.Stroke))
	}
	return attrs
}

func edgeAttrs(e render.EdgeDescriptor, detailed bool) []string {
	attrs := []string{
		fmt.Sprintf("id=%q", "edge-"+e.ID),
		fmt.Sprintf("color=%q", e.Style.Stroke),
		fmt.Sprintf("penwidth=%s", fmtCoord(e.Style.Width)),
		"tailport=" + port(e.SourceSide),
		"headport=" + port(e.TargetSide),
	}
	if label := edgeLabel(e, detailed); label != "" {
		attrs = append(attrs, fmt.Sprintf("label=%q", label))
	}
	if tip := tooltip(e); tip != "" {
		attrs = append(attrs, fmt.Sprintf("tooltip=%q", tip))
	}

	var classes []string
	if e.Style.Dashed {
		attrs = append(attrs, "style=dashed")
		classes = append(classes, "cosmetic")
	}
	if e.Animated {
		classes = append(classes, "animated")
	}
	if e.Emphasized {
		classes = append(classes, "emphasized")
	}
	if len(classes) > 0 {
		attrs = append(attrs, fmt.Sprintf("class=%q", strings.Join(classes, " ")))
	}
	return attrs
}

func edgeLabel(e render.EdgeDescriptor, detailed bool) string {
	if !detailed || e.Cosmetic {
		return e.Label
	}
	var meta []string
	for _, v := range []string{e.Type, e.Frequency, e.Format} {
		if v != "" {
			meta = append(meta, v)
		}
	}
	if len(meta) == 0 {
		return e.Label
	}
	return e.Label + "\n" + strings.Join(meta, " · ")
}

func tooltip(e render.EdgeDescriptor) string {
	var lines []string
	if e.Description != "" {
		lines = append(lines, e.Description)
	}
	for _, kv := range [][2]string{{"Type", e.Type}, {"Frequency", e.Frequency}, {"Format", e.Format}} {
		if kv[1] != "" {
			lines = append(lines, kv[0]+": "+kv[1])
		}
	}
	return strings.Join(lines, "\n")
}

func port(s interact.Side) string {
	if s == interact.SideLeft {
		return "w"
	}
	return "e"
}

// flipY converts a downward scene y to an upward Graphviz y, without -0.
func flipY(y float64) float64 {
	if y == 0 {
		return 0
	}
	return -y
}

func fmtCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RenderSVG renders a DOT graph to SVG using the Graphviz neato engine.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF] or [render.ToPNG].
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
// A scale of 2.0 produces a 2x resolution image suitable for high-DPI displays.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
