// Package nodelink renders scenes as Graphviz node-link diagrams.
//
// Services become rounded boxes at their scene positions and feeds become
// arrows leaving the right side of the supplier and entering the left side
// of the receiver. Highlight styles carry over as stroke color and width;
// animated and emphasized feeds get SVG classes so a stylesheet can animate
// them.
//
// # Usage
//
//	dot := nodelink.ToDOT(render.BuildScene(ctrl), nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// For PDF or PNG output:
//
//	pdf, err := nodelink.RenderPDF(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot, 2.0)
//
// # Positions
//
// Graphviz does not lay anything out here. Every node is pinned with
// pos="x,y!" and the neato engine keeps pinned nodes in place, so the
// diagram matches the computed layout and any manual drags exactly. Only
// edge routes are computed by Graphviz.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering (Graphviz compiled to WebAssembly). PDF and PNG go through
// rsvg-convert.
package nodelink
