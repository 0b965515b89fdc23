// Package render is the boundary between the interaction state and a
// drawing surface.
//
// [BuildScene] turns a controller's state into a [Scene]: one
// [NodeDescriptor] per visible service and one [EdgeDescriptor] per visible
// feed or cosmetic connection, each carrying its position, label, highlight
// flags and stroke style. A surface draws the scene however it likes and
// reports user gestures back through [Surface]; [Dispatcher] implements
// Surface on top of an interact.Controller.
//
// Sinks:
//   - [nodelink]: Graphviz DOT with pinned positions, rendered to SVG
//   - [Scene.JSON]: the scene itself, for browser canvases
//   - [ToPDF], [ToPNG]: conversions of the SVG output via rsvg-convert
//
// [nodelink]: github.com/matzehuels/flowmap/pkg/render/nodelink
package render
