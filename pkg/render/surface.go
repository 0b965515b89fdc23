package render

import "github.com/matzehuels/flowmap/pkg/interact"

// Surface is the set of gesture callbacks a drawing surface reports. Each
// method reports whether the state changed, so the surface knows to redraw.
type Surface interface {
	OnNodeDrag(id string, dx, dy float64) bool
	OnNodeRelease(id string) bool
	OnNodeClick(id string) bool
	OnEdgeClick(id string) bool
	OnConnectRequest(sourceID, targetID string) bool
	OnPaneClick() bool
}

// Dispatcher routes gestures to a controller.
type Dispatcher struct {
	C *interact.Controller
}

// NewDispatcher wraps c.
func NewDispatcher(c *interact.Controller) *Dispatcher {
	return &Dispatcher{C: c}
}

// OnNodeDrag starts a drag on first movement and applies the delta.
// Deltas for a node other than the one being dragged are ignored.
func (d *Dispatcher) OnNodeDrag(id string, dx, dy float64) bool {
	if cur, ok := d.C.Dragging(); ok && cur != id {
		return false
	}
	if _, ok := d.C.Dragging(); !ok && !d.C.BeginDrag(id) {
		return false
	}
	return d.C.MoveDelta(dx, dy)
}

// OnNodeRelease ends the drag of id.
func (d *Dispatcher) OnNodeRelease(id string) bool {
	if cur, ok := d.C.Dragging(); !ok || cur != id {
		return false
	}
	return d.C.EndDrag()
}

// OnNodeClick toggles the service neighborhood highlight.
func (d *Dispatcher) OnNodeClick(id string) bool { return d.C.ClickNode(id) }

// OnEdgeClick toggles the feed neighborhood highlight.
func (d *Dispatcher) OnEdgeClick(id string) bool { return d.C.ClickEdge(id) }

// OnConnectRequest stores a cosmetic connection.
func (d *Dispatcher) OnConnectRequest(sourceID, targetID string) bool {
	_, ok := d.C.Connect(sourceID, targetID)
	return ok
}

// OnPaneClick clears the gesture highlight.
func (d *Dispatcher) OnPaneClick() bool { return d.C.ClearGesture() }

var _ Surface = (*Dispatcher)(nil)
