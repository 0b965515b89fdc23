// Package interact holds the per-session interaction state: node positions,
// the current selection, an optional click gesture, drag state, edge
// attachment sides and cosmetic connections.
//
// A [Controller] is the only writer of that state. It is not safe for
// concurrent use; callers sharing one across goroutines must serialize
// access. Every operation naming an unknown id is a no-op that reports
// false.
package interact

import (
	"fmt"
	"maps"

	"github.com/matzehuels/flowmap/pkg/catalog"
	"github.com/matzehuels/flowmap/pkg/highlight"
	"github.com/matzehuels/flowmap/pkg/layout"
)

// Side is the side of a node an edge attaches to.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Attachment is the pair of sides an edge connects.
type Attachment struct {
	Source Side `json:"source"`
	Target Side `json:"target"`
}

// attach is the attachment policy: out of the right side, into the left,
// whatever the relative node positions.
func attach() Attachment {
	return Attachment{Source: SideRight, Target: SideLeft}
}

// Connection is a user-drawn edge. It is not part of the catalog.
type Connection struct {
	ID       string `json:"id"`
	SourceID string `json:"sourceId"`
	TargetID string `json:"targetId"`
}

type dragState struct {
	active bool
	id     string
	start  layout.Position
}

// Controller owns one session's interaction state.
type Controller struct {
	resolver *highlight.Resolver
	computed layout.Result

	positions   map[string]layout.Position
	attachments map[string]Attachment
	selection   highlight.Selection
	gesture     *highlight.Gesture
	drag        dragState
	connections []Connection
	connSeq     int

	revision uint64
}

// New creates a controller starting from a computed layout.
func New(resolver *highlight.Resolver, computed layout.Result) *Controller {
	c := &Controller{
		resolver:  resolver,
		computed:  computed,
		selection: highlight.None(),
	}
	c.resetPositions()
	return c
}

// Catalog returns the catalog the session reads.
func (c *Controller) Catalog() *catalog.Catalog { return c.resolver.Catalog() }

// Layout returns the computed layout the session started from.
func (c *Controller) Layout() layout.Result { return c.computed }

// Revision increases on every state change.
func (c *Controller) Revision() uint64 { return c.revision }

// Position returns the current position of a service.
func (c *Controller) Position(id string) (layout.Position, bool) {
	p, ok := c.positions[id]
	return p, ok
}

// Positions returns a copy of all current positions.
func (c *Controller) Positions() map[string]layout.Position {
	return maps.Clone(c.positions)
}

// Attachment returns the attachment sides of a feed or connection.
func (c *Controller) Attachment(edgeID string) (Attachment, bool) {
	a, ok := c.attachments[edgeID]
	return a, ok
}

// Selection returns the current selection.
func (c *Controller) Selection() highlight.Selection { return c.selection }

// Gesture returns the active click gesture, if any.
func (c *Controller) Gesture() (highlight.Gesture, bool) {
	if c.gesture == nil {
		return highlight.Gesture{}, false
	}
	return *c.gesture, true
}

// Highlight returns the effective highlight: the gesture neighborhood while
// a gesture is active, else the selection state.
func (c *Controller) Highlight() highlight.State {
	sel := c.resolver.Resolve(c.selection)
	if c.gesture == nil {
		return sel
	}
	g := c.resolver.ResolveGesture(*c.gesture)
	return highlight.Merge(sel, &g)
}

// Connections returns the cosmetic connections in creation order.
func (c *Controller) Connections() []Connection {
	return append([]Connection(nil), c.connections...)
}

func (c *Controller) changed() { c.revision++ }

// =============================================================================
// Drag
// =============================================================================

// Dragging returns the id being dragged.
func (c *Controller) Dragging() (string, bool) {
	return c.drag.id, c.drag.active
}

// BeginDrag starts dragging a positioned service. It is a no-op while
// another drag is in progress.
func (c *Controller) BeginDrag(id string) bool {
	if c.drag.active {
		return false
	}
	p, ok := c.positions[id]
	if !ok {
		return false
	}
	c.drag = dragState{active: true, id: id, start: p}
	c.changed()
	return true
}

// MoveDelta moves the dragged service and refreshes the attachments of
// every edge touching it.
func (c *Controller) MoveDelta(dx, dy float64) bool {
	if !c.drag.active {
		return false
	}
	c.positions[c.drag.id] = c.positions[c.drag.id].Add(dx, dy)
	c.refreshAttachments(c.drag.id)
	c.changed()
	return true
}

// EndDrag finishes the drag. The final position persists for the session.
func (c *Controller) EndDrag() bool {
	if !c.drag.active {
		return false
	}
	c.drag = dragState{}
	c.changed()
	return true
}

// CancelDrag ends the drag and restores the position captured by BeginDrag.
func (c *Controller) CancelDrag() bool {
	if !c.drag.active {
		return false
	}
	id := c.drag.id
	c.positions[id] = c.drag.start
	c.drag = dragState{}
	c.refreshAttachments(id)
	c.changed()
	return true
}

// MoveTo places a positioned service at p outside a drag, for surfaces
// that report final coordinates.
func (c *Controller) MoveTo(id string, p layout.Position) bool {
	if _, ok := c.positions[id]; !ok {
		return false
	}
	c.positions[id] = p
	c.refreshAttachments(id)
	c.changed()
	return true
}

// ResetLayout restores the computed positions. Selection and gesture are kept.
func (c *Controller) ResetLayout() {
	c.drag = dragState{}
	c.resetPositions()
	c.changed()
}

func (c *Controller) resetPositions() {
	c.positions = maps.Clone(c.computed.Positions)
	if c.positions == nil {
		c.positions = make(map[string]layout.Position)
	}
	c.attachments = make(map[string]Attachment)
	for _, f := range c.Catalog().Feeds() {
		if c.positioned(f.SupplierID, f.ReceiverID) {
			c.attachments[f.ID] = attach()
		}
	}
	for _, conn := range c.connections {
		c.attachments[conn.ID] = attach()
	}
}

func (c *Controller) refreshAttachments(id string) {
	for _, f := range c.Catalog().Incident(id) {
		if c.positioned(f.SupplierID, f.ReceiverID) {
			c.attachments[f.ID] = attach()
		}
	}
	for _, conn := range c.connections {
		if conn.SourceID == id || conn.TargetID == id {
			c.attachments[conn.ID] = attach()
		}
	}
}

func (c *Controller) positioned(ids ...string) bool {
	for _, id := range ids {
		if _, ok := c.positions[id]; !ok {
			return false
		}
	}
	return true
}

// =============================================================================
// Selection
// =============================================================================

// SelectService selects a service, or clears the selection if it is
// already selected. Any gesture highlight is dropped.
func (c *Controller) SelectService(id string) bool {
	if !c.Catalog().HasService(id) {
		return false
	}
	c.toggle(highlight.SelectService(id))
	return true
}

// SelectFlow selects a flow, or clears the selection if it is already selected.
func (c *Controller) SelectFlow(id string) bool {
	if _, ok := c.Catalog().Flow(id); !ok {
		return false
	}
	c.toggle(highlight.SelectFlow(id))
	return true
}

// SelectFeed selects a feed, or clears the selection if it is already selected.
func (c *Controller) SelectFeed(id string) bool {
	if _, ok := c.Catalog().Feed(id); !ok {
		return false
	}
	c.toggle(highlight.SelectFeed(id))
	return true
}

// Select dispatches on sel.Kind. Selecting none clears the selection.
func (c *Controller) Select(sel highlight.Selection) bool {
	switch sel.Kind {
	case highlight.KindService:
		return c.SelectService(sel.ID)
	case highlight.KindFlow:
		return c.SelectFlow(sel.ID)
	case highlight.KindFeed:
		return c.SelectFeed(sel.ID)
	}
	if sel.IsNone() {
		c.ClearSelection()
		return true
	}
	return false
}

// ClearSelection sets the selection to none and drops any gesture.
func (c *Controller) ClearSelection() {
	c.selection = highlight.None()
	c.gesture = nil
	c.changed()
}

func (c *Controller) toggle(sel highlight.Selection) {
	if c.selection == sel {
		c.selection = highlight.None()
	} else {
		c.selection = sel
	}
	c.gesture = nil
	c.changed()
}

// =============================================================================
// Gestures
// =============================================================================

// ClickNode shows the flow neighborhood of a service. Clicking the same
// service again clears it.
func (c *Controller) ClickNode(id string) bool {
	if !c.Catalog().HasService(id) {
		return false
	}
	c.click(highlight.Gesture{Kind: highlight.KindService, ID: id})
	return true
}

// ClickEdge shows the flow neighborhood of a feed. Clicking the same feed
// again clears it. Cosmetic connections are not feeds and are ignored.
func (c *Controller) ClickEdge(id string) bool {
	if _, ok := c.Catalog().Feed(id); !ok {
		return false
	}
	c.click(highlight.Gesture{Kind: highlight.KindFeed, ID: id})
	return true
}

// ClearGesture drops the gesture highlight, revealing the selection state.
func (c *Controller) ClearGesture() bool {
	if c.gesture == nil {
		return false
	}
	c.gesture = nil
	c.changed()
	return true
}

func (c *Controller) click(g highlight.Gesture) {
	if c.gesture != nil && *c.gesture == g {
		c.gesture = nil
	} else {
		c.gesture = &g
	}
	c.changed()
}

// =============================================================================
// Connections
// =============================================================================

// Connect records a cosmetic edge between two positioned services. Self
// connections and duplicates are ignored. Each connection gets a fresh
// conn-N id.
func (c *Controller) Connect(sourceID, targetID string) (Connection, bool) {
	if sourceID == targetID || !c.positioned(sourceID, targetID) {
		return Connection{}, false
	}
	for _, conn := range c.connections {
		if conn.SourceID == sourceID && conn.TargetID == targetID {
			return Connection{}, false
		}
	}
	conn := Connection{
		ID:       c.nextConnectionID(),
		SourceID: sourceID,
		TargetID: targetID,
	}
	c.connections = append(c.connections, conn)
	c.attachments[conn.ID] = attach()
	c.changed()
	return conn, true
}

// nextConnectionID numbers connections per session, skipping ids already
// used by a feed or another edge.
func (c *Controller) nextConnectionID() string {
	cat := c.Catalog()
	for {
		c.connSeq++
		id := fmt.Sprintf("conn-%d", c.connSeq)
		if _, isFeed := cat.Feed(id); isFeed {
			continue
		}
		if _, used := c.attachments[id]; used {
			continue
		}
		return id
	}
}
