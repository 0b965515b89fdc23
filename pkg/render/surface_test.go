package render

import (
	"testing"

	"github.com/matzehuels/flowmap/pkg/catalog"
	"github.com/matzehuels/flowmap/pkg/highlight"
	"github.com/matzehuels/flowmap/pkg/layout"
)

func TestDispatcherDrag(t *testing.T) {
	c := newController(t, catalog.Sample(), highlight.Options{})
	d := NewDispatcher(c)

	if !d.OnNodeDrag("CRM001", 5, 5) {
		t.Fatal("first drag delta should start the drag")
	}
	if d.OnNodeDrag("BIL001", 100, 100) {
		t.Error("delta for another node during a drag should be ignored")
	}
	d.OnNodeDrag("CRM001", 5, 0)

	if p, _ := c.Position("CRM001"); p != (layout.Position{X: 10, Y: 5}) {
		t.Errorf("CRM001 = %v", p)
	}
	if p, _ := c.Position("BIL001"); p != (layout.Position{X: 300, Y: 100}) {
		t.Errorf("BIL001 moved to %v", p)
	}

	if d.OnNodeRelease("BIL001") {
		t.Error("releasing a node that is not dragged should be a no-op")
	}
	if !d.OnNodeRelease("CRM001") {
		t.Error("OnNodeRelease(CRM001) = false")
	}
	if d.OnNodeDrag("NOPE", 1, 1) {
		t.Error("dragging an unknown node should be a no-op")
	}
}

func TestDispatcherClicks(t *testing.T) {
	c := newController(t, catalog.Sample(), highlight.Options{})
	d := NewDispatcher(c)

	d.OnNodeClick("BIL001")
	if g, ok := c.Gesture(); !ok || g.ID != "BIL001" {
		t.Fatalf("Gesture() = %v, %v", g, ok)
	}
	d.OnEdgeClick("F003")
	if g, _ := c.Gesture(); g.Kind != highlight.KindFeed || g.ID != "F003" {
		t.Errorf("Gesture() = %v", g)
	}
	if !d.OnPaneClick() {
		t.Error("OnPaneClick should clear the gesture")
	}
	if d.OnPaneClick() {
		t.Error("second OnPaneClick should be a no-op")
	}
}

func TestDispatcherConnect(t *testing.T) {
	c := newController(t, catalog.Sample(), highlight.Options{})
	d := NewDispatcher(c)

	if !d.OnConnectRequest("REP001", "CRM001") {
		t.Error("OnConnectRequest should succeed")
	}
	if d.OnConnectRequest("REP001", "CRM001") {
		t.Error("duplicate connection should be rejected")
	}
	if d.OnConnectRequest("CRM001", "CRM001") {
		t.Error("self connection should be rejected")
	}
	if got := len(c.Connections()); got != 1 {
		t.Errorf("Connections() = %d, want 1", got)
	}
}
