package render

import (
	"encoding/json"
	"testing"

	"github.com/matzehuels/flowmap/pkg/catalog"
	"github.com/matzehuels/flowmap/pkg/highlight"
	"github.com/matzehuels/flowmap/pkg/interact"
	"github.com/matzehuels/flowmap/pkg/layout"
)

func newController(t *testing.T, doc catalog.Document, opts highlight.Options) *interact.Controller {
	t.Helper()
	cat, err := catalog.New(doc)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return interact.New(highlight.NewResolver(cat, opts), layout.Compute(cat, layout.Options{}))
}

func nodeIDs(s Scene) []string {
	var ids []string
	for _, n := range s.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func edgeIDs(s Scene) []string {
	var ids []string
	for _, e := range s.Edges {
		ids = append(ids, e.ID)
	}
	return ids
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBuildSceneNoSelection(t *testing.T) {
	c := newController(t, catalog.Sample(), highlight.Options{})
	s := BuildScene(c)

	if s.Message != "" {
		t.Errorf("Message = %q, want none", s.Message)
	}
	if got, want := nodeIDs(s), []string{"CRM001", "BIL001", "INV001", "REP001"}; !equalIDs(got, want) {
		t.Errorf("nodes = %v, want %v", got, want)
	}
	if got, want := edgeIDs(s), []string{"F001", "F002", "F003"}; !equalIDs(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
	for _, n := range s.Nodes {
		if !n.Highlighted || n.Emphasized || n.Dimmed {
			t.Errorf("node %s: highlighted=%v emphasized=%v dimmed=%v", n.ID, n.Highlighted, n.Emphasized, n.Dimmed)
		}
		if n.Style != StyleNormal {
			t.Errorf("node %s style = %+v, want normal", n.ID, n.Style)
		}
	}

	e, _ := s.Edge("F001")
	if e.SourceID != "CRM001" || e.TargetID != "BIL001" {
		t.Errorf("F001 endpoints = %s -> %s", e.SourceID, e.TargetID)
	}
	if e.Label != "Customer Data Sync" {
		t.Errorf("F001 label = %q", e.Label)
	}
	if e.Type != "API" || e.Frequency != "Real-time" || e.Format != "JSON" {
		t.Errorf("F001 tooltip = %s/%s/%s", e.Type, e.Frequency, e.Format)
	}
	if e.SourceSide != interact.SideRight || e.TargetSide != interact.SideLeft {
		t.Errorf("F001 sides = %s -> %s", e.SourceSide, e.TargetSide)
	}

	n, _ := s.Node("BIL001")
	if n.Position != (layout.Position{X: 300, Y: 100}) {
		t.Errorf("BIL001 position = %v", n.Position)
	}
}

func TestBuildSceneServiceSelection(t *testing.T) {
	c := newController(t, catalog.Sample(), highlight.Options{})
	c.SelectService("BIL001")
	s := BuildScene(c)

	if len(s.Nodes) != 4 {
		t.Fatalf("service selection should dim, not hide; got nodes %v", nodeIDs(s))
	}
	rep, _ := s.Node("REP001")
	if !rep.Dimmed || rep.Style != StyleDimmed {
		t.Errorf("REP001 should be dimmed, got %+v", rep)
	}
	bil, _ := s.Node("BIL001")
	if !bil.Emphasized || bil.Style != StyleEmphasized {
		t.Errorf("BIL001 should be emphasized, got %+v", bil)
	}

	for _, id := range []string{"F001", "F002"} {
		e, ok := s.Edge(id)
		if !ok || !e.Emphasized || e.Style != StyleEmphasized {
			t.Errorf("edge %s should be emphasized, got %+v", id, e)
		}
	}
	f3, ok := s.Edge("F003")
	if !ok || !f3.Dimmed {
		t.Errorf("F003 should be visible and dimmed, got %+v", f3)
	}
	if s.Selection != highlight.SelectService("BIL001") {
		t.Errorf("Selection = %v", s.Selection)
	}
}

func TestBuildSceneFlowSelection(t *testing.T) {
	c := newController(t, catalog.Sample(), highlight.Options{})
	c.SelectFlow("FL002")
	s := BuildScene(c)

	if got, want := nodeIDs(s), []string{"BIL001", "INV001", "REP001"}; !equalIDs(got, want) {
		t.Errorf("nodes = %v, want %v", got, want)
	}
	if got, want := edgeIDs(s), []string{"F002", "F003"}; !equalIDs(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
}

func TestBuildSceneFeedSelection(t *testing.T) {
	tests := []struct {
		name      string
		filter    bool
		wantEdges []string
	}{
		{"dim others", false, []string{"F001", "F002", "F003"}},
		{"filter", true, []string{"F001"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newController(t, catalog.Sample(), highlight.Options{FilterToSelection: tt.filter})
			c.SelectFeed("F001")
			s := BuildScene(c)

			if got := edgeIDs(s); !equalIDs(got, tt.wantEdges) {
				t.Errorf("edges = %v, want %v", got, tt.wantEdges)
			}
			e, _ := s.Edge("F001")
			if !e.Animated || !e.Emphasized {
				t.Errorf("F001 animated=%v emphasized=%v", e.Animated, e.Emphasized)
			}
		})
	}
}

func TestBuildSceneGesture(t *testing.T) {
	c := newController(t, catalog.Sample(), highlight.Options{})
	c.SelectFlow("FL002")
	c.ClickNode("CRM001")
	s := BuildScene(c)

	if s.Gesture == nil || s.Gesture.ID != "CRM001" {
		t.Fatalf("Gesture = %v", s.Gesture)
	}
	// CRM001 touches F001, which belongs to FL001; the whole flow lights up.
	for _, id := range []string{"F001", "F002", "F003"} {
		if e, ok := s.Edge(id); !ok || !e.Emphasized {
			t.Errorf("edge %s should be emphasized", id)
		}
	}
	if got, want := s.Flows, []string{"FL001"}; !equalIDs(got, want) {
		t.Errorf("Flows = %v, want %v", got, want)
	}
}

func TestBuildSceneEmptyStates(t *testing.T) {
	t.Run("empty catalog", func(t *testing.T) {
		c := newController(t, catalog.Document{}, highlight.Options{})
		s := BuildScene(c)
		if s.Message != MessageEmptyCatalog {
			t.Errorf("Message = %q", s.Message)
		}
		if !s.Empty() {
			t.Error("scene should be empty")
		}
	})

	t.Run("dangling flow", func(t *testing.T) {
		doc := catalog.Sample()
		doc.Flows = append(doc.Flows, catalog.Flow{ID: "FL009", Name: "Ghost", Feeds: []string{"F404"}})
		c := newController(t, doc, highlight.Options{})
		c.SelectFlow("FL009")
		s := BuildScene(c)
		if s.Message != MessageEmptySelection {
			t.Errorf("Message = %q", s.Message)
		}
		if len(s.Nodes) != 0 || len(s.Edges) != 0 {
			t.Errorf("empty selection should draw nothing, got %v / %v", nodeIDs(s), edgeIDs(s))
		}
	})
}

func TestBuildSceneConnections(t *testing.T) {
	c := newController(t, catalog.Sample(), highlight.Options{})
	conn, ok := c.Connect("REP001", "CRM001")
	if !ok {
		t.Fatal("Connect failed")
	}
	s := BuildScene(c)

	e, ok := s.Edge(conn.ID)
	if !ok {
		t.Fatalf("connection %s missing from scene", conn.ID)
	}
	if !e.Cosmetic || e.Style != StyleCosmetic {
		t.Errorf("connection should be cosmetic, got %+v", e)
	}

	c.SelectFlow("FL002")
	if _, ok := BuildScene(c).Edge(conn.ID); ok {
		t.Error("connection to a hidden service should not be drawn")
	}
}

func TestBuildSceneDragging(t *testing.T) {
	c := newController(t, catalog.Sample(), highlight.Options{})
	c.BeginDrag("INV001")
	c.MoveDelta(10, 5)
	s := BuildScene(c)

	n, _ := s.Node("INV001")
	if !n.Dragging {
		t.Error("INV001 should be marked as dragging")
	}
	if n.Position != (layout.Position{X: 610, Y: 205}) {
		t.Errorf("INV001 position = %v", n.Position)
	}
}

func TestSceneHashIgnoresRevision(t *testing.T) {
	c := newController(t, catalog.Sample(), highlight.Options{})
	before := BuildScene(c)

	c.SelectService("CRM001")
	c.SelectService("CRM001")
	after := BuildScene(c)

	if before.Revision == after.Revision {
		t.Fatal("revision should advance")
	}
	if before.Hash() != after.Hash() {
		t.Error("identical drawings should hash equal")
	}

	c.SelectService("CRM001")
	if BuildScene(c).Hash() == before.Hash() {
		t.Error("different drawings should hash differently")
	}
}

func TestSceneJSON(t *testing.T) {
	c := newController(t, catalog.Sample(), highlight.Options{})
	c.SelectService("CRM001")
	data, err := BuildScene(c).JSON()
	if err != nil {
		t.Fatalf("JSON() error: %v", err)
	}

	var decoded struct {
		Nodes []struct {
			ID         string `json:"id"`
			Emphasized bool   `json:"emphasized"`
		} `json:"nodes"`
		Selection struct {
			Kind string `json:"kind"`
			ID   string `json:"id"`
		} `json:"selection"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.Nodes) != 4 {
		t.Errorf("nodes = %d, want 4", len(decoded.Nodes))
	}
	if decoded.Selection.Kind != "service" || decoded.Selection.ID != "CRM001" {
		t.Errorf("selection = %+v", decoded.Selection)
	}
}
