package render

import (
	"encoding/json"

	"github.com/matzehuels/flowmap/pkg/cache"
	"github.com/matzehuels/flowmap/pkg/highlight"
	"github.com/matzehuels/flowmap/pkg/interact"
	"github.com/matzehuels/flowmap/pkg/layout"
)

// Empty-state messages.
const (
	MessageEmptySelection = "No data available for the selected feed or process."
	MessageEmptyCatalog   = "No services to display."
)

// Style is a stroke style.
type Style struct {
	Stroke string  `json:"stroke"`
	Width  float64 `json:"width"`
	Dashed bool    `json:"dashed,omitempty"`
}

// Stroke styles by emphasis.
var (
	StyleEmphasized = Style{Stroke: "#2563eb", Width: 3}
	StyleNormal     = Style{Stroke: "#64748b", Width: 2}
	StyleDimmed     = Style{Stroke: "#cbd5e1", Width: 1}
	StyleCosmetic   = Style{Stroke: "#94a3b8", Width: 1, Dashed: true}
)

// NodeDescriptor describes one service to draw.
type NodeDescriptor struct {
	ID          string          `json:"id"`
	Label       string          `json:"label"`
	Description string          `json:"description,omitempty"`
	Position    layout.Position `json:"position"`
	Highlighted bool            `json:"highlighted"`
	Emphasized  bool            `json:"emphasized"`
	Dimmed      bool            `json:"dimmed"`
	Dragging    bool            `json:"dragging,omitempty"`
	Style       Style           `json:"style"`
}

// EdgeDescriptor describes one feed or cosmetic connection to draw.
type EdgeDescriptor struct {
	ID          string        `json:"id"`
	SourceID    string        `json:"sourceId"`
	TargetID    string        `json:"targetId"`
	Label       string        `json:"label"`
	Highlighted bool          `json:"highlighted"`
	Emphasized  bool          `json:"emphasized"`
	Animated    bool          `json:"animated"`
	Dimmed      bool          `json:"dimmed"`
	Cosmetic    bool          `json:"cosmetic,omitempty"`
	SourceSide  interact.Side `json:"sourceSide"`
	TargetSide  interact.Side `json:"targetSide"`
	Style       Style         `json:"style"`

	// Tooltip fields.
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
	Frequency   string `json:"frequency,omitempty"`
	Format      string `json:"format,omitempty"`
}

// Scene is everything a surface needs for one frame.
type Scene struct {
	Nodes     []NodeDescriptor    `json:"nodes"`
	Edges     []EdgeDescriptor    `json:"edges"`
	Selection highlight.Selection `json:"selection"`
	Gesture   *highlight.Gesture  `json:"gesture,omitempty"`
	Flows     []string            `json:"flows"`
	Message   string              `json:"message,omitempty"`
	Revision  uint64              `json:"revision"`
}

// BuildScene derives the scene from the controller's current state.
func BuildScene(c *interact.Controller) Scene {
	st := c.Highlight()
	s := Scene{
		Nodes:     []NodeDescriptor{},
		Edges:     []EdgeDescriptor{},
		Selection: c.Selection(),
		Flows:     st.Flows.Sorted(),
		Revision:  c.Revision(),
	}
	if g, ok := c.Gesture(); ok {
		s.Gesture = &g
	}
	if s.Flows == nil {
		s.Flows = []string{}
	}

	cat := c.Catalog()
	switch {
	case cat.Empty():
		s.Message = MessageEmptyCatalog
		return s
	case st.Empty():
		s.Message = MessageEmptySelection
		return s
	}

	dragging, isDragging := c.Dragging()
	shown := make(map[string]bool, len(cat.Services()))
	for _, svc := range cat.Services() {
		pos, ok := c.Position(svc.ID)
		if !ok {
			continue
		}
		hl := st.Services.Has(svc.ID)
		if st.Filtered && !hl {
			continue
		}
		n := NodeDescriptor{
			ID:          svc.ID,
			Label:       svc.Label(),
			Description: svc.Description,
			Position:    pos,
			Highlighted: hl,
			Emphasized:  st.Active && hl,
			Dimmed:      st.Active && !hl,
			Dragging:    isDragging && dragging == svc.ID,
		}
		n.Style = styleFor(n.Emphasized, n.Dimmed)
		s.Nodes = append(s.Nodes, n)
		shown[svc.ID] = true
	}

	for _, f := range cat.Feeds() {
		if !st.Visible.Has(f.ID) || !shown[f.SupplierID] || !shown[f.ReceiverID] {
			continue
		}
		att, _ := c.Attachment(f.ID)
		hl := st.Feeds.Has(f.ID)
		e := EdgeDescriptor{
			ID:          f.ID,
			SourceID:    f.SupplierID,
			TargetID:    f.ReceiverID,
			Label:       f.Label(),
			Highlighted: hl,
			Emphasized:  st.Emphasized(f.ID),
			Animated:    st.Animated.Has(f.ID),
			Dimmed:      st.Active && !hl,
			SourceSide:  att.Source,
			TargetSide:  att.Target,
			Description: f.Description,
			Type:        f.Type,
			Frequency:   f.Frequency,
			Format:      f.Format,
		}
		e.Style = styleFor(e.Emphasized, e.Dimmed)
		s.Edges = append(s.Edges, e)
	}

	for _, conn := range c.Connections() {
		if !shown[conn.SourceID] || !shown[conn.TargetID] {
			continue
		}
		att, _ := c.Attachment(conn.ID)
		s.Edges = append(s.Edges, EdgeDescriptor{
			ID:         conn.ID,
			SourceID:   conn.SourceID,
			TargetID:   conn.TargetID,
			Cosmetic:   true,
			SourceSide: att.Source,
			TargetSide: att.Target,
			Style:      StyleCosmetic,
		})
	}
	return s
}

func styleFor(emphasized, dimmed bool) Style {
	switch {
	case emphasized:
		return StyleEmphasized
	case dimmed:
		return StyleDimmed
	}
	return StyleNormal
}

// Empty reports whether the scene has nothing to draw.
func (s Scene) Empty() bool { return len(s.Nodes) == 0 }

// Node looks up a node descriptor.
func (s Scene) Node(id string) (NodeDescriptor, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeDescriptor{}, false
}

// Edge looks up an edge descriptor.
func (s Scene) Edge(id string) (EdgeDescriptor, bool) {
	for _, e := range s.Edges {
		if e.ID == id {
			return e, true
		}
	}
	return EdgeDescriptor{}, false
}

// Hash is a content hash of the drawable parts, ignoring the revision.
func (s Scene) Hash() string {
	s.Revision = 0
	return cache.HashJSON(s)
}

// JSON encodes the scene.
func (s Scene) JSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}
