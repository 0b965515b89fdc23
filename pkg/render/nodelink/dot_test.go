package nodelink

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/flowmap/pkg/catalog"
	"github.com/matzehuels/flowmap/pkg/highlight"
	"github.com/matzehuels/flowmap/pkg/interact"
	"github.com/matzehuels/flowmap/pkg/layout"
	"github.com/matzehuels/flowmap/pkg/render"
)

func sampleController(t *testing.T) *interact.Controller {
	t.Helper()
	cat := catalog.MustNew(catalog.Sample())
	return interact.New(highlight.NewResolver(cat, highlight.Options{}), layout.Compute(cat, layout.Options{}))
}

func TestToDOT_Basic(t *testing.T) {
	dot := ToDOT(render.BuildScene(sampleController(t)), Options{})

	if !strings.Contains(dot, "digraph G") {
		t.Error("ToDOT() output missing digraph declaration")
	}
	if !strings.Contains(dot, "layout=neato") {
		t.Error("ToDOT() output missing neato layout")
	}
	for _, id := range []string{"CRM001", "BIL001", "INV001", "REP001"} {
		if !strings.Contains(dot, `"`+id+`" [`) {
			t.Errorf("ToDOT() output missing node %s", id)
		}
	}
	if !strings.Contains(dot, `"CRM001" -> "BIL001"`) {
		t.Error("ToDOT() output missing edge F001")
	}
	if !strings.Contains(dot, `label="Customer CRM"`) {
		t.Error("ToDOT() output missing service name label")
	}
}

func TestToDOT_PinnedPositions(t *testing.T) {
	dot := ToDOT(render.BuildScene(sampleController(t)), Options{})

	if !strings.Contains(dot, `pos="0,0!"`) {
		t.Error("ToDOT() root should be pinned at the origin")
	}
	if !strings.Contains(dot, `pos="300,-100!"`) {
		t.Error("ToDOT() BIL001 should be pinned at (300, -100)")
	}
}

func TestToDOT_Ports(t *testing.T) {
	dot := ToDOT(render.BuildScene(sampleController(t)), Options{})

	if !strings.Contains(dot, "tailport=e") || !strings.Contains(dot, "headport=w") {
		t.Error("ToDOT() edges should leave east and enter west")
	}
}

func TestToDOT_Highlight(t *testing.T) {
	c := sampleController(t)
	c.SelectFeed("F002")
	dot := ToDOT(render.BuildScene(c), Options{})

	if !strings.Contains(dot, render.StyleEmphasized.Stroke) {
		t.Error("ToDOT() missing emphasized stroke")
	}
	if !strings.Contains(dot, render.StyleDimmed.Stroke) {
		t.Error("ToDOT() missing dimmed stroke")
	}
	if !strings.Contains(dot, `class="animated emphasized"`) {
		t.Error("ToDOT() selected feed should be animated")
	}
}

func TestToDOT_Detailed(t *testing.T) {
	dot := ToDOT(render.BuildScene(sampleController(t)), Options{Detailed: true})

	if !strings.Contains(dot, `Customer CRM\nCRM001`) {
		t.Error("ToDOT() detailed output missing service id")
	}
	if !strings.Contains(dot, "API · Real-time · JSON") {
		t.Error("ToDOT() detailed output missing feed metadata")
	}
	if !strings.Contains(dot, `Type: API`) {
		t.Error("ToDOT() output missing feed tooltip")
	}
}

func TestToDOT_Cosmetic(t *testing.T) {
	c := sampleController(t)
	c.Connect("REP001", "CRM001")
	dot := ToDOT(render.BuildScene(c), Options{})

	if !strings.Contains(dot, `"REP001" -> "CRM001"`) {
		t.Error("ToDOT() missing cosmetic connection")
	}
	if !strings.Contains(dot, "style=dashed") {
		t.Error("ToDOT() cosmetic connection should be dashed")
	}
}

func TestToDOT_Empty(t *testing.T) {
	cat := catalog.MustNew(catalog.Document{})
	c := interact.New(highlight.NewResolver(cat, highlight.Options{}), layout.Compute(cat, layout.Options{}))
	dot := ToDOT(render.BuildScene(c), Options{})

	if !strings.Contains(dot, render.MessageEmptyCatalog) {
		t.Error("ToDOT() empty scene should show the message")
	}
	if strings.Contains(dot, "->") {
		t.Error("ToDOT() empty scene should have no edges")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))

	if !strings.Contains(out, `viewBox="0 0 100.00 50.00"`) {
		t.Errorf("normalizeViewBox() = %s", out)
	}
	if !strings.Contains(out, `width="100"`) {
		t.Errorf("normalizeViewBox() missing width: %s", out)
	}

	if got := string(normalizeViewBox([]byte("<svg></svg>"))); got != "<svg></svg>" {
		t.Errorf("normalizeViewBox() without viewBox = %s", got)
	}
}

func TestRenderSVG(t *testing.T) {
	if testing.Short() {
		t.Skip("graphviz render in short mode")
	}
	svg, err := RenderSVG(context.Background(), ToDOT(render.BuildScene(sampleController(t)), Options{}))
	if err != nil {
		t.Fatalf("RenderSVG() error: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("RenderSVG() output is not SVG")
	}
	if !strings.Contains(string(svg), "Customer CRM") {
		t.Error("RenderSVG() output missing node label")
	}
}
