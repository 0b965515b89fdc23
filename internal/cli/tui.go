package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowmap/pkg/highlight"
	"github.com/matzehuels/flowmap/pkg/interact"
	"github.com/matzehuels/flowmap/pkg/render"
)

// dragStep is how far one shift+arrow press moves a service.
const dragStep = 20.0

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	listSectionStyle  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)

	emphasizedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	cosmeticStyle   = lipgloss.NewStyle().Foreground(colorGray).Italic(true)
)

// =============================================================================
// Key Bindings
// =============================================================================

type browseKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Select  key.Binding
	Click   key.Binding
	Connect key.Binding
	Left    key.Binding
	Right   key.Binding
	Raise   key.Binding
	Lower   key.Binding
	Reset   key.Binding
	Clear   key.Binding
	Help    key.Binding
	Quit    key.Binding
}

var browseKeys = browseKeyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Select:  key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "select/toggle")),
	Click:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "show flows around")),
	Connect: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "connect (twice)")),
	Left:    key.NewBinding(key.WithKeys("shift+left", "H"), key.WithHelp("shift+←", "drag left")),
	Right:   key.NewBinding(key.WithKeys("shift+right", "L"), key.WithHelp("shift+→", "drag right")),
	Raise:   key.NewBinding(key.WithKeys("shift+up", "K"), key.WithHelp("shift+↑", "drag up")),
	Lower:   key.NewBinding(key.WithKeys("shift+down", "J"), key.WithHelp("shift+↓", "drag down")),
	Reset:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset layout")),
	Clear:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k browseKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Click, k.Clear, k.Help, k.Quit}
}

func (k browseKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Click},
		{k.Left, k.Right, k.Raise, k.Lower},
		{k.Connect, k.Reset, k.Clear},
		{k.Help, k.Quit},
	}
}

// =============================================================================
// BrowseModel - Interactive catalog browser
// =============================================================================

type browseItem struct {
	kind  highlight.Kind
	id    string
	label string
}

// BrowseModel is the bubbletea model of the browse command: a side panel
// listing services, feeds and flows next to the current scene.
type BrowseModel struct {
	ctrl    *interact.Controller
	surface render.Surface

	items   []browseItem
	cursor  int
	pending string // source service of a connection in progress
	status  string

	help   help.Model
	width  int
	height int
}

// NewBrowseModel creates a browser over ctrl.
func NewBrowseModel(ctrl *interact.Controller) BrowseModel {
	cat := ctrl.Catalog()
	var items []browseItem
	for _, s := range cat.Services() {
		items = append(items, browseItem{highlight.KindService, s.ID, s.Label()})
	}
	for _, f := range cat.Feeds() {
		items = append(items, browseItem{highlight.KindFeed, f.ID, f.Label()})
	}
	for _, fl := range cat.Flows() {
		label := fl.Name
		if label == "" {
			label = fl.ID
		}
		items = append(items, browseItem{highlight.KindFlow, fl.ID, label})
	}
	return BrowseModel{
		ctrl:    ctrl,
		surface: render.NewDispatcher(ctrl),
		items:   items,
		help:    help.New(),
		height:  20,
	}
}

func (m BrowseModel) Init() tea.Cmd {
	return nil
}

func (m BrowseModel) current() (browseItem, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return browseItem{}, false
	}
	return m.items[m.cursor], true
}

func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		item, ok := m.current()
		m.status = ""

		switch {
		case key.Matches(msg, browseKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, browseKeys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, browseKeys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, browseKeys.Down):
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case !ok:
		case key.Matches(msg, browseKeys.Select):
			m.ctrl.Select(highlight.Selection{Kind: item.kind, ID: item.id})
		case key.Matches(msg, browseKeys.Click):
			m.click(item)
		case key.Matches(msg, browseKeys.Left):
			m.drag(item, -dragStep, 0)
		case key.Matches(msg, browseKeys.Right):
			m.drag(item, dragStep, 0)
		case key.Matches(msg, browseKeys.Raise):
			m.drag(item, 0, -dragStep)
		case key.Matches(msg, browseKeys.Lower):
			m.drag(item, 0, dragStep)
		case key.Matches(msg, browseKeys.Connect):
			m.connect(item)
		case key.Matches(msg, browseKeys.Reset):
			m.ctrl.ResetLayout()
			m.status = "layout reset"
		case key.Matches(msg, browseKeys.Clear):
			switch {
			case m.pending != "":
				m.pending = ""
			case m.surface.OnPaneClick():
			default:
				m.ctrl.ClearSelection()
			}
		}
	}
	return m, nil
}

func (m *BrowseModel) click(item browseItem) {
	switch item.kind {
	case highlight.KindService:
		m.surface.OnNodeClick(item.id)
	case highlight.KindFeed:
		m.surface.OnEdgeClick(item.id)
	default:
		m.status = "flows cannot be clicked, press enter to select"
	}
}

// drag moves a service by one keyboard step as a complete drag gesture.
func (m *BrowseModel) drag(item browseItem, dx, dy float64) {
	if item.kind != highlight.KindService {
		m.status = "only services can be moved"
		return
	}
	if !m.surface.OnNodeDrag(item.id, dx, dy) {
		m.status = item.id + " has no position"
		return
	}
	m.surface.OnNodeRelease(item.id)
}

func (m *BrowseModel) connect(item browseItem) {
	if item.kind != highlight.KindService {
		m.status = "connections join services"
		return
	}
	if m.pending == "" {
		m.pending = item.id
		m.status = "connect " + item.id + " to... (x on target, esc to cancel)"
		return
	}
	src := m.pending
	m.pending = ""
	if m.surface.OnConnectRequest(src, item.id) {
		m.status = fmt.Sprintf("connected %s %s %s", src, iconArrow, item.id)
	} else {
		m.status = "connection ignored"
	}
}

// =============================================================================
// View
// =============================================================================

func (m BrowseModel) View() string {
	scene := render.BuildScene(m.ctrl)

	var b strings.Builder
	b.WriteString(StyleTitle.Render("flowmap"))
	b.WriteString(" " + StyleDim.Render("selection: "+scene.Selection.String()))
	if scene.Gesture != nil {
		b.WriteString(StyleDim.Render(fmt.Sprintf("  click: %s:%s", scene.Gesture.Kind, scene.Gesture.ID)))
	}
	b.WriteString("\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		paneStyle.Render(m.sidePanel(scene)),
		paneStyle.Render(m.scenePanel(scene)),
	))
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(StyleWarning.Render(m.status) + "\n")
	}
	b.WriteString(m.help.View(browseKeys))
	return b.String()
}

func (m BrowseModel) sidePanel(scene render.Scene) string {
	sel := scene.Selection
	var b strings.Builder
	section := highlight.Kind("")
	for i, item := range m.items {
		if item.kind != section {
			section = item.kind
			title := map[highlight.Kind]string{
				highlight.KindService: "Services",
				highlight.KindFeed:    "Feeds",
				highlight.KindFlow:    "Flows",
			}[section]
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(listSectionStyle.Render(title) + "\n")
		}

		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		mark := " "
		if sel.Kind == item.kind && sel.ID == item.id {
			mark = "●"
		}
		if m.pending == item.id && item.kind == highlight.KindService {
			mark = "×"
		}
		line := fmt.Sprintf("%s%s %-8s %s", cursor, mark, item.id, item.label)

		switch {
		case i == m.cursor:
			b.WriteString(listSelectedStyle.Render(line))
		case item.kind == highlight.KindFlow && slices.Contains(scene.Flows, item.id):
			b.WriteString(StyleHighlight.Render(line))
		default:
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m BrowseModel) scenePanel(scene render.Scene) string {
	if scene.Message != "" {
		return StyleWarning.Render(scene.Message)
	}

	var b strings.Builder
	b.WriteString(listSectionStyle.Render("Services") + "\n")
	for _, n := range scene.Nodes {
		line := fmt.Sprintf("%-8s %-24s (%s, %s)", n.ID, n.Label, formatCoord(n.Position.X), formatCoord(n.Position.Y))
		b.WriteString(styleNode(n).Render(line) + "\n")
	}

	b.WriteString("\n" + listSectionStyle.Render("Feeds") + "\n")
	for _, e := range scene.Edges {
		arrow := iconArrow
		if e.Animated {
			arrow = "⇢"
		}
		line := fmt.Sprintf("%-8s %s %s %s", e.ID, e.SourceID, arrow, e.TargetID)
		if !e.Cosmetic && e.Label != "" {
			line += "  " + e.Label
		}
		b.WriteString(styleEdge(e).Render(line) + "\n")
	}

	if scene.Selection.Kind == highlight.KindFlow {
		b.WriteString("\n" + listSectionStyle.Render("Flow "+scene.Selection.ID) + "\n")
		for _, hop := range m.ctrl.Catalog().FlowChain(scene.Selection.ID) {
			b.WriteString(fmt.Sprintf("%s %s %s\n", hop.Supplier, iconArrow, hop.Receiver))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func styleNode(n render.NodeDescriptor) lipgloss.Style {
	switch {
	case n.Emphasized:
		return emphasizedStyle
	case n.Dimmed:
		return listDimStyle
	}
	return listNormalStyle
}

func styleEdge(e render.EdgeDescriptor) lipgloss.Style {
	switch {
	case e.Cosmetic:
		return cosmeticStyle
	case e.Emphasized:
		return emphasizedStyle
	case e.Dimmed:
		return listDimStyle
	}
	return listNormalStyle
}

// =============================================================================
// Command
// =============================================================================

// browseCommand opens the interactive terminal browser.
func (c *CLI) browseCommand() *cobra.Command {
	var src sourceFlags

	cmd := &cobra.Command{
		Use:   "browse [catalog]",
		Short: "Explore a catalog interactively in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			opts, err := src.options(cfg, args)
			if err != nil {
				return err
			}

			runner, err := c.newRunner(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer runner.Close()

			cat, err := runner.LoadCatalog(ctx, opts)
			if err != nil {
				return err
			}
			res, err := runner.ComputeLayout(ctx, cat, opts)
			if err != nil {
				return err
			}
			ctrl, _ := runner.NewSession(cat, res, opts)

			_, err = tea.NewProgram(NewBrowseModel(ctrl), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}

	src.register(cmd.Flags())
	registerLayoutFlags(cmd.Flags())
	cmd.Flags().Bool("filter", false, "feed selections hide every other feed")

	return cmd
}
