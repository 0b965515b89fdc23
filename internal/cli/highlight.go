package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowmap/pkg/catalog"
	"github.com/matzehuels/flowmap/pkg/highlight"
	"github.com/matzehuels/flowmap/pkg/render"
)

// highlightOutput is the --json form of the highlight command.
type highlightOutput struct {
	Selection highlight.Selection `json:"selection"`
	highlight.State
	Message string `json:"message,omitempty"`
}

// highlightCommand prints what a selection highlights.
func (c *CLI) highlightCommand() *cobra.Command {
	var (
		src    sourceFlags
		sel    selectionFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "highlight [catalog]",
		Short: "Show the services, feeds and flows a selection highlights",
		Long: `Show the services, feeds and flows a selection highlights.

  --service ID   the service, its incident feeds and their endpoints
  --flow ID      every feed of the flow and their endpoints
  --feed ID      the feed and its endpoints; --filter hides other feeds

Without a selection everything is highlighted.`,
		Example: `  flowmap highlight catalog.yaml --flow FL001
  flowmap highlight catalog.yaml --feed F002 --filter --json`,
		Args: cobra.MaximumNArgs(1),
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
			if opts.Selection, err = sel.selection(); err != nil {
				return err
			}

			runner, err := c.newRunner(ctx, cfg, true)
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
			ctrl, matched := runner.NewSession(cat, res, opts)

			st := ctrl.Highlight()
			out := highlightOutput{Selection: ctrl.Selection(), State: st}
			if !matched {
				st = highlight.Resolve(cat, opts.Selection, opts.HighlightOptions())
				out = highlightOutput{Selection: opts.Selection, State: st}
			}
			if st.Empty() {
				out.Message = render.MessageEmptySelection
			}
			if asJSON {
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			printHighlight(cat, out)
			return nil
		},
	}

	src.register(cmd.Flags())
	sel.register(cmd.Flags())
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the highlight as JSON")

	return cmd
}

func printHighlight(cat *catalog.Catalog, out highlightOutput) {
	printKeyValue("Selection", out.Selection.String())
	if out.Message != "" {
		printWarning("%s", out.Message)
		return
	}

	printKeyValue("Services", joinOrDash(out.Services.Sorted()))
	printKeyValue("Feeds", joinOrDash(out.Feeds.Sorted()))
	if out.Animated.Len() > 0 {
		printKeyValue("Animated", joinOrDash(out.Animated.Sorted()))
	}
	hidden := len(cat.Feeds()) - out.Visible.Len()
	if hidden > 0 {
		printKeyValue("Hidden", fmt.Sprintf("%d feeds", hidden))
	}

	for _, id := range out.Flows.Sorted() {
		name := id
		if fl, _ := cat.Flow(id); fl.Name != "" {
			name = fl.Name
		}
		printNewline()
		fmt.Fprintln(stdout, StyleTitle.Render(name)+" "+StyleDim.Render("("+id+")"))
		for _, hop := range cat.FlowChain(id) {
			line := fmt.Sprintf("%s %s %s", hop.Supplier, iconArrow, hop.Receiver)
			if out.Feeds.Has(hop.Feed.ID) {
				line = StyleHighlight.Render(line)
			}
			printDetail("%s  %s", hop.Feed.ID, line)
		}
	}
}

func joinOrDash(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ", ")
}
