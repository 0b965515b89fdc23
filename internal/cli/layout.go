package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowmap/internal/config"
	"github.com/matzehuels/flowmap/pkg/catalog"
	"github.com/matzehuels/flowmap/pkg/layout"
	"github.com/matzehuels/flowmap/pkg/pipeline"
)

// layoutCommand creates the layout command for computing service positions.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		src     sourceFlags
		output  string
		asJSON  bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "layout [catalog]",
		Short: "Compute service positions from a catalog",
		Long: `Compute service positions from a catalog.

Services without incoming feeds are roots. Each root starts a walk along
outgoing feeds: a service is placed one column right of the service that
first reached it, and each placement takes the next row. Services no root
reaches are handled by --fallback.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			opts, err := src.options(cfg, args)
			if err != nil {
				return err
			}
			return c.runLayout(cmd.Context(), cfg, opts, output, asJSON, noCache)
		},
	}

	src.register(cmd.Flags())
	registerLayoutFlags(cmd.Flags())
	registerCacheFlags(cmd.Flags(), &noCache)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the layout as JSON to a file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the layout as JSON")

	return cmd
}

// runLayout loads the catalog, computes the layout and prints or writes it.
func (c *CLI) runLayout(ctx context.Context, cfg *config.Config, opts pipeline.Options, output string, asJSON, noCache bool) error {
	runner, err := c.newRunner(ctx, cfg, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	cat, err := runner.LoadCatalog(ctx, opts)
	if err != nil {
		return err
	}

	prog := newProgress(loggerFromContext(ctx))
	res, cacheHit, err := runner.ComputeLayoutWithCacheInfo(ctx, cat, opts)
	if err != nil {
		return fmt.Errorf("compute layout: %w", err)
	}
	prog.done("computed layout", "placed", len(res.Positions), "cached", cacheHit)

	switch {
	case output != "":
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(output, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("write output %s: %w", output, err)
		}
		printSuccess("Layout complete")
		printFile(output)
	case asJSON:
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	default:
		printLayout(cat, res)
	}

	printStats(len(cat.Services()), len(cat.Feeds()), len(cat.Flows()), cacheHit)
	if len(res.Unplaced) > 0 {
		printWarning("%d services not reachable from any root: %v", len(res.Unplaced), res.Unplaced)
	}
	return nil
}

// printLayout prints positions in placement order.
func printLayout(cat *catalog.Catalog, res layout.Result) {
	notes := make(map[string]string, len(res.Roots)+len(res.Unplaced))
	for _, id := range res.Roots {
		notes[id] = "root"
	}
	for _, id := range res.Unplaced {
		notes[id] = "fallback"
	}

	rows := make([][]string, 0, len(res.Order)+len(res.Unplaced))
	for _, id := range res.Order {
		svc, _ := cat.Service(id)
		p := res.Positions[id]
		rows = append(rows, []string{id, svc.Label(), formatCoord(p.X), formatCoord(p.Y), notes[id]})
	}
	for _, id := range res.Unplaced {
		if _, placed := res.Positions[id]; placed {
			continue
		}
		svc, _ := cat.Service(id)
		rows = append(rows, []string{id, svc.Label(), "-", "-", "unplaced"})
	}
	printTable([]string{"Service", "Name", "X", "Y", ""}, rows)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
