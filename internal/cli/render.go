package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowmap/internal/config"
	"github.com/matzehuels/flowmap/pkg/pipeline"
)

// renderCommand creates the render command for producing diagrams.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		src        sourceFlags
		sel        selectionFlags
		output     string
		formatsStr string
		detailed   bool
		scale      float64
		refresh    bool
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "render [catalog]",
		Short: "Render the service diagram to SVG, DOT, JSON, PDF or PNG",
		Long: `Render the service diagram to SVG, DOT, JSON, PDF or PNG.

Services are pinned at their computed positions. Feeds run from the right
side of the supplier to the left side of the receiver. A selection dims or
hides what it does not touch.

PDF and PNG output require rsvg-convert on the PATH.`,
		Example: `  flowmap render catalog.yaml
  flowmap render catalog.yaml --flow FL001 -f svg,json -o out/fl001
  flowmap render --sample --feed F002 --filter --detailed`,
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
			if opts.Selection, err = sel.selection(); err != nil {
				return err
			}
			opts.Formats = pipeline.ParseFormats(formatsStr)
			opts.Detailed = detailed
			opts.Scale = scale
			opts.Refresh = refresh
			return c.runRender(cmd.Context(), cfg, opts, output, noCache)
		},
	}

	src.register(cmd.Flags())
	sel.register(cmd.Flags())
	registerLayoutFlags(cmd.Flags())
	registerCacheFlags(cmd.Flags(), &noCache)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", pipeline.FormatSVG, "output format(s): svg, dot, json, pdf, png (comma-separated)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "add feed type, frequency and format to edge labels")
	cmd.Flags().Float64Var(&scale, "scale", pipeline.DefaultPNGScale, "PNG scale factor")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute the layout even if cached")

	return cmd
}

// runRender executes the pipeline and writes one file per format.
func (c *CLI) runRender(ctx context.Context, cfg *config.Config, opts pipeline.Options, output string, noCache bool) error {
	runner, err := c.newRunner(ctx, cfg, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinner(ctx, "Rendering diagram...")
	spinner.Start()
	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	base := basePath(output, defaultBase(opts))
	printSuccess("Rendered %s", opts.Selection)
	for _, format := range opts.Formats {
		path := base + "." + format
		if len(opts.Formats) == 1 && output != "" {
			path = output
		}
		if err := writeArtifact(path, result.Artifacts[format]); err != nil {
			return err
		}
		printFile(path)
	}

	printStats(result.Stats.Services, result.Stats.Feeds, result.Stats.Flows, result.CacheInfo.LayoutHit)
	if result.Scene.Message != "" {
		printWarning("%s", result.Scene.Message)
	}
	if result.Stats.Issues > 0 {
		printDetail("%d dangling references skipped, run with -v for details", result.Stats.Issues)
	}
	if opts.Source() == "file" {
		printNewline()
		printNextStep("Explore interactively", "flowmap browse "+opts.Catalog)
	}
	return nil
}

// defaultBase names output after the catalog file, or "flowmap" for
// catalogs that are not files.
func defaultBase(opts pipeline.Options) string {
	if opts.Source() != "file" {
		return "flowmap"
	}
	return strings.TrimSuffix(opts.Catalog, filepath.Ext(opts.Catalog))
}

// basePath strips a known format extension from output, or falls back to
// def when output is empty.
func basePath(output, def string) string {
	if output == "" {
		return def
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

func writeArtifact(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", path, err)
	}
	return nil
}
