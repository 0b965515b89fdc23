// Package cli implements the flowmap command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/flowmap/internal/config"
	"github.com/matzehuels/flowmap/pkg/highlight"
	"github.com/matzehuels/flowmap/pkg/layout"
	"github.com/matzehuels/flowmap/pkg/pipeline"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Out receives command output. Logs go to the logger's writer.
	Out io.Writer

	configFile string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Out:    w,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// loadConfig merges defaults, the config file, the environment and the
// command's explicitly set flags.
func (c *CLI) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(c.configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if cfg.Verbose {
		c.SetLogLevel(LogDebug)
	}
	if cfg.File != "" {
		c.Logger.Debug("loaded config", "file", cfg.File)
	}
	return cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner over the configured cache backend.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config, noCache bool) (*pipeline.Runner, error) {
	store, err := cfg.OpenCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(store, cfg.Keyer(), loggerFromContext(ctx))
	runner.LayoutTTL = cfg.Cache.TTL
	return runner, nil
}

// =============================================================================
// Shared Flags
// =============================================================================

// sourceFlags selects where the catalog comes from.
type sourceFlags struct {
	sample bool
	format string
}

func (s *sourceFlags) register(fs *pflag.FlagSet) {
	fs.BoolVar(&s.sample, "sample", false, "use the built-in sample catalog")
	fs.StringVar(&s.format, "catalog-format", "", "catalog format: json, yaml, toml (default: from extension)")
	fs.String("mongo-uri", "", "read the catalog from MongoDB instead of a file")
	fs.String("mongo-db", pipeline.DefaultMongoDatabase, "MongoDB database")
}

// options builds pipeline options from the config and the positional
// catalog argument, if any.
func (s *sourceFlags) options(cfg *config.Config, args []string) (pipeline.Options, error) {
	var path string
	if len(args) > 0 {
		path = args[0]
	}
	opts := cfg.PipelineOptions(path)
	opts.Sample = s.sample
	opts.CatalogFormat = s.format
	if path == "" && !s.sample && opts.MongoURI == "" {
		return opts, fmt.Errorf("a catalog file, --mongo-uri or --sample is required")
	}
	return opts, nil
}

// selectionFlags pick the initial selection.
type selectionFlags struct {
	service, feed, flow string
}

func (s *selectionFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&s.service, "service", "", "select a service by id")
	fs.StringVar(&s.feed, "feed", "", "select a feed by id")
	fs.StringVar(&s.flow, "flow", "", "select a flow by id")
	fs.Bool("filter", false, "with --feed, hide every other feed")
}

// selection returns the chosen selection. At most one flag may be set.
func (s *selectionFlags) selection() (highlight.Selection, error) {
	sel := highlight.None()
	n := 0
	if s.service != "" {
		sel, n = highlight.SelectService(s.service), n+1
	}
	if s.feed != "" {
		sel, n = highlight.SelectFeed(s.feed), n+1
	}
	if s.flow != "" {
		sel, n = highlight.SelectFlow(s.flow), n+1
	}
	if n > 1 {
		return highlight.None(), fmt.Errorf("--service, --feed and --flow are mutually exclusive")
	}
	return sel, nil
}

func registerLayoutFlags(fs *pflag.FlagSet) {
	fs.Float64("hgap", layout.DefaultHorizontalGap, "horizontal gap between depth columns")
	fs.Float64("vgap", layout.DefaultVerticalGap, "vertical gap between placement rows")
	fs.String("fallback", string(layout.DefaultFallback), "placement of unreachable services: none, origin, overflow")
}

func registerCacheFlags(fs *pflag.FlagSet, noCache *bool) {
	fs.BoolVar(noCache, "no-cache", false, "disable caching")
	fs.String("cache", config.CacheFile, "cache backend: none, file, redis")
	fs.String("cache-dir", "", "cache directory for the file backend")
	fs.String("redis", "", "Redis URL for the redis backend")
	fs.String("cache-prefix", "", "namespace prepended to every cache key")
}
