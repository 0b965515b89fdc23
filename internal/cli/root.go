package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowmap/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
//
// Settings come from flowmap.yaml, FLOWMAP_* environment variables and
// flags, in increasing precedence. The logger is attached to each command's
// context and is available through loggerFromContext.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "flowmap",
		Short: "Flowmap lays out and highlights data flows between IT services",
		Long: `Flowmap reads a catalog of services, the feeds between them and the
flows that chain feeds together. It positions services by feed depth and
highlights what a selected service, feed or flow touches.`,
		Version:       buildinfo.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default: ./flowmap.yaml)")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.highlightCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}
