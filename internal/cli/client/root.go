package client

import (
	"github.com/cloo-solutions/plotsearch/internal/cli"
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the plotsearch command tree.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "plotsearch",
		Short: "plotsearch CLI - search land and property listings",
		Long: `plotsearch queries a plotsearch API server.

Environment variables:
  PLOTSEARCH_TOKEN     Bearer token (needed for saved searches and --mine)
  PLOTSEARCH_API_URL   API base URL (default: http://localhost:8080)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("token", "", "Bearer token (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(SearchCmd())
	rootCmd.AddCommand(RadiusCmd())
	rootCmd.AddCommand(BoundingBoxCmd())
	rootCmd.AddCommand(ClustersCmd())
	rootCmd.AddCommand(RouteCmd())
	rootCmd.AddCommand(DistanceCmd())
	rootCmd.AddCommand(SavedCmd())
	rootCmd.AddCommand(AuthCmd())

	return rootCmd
}
