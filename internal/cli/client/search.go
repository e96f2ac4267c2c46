package client

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		mine             bool
		suggest          bool
		includeAvailable bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search listings",
		Long: `Searches published listings with any combination of filters.
With --mine, searches your own listings in every status instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := criteriaQuery(cmd.Flags())
			if suggest {
				q.Set("suggest", "true")
			}
			if includeAvailable {
				q.Set("include_available", "true")
			}
			path := "/properties/search"
			if mine {
				path = "/me/properties"
			}
			return runSearch(cmd, path, q)
		},
	}

	addCriteriaFlags(cmd, true)
	addPageFlags(cmd)
	cmd.Flags().BoolVar(&mine, "mine", false, "Search your own listings (requires a token)")
	cmd.Flags().BoolVar(&suggest, "suggest", false, "Suggest relaxed filters when nothing matches")
	cmd.Flags().BoolVar(&includeAvailable, "include-available", false, "Include price/area/category summaries")

	return cmd
}

func runSearch(cmd *cobra.Command, path string, q url.Values) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get(cmd.Context(), path, q)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if jsonOutput(cmd) {
		return printJSON(cmd.OutOrStdout(), resp.Data)
	}

	page, err := decode[SearchPage](resp)
	if err != nil {
		return err
	}
	printSearchPage(cmd.OutOrStdout(), page)
	return nil
}
