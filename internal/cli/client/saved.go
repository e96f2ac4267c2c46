package client

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

const savedPath = "/saved-searches"

// SavedCmd creates the saved parent command.
func SavedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "saved",
		Aliases: []string{"saved-search"},
		Short:   "Manage saved searches",
		Long:    "Create, update, re-run and count your saved searches. Requires a token.",
	}

	cmd.AddCommand(savedCreateCmd())
	cmd.AddCommand(savedListCmd())
	cmd.AddCommand(savedGetCmd())
	cmd.AddCommand(savedUpdateCmd())
	cmd.AddCommand(savedDeleteCmd())
	cmd.AddCommand(savedRunCmd())
	cmd.AddCommand(savedCountCmd())
	cmd.AddCommand(savedToggleCmd())

	return cmd
}

func savedItemPath(id string, suffix ...string) string {
	return savedPath + "/" + url.PathEscape(id) + strings.Join(suffix, "")
}

// writeSaved prints one saved search from resp.
func writeSaved(cmd *cobra.Command, resp *APIResponse) error {
	if jsonOutput(cmd) {
		return printJSON(cmd.OutOrStdout(), resp.Data)
	}
	saved, err := decode[SavedSearch](resp)
	if err != nil {
		return err
	}
	return printSavedSearch(cmd.OutOrStdout(), saved)
}

func savedCreateCmd() *cobra.Command {
	var (
		name   string
		notify bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Save the given filters under a name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := criteriaBody(cmd.Flags())
			if err != nil {
				return err
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Post(cmd.Context(), savedPath, map[string]any{
				"name":     name,
				"criteria": criteria,
				"notify":   notify,
			})
			if err != nil {
				return fmt.Errorf("failed to create saved search: %w", err)
			}
			return writeSaved(cmd, resp)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Saved search name")
	cmd.Flags().BoolVar(&notify, "notify", true, "Include in notification sweeps")
	requireFlags(cmd, "name")
	addCriteriaFlags(cmd, false)

	return cmd
}

func savedListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your saved searches",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Get(cmd.Context(), savedPath, nil)
			if err != nil {
				return fmt.Errorf("failed to list saved searches: %w", err)
			}
			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), resp.Data)
			}
			list, err := decode[[]SavedSearch](resp)
			if err != nil {
				return err
			}
			printSavedSearches(cmd.OutOrStdout(), *list)
			return nil
		},
	}
}

func savedGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one saved search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Get(cmd.Context(), savedItemPath(args[0]), nil)
			if err != nil {
				return fmt.Errorf("failed to get saved search: %w", err)
			}
			return writeSaved(cmd, resp)
		},
	}
}

func savedUpdateCmd() *cobra.Command {
	var (
		name  string
		clearKeys []string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename a saved search or merge new filters into it",
		Long: `Only the filters you pass are changed; the rest keep their stored
values. Use --clear to drop stored filters, e.g. --clear min_price,geo.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := updateBody(cmd, name, clearKeys)
			if err != nil {
				return err
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Patch(cmd.Context(), savedItemPath(args[0]), body)
			if err != nil {
				return fmt.Errorf("failed to update saved search: %w", err)
			}
			return writeSaved(cmd, resp)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringSliceVar(&clearKeys, "clear", nil, "Criteria keys to clear (comma-separated)")
	addCriteriaFlags(cmd, false)

	return cmd
}

func updateBody(cmd *cobra.Command, name string, clearKeys []string) (map[string]any, error) {
	patch, err := criteriaBody(cmd.Flags())
	if err != nil {
		return nil, err
	}
	for _, key := range clearKeys {
		key = strings.TrimSpace(key)
		if _, set := patch[key]; set {
			return nil, fmt.Errorf("%s is both set and cleared", key)
		}
		patch[key] = nil
	}

	body := map[string]any{}
	if cmd.Flags().Changed("name") {
		body["name"] = name
	}
	if len(patch) > 0 {
		body["criteria"] = patch
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("nothing to update: pass --name, a filter flag or --clear")
	}
	return body, nil
}

func savedDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved search",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			if _, err := api.Delete(cmd.Context(), savedItemPath(args[0])); err != nil {
				return fmt.Errorf("failed to delete saved search: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func savedRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <id>",
		Short: "Re-run a saved search against current listings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			pageQuery(cmd.Flags(), q)
			return runSearch(cmd, savedItemPath(args[0], "/results"), q)
		},
	}
	addPageFlags(cmd)
	return cmd
}

func savedCountCmd() *cobra.Command {
	var exact bool

	cmd := &cobra.Command{
		Use:   "count <id>",
		Short: "Count current matches for a saved search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if exact {
				q.Set("exact", "true")
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Get(cmd.Context(), savedItemPath(args[0], "/count"), q)
			if err != nil {
				return fmt.Errorf("failed to count matches: %w", err)
			}
			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), resp.Data)
			}
			count, err := decode[MatchCount](resp)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", count.Count)
			return nil
		},
	}

	cmd.Flags().BoolVar(&exact, "exact", false, "Count through the full query path, including computed filters")

	return cmd
}

func savedToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Turn match notifications on or off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Post(cmd.Context(), savedItemPath(args[0], "/toggle-notification"), nil)
			if err != nil {
				return fmt.Errorf("failed to toggle notifications: %w", err)
			}
			return writeSaved(cmd, resp)
		},
	}
}
