package admin

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// SweepCmd returns the sweep command
func SweepCmd() *cobra.Command {
	var exact bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one saved-search notification sweep",
		Long: `Counts matches for every active saved search and publishes one
saved_search.matched event per search, then exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			a.wire()

			if !exact {
				exact = a.cfg.SweepExact
			}
			processor, err := a.sweepProcessor(exact)
			if err != nil {
				return err
			}

			stats, err := processor.RunOnce(ctx)
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}

			out, _ := json.MarshalIndent(stats, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&exact, "exact", false, "Use the exact (executor) count instead of the store count")

	return cmd
}
