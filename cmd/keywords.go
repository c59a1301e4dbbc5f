package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newKeywordsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "Print Search Console keyword opportunities as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			app, err := buildApp(cmd.Context(), rt.cfg, rt.logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			defer app.Close()

			rows, err := app.Opportunities(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum opportunities to print")
	return cmd
}
