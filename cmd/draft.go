package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/roof-estimate/internal/blog"
)

func newDraftCmd() *cobra.Command {
	var (
		params   blog.JobParameters
		markdown bool
	)
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Run one blog automation job synchronously and print the draft",
		Long: `draft runs the full pipeline (keyword, SERP snapshot, competitor analysis,
generation, storage) for one keyword. Without --keyword the top Search
Console opportunity is used.`,
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

			params.Auto = params.Keyword == ""
			job, err := app.RunDraft(cmd.Context(), params)
			if err != nil {
				return fmt.Errorf("draft: %w", err)
			}
			if markdown && job.Draft != nil {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), job.Draft.Markdown)
				return err
			}
			return writeJSON(cmd.OutOrStdout(), job)
		},
	}
	cmd.Flags().StringVar(&params.Keyword, "keyword", "", "target keyword")
	cmd.Flags().IntVar(&params.MaxCompetitors, "competitors", 0, "competitor pages to analyze (0 uses config)")
	cmd.Flags().IntVar(&params.WordTarget, "words", 0, "target word count (0 uses config)")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "print only the draft markdown")
	return cmd
}
