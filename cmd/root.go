// Package cmd defines and implements the CLI commands for the roofestimate executable.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/roof-estimate/internal/config"
	"github.com/JakeFAU/roof-estimate/internal/logging"
	"github.com/JakeFAU/roof-estimate/internal/server"
)

type runtimeKeyType struct{}

var runtimeKey runtimeKeyType

// runtime is what PersistentPreRunE stores for subcommands.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
}

// buildApp is the application factory. Tests replace it.
var buildApp = server.Build

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "roofestimate",
		Short: "Roof replacement estimates and blog automation.",
		Long: `roofestimate serves the roof cost calculator and location pages API and
runs the blog automation pipeline that turns Search Console keyword
opportunities into drafted articles.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("logger init failed: %w", err)
			}
			zap.ReplaceGlobals(logger)
			ctx := context.WithValue(cmd.Context(), runtimeKey, &runtime{cfg: &cfg, logger: logger})
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, err := resolveRuntime(cmd.Context()); err == nil {
				_ = rt.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); env ROOFEST_* overrides")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newEstimateCmd())
	cmd.AddCommand(newKeywordsCmd())
	cmd.AddCommand(newDraftCmd())

	return cmd
}

func resolveRuntime(ctx context.Context) (*runtime, error) {
	if ctx == nil {
		return nil, errors.New("command context is nil")
	}
	rt, ok := ctx.Value(runtimeKey).(*runtime)
	if !ok || rt == nil {
		return nil, errors.New("configuration not loaded")
	}
	return rt, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
