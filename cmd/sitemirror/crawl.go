package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/site-mirror/internal/app"
	"github.com/JakeFAU/site-mirror/internal/config"
	"github.com/JakeFAU/site-mirror/internal/logging"
)

// newCrawlCmd creates the 'crawl' subcommand.
func newCrawlCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url]",
		Short: "Crawl and mirror a site",
		Long: `Crawls every in-scope page reachable from the seed URL and writes the
rendered markup under the output directory. The seed defaults to the
seed_url config key.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(cmd, root, args)
		},
	}
	flags := cmd.Flags()
	flags.String("output", "result", "directory the mirror is written to")
	flags.String("metrics-addr", "", "serve /healthz and /metrics on this address during the crawl")
	flags.Bool("headless", true, "run Chrome without a window")
	return cmd
}

func runCrawl(cmd *cobra.Command, root *rootOptions, args []string) error {
	cfg, err := config.Load(root.configPath, cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(args) == 1 {
		cfg.SeedURL = args[0]
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger, err := logging.New(logging.Options{Development: cfg.Logging.Development, Level: cfg.Logging.Level})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, logger, sessionFactory)
	if err != nil {
		return fmt.Errorf("initialize application services: %w", err)
	}
	defer a.Close()

	summary, err := a.Run(ctx, cfg.SeedURL)
	switch {
	case app.Interrupted(err):
		logger.Warn("Crawl interrupted", zap.String("run_id", summary.RunID))
	case err != nil:
		return fmt.Errorf("crawl %s: %w", cfg.SeedURL, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d visited, %d saved, %d render failures, %d save failures\n",
		summary.RunID, summary.Visited, summary.Saved, summary.RenderFailures, summary.SaveFailures)
	return nil
}
