package main

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/site-mirror/internal/app"
)

// sessionFactory builds the browser session. Tests replace it.
var sessionFactory app.SessionFactory = app.ChromeSession

type rootOptions struct {
	configPath string
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "sitemirror",
		Short: "Mirror a website to disk as browser-rendered HTML.",
		Long: `sitemirror crawls every page of one registrable domain, breadth first,
renders each page in headless Chrome and writes the resulting markup to a
directory tree that mirrors the site's URL paths.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	flags.Bool("dev", true, "human-readable console logs")
	flags.String("log-level", "info", "minimum log level (debug, info, warn, error)")
	flags.String("journal", "", "SQLite journal path; empty disables the journal")

	cmd.AddCommand(newCrawlCmd(opts))
	cmd.AddCommand(newJournalCmd(opts))
	return cmd
}
