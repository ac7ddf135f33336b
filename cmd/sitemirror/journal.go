package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/site-mirror/internal/config"
	"github.com/JakeFAU/site-mirror/internal/id/uuid"
	"github.com/JakeFAU/site-mirror/internal/journal"
)

// newJournalCmd creates the 'journal' subcommand.
func newJournalCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "journal [run-id]",
		Short: "Show recorded crawl runs",
		Long: `Without arguments, lists the run IDs in the journal, newest first. With a
run ID, prints one line per page outcome of that run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && !uuid.Valid(args[0]) {
				return fmt.Errorf("invalid run id %q", args[0])
			}
			cfg, err := config.Load(root.configPath, cmd.Flags())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Journal.Path == "" {
				return errors.New("no journal configured; pass --journal or set journal.path")
			}

			store, err := journal.Open(cmd.Context(), cfg.Journal.Path)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer func() { _ = out.Flush() }()

			if len(args) == 0 {
				runs, err := store.Runs(cmd.Context())
				if err != nil {
					return err
				}
				for _, id := range runs {
					fmt.Fprintln(out, id)
				}
				return nil
			}

			entries, err := store.Entries(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return fmt.Errorf("run %s not found", args[0])
			}
			fmt.Fprintln(out, "TIME\tOUTCOME\tSTATUS\tURL\tDETAIL")
			for _, e := range entries {
				detail := e.ArtifactPath
				if e.Error != "" {
					detail = e.Error
				}
				fmt.Fprintf(out, "%s\t%s\t%d\t%s\t%s\n",
					e.RecordedAt.Format(time.RFC3339), e.Outcome, e.Status, e.URL, detail)
			}
			return nil
		},
	}
}
