package cmd

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/docwatch/internal/metrics"
	"github.com/jonesrussell/docwatch/internal/syncer"
)

// newSyncCommand creates the sync command.
func newSyncCommand() *cobra.Command {
	var (
		maxDocuments int
		dryRun       bool
	)

	cmd := &cobra.Command{
		Use:     "sync",
		Aliases: []string{"sync-watched-documents"},
		Short:   "Run one sync pass over all due watched documents",
		Long: `Sync re-fetches every watched document whose staleness window has elapsed,
rebuilds vector embeddings for changed content, and propagates updates to
workspaces sharing the document.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := newCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}
			defer deps.Close()

			runner, err := deps.buildRunner(metrics.New(prometheus.NewRegistry()))
			if err != nil {
				return err
			}

			opts := syncer.Options{MaxDocuments: maxDocuments, DryRun: dryRun}
			if opts.MaxDocuments <= 0 {
				opts.MaxDocuments = deps.Config.Sync.MaxDocuments
			}

			summary, err := runner.RunDueSyncs(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("sync run failed: %w", err)
			}

			fmt.Printf("Processed %d documents: %d succeeded, %d failed\n",
				summary.Processed, summary.Succeeded, summary.Failed)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxDocuments, "max-documents", 0,
		"maximum documents to process this pass (0 uses the configured limit)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"log intended actions without writing anything")

	return cmd
}
