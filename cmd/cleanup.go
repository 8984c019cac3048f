package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/docwatch/internal/syncer"
)

// newCleanupCommand creates the cleanup command.
func newCleanupCommand() *cobra.Command {
	var (
		batchSize int
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove cached document files no longer referenced by any document",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := newCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}
			defer deps.Close()

			cleaner := syncer.NewCleaner(deps.Cache, deps.Documents, deps.Logger)

			summary, err := cleaner.Run(cmd.Context(), syncer.CleanupOptions{
				BatchSize: batchSize,
				DryRun:    dryRun,
			})
			if err != nil {
				return fmt.Errorf("cleanup failed: %w", err)
			}

			fmt.Printf("Scanned %d cached files: %d orphaned, %d deleted, %d failed\n",
				summary.Scanned, summary.Orphaned, summary.Deleted, summary.Failed)
			return nil
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", syncer.DefaultCleanupBatchSize,
		"number of deletions between progress reports")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report orphans without deleting")

	return cmd
}
