package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/docwatch/internal/database"
)

// newUnwatchCommand creates the unwatch command.
func newUnwatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unwatch <document-id>",
		Short: "Stop watching a document and remove it from the sync queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := newCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}
			defer deps.Close()

			ctx := cmd.Context()
			documentID := args[0]

			entry, err := deps.Queues.GetByDocumentID(ctx, documentID)
			if err != nil {
				if errors.Is(err, database.ErrQueueEntryNotFound) {
					fmt.Printf("Document %s is not watched\n", documentID)
					return nil
				}
				return fmt.Errorf("failed to load queue entry: %w", err)
			}

			if err := deps.Queues.Delete(ctx, entry.ID); err != nil {
				return fmt.Errorf("failed to delete queue entry: %w", err)
			}

			if err := deps.Documents.SetWatched(ctx, documentID, false); err != nil &&
				!errors.Is(err, database.ErrDocumentNotFound) {
				return fmt.Errorf("failed to clear watched flag: %w", err)
			}

			fmt.Printf("Stopped watching document %s\n", documentID)
			return nil
		},
	}
}
