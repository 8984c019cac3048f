package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/docwatch/internal/domain"
)

const defaultStalenessWindow = time.Duration(domain.DefaultStalenessWindowMs) * time.Millisecond

// newWatchCommand creates the watch command.
func newWatchCommand() *cobra.Command {
	var window time.Duration

	cmd := &cobra.Command{
		Use:   "watch <document-id>",
		Short: "Mark a document watched and queue it for periodic sync",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := newCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}
			defer deps.Close()

			ctx := cmd.Context()

			doc, err := deps.Documents.GetByID(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to load document: %w", err)
			}
			if _, err := doc.SourceRef(); err != nil {
				return fmt.Errorf("document cannot be watched: %w", err)
			}

			now := time.Now()
			entry := &domain.SyncQueueEntry{
				DocumentID:        doc.ID,
				StalenessWindowMs: window.Milliseconds(),
				LastSyncedAt:      now,
				NextSyncAt:        now.Add(window),
			}

			created, err := deps.Queues.Create(ctx, entry)
			if err != nil {
				return fmt.Errorf("failed to create queue entry: %w", err)
			}
			if !created {
				existing, getErr := deps.Queues.GetByDocumentID(ctx, doc.ID)
				if getErr != nil {
					return fmt.Errorf("failed to load existing queue entry: %w", getErr)
				}
				fmt.Printf("Document %s is already watched; next sync at %s\n",
					doc.Filename, existing.NextSyncAt.Format(time.RFC3339))
				return nil
			}

			if err := deps.Documents.SetWatched(ctx, doc.ID, true); err != nil {
				return fmt.Errorf("failed to set watched flag: %w", err)
			}

			fmt.Printf("Watching %s; next sync at %s\n",
				doc.Filename, entry.NextSyncAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().DurationVar(&window, "staleness-window", defaultStalenessWindow,
		"how long after a sync before the document is considered stale")

	return cmd
}
