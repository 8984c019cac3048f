package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/docwatch/internal/database"
)

// newQueueCommand creates the queue command.
func newQueueCommand() *cobra.Command {
	var dueOnly bool

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "List watched documents and their sync schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := newCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}
			defer deps.Close()

			items, err := deps.Queues.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list queue entries: %w", err)
			}

			now := time.Now()
			if dueOnly {
				filtered := make([]*database.QueueListItem, 0, len(items))
				for _, item := range items {
					if item.Due(now) {
						filtered = append(filtered, item)
					}
				}
				items = filtered
			}

			if len(items) == 0 {
				if dueOnly {
					fmt.Println("No documents due for sync")
				} else {
					fmt.Println("No watched documents")
				}
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)

			t.AppendHeader(table.Row{"Filename", "Workspace", "Last Synced", "Next Sync", "Window", "Due"})

			for _, item := range items {
				t.AppendRow(table.Row{
					item.Filename,
					item.WorkspaceSlug,
					item.LastSyncedAt.Format(time.RFC3339),
					item.NextSyncAt.Format(time.RFC3339),
					item.StalenessWindow(),
					item.Due(now),
				})
			}

			t.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&dueOnly, "due", false, "only show entries due for sync")

	return cmd
}
