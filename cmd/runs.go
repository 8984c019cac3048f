package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/docwatch/internal/database"
	"github.com/jonesrussell/docwatch/internal/domain"
)

const defaultRunsLimit = 20

// newRunsCommand creates the runs command.
func newRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs <document-id>",
		Short: "Show recent sync executions for a watched document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := newCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}
			defer deps.Close()

			ctx := cmd.Context()

			entry, err := deps.Queues.GetByDocumentID(ctx, args[0])
			if err != nil {
				if errors.Is(err, database.ErrQueueEntryNotFound) {
					fmt.Printf("Document %s is not watched\n", args[0])
					return nil
				}
				return fmt.Errorf("failed to load queue entry: %w", err)
			}

			executions, err := deps.Executions.ListByQueueID(ctx, entry.ID, limit)
			if err != nil {
				return fmt.Errorf("failed to list executions: %w", err)
			}

			if len(executions) == 0 {
				fmt.Println("No sync executions recorded")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)

			t.AppendHeader(table.Row{"Created", "Status", "Workspaces", "Reason"})

			for _, execution := range executions {
				result, parseErr := domain.ParseSyncResult(execution.Result)
				if parseErr != nil {
					result = domain.SyncResult{Reason: "unreadable result"}
				}
				t.AppendRow(table.Row{
					execution.CreatedAt.Format(time.RFC3339),
					execution.Status,
					strings.Join(result.WorkspacesModified, ", "),
					result.Reason,
				})
			}

			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultRunsLimit, "maximum executions to show")

	return cmd
}
