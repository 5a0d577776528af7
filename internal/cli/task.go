package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var taskDismiss bool

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Show or dismiss the outstanding ingestion task",
	Long: `Show or dismiss the outstanding ingestion task.

At most one ingestion task is tracked at a time. It is recorded when an
insert or upload starts and cleared automatically once the group's document
count catches up. Use --dismiss if the task can no longer complete, for
example because the group was deleted mid-ingestion.`,
	RunE: runTask,
}

func init() {
	taskCmd.Flags().BoolVar(&taskDismiss, "dismiss", false, "clear the outstanding task")
}

func runTask(cmd *cobra.Command, args []string) error {
	t := taskStore.Read()
	if t == nil {
		fmt.Println("No outstanding ingestion task")
		return nil
	}

	if taskDismiss {
		if err := taskStore.Clear(); err != nil {
			return fmt.Errorf("dismiss task: %w", err)
		}
		fmt.Printf("Dismissed ingestion task %s (%s)\n", t.ID, t.Filename)
		return nil
	}

	fmt.Printf("Task: %s\n", t.ID)
	fmt.Printf("  Group: %s\n", t.GroupID)
	fmt.Printf("  File: %s\n", t.Filename)
	fmt.Printf("  Source: %s\n", t.Source)
	fmt.Printf("  Waiting for document count: %d\n", t.ExpectedMinDocuments)
	fmt.Printf("  Started: %s\n", t.StartedAt)
	return nil
}
