package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lightgraph/lightgraph-go/internal/client"
	"github.com/lightgraph/lightgraph-go/internal/task"
	"github.com/lightgraph/lightgraph-go/internal/watch"
)

var (
	docsFilename string
	docsWait     bool
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Ingest and inspect documents",
	Long: `Ingest and inspect documents.

Ingestion is asynchronous: the backend extracts entities and builds the
knowledge graph after the request returns. lightgraph records the pending
ingestion in a local task slot and, in the interactive shell or with --wait,
polls the group's document count until the new document is indexed.`,
}

var docsInsertCmd = &cobra.Command{
	Use:   "insert <group-id> <content>",
	Short: "Insert raw text into a group's knowledge base",
	Long: `Insert raw text into a group's knowledge base.

Examples:
  lightgraph docs insert demo "Grace Hopper invented the first compiler."
  lightgraph docs insert demo "..." --filename notes.txt --wait`,
	Args: cobra.ExactArgs(2),
	RunE: runDocsInsert,
}

var docsUploadCmd = &cobra.Command{
	Use:   "upload <group-id> <file>",
	Short: "Upload a file into a group's knowledge base",
	Long: `Upload a file into a group's knowledge base.

Supported formats: .txt, .md, .csv, .json, .xml, .html, .py, .js, .ts,
.yaml, .yml, .log, .pdf`,
	Args: cobra.ExactArgs(2),
	RunE: runDocsUpload,
}

var docsListCmd = &cobra.Command{
	Use:   "list <group-id>",
	Short: "List documents in a group",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsList,
}

func init() {
	docsInsertCmd.Flags().StringVarP(&docsFilename, "filename", "f", "manual_input.txt", "source filename recorded for the text")
	docsInsertCmd.Flags().BoolVarP(&docsWait, "wait", "w", false, "wait until the document is indexed")
	docsUploadCmd.Flags().BoolVarP(&docsWait, "wait", "w", false, "wait until the document is indexed")

	docsCmd.AddCommand(docsInsertCmd)
	docsCmd.AddCommand(docsUploadCmd)
	docsCmd.AddCommand(docsListCmd)
}

func runDocsInsert(cmd *cobra.Command, args []string) error {
	groupID, content := args[0], args[1]
	ctx := context.Background()

	t, err := beginIngestion(ctx, groupID, docsFilename, task.SourceText)
	if err != nil {
		return err
	}

	doc, err := backend.InsertText(ctx, groupID, client.InsertTextInput{
		Content:  content,
		Filename: docsFilename,
	})
	if err != nil {
		// The request never reached indexing; drop the task so the
		// shell does not block on a document that will never arrive.
		_ = taskStore.Clear()
		return fmt.Errorf("insert text: %w", err)
	}

	fmt.Printf("Inserted %s (%d chars) into group %s\n", doc.Filename, doc.ContentLength, groupID)
	return finishIngestion(ctx, t)
}

func runDocsUpload(cmd *cobra.Command, args []string) error {
	groupID, path := args[0], args[1]
	ctx := context.Background()

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	filename := filepath.Base(path)
	t, err := beginIngestion(ctx, groupID, filename, task.SourceFile)
	if err != nil {
		return err
	}

	doc, err := backend.UploadFile(ctx, groupID, filename, file)
	if err != nil {
		_ = taskStore.Clear()
		return fmt.Errorf("upload file: %w", err)
	}

	fmt.Printf("Uploaded %s (%d chars) into group %s\n", doc.Filename, doc.ContentLength, groupID)
	return finishIngestion(ctx, t)
}

func runDocsList(cmd *cobra.Command, args []string) error {
	list, err := backend.ListDocuments(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	if list.Total == 0 {
		fmt.Println("No documents found")
		return nil
	}

	fmt.Printf("%-14s %-40s %10s %s\n", "ID", "FILENAME", "CHARS", "CREATED")
	fmt.Println("--------------------------------------------------------------------------------")
	for _, d := range list.Documents {
		fmt.Printf("%-14s %-40s %10d %s\n", d.ID, d.Filename, d.ContentLength, d.CreatedAt)
	}
	return nil
}

// beginIngestion records the pending ingestion in the task slot before the
// triggering request is sent. The expected count is the total observed right
// now plus one; the tracker does not support batching multiple ingests.
func beginIngestion(ctx context.Context, groupID, filename string, source task.Source) (task.Task, error) {
	list, err := backend.ListDocuments(ctx, groupID)
	if err != nil {
		return task.Task{}, fmt.Errorf("read current document count: %w", err)
	}

	t := task.New(groupID, list.Total+1, filename, source)
	if err := taskStore.Write(t); err != nil {
		return task.Task{}, fmt.Errorf("record ingestion task: %w", err)
	}
	slog.Info("ingestion task recorded",
		"task_id", t.ID, "group_id", groupID, "expected_min_documents", t.ExpectedMinDocuments)
	return t, nil
}

// finishIngestion either waits for indexing to complete (--wait) or leaves
// the task outstanding for the shell to track.
func finishIngestion(ctx context.Context, t task.Task) error {
	if !docsWait {
		fmt.Println("Indexing continues on the backend. Track it with 'lightgraph task' or the interactive shell.")
		return nil
	}
	return waitForIngestion(ctx, t)
}

// waitForIngestion blocks until the watcher observes the document count
// catch up, printing progress. A persistent fetch failure stops waiting but
// leaves the task in place: failing to verify completion is not completion.
func waitForIngestion(ctx context.Context, t task.Task) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := watch.New(taskStore, backend, watch.Options{
		Interval:   cfg.PollInterval,
		RetryLimit: cfg.RetryLimit,
		Timeout:    cfg.RequestTimeout,
	})

	updates, unsubscribe := w.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	fmt.Printf("Waiting for %s to be indexed (ctrl+c to stop waiting)…\n", t.Filename)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			return nil
		case <-updates:
			snap := w.Snapshot()
			if !snap.Blocking {
				fmt.Println("Indexed.")
				return nil
			}
			if snap.Err {
				fmt.Println("Could not verify ingestion progress; the backend may be unreachable or the group deleted.")
				fmt.Println("The task is still recorded. Dismiss it with 'lightgraph task --dismiss'.")
				return fmt.Errorf("ingestion progress unavailable")
			}
			fmt.Printf("  documents: %d, waiting for %d\n", snap.DocumentCount, t.ExpectedMinDocuments)
		}
	}
}
