package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lightgraph/lightgraph-go/internal/client"
)

var (
	queryMode   string
	queryStream bool
)

var queryCmd = &cobra.Command{
	Use:   "query <group-id> <question>",
	Short: "Query a group's knowledge base",
	Long: `Query a group's knowledge base using RAG.

Modes:
  naive   vector similarity search only (traditional RAG)
  local   knowledge graph, entity-focused retrieval
  global  knowledge graph, broad relationship retrieval
  hybrid  combines local + global graph retrieval
  mix     combines knowledge graph + vector retrieval (recommended)

Examples:
  lightgraph query demo "Who invented the compiler?"
  lightgraph query demo "Summarize the architecture" --mode hybrid --stream`,
	Args: cobra.ExactArgs(2),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryMode, "mode", "m", client.ModeMix, "RAG query mode (naive, local, global, hybrid, mix)")
	queryCmd.Flags().BoolVarP(&queryStream, "stream", "s", false, "stream the answer as it is generated")
}

func runQuery(cmd *cobra.Command, args []string) error {
	groupID, question := args[0], args[1]
	if !client.ValidMode(queryMode) {
		return fmt.Errorf("invalid mode %q", queryMode)
	}

	ctx := context.Background()
	req := client.QueryRequest{Query: question, Mode: queryMode}

	if queryStream {
		err := backend.QueryStream(ctx, groupID, req, func(chunk string) error {
			fmt.Print(chunk)
			return nil
		})
		if err != nil {
			return fmt.Errorf("stream query: %w", err)
		}
		fmt.Fprintln(os.Stdout)
		return nil
	}

	resp, err := backend.Query(ctx, groupID, req)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	fmt.Println(resp.Response)
	return nil
}
