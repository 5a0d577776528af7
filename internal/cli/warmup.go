package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lightgraph/lightgraph-go/internal/warmup"
)

var warmupCmd = &cobra.Command{
	Use:   "warmup",
	Short: "Pull and warm the required Ollama models",
	Long: `Pull and warm the Ollama models the backend depends on.

Both the generation model and the embedding model are pulled if missing and
loaded with an unbounded keep-alive, so the backend's health check reports
them as ready. The Ollama endpoint is taken from OLLAMA_HOST.`,
	RunE: runWarmup,
}

func runWarmup(cmd *cobra.Command, args []string) error {
	w, err := warmup.New(cfg.OllamaHost, cfg.Model, cfg.EmbedModel, os.Stdout)
	if err != nil {
		return err
	}

	if err := w.Run(context.Background()); err != nil {
		return fmt.Errorf("warmup: %w", err)
	}

	fmt.Println("Models ready.")
	return nil
}
