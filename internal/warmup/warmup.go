// Package warmup pulls and warms the Ollama models the backend depends on.
//
// The readiness gate only observes model state; this package changes it.
// Warming loads each model with an unbounded keep-alive so the backend's
// health check reports models_loaded until the Ollama server restarts.
package warmup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

// warmPrompt is the minimal prompt used to force a model into memory.
const warmPrompt = "hi"

// Warmer pulls and warms the required models.
type Warmer struct {
	client     *api.Client
	model      string
	embedModel string
	out        io.Writer
}

// New creates a warmer talking to the Ollama server at host. An empty host
// falls back to OLLAMA_HOST, matching the backend's configuration. Progress
// lines are written to out.
func New(host, model, embedModel string, out io.Writer) (*Warmer, error) {
	var client *api.Client
	if host == "" {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
	} else {
		base, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("parse ollama host: %w", err)
		}
		client = api.NewClient(base, http.DefaultClient)
	}
	return &Warmer{
		client:     client,
		model:      model,
		embedModel: embedModel,
		out:        out,
	}, nil
}

// Run pulls missing models, warms both, and reports what is running.
func (w *Warmer) Run(ctx context.Context) error {
	for _, model := range []string{w.model, w.embedModel} {
		if err := w.ensure(ctx, model); err != nil {
			return err
		}
	}

	if err := w.warmGenerate(ctx); err != nil {
		return err
	}
	if err := w.warmEmbed(ctx); err != nil {
		return err
	}

	running, err := w.Running(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w.out, "Running models: %v\n", running)
	return nil
}

// ensure pulls the model if it is not available locally.
func (w *Warmer) ensure(ctx context.Context, model string) error {
	list, err := w.client.List(ctx)
	if err != nil {
		return fmt.Errorf("list local models: %w", err)
	}
	for _, m := range list.Models {
		if m.Name == model || m.Model == model {
			slog.Debug("model already present", "model", model)
			return nil
		}
	}

	fmt.Fprintf(w.out, "Pulling %s…\n", model)
	var lastStatus string
	err = w.client.Pull(ctx, &api.PullRequest{Model: model}, func(p api.ProgressResponse) error {
		if p.Status != lastStatus {
			lastStatus = p.Status
			fmt.Fprintf(w.out, "  %s\n", p.Status)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("pull %s: %w", model, err)
	}
	return nil
}

// warmGenerate loads the generation model with an unbounded keep-alive.
func (w *Warmer) warmGenerate(ctx context.Context) error {
	fmt.Fprintf(w.out, "Warming %s…\n", w.model)

	stream := false
	keepAlive := &api.Duration{Duration: -1}
	req := &api.GenerateRequest{
		Model:     w.model,
		Prompt:    warmPrompt,
		Stream:    &stream,
		KeepAlive: keepAlive,
	}
	err := w.client.Generate(ctx, req, func(api.GenerateResponse) error { return nil })
	if err != nil {
		return fmt.Errorf("warm %s: %w", w.model, err)
	}
	slog.Info("generation model warm", "model", w.model)
	return nil
}

// warmEmbed loads the embedding model with an unbounded keep-alive.
func (w *Warmer) warmEmbed(ctx context.Context) error {
	fmt.Fprintf(w.out, "Warming %s…\n", w.embedModel)

	req := &api.EmbedRequest{
		Model:     w.embedModel,
		Input:     warmPrompt,
		KeepAlive: &api.Duration{Duration: -1},
	}
	if _, err := w.client.Embed(ctx, req); err != nil {
		return fmt.Errorf("warm %s: %w", w.embedModel, err)
	}
	slog.Info("embedding model warm", "model", w.embedModel)
	return nil
}

// Running returns the names of models currently loaded by the runtime,
// the same signal the backend's health endpoint is built on.
func (w *Warmer) Running(ctx context.Context) ([]string, error) {
	resp, err := w.client.ListRunning(ctx)
	if err != nil {
		return nil, fmt.Errorf("list running models: %w", err)
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Model)
	}
	return names, nil
}
