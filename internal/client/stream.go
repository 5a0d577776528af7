package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// SSE event names emitted by the backend.
const (
	sseEventChunk = "chunk"
	sseEventDone  = "done"
	sseEventError = "error"
)

// QueryStream runs a RAG query and streams the answer via server-sent events.
// onChunk is invoked for each response text chunk; returning an error aborts
// the stream.
func (c *Client) QueryStream(ctx context.Context, groupID string, req QueryRequest, onChunk func(chunk string) error) error {
	if req.Mode == "" {
		req.Mode = ModeMix
	}
	req.Stream = true
	path := "/groups/" + url.PathEscape(groupID) + "/query/stream"
	return c.stream(ctx, path, req, onChunk)
}

// ChatStream sends a conversation message and streams the reply.
func (c *Client) ChatStream(ctx context.Context, groupID, conversationID string, req ChatRequest, onChunk func(chunk string) error) error {
	if req.Mode == "" {
		req.Mode = ModeMix
	}
	req.Stream = true
	path := "/groups/" + url.PathEscape(groupID) + "/conversations/" + url.PathEscape(conversationID) + "/chat"
	return c.stream(ctx, path, req, onChunk)
}

// stream POSTs body and consumes the SSE response. Generation can take much
// longer than the client's request timeout, so the stream request relies on
// ctx for cancellation instead.
func (c *Client) stream(ctx context.Context, path string, body any, onChunk func(chunk string) error) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeResponse(resp, nil)
	}

	return consumeSSE(ctx, resp.Body, onChunk)
}

// consumeSSE reads server-sent events until a done or error event, EOF, or
// context cancellation.
func consumeSSE(ctx context.Context, r io.Reader, onChunk func(chunk string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var event string
	var dataLines []string

	dispatch := func() error {
		defer func() {
			event = ""
			dataLines = nil
		}()
		if event == "" && len(dataLines) == 0 {
			return nil
		}
		payload := strings.Join(dataLines, "\n")
		switch event {
		case sseEventChunk, "":
			if payload == "" {
				return nil
			}
			return onChunk(payload)
		case sseEventDone:
			return io.EOF // sentinel, mapped to nil by the caller
		case sseEventError:
			var envelope errorDetail
			if err := json.Unmarshal([]byte(payload), &envelope); err == nil && envelope.Detail != "" {
				return fmt.Errorf("stream error: %s", envelope.Detail)
			}
			return fmt.Errorf("stream error: %s", payload)
		}
		return nil
	}

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSuffix(scanner.Text(), "\r")

		switch {
		case line == "":
			if err := dispatch(); err != nil {
				if err == io.EOF {
					return nil
				}
				return err
			}
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("read stream: %w", err)
	}

	// Flush a trailing event without a final blank line.
	if err := dispatch(); err != nil && err != io.EOF {
		return err
	}
	return nil
}
