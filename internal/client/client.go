// Package client provides an HTTP client for the LightGraph backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Client is a REST client for the LightGraph backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new backend client.
// If baseURL is empty, uses LIGHTGRAPH_SERVER_URL env var or defaults to localhost:8000.
// Timeout can be configured via LIGHTGRAPH_CLIENT_TIMEOUT env var (default 10s).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("LIGHTGRAPH_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}

	timeout := 10 * time.Second
	if t := os.Getenv("LIGHTGRAPH_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewWithTimeout creates a client with an explicit timeout.
func NewWithTimeout(baseURL string, timeout time.Duration) *Client {
	c := New(baseURL)
	c.httpClient.Timeout = timeout
	return c
}

// BaseURL returns the configured backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error (%d): %s", e.StatusCode, e.Detail)
}

// errorDetail is the FastAPI error envelope.
type errorDetail struct {
	Detail string `json:"detail"`
}

// do sends a JSON request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(data))}
		var envelope errorDetail
		if err := json.Unmarshal(data, &envelope); err == nil && envelope.Detail != "" {
			apiErr.Detail = envelope.Detail
		}
		return apiErr
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// =============================================================================
// HEALTH
// =============================================================================

// HealthResponse reports backend and model readiness.
type HealthResponse struct {
	Status       string   `json:"status"`
	Service      string   `json:"service"`
	Version      string   `json:"version"`
	ModelsLoaded bool     `json:"models_loaded"`
	LoadedModels []string `json:"loaded_models"`
}

// Health checks backend health and model load status.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// =============================================================================
// GROUPS
// =============================================================================

// Group is a document group with isolated knowledge-graph storage.
type Group struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	DocumentCount int    `json:"document_count"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// GroupList is the list-groups response.
type GroupList struct {
	Groups []Group `json:"groups"`
	Total  int     `json:"total"`
}

// CreateGroupInput is the input for creating a group.
type CreateGroupInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UpdateGroupInput is the input for updating a group. Nil fields are unchanged.
type UpdateGroupInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// CreateGroup creates a new document group.
func (c *Client) CreateGroup(ctx context.Context, input CreateGroupInput) (*Group, error) {
	var resp Group
	if err := c.do(ctx, http.MethodPost, "/groups", input, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListGroups returns all groups with document counts.
func (c *Client) ListGroups(ctx context.Context) (*GroupList, error) {
	var resp GroupList
	if err := c.do(ctx, http.MethodGet, "/groups", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetGroup retrieves a single group by ID.
func (c *Client) GetGroup(ctx context.Context, groupID string) (*Group, error) {
	var resp Group
	if err := c.do(ctx, http.MethodGet, "/groups/"+url.PathEscape(groupID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateGroup updates a group's name or description.
func (c *Client) UpdateGroup(ctx context.Context, groupID string, input UpdateGroupInput) (*Group, error) {
	var resp Group
	if err := c.do(ctx, http.MethodPatch, "/groups/"+url.PathEscape(groupID), input, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteGroup deletes a group and all its data.
func (c *Client) DeleteGroup(ctx context.Context, groupID string) error {
	return c.do(ctx, http.MethodDelete, "/groups/"+url.PathEscape(groupID), nil, nil)
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// Document is document metadata; content lives in the group's knowledge graph.
type Document struct {
	ID            string `json:"id"`
	GroupID       string `json:"group_id"`
	Filename      string `json:"filename"`
	ContentLength int    `json:"content_length"`
	CreatedAt     string `json:"created_at"`
}

// DocumentList is the list-documents response. Total is the field the
// ingestion watcher compares against.
type DocumentList struct {
	Documents []Document `json:"documents"`
	Total     int        `json:"total"`
}

// InsertTextInput is the input for inserting raw text into a group.
type InsertTextInput struct {
	Content  string `json:"content"`
	Filename string `json:"filename,omitempty"`
}

// InsertText inserts raw text content into a group's knowledge base.
// Indexing happens asynchronously on the backend; the returned metadata
// does not mean the document is queryable yet.
func (c *Client) InsertText(ctx context.Context, groupID string, input InsertTextInput) (*Document, error) {
	var resp Document
	path := "/groups/" + url.PathEscape(groupID) + "/documents"
	if err := c.do(ctx, http.MethodPost, path, input, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadFile uploads a file into a group's knowledge base.
func (c *Client) UploadFile(ctx context.Context, groupID, filename string, content io.Reader) (*Document, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("copy file content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	path := "/groups/" + url.PathEscape(groupID) + "/documents/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	var doc Document
	if err := decodeResponse(resp, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments lists all documents in a group.
func (c *Client) ListDocuments(ctx context.Context, groupID string) (*DocumentList, error) {
	var resp DocumentList
	path := "/groups/" + url.PathEscape(groupID) + "/documents"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetDocument retrieves a single document's metadata.
func (c *Client) GetDocument(ctx context.Context, groupID, documentID string) (*Document, error) {
	var resp Document
	path := "/groups/" + url.PathEscape(groupID) + "/documents/" + url.PathEscape(documentID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// =============================================================================
// QUERY
// =============================================================================

// Query modes supported by the backend.
const (
	ModeNaive  = "naive"
	ModeLocal  = "local"
	ModeGlobal = "global"
	ModeHybrid = "hybrid"
	ModeMix    = "mix"
)

// ValidMode reports whether mode is a supported RAG query mode.
func ValidMode(mode string) bool {
	switch mode {
	case ModeNaive, ModeLocal, ModeGlobal, ModeHybrid, ModeMix:
		return true
	}
	return false
}

// QueryRequest is a RAG query against a group's knowledge base.
type QueryRequest struct {
	Query  string `json:"query"`
	Mode   string `json:"mode,omitempty"`
	Stream bool   `json:"stream,omitempty"`
}

// QueryResponse is a non-streaming RAG answer.
type QueryResponse struct {
	Query    string `json:"query"`
	Mode     string `json:"mode"`
	Response string `json:"response"`
	GroupID  string `json:"group_id"`
}

// Query runs a RAG query and returns the full generated answer.
func (c *Client) Query(ctx context.Context, groupID string, req QueryRequest) (*QueryResponse, error) {
	if req.Mode == "" {
		req.Mode = ModeMix
	}
	var resp QueryResponse
	path := "/groups/" + url.PathEscape(groupID) + "/query"
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// Conversation is a chat session tied to a group.
type Conversation struct {
	ID           string `json:"id"`
	GroupID      string `json:"group_id"`
	Title        string `json:"title"`
	MessageCount int    `json:"message_count"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// ConversationList is the list-conversations response.
type ConversationList struct {
	Conversations []Conversation `json:"conversations"`
	Total         int            `json:"total"`
}

// Message is a single chat message.
type Message struct {
	ID             string  `json:"id"`
	ConversationID string  `json:"conversation_id"`
	Role           string  `json:"role"`
	Content        string  `json:"content"`
	QueryMode      *string `json:"query_mode,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// ConversationHistory is a conversation with its ordered messages.
type ConversationHistory struct {
	Conversation Conversation `json:"conversation"`
	Messages     []Message    `json:"messages"`
}

// ChatRequest sends a message in a conversation.
type ChatRequest struct {
	Message string `json:"message"`
	Mode    string `json:"mode,omitempty"`
	Stream  bool   `json:"stream,omitempty"`
}

// ChatResponse pairs the user message with the assistant reply.
type ChatResponse struct {
	UserMessage      Message `json:"user_message"`
	AssistantMessage Message `json:"assistant_message"`
}

// CreateConversation creates a conversation in a group.
func (c *Client) CreateConversation(ctx context.Context, groupID, title string) (*Conversation, error) {
	body := map[string]string{}
	if title != "" {
		body["title"] = title
	}
	var resp Conversation
	path := "/groups/" + url.PathEscape(groupID) + "/conversations"
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListConversations lists conversations in a group, most recently updated first.
func (c *Client) ListConversations(ctx context.Context, groupID string) (*ConversationList, error) {
	var resp ConversationList
	path := "/groups/" + url.PathEscape(groupID) + "/conversations"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetConversation retrieves a conversation and its message history.
func (c *Client) GetConversation(ctx context.Context, groupID, conversationID string) (*ConversationHistory, error) {
	var resp ConversationHistory
	path := "/groups/" + url.PathEscape(groupID) + "/conversations/" + url.PathEscape(conversationID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteConversation deletes a conversation and its messages.
func (c *Client) DeleteConversation(ctx context.Context, groupID, conversationID string) error {
	path := "/groups/" + url.PathEscape(groupID) + "/conversations/" + url.PathEscape(conversationID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// Chat sends a message and returns the RAG-powered reply.
func (c *Client) Chat(ctx context.Context, groupID, conversationID string, req ChatRequest) (*ChatResponse, error) {
	if req.Mode == "" {
		req.Mode = ModeMix
	}
	req.Stream = false
	var resp ChatResponse
	path := "/groups/" + url.PathEscape(groupID) + "/conversations/" + url.PathEscape(conversationID) + "/chat"
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
