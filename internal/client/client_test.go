package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv("LIGHTGRAPH_SERVER_URL", "")
	t.Setenv("LIGHTGRAPH_CLIENT_TIMEOUT", "")

	c := New("")
	assert.Equal(t, "http://localhost:8000", c.BaseURL())
}

func TestNewEnvFallback(t *testing.T) {
	t.Setenv("LIGHTGRAPH_SERVER_URL", "http://rag.internal:9000/")

	c := New("")
	assert.Equal(t, "http://rag.internal:9000", c.BaseURL(), "trailing slash is trimmed")
}

func TestNewExplicitURLWins(t *testing.T) {
	t.Setenv("LIGHTGRAPH_SERVER_URL", "http://rag.internal:9000")

	c := New("http://localhost:1234")
	assert.Equal(t, "http://localhost:1234", c.BaseURL())
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/health", r.URL.Path)
		_ = json.NewEncoder(rw).Encode(map[string]any{
			"status":        "healthy",
			"service":       "lightgraph-rag-api",
			"version":       "0.1.0",
			"models_loaded": true,
			"loaded_models": []string{"gpt-oss:20b", "bge-m3:latest"},
		})
	}))
	defer server.Close()

	health, err := New(server.URL).Health(context.Background())
	require.NoError(t, err)
	assert.True(t, health.ModelsLoaded)
	assert.Equal(t, []string{"gpt-oss:20b", "bge-m3:latest"}, health.LoadedModels)
}

func TestAPIErrorDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusNotFound)
		_, _ = rw.Write([]byte(`{"detail":"Group not found"}`))
	}))
	defer server.Close()

	_, err := New(server.URL).GetGroup(context.Background(), "missing")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Group not found", apiErr.Detail)
	assert.Contains(t, apiErr.Error(), "404")
}

func TestAPIErrorNonJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		http.Error(rw, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := New(server.URL).Health(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "bad gateway", apiErr.Detail)
}

func TestGroupCRUD(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /groups", func(rw http.ResponseWriter, r *http.Request) {
		var input CreateGroupInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		assert.Equal(t, "research", input.Name)
		_ = json.NewEncoder(rw).Encode(Group{ID: "g1", Name: input.Name, Description: input.Description})
	})
	mux.HandleFunc("GET /groups", func(rw http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(rw).Encode(GroupList{
			Groups: []Group{{ID: "g1", Name: "research", DocumentCount: 2}},
			Total:  1,
		})
	})
	mux.HandleFunc("PATCH /groups/g1", func(rw http.ResponseWriter, r *http.Request) {
		var input UpdateGroupInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		require.NotNil(t, input.Name)
		assert.Nil(t, input.Description, "unset fields must not be sent")
		_ = json.NewEncoder(rw).Encode(Group{ID: "g1", Name: *input.Name})
	})
	mux.HandleFunc("DELETE /groups/g1", func(rw http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(rw).Encode(map[string]string{"message": "Group deleted"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(server.URL)
	ctx := context.Background()

	created, err := c.CreateGroup(ctx, CreateGroupInput{Name: "research", Description: "papers"})
	require.NoError(t, err)
	assert.Equal(t, "g1", created.ID)

	list, err := c.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, list.Groups, 1)
	assert.Equal(t, 2, list.Groups[0].DocumentCount)

	name := "renamed"
	updated, err := c.UpdateGroup(ctx, "g1", UpdateGroupInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)

	require.NoError(t, c.DeleteGroup(ctx, "g1"))
}

func TestInsertText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/groups/g1/documents", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var input InsertTextInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		assert.Equal(t, "hello world", input.Content)

		_ = json.NewEncoder(rw).Encode(Document{ID: "d1", GroupID: "g1", Filename: input.Filename, ContentLength: len(input.Content)})
	}))
	defer server.Close()

	doc, err := New(server.URL).InsertText(context.Background(), "g1", InsertTextInput{
		Content:  "hello world",
		Filename: "notes.txt",
	})
	require.NoError(t, err)
	assert.Equal(t, "d1", doc.ID)
	assert.Equal(t, 11, doc.ContentLength)
}

func TestUploadFileMultipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/groups/g1/documents/upload", r.URL.Path)
		assert.Contains(t, r.Header.Get("Content-Type"), "multipart/form-data")

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "paper.md", header.Filename)

		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "# Title\n\nbody", string(content))

		_ = json.NewEncoder(rw).Encode(Document{ID: "d2", GroupID: "g1", Filename: header.Filename})
	}))
	defer server.Close()

	doc, err := New(server.URL).UploadFile(context.Background(), "g1", "paper.md", strings.NewReader("# Title\n\nbody"))
	require.NoError(t, err)
	assert.Equal(t, "d2", doc.ID)
	assert.Equal(t, "paper.md", doc.Filename)
}

func TestListDocuments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/groups/g1/documents", r.URL.Path)
		_ = json.NewEncoder(rw).Encode(DocumentList{
			Documents: []Document{{ID: "d1"}, {ID: "d2"}, {ID: "d3"}},
			Total:     3,
		})
	}))
	defer server.Close()

	list, err := New(server.URL).ListDocuments(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 3, list.Total)
	assert.Len(t, list.Documents, 3)
}

func TestQueryDefaultsToMixMode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		var req QueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, ModeMix, req.Mode)
		_ = json.NewEncoder(rw).Encode(QueryResponse{Query: req.Query, Mode: req.Mode, Response: "answer", GroupID: "g1"})
	}))
	defer server.Close()

	resp, err := New(server.URL).Query(context.Background(), "g1", QueryRequest{Query: "what is rag?"})
	require.NoError(t, err)
	assert.Equal(t, "answer", resp.Response)
	assert.Equal(t, ModeMix, resp.Mode)
}

func TestValidMode(t *testing.T) {
	for _, mode := range []string{ModeNaive, ModeLocal, ModeGlobal, ModeHybrid, ModeMix} {
		assert.True(t, ValidMode(mode), mode)
	}
	assert.False(t, ValidMode(""))
	assert.False(t, ValidMode("turbo"))
}

func TestChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/groups/g1/conversations/c1/chat", r.URL.Path)

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream, "blocking chat must not request streaming")

		mode := req.Mode
		_ = json.NewEncoder(rw).Encode(ChatResponse{
			UserMessage:      Message{ID: "m1", Role: "user", Content: req.Message},
			AssistantMessage: Message{ID: "m2", Role: "assistant", Content: "reply", QueryMode: &mode},
		})
	}))
	defer server.Close()

	resp, err := New(server.URL).Chat(context.Background(), "g1", "c1", ChatRequest{Message: "hi", Stream: true})
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.UserMessage.Content)
	assert.Equal(t, "reply", resp.AssistantMessage.Content)
}

func TestConversationLifecycle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /groups/g1/conversations", func(rw http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(rw).Encode(Conversation{ID: "c1", GroupID: "g1", Title: body["title"]})
	})
	mux.HandleFunc("GET /groups/g1/conversations/c1", func(rw http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(rw).Encode(ConversationHistory{
			Conversation: Conversation{ID: "c1", GroupID: "g1", MessageCount: 2},
			Messages: []Message{
				{ID: "m1", Role: "user", Content: "hi"},
				{ID: "m2", Role: "assistant", Content: "hello"},
			},
		})
	})
	mux.HandleFunc("DELETE /groups/g1/conversations/c1", func(rw http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(rw).Encode(map[string]string{"message": "Conversation deleted"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(server.URL)
	ctx := context.Background()

	conv, err := c.CreateConversation(ctx, "g1", "first chat")
	require.NoError(t, err)
	assert.Equal(t, "first chat", conv.Title)

	history, err := c.GetConversation(ctx, "g1", "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, history.Conversation.MessageCount)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "assistant", history.Messages[1].Role)

	require.NoError(t, c.DeleteConversation(ctx, "g1", "c1"))
}
