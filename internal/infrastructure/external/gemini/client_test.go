package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artemkaplagg/upiontelegram-classbot/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig("test-key")
	cfg.BaseURL = srv.URL
	return NewClient(cfg, logger.Default())
}

func TestGenerate_TextCompletion(t *testing.T) {
	var gotReq Request
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "gemini-2.0-flash")
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(Response{
			Candidates: []Candidate{{
				Content:      Content{Role: "model", Parts: []Part{{Text: "Hello "}, {Text: "there"}}},
				FinishReason: "STOP",
			}},
		})
	})

	completion, err := client.Generate(context.Background(), "be brief",
		[]Content{UserText("hi")},
		[]ToolDefinition{{Name: "verify_student", Description: "d", InputSchema: map[string]interface{}{"type": "object"}}},
	)
	require.NoError(t, err)
	assert.Equal(t, "Hello there", completion.Text)
	assert.Empty(t, completion.ToolCalls)
	assert.Equal(t, "STOP", completion.FinishReason)

	// Системный промпт и инструменты сериализуются в запрос
	require.NotNil(t, gotReq.SystemInstruction)
	assert.Equal(t, "be brief", gotReq.SystemInstruction.Parts[0].Text)
	require.Len(t, gotReq.Tools, 1)
	require.Len(t, gotReq.Tools[0].FunctionDeclarations, 1)
	assert.Equal(t, "verify_student", gotReq.Tools[0].FunctionDeclarations[0].Name)
}

func TestGenerate_FunctionCall(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Response{
			Candidates: []Candidate{{
				Content: Content{Role: "model", Parts: []Part{{
					FunctionCall: &FunctionCall{
						Name: "add_homework",
						Args: map[string]interface{}{"title": "Algebra", "limit": float64(3)},
					},
				}}},
			}},
		})
	})

	completion, err := client.Generate(context.Background(), "", []Content{UserText("add hw")}, nil)
	require.NoError(t, err)
	require.Len(t, completion.ToolCalls, 1)
	assert.Equal(t, "add_homework", completion.ToolCalls[0].Name)
	assert.Equal(t, "Algebra", completion.ToolCalls[0].Args["title"])
	// ModelContent сохраняет вызов для эха обратно в диалог
	require.Len(t, completion.ModelContent.Parts, 1)
	assert.NotNil(t, completion.ModelContent.Parts[0].FunctionCall)
}

func TestGenerate_RetriesOnRateLimit(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(Response{
			Candidates: []Candidate{{Content: Content{Role: "model", Parts: []Part{{Text: "ok"}}}}},
		})
	})

	completion, err := client.Generate(context.Background(), "", []Content{UserText("hi")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", completion.Text)
	assert.Equal(t, 2, attempts)
}

func TestGenerate_BadRequestIsPermanent(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"invalid schema"}}`))
	})

	_, err := client.Generate(context.Background(), "", []Content{UserText("hi")}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "client errors must not be retried")
	assert.Contains(t, err.Error(), "status 400")
}

func TestGenerate_APIErrorBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Response{
			Error: &APIError{Code: 403, Message: "key revoked", Status: "PERMISSION_DENIED"},
		})
	})

	_, err := client.Generate(context.Background(), "", []Content{UserText("hi")}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key revoked")
}

func TestGenerate_NoCandidates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Response{})
	})

	_, err := client.Generate(context.Background(), "", []Content{UserText("hi")}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no completion")
}

func TestGenerate_MissingAPIKey(t *testing.T) {
	cfg := DefaultConfig("")
	client := NewClient(cfg, logger.Default())

	_, err := client.Generate(context.Background(), "", []Content{UserText("hi")}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}
