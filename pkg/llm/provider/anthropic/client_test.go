package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// 创建测试
// ═══════════════════════════════════════════════════════════════════════════

func TestNew_NilConfig(t *testing.T) {
	client, err := New(nil)

	require.Error(t, err)
	assert.Nil(t, client)
	assert.True(t, llm.IsConfigError(err))
}

func TestNew_MissingAPIKey(t *testing.T) {
	client, err := New(&Config{})

	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "API key")
}

func TestNew_Success(t *testing.T) {
	client, err := New(&Config{APIKey: "test-key", Timeout: 10 * time.Second})

	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, llm.ProviderAnthropic, client.Kind())
}

// ═══════════════════════════════════════════════════════════════════════════
// Invoke 测试
// ═══════════════════════════════════════════════════════════════════════════

type fixedBudget int

func (b fixedBudget) TokenBudget(string) int { return int(b) }

func messageJSON(content ...any) map[string]any {
	return map[string]any{
		"id":            "msg_01",
		"type":          "message",
		"role":          "assistant",
		"model":         "claude-3-haiku-20240307",
		"content":       content,
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"usage": map[string]any{
			"input_tokens":  10,
			"output_tokens": 5,
		},
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(&Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Budgets: fixedBudget(4096),
		Logger:  logger.Discard(),
	})
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestClient_Invoke_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var reqBody map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "claude-3-haiku-20240307", reqBody["model"])
		assert.EqualValues(t, 4096, reqBody["max_tokens"])

		writeJSON(w, http.StatusOK, messageJSON(map[string]any{"type": "text", "text": "Hello! I'm Claude."}))
	})

	res, err := client.Invoke(context.Background(), llm.NewPromptRequest("claude-3-haiku-20240307", "Hello!"))

	require.NoError(t, err)
	assert.Equal(t, "Hello! I'm Claude.", res.Text)
	assert.Equal(t, "stop", res.FinishReason)
	assert.Equal(t, "claude-3-haiku-20240307", res.Model)
	require.NotNil(t, res.Usage)
	assert.Equal(t, int64(10), res.Usage.InputTokens)
	assert.Equal(t, int64(5), res.Usage.OutputTokens)
	assert.Equal(t, int64(15), res.Usage.TotalTokens)
}

func TestClient_Invoke_SystemHoisted(t *testing.T) {
	var reqBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		writeJSON(w, http.StatusOK, messageJSON(map[string]any{"type": "text", "text": "Hi."}))
	})

	req := llm.NewConversationRequest("claude-3-haiku-20240307", llm.Conversation{
		llm.SystemMessage("You are terse."),
		llm.UserMessage("Hi"),
	})
	_, err := client.Invoke(context.Background(), req)
	require.NoError(t, err)

	// 系统提示位于顶层 system 字段
	system, ok := reqBody["system"].([]any)
	require.True(t, ok, "system 字段应为文本块数组")
	require.Len(t, system, 1)
	assert.Equal(t, "You are terse.", system[0].(map[string]any)["text"])

	// messages 中不再出现 system 角色
	messages := reqBody["messages"].([]any)
	require.Len(t, messages, 1)
	for _, m := range messages {
		assert.NotEqual(t, "system", m.(map[string]any)["role"])
	}
}

func TestClient_Invoke_StructuredOutput(t *testing.T) {
	var reqBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		writeJSON(w, http.StatusOK, messageJSON(map[string]any{
			"type":  "tool_use",
			"id":    "toolu_01",
			"name":  "song",
			"input": map[string]any{"title": "John Henry", "verses": 3},
		}))
	})

	req := llm.NewPromptRequest("claude-3-haiku-20240307", "sing a song about John Henry")
	req.Schema = &llm.OutputSchema{
		Name: "song",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title":  map[string]any{"type": "string"},
				"verses": map[string]any{"type": "integer"},
			},
		},
	}
	res, err := client.Invoke(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "John Henry", res.Structured["title"])
	assert.InDelta(t, 3, res.Structured["verses"], 0)

	tools := reqBody["tools"].([]any)
	require.Len(t, tools, 1)
	assert.Equal(t, "song", tools[0].(map[string]any)["name"])
	choice := reqBody["tool_choice"].(map[string]any)
	assert.Equal(t, "tool", choice["type"])
	assert.Equal(t, "song", choice["name"])
}

func TestClient_Invoke_StructuredOutputForwardsSchema(t *testing.T) {
	var reqBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		writeJSON(w, http.StatusOK, messageJSON(map[string]any{
			"type":  "tool_use",
			"id":    "toolu_02",
			"name":  "person",
			"input": map[string]any{"name": "Ada", "age": 36},
		}))
	})

	req := llm.NewPromptRequest("claude-3-haiku-20240307", "describe Ada Lovelace")
	req.Schema = &llm.OutputSchema{
		Name: "person",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{"type": "string"},
				"age":  map[string]any{"type": "integer"},
			},
			"required":             []any{"name", "age"},
			"additionalProperties": false,
		},
	}
	_, err := client.Invoke(context.Background(), req)
	require.NoError(t, err)

	tools := reqBody["tools"].([]any)
	require.Len(t, tools, 1)
	schema := tools[0].(map[string]any)["input_schema"].(map[string]any)
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []any{"name", "age"}, schema["required"])
	assert.Equal(t, false, schema["additionalProperties"])
	assert.Contains(t, schema["properties"], "age")
}

func TestClient_Invoke_HTTPError(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Request-Id", "req_123")
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"type":  "error",
			"error": map[string]any{"type": "authentication_error", "message": "invalid x-api-key"},
		})
	})

	res, err := client.Invoke(context.Background(), llm.NewPromptRequest("claude-3-haiku-20240307", "Hello!"))

	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, 1, calls)
	assert.True(t, llm.IsProviderError(err))

	apiErr, ok := llm.GetAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "req_123", apiErr.RequestID)
}

func TestClient_Invoke_ContextCancellation(t *testing.T) {
	client := newTestClient(t, func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Invoke(ctx, llm.NewPromptRequest("claude-3-haiku-20240307", "Hello!"))

	require.Error(t, err)
	assert.True(t, llm.IsProviderError(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMapStopReason(t *testing.T) {
	assert.Equal(t, "stop", mapStopReason("end_turn"))
	assert.Equal(t, "stop", mapStopReason("tool_use"))
	assert.Equal(t, "length", mapStopReason("max_tokens"))
	assert.Equal(t, "refusal", mapStopReason("refusal"))
}
