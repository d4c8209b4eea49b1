package core

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
)

// ═══════════════════════════════════════════════════════════════════════════
// Mock 实现
// ═══════════════════════════════════════════════════════════════════════════

// mockConfig Mock 配置实现
type mockConfig struct {
	apiKey  string
	baseURL string
	kind    llm.ProviderKind
}

func (m *mockConfig) Validate() error {
	if m.apiKey == "" {
		return llm.NewConfigError("API key is required", nil)
	}
	return nil
}

func (m *mockConfig) GetDefaults() (string, time.Duration) {
	baseURL := m.baseURL
	if baseURL == "" {
		baseURL = "https://api.example.com/v1"
	}
	return baseURL, 30 * time.Second
}

func (m *mockConfig) BuildHeaders() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + m.apiKey,
	}
}

func (m *mockConfig) ProviderKind() llm.ProviderKind {
	return m.kind
}

// mockRequestBuilder Mock 请求构建器，记录收到的参数
type mockRequestBuilder struct {
	gotModel    string
	gotMessages []map[string]any
	gotSystem   string
}

func (m *mockRequestBuilder) BuildRequest(model string, messages []map[string]any, system string, _ *llm.Request) (map[string]any, error) {
	m.gotModel = model
	m.gotMessages = messages
	m.gotSystem = system
	return map[string]any{
		"model":    model,
		"messages": messages,
	}, nil
}

// mockAdapter Mock 协议适配器
type mockAdapter struct {
	strategy SystemMessageStrategy
}

func (m *mockAdapter) ConvertToAPI(messages llm.Conversation) []map[string]any {
	result := make([]map[string]any, len(messages))
	for i, msg := range messages {
		result[i] = map[string]any{
			"role":    string(msg.Role),
			"content": msg.Content,
		}
	}
	return result
}

func (m *mockAdapter) ConvertFromAPI(apiResp map[string]any) (string, string, error) {
	text, ok := apiResp["text"].(string)
	if !ok {
		return "", "", llm.NewResponseError("text", nil)
	}
	return text, "stop", nil
}

func (m *mockAdapter) ConvertUsage(map[string]any) *llm.TokenUsage {
	return &llm.TokenUsage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30}
}

func (m *mockAdapter) GetSystemMessageHandling() SystemMessageStrategy {
	if m.strategy == "" {
		return SystemInline
	}
	return m.strategy
}

func jsonHandler(t *testing.T, status int, body any) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// BaseClient 测试
// ═══════════════════════════════════════════════════════════════════════════

func TestNewBaseClient(t *testing.T) {
	t.Run("成功创建 BaseClient", func(t *testing.T) {
		client, err := NewBaseClient(&mockConfig{apiKey: "test-key"}, &mockAdapter{})

		require.NoError(t, err)
		require.NotNil(t, client)
		assert.NotNil(t, client.resty)
		assert.NotNil(t, client.Transformer())
	})

	t.Run("配置验证失败", func(t *testing.T) {
		client, err := NewBaseClient(&mockConfig{}, &mockAdapter{})

		require.Error(t, err)
		assert.Nil(t, client)
		assert.True(t, llm.IsConfigError(err))
	})
}

func TestBaseClient_Complete(t *testing.T) {
	t.Run("成功的 Complete 请求", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "test-model", body["model"])

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"text": "Test response", "model": "test-model-0613"})
		}))
		defer server.Close()

		client, err := NewBaseClient(&mockConfig{apiKey: "test-key", baseURL: server.URL}, &mockAdapter{})
		require.NoError(t, err)

		builder := &mockRequestBuilder{}
		res, err := client.Complete(context.Background(), "test-model", llm.NewPromptRequest("test-model", "Hello"), builder)

		require.NoError(t, err)
		assert.Equal(t, "Test response", res.Text)
		assert.Equal(t, "stop", res.FinishReason)
		assert.Equal(t, "test-model-0613", res.Model, "优先使用响应中的模型名")
		assert.Equal(t, int64(30), res.Usage.TotalTokens)

		// 纯文本提示被提升为单条 user 消息
		require.Len(t, builder.gotMessages, 1)
		assert.Equal(t, "user", builder.gotMessages[0]["role"])
		assert.Equal(t, "Hello", builder.gotMessages[0]["content"])
	})

	t.Run("SystemSeparate 策略把系统文本交给构建器", func(t *testing.T) {
		server := httptest.NewServer(jsonHandler(t, http.StatusOK, map[string]any{"text": "ok"}))
		defer server.Close()

		client, err := NewBaseClient(&mockConfig{apiKey: "k", baseURL: server.URL}, &mockAdapter{strategy: SystemSeparate})
		require.NoError(t, err)

		req := llm.NewConversationRequest("m", llm.Conversation{
			llm.SystemMessage("You are terse."),
			llm.UserMessage("Hi"),
		})
		builder := &mockRequestBuilder{}
		res, err := client.Complete(context.Background(), "m", req, builder)

		require.NoError(t, err)
		assert.Equal(t, "m", res.Model)
		assert.Equal(t, "You are terse.", builder.gotSystem)
		require.Len(t, builder.gotMessages, 1)
		assert.Equal(t, "user", builder.gotMessages[0]["role"])
	})

	t.Run("API 返回错误 (401)", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("X-Request-ID", "req-123")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error": {"message": "Invalid API key"}}`))
		}))
		defer server.Close()

		client, err := NewBaseClient(&mockConfig{apiKey: "invalid", baseURL: server.URL, kind: llm.ProviderGroq}, &mockAdapter{})
		require.NoError(t, err)

		res, err := client.Complete(context.Background(), "m", llm.NewPromptRequest("m", "Hello"), &mockRequestBuilder{})

		require.Error(t, err)
		assert.Nil(t, res)

		apiErr, ok := llm.GetAPIError(err)
		require.True(t, ok)
		assert.Equal(t, 401, apiErr.StatusCode)
		assert.Equal(t, "groq", apiErr.Provider)
		assert.Equal(t, "req-123", apiErr.RequestID)
		assert.Contains(t, apiErr.Response, "Invalid API key")
	})

	t.Run("响应结构错误", func(t *testing.T) {
		server := httptest.NewServer(jsonHandler(t, http.StatusOK, map[string]any{"unexpected": true}))
		defer server.Close()

		client, err := NewBaseClient(&mockConfig{apiKey: "k", baseURL: server.URL}, &mockAdapter{})
		require.NoError(t, err)

		_, err = client.Complete(context.Background(), "m", llm.NewPromptRequest("m", "Hello"), &mockRequestBuilder{})
		require.Error(t, err)
		assert.True(t, llm.IsResponseError(err))
	})

	t.Run("网络错误", func(t *testing.T) {
		server := httptest.NewServer(jsonHandler(t, http.StatusOK, nil))
		url := server.URL
		server.Close()

		client, err := NewBaseClient(&mockConfig{apiKey: "k", baseURL: url}, &mockAdapter{})
		require.NoError(t, err)

		_, err = client.Complete(context.Background(), "m", llm.NewPromptRequest("m", "Hello"), &mockRequestBuilder{})
		require.Error(t, err)
		assert.True(t, llm.IsHTTPError(err))
	})

	t.Run("上下文取消", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		client, err := NewBaseClient(&mockConfig{apiKey: "k", baseURL: server.URL}, &mockAdapter{})
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err = client.Complete(ctx, "m", llm.NewPromptRequest("m", "Hello"), &mockRequestBuilder{})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestBaseClient_Get(t *testing.T) {
	t.Run("成功", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/api/tags", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"models":[{"name":"llama3:latest"}]}`))
		}))
		defer server.Close()

		client, err := NewBaseClient(&mockConfig{apiKey: "k", baseURL: server.URL}, &mockAdapter{})
		require.NoError(t, err)

		var out struct {
			Models []struct {
				Name string `json:"name"`
			} `json:"models"`
		}
		require.NoError(t, client.Get(context.Background(), "/api/tags", &out))
		require.Len(t, out.Models, 1)
		assert.Equal(t, "llama3:latest", out.Models[0].Name)
	})

	t.Run("HTTP 错误", func(t *testing.T) {
		server := httptest.NewServer(jsonHandler(t, http.StatusInternalServerError, map[string]any{"error": "x"}))
		defer server.Close()

		client, err := NewBaseClient(&mockConfig{apiKey: "k", baseURL: server.URL}, &mockAdapter{})
		require.NoError(t, err)

		var out map[string]any
		err = client.Get(context.Background(), "/api/tags", &out)
		require.Error(t, err)
		assert.Equal(t, 500, llm.GetStatusCode(err))
		assert.True(t, llm.IsRetryableError(err))
	})
}

func TestBaseClient_EndpointBuilder(t *testing.T) {
	t.Run("使用自定义端点构建器", func(t *testing.T) {
		client, err := NewBaseClient(&mockConfig{apiKey: "test-key"}, &mockAdapter{})
		require.NoError(t, err)

		client.SetEndpointBuilder(&mockEndpointBuilder{completeEndpoint: "/api/chat"})

		assert.Equal(t, "/api/chat", client.getCompleteEndpoint())
	})

	t.Run("使用默认端点", func(t *testing.T) {
		client, err := NewBaseClient(&mockConfig{apiKey: "test-key"}, &mockAdapter{})
		require.NoError(t, err)

		assert.Equal(t, "/chat/completions", client.getCompleteEndpoint())
	})
}

// ═══════════════════════════════════════════════════════════════════════════
// Mock EndpointBuilder
// ═══════════════════════════════════════════════════════════════════════════

type mockEndpointBuilder struct {
	completeEndpoint string
}

func (m *mockEndpointBuilder) BuildCompleteEndpoint() string {
	return m.completeEndpoint
}

// ═══════════════════════════════════════════════════════════════════════════
// 辅助函数测试
// ═══════════════════════════════════════════════════════════════════════════

func TestGetDefaultTimeout(t *testing.T) {
	t.Run("零超时返回默认值", func(t *testing.T) {
		assert.Equal(t, 120*time.Second, GetDefaultTimeout(0))
	})

	t.Run("非零超时保持不变", func(t *testing.T) {
		assert.Equal(t, 30*time.Second, GetDefaultTimeout(30*time.Second))
	})
}

func TestNewInvalidConfigError(t *testing.T) {
	err := NewInvalidConfigError("model")

	assert.True(t, llm.IsConfigError(err))
	assert.Contains(t, err.Error(), "model")
}

func TestNewMissingAPIKeyError(t *testing.T) {
	err := NewMissingAPIKeyError()

	assert.True(t, llm.IsConfigError(err))
	assert.Contains(t, err.Error(), "API key")
}
