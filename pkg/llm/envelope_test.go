package llm

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ═══════════════════════════════════════════════════════════════════════════
// 文本表示测试
// ═══════════════════════════════════════════════════════════════════════════

func TestEnvelope_String(t *testing.T) {
	req := NewPromptRequest("gpt-4o", "p")

	t.Run("纯文本原样返回", func(t *testing.T) {
		env := NewSuccessEnvelope(req, ProviderOpenAI, "gpt-4o", "hello\nworld", nil, time.Second)
		assert.Equal(t, "hello\nworld", env.String())
	})

	t.Run("键值结构使用 4 空格缩进", func(t *testing.T) {
		env := NewSuccessEnvelope(req, ProviderOpenAI, "gpt-4o", map[string]any{"a": 1}, nil, 0)
		assert.Equal(t, "{\n    \"a\": 1\n}", env.String())
	})

	t.Run("有序集合输出紧凑 JSON", func(t *testing.T) {
		env := NewSuccessEnvelope(req, ProviderOpenAI, "gpt-4o", []any{"a", "b"}, nil, 0)
		assert.Equal(t, `["a","b"]`, env.String())

		env = NewSuccessEnvelope(req, ProviderOpenAI, "gpt-4o", []string{"x"}, nil, 0)
		assert.Equal(t, `["x"]`, env.String())
	})

	t.Run("失败时返回错误信息", func(t *testing.T) {
		env := NewFailureEnvelope(req, ProviderOpenAI, "gpt-4o", errors.New("boom"), 0)
		assert.Equal(t, "boom", env.String())
	})

	t.Run("nil Envelope", func(t *testing.T) {
		var env *Envelope
		assert.Empty(t, env.String())
	})

	t.Run("结果稳定", func(t *testing.T) {
		content := map[string]any{"b": 2, "a": []any{1, 2}}
		env := NewSuccessEnvelope(req, ProviderOpenAI, "gpt-4o", content, nil, 0)
		assert.Equal(t, env.String(), env.String())
	})
}

func TestFormatContent(t *testing.T) {
	type song struct {
		Title string `json:"title"`
	}

	assert.Empty(t, FormatContent(nil))
	assert.Equal(t, "42", FormatContent(42))
	assert.Equal(t, "raw", FormatContent([]byte("raw")))
	assert.Equal(t, "{\n    \"title\": \"x\"\n}", FormatContent(song{Title: "x"}))
	assert.Equal(t, "{\n    \"title\": \"x\"\n}", FormatContent(&song{Title: "x"}))
	assert.Equal(t, "[1,2]", FormatContent([2]int{1, 2}))
}

// ═══════════════════════════════════════════════════════════════════════════
// 字段测试
// ═══════════════════════════════════════════════════════════════════════════

func TestNewSuccessEnvelope(t *testing.T) {
	conv := Conversation{UserMessage("hi")}
	req := NewConversationRequest("claude", conv)
	usage := &TokenUsage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3}

	env := NewSuccessEnvelope(req, ProviderAnthropic, "claude-3-opus-20240229", "ok", usage, 1500*time.Millisecond)

	assert.NotEmpty(t, env.ID)
	assert.True(t, env.Succeeded())
	assert.Equal(t, "claude-3-opus-20240229", env.Model)
	assert.Equal(t, ProviderAnthropic, env.Provider)
	assert.Equal(t, conv, env.Conversation)
	assert.Empty(t, env.Prompt)
	assert.InDelta(t, 1.5, env.DurationSeconds(), 1e-9)
	assert.Equal(t, usage, env.Usage)
	assert.NoError(t, env.Err)
	assert.Equal(t, 2, env.Len())

	text, ok := env.Text()
	assert.True(t, ok)
	assert.Equal(t, "ok", text)
}

func TestNewFailureEnvelope(t *testing.T) {
	req := NewPromptRequest("mistral", "p")
	cause := NewProviderError(ProviderOllama, "connect failed", errors.New("refused"))

	env := NewFailureEnvelope(req, ProviderOllama, "", cause, 0)

	assert.False(t, env.Succeeded())
	assert.Equal(t, StatusFailure, env.Status)
	assert.Equal(t, "mistral", env.Model, "未解析时回落到请求中的模型名")
	assert.Equal(t, "p", env.Prompt)
	assert.True(t, IsProviderError(env.Err))
	assert.Nil(t, env.Content)
}

func TestEnvelope_Len(t *testing.T) {
	tests := []struct {
		name    string
		content any
		want    int
	}{
		{"纯文本按字符计数", "héllo", 5},
		{"键值结构按键数", map[string]any{"name": "Ada", "age": 36, "langs": []any{"en"}}, 3},
		{"有序集合按元素数", []any{"apple", "banana"}, 2},
		{"类型化切片", []string{"a", "b", "c"}, 3},
		{"数字取文本表示", 42, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := NewSuccessEnvelope(nil, ProviderTesting, "polonius", tt.content, nil, 0)
			assert.Equal(t, tt.want, env.Len())
		})
	}

	t.Run("失败时取错误信息长度", func(t *testing.T) {
		env := NewFailureEnvelope(nil, ProviderTesting, "polonius", errors.New("boom"), 0)
		assert.Equal(t, 4, env.Len())
	})

	t.Run("nil Envelope", func(t *testing.T) {
		var env *Envelope
		assert.Equal(t, 0, env.Len())
	})
}

func TestEnvelope_IDUnique(t *testing.T) {
	a := NewSuccessEnvelope(nil, ProviderTesting, "polonius", "x", nil, 0)
	b := NewSuccessEnvelope(nil, ProviderTesting, "polonius", "x", nil, 0)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestEnvelope_MarshalJSON(t *testing.T) {
	req := NewPromptRequest("gpt", "p")
	env := NewFailureEnvelope(req, ProviderOpenAI, "gpt-4o", errors.New("boom"), 2*time.Second)

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "failure", decoded["status"])
	assert.Equal(t, "gpt-4o", decoded["model"])
	assert.Equal(t, "boom", decoded["error"])
	assert.Equal(t, "p", decoded["prompt"])
	assert.InDelta(t, 2.0, decoded["duration_seconds"], 1e-9)
}
