package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_Messages(t *testing.T) {
	t.Run("纯文本提示提升为单条 user 消息", func(t *testing.T) {
		req := NewPromptRequest("gpt", "sing a song")
		msgs := req.Messages()

		require.Len(t, msgs, 1)
		assert.Equal(t, RoleUser, msgs[0].Role)
		assert.Equal(t, "sing a song", msgs[0].Content)
	})

	t.Run("对话保持顺序", func(t *testing.T) {
		conv := Conversation{SystemMessage("s"), UserMessage("u"), AssistantMessage("a"), UserMessage("u2")}
		req := NewConversationRequest("claude", conv)

		assert.Equal(t, conv, req.Messages())
	})

	t.Run("构造时复制对话", func(t *testing.T) {
		conv := Conversation{UserMessage("u")}
		req := NewConversationRequest("claude", conv)
		conv[0].Content = "mutated"

		assert.Equal(t, "u", req.Conversation[0].Content)
	})
}

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     *Request
		wantErr bool
	}{
		{"nil 请求", nil, true},
		{"空请求", &Request{}, true},
		{"同时携带提示和对话", &Request{Prompt: "p", Conversation: Conversation{UserMessage("u")}}, true},
		{"纯文本", &Request{Prompt: "p"}, false},
		{"对话", &Request{Conversation: Conversation{UserMessage("u")}}, false},
		{"对话角色非法", &Request{Conversation: Conversation{{Role: "bot", Content: "u"}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsRequestError(err))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRequest_Verbose(t *testing.T) {
	req := NewPromptRequest("gpt", "p")
	assert.True(t, req.Verbose(), "默认输出详细日志")

	req.Quiet = true
	assert.False(t, req.Verbose())
}

func TestRequest_WithModel(t *testing.T) {
	req := NewConversationRequest("", Conversation{UserMessage("u")})
	cp := req.WithModel("gpt-4o")

	assert.Equal(t, "gpt-4o", cp.Model)
	assert.Empty(t, req.Model)
	cp.Conversation[0].Content = "x"
	assert.Equal(t, "u", req.Conversation[0].Content)
}

func TestResult_Content(t *testing.T) {
	assert.Equal(t, "text", (&Result{Text: "text"}).Content())

	structured := map[string]any{"name": "John Henry"}
	assert.Equal(t, structured, (&Result{Text: "{}", Structured: structured}).Content())
}

func TestOutputSchema_SchemaName(t *testing.T) {
	var nilSchema *OutputSchema
	assert.Equal(t, "output", nilSchema.SchemaName())
	assert.Equal(t, "output", (&OutputSchema{}).SchemaName())
	assert.Equal(t, "song", (&OutputSchema{Name: "song"}).SchemaName())
}
