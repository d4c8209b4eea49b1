package openai

import (
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/core"
)

// ═══════════════════════════════════════════════════════════════════════════
// OpenAI 兼容协议适配器
// ═══════════════════════════════════════════════════════════════════════════

// Adapter OpenAI Chat Completions 协议适配器
//
// 实现 core.ProtocolAdapter 与 core.RequestBuilder 接口，
// 供以原始 JSON 访问 OpenAI 兼容端点的 Provider 使用（如 Groq）。
//
// 协议要点：
//  1. 系统消息：内联在消息数组中
//  2. 结构化输出：response_format.type = "json_schema"
//  3. Token 字段名：prompt_tokens, completion_tokens
type Adapter struct{}

// NewAdapter 创建 OpenAI 协议适配器
func NewAdapter() *Adapter {
	return &Adapter{}
}

// ═══════════════════════════════════════════════════════════════════════════
// ConvertToAPI - 消息转换为 OpenAI 格式
// ═══════════════════════════════════════════════════════════════════════════

// ConvertToAPI 将统一消息转换为 {"role", "content"} 数组
func (a *Adapter) ConvertToAPI(messages llm.Conversation) []map[string]any {
	result := make([]map[string]any, 0, len(messages))
	for _, msg := range messages {
		result = append(result, map[string]any{
			"role":    string(msg.Role),
			"content": msg.Content,
		})
	}
	return result
}

// ═══════════════════════════════════════════════════════════════════════════
// BuildRequest - 请求体
// ═══════════════════════════════════════════════════════════════════════════

// BuildRequest 构建 /chat/completions 请求体
//
// SystemInline 策略下 system 恒为空，忽略。
func (a *Adapter) BuildRequest(model string, messages []map[string]any, _ string, req *llm.Request) (map[string]any, error) {
	body := map[string]any{
		"model":    model,
		"messages": messages,
		"stream":   false,
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if req.Schema != nil {
		body["response_format"] = ResponseFormat(req.Schema)
	}
	return body, nil
}

// ResponseFormat 构建 json_schema 类型的 response_format
func ResponseFormat(schema *llm.OutputSchema) map[string]any {
	jsonSchema := map[string]any{
		"name":   schema.SchemaName(),
		"schema": schema.Schema,
		"strict": true,
	}
	if schema.Description != "" {
		jsonSchema["description"] = schema.Description
	}
	return map[string]any{
		"type":        "json_schema",
		"json_schema": jsonSchema,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// ConvertFromAPI - 解析 OpenAI 响应
// ═══════════════════════════════════════════════════════════════════════════

// ConvertFromAPI 提取 choices[0] 的文本与完成原因
//
// OpenAI 响应格式：
//
//	{
//	  "choices": [{
//	    "message": {"role": "assistant", "content": "..."},
//	    "finish_reason": "stop"
//	  }]
//	}
func (a *Adapter) ConvertFromAPI(resp map[string]any) (string, string, error) {
	choices, _ := resp["choices"].([]any)
	if len(choices) == 0 {
		return "", "", llm.NewResponseError("choices", nil)
	}

	choice, ok := core.GetMap(choices[0])
	if !ok {
		return "", "", llm.NewResponseError("choices[0]", nil)
	}
	message, ok := core.GetMap(choice["message"])
	if !ok {
		return "", "", llm.NewResponseError("choices[0].message", nil)
	}

	return core.GetString(message["content"]), core.GetString(choice["finish_reason"]), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// ConvertUsage - 解析 Token 使用量
// ═══════════════════════════════════════════════════════════════════════════

// ConvertUsage 解析 OpenAI 的 Token 使用量
//
// OpenAI 字段名：prompt_tokens, completion_tokens, total_tokens
func (a *Adapter) ConvertUsage(resp map[string]any) *llm.TokenUsage {
	usage, ok := core.GetMap(resp["usage"])
	if !ok {
		return nil
	}

	result := &llm.TokenUsage{
		InputTokens:  core.GetInt64(usage["prompt_tokens"]),
		OutputTokens: core.GetInt64(usage["completion_tokens"]),
		TotalTokens:  core.GetInt64(usage["total_tokens"]),
	}
	if result.TotalTokens == 0 {
		result.TotalTokens = result.InputTokens + result.OutputTokens
	}
	return result
}

// GetSystemMessageHandling OpenAI 使用 SystemInline：系统消息作为普通消息
func (a *Adapter) GetSystemMessageHandling() core.SystemMessageStrategy {
	return core.SystemInline
}

var (
	_ core.ProtocolAdapter = (*Adapter)(nil)
	_ core.RequestBuilder  = (*Adapter)(nil)
)
