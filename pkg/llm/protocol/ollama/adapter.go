package ollama

import (
	"errors"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/core"
)

// ChatEndpoint Ollama 对话端点
const ChatEndpoint = "/api/chat"

// TagsEndpoint Ollama 本地模型列表端点
const TagsEndpoint = "/api/tags"

// ═══════════════════════════════════════════════════════════════════════════
// Ollama 协议适配器
// ═══════════════════════════════════════════════════════════════════════════

// Adapter Ollama 协议适配器
//
// 同时实现 core.ProtocolAdapter、core.RequestBuilder 与 core.EndpointBuilder。
type Adapter struct{}

// NewAdapter 创建 Ollama 协议适配器
func NewAdapter() *Adapter {
	return &Adapter{}
}

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

// BuildRequest 构建 /api/chat 请求体
func (a *Adapter) BuildRequest(model string, messages []map[string]any, _ string, req *llm.Request) (map[string]any, error) {
	body := map[string]any{
		"model":    model,
		"messages": messages,
		"stream":   false,
	}
	if req.MaxTokens > 0 {
		body["options"] = map[string]any{"num_predict": req.MaxTokens}
	}
	return body, nil
}

// BuildCompleteEndpoint 返回 /api/chat
func (a *Adapter) BuildCompleteEndpoint() string {
	return ChatEndpoint
}

// ConvertFromAPI 提取 message.content 与 done_reason
func (a *Adapter) ConvertFromAPI(resp map[string]any) (string, string, error) {
	if msg := core.GetString(resp["error"]); msg != "" {
		return "", "", llm.NewResponseError("error", errors.New(msg))
	}
	message, ok := core.GetMap(resp["message"])
	if !ok {
		return "", "", llm.NewResponseError("message", nil)
	}
	return core.GetString(message["content"]), core.GetString(resp["done_reason"]), nil
}

// ConvertUsage 解析 prompt_eval_count / eval_count
func (a *Adapter) ConvertUsage(resp map[string]any) *llm.TokenUsage {
	_, hasPrompt := resp["prompt_eval_count"]
	_, hasEval := resp["eval_count"]
	if !hasPrompt && !hasEval {
		return nil
	}

	input := core.GetInt64(resp["prompt_eval_count"])
	output := core.GetInt64(resp["eval_count"])
	return &llm.TokenUsage{
		InputTokens:  input,
		OutputTokens: output,
		TotalTokens:  input + output,
	}
}

// GetSystemMessageHandling Ollama 使用 SystemInline
func (a *Adapter) GetSystemMessageHandling() core.SystemMessageStrategy {
	return core.SystemInline
}

// ═══════════════════════════════════════════════════════════════════════════
// 模型列表
// ═══════════════════════════════════════════════════════════════════════════

// TagsResponse GET /api/tags 的响应
type TagsResponse struct {
	Models []TagModel `json:"models"`
}

// TagModel 本地已拉取的模型
type TagModel struct {
	Name       string `json:"name"`
	Model      string `json:"model"`
	ModifiedAt string `json:"modified_at"`
	Size       int64  `json:"size"`
	Digest     string `json:"digest"`
}

// Names 返回模型名列表，保持服务端顺序
func (r *TagsResponse) Names() []string {
	names := make([]string, 0, len(r.Models))
	for _, m := range r.Models {
		name := m.Name
		if name == "" {
			name = m.Model
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

var (
	_ core.ProtocolAdapter = (*Adapter)(nil)
	_ core.RequestBuilder  = (*Adapter)(nil)
	_ core.EndpointBuilder = (*Adapter)(nil)
)
