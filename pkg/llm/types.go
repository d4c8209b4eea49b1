package llm

import (
	"context"
	"fmt"
)

// ═══════════════════════════════════════════════════════════════════════════
// Provider 接口
// ═══════════════════════════════════════════════════════════════════════════

// Provider 单个 ProviderKind 的适配器
//
// 实现负责把统一的 [Request] 翻译成该 Provider 的线上调用，并把响应翻译回 [Result]。
// 所有失败在边界处包装为 [ProviderError]（或 [UnsupportedFeatureError]），
// 不允许原始传输错误逸出。实现必须可被并发调用。
type Provider interface {
	// Kind 返回适配器所服务的 ProviderKind
	Kind() ProviderKind

	// Invoke 执行一次同步调用
	Invoke(ctx context.Context, req *Request) (*Result, error)
}

// ContentParser 将模型原始文本解析为最终内容
//
// 由 pkg/parser 提供实现；Router 在创建 Envelope 之前调用。
type ContentParser interface {
	Parse(text string) (any, error)
}

// ═══════════════════════════════════════════════════════════════════════════
// 请求
// ═══════════════════════════════════════════════════════════════════════════

// OutputSchema 结构化输出描述
//
// 核心层不定义也不校验 Schema，只原样转交给适配器。
type OutputSchema struct {
	// Name Schema 名称，部分 Provider 要求提供（如 OpenAI json_schema、Anthropic tool 名）
	Name string `json:"name" yaml:"name"`

	// Description 描述，可选
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Schema JSON Schema 定义
	Schema map[string]any `json:"schema" yaml:"schema"`
}

// SchemaName 返回 Schema 名称，为空时使用 "output"
func (s *OutputSchema) SchemaName() string {
	if s == nil || s.Name == "" {
		return "output"
	}
	return s.Name
}

// Request 统一请求
//
// Prompt 与 Conversation 二选一。请求一经提交不再修改，
// 调用方应通过 [NewPromptRequest] / [NewConversationRequest] 构造。
type Request struct {
	// Prompt 纯文本提示，适配器会将其提升为单条 user 消息
	Prompt string `json:"prompt,omitempty"`

	// Conversation 多轮对话
	Conversation Conversation `json:"conversation,omitempty"`

	// Model 模型名（可为别名）；为空时使用 Router 的模型
	Model string `json:"model,omitempty"`

	// Schema 结构化输出描述，可选
	Schema *OutputSchema `json:"schema,omitempty"`

	// Quiet 关闭详细日志；零值即 verbose
	Quiet bool `json:"quiet,omitempty"`

	// MaxTokens 覆盖模型默认的 token 预算，0 表示使用查表值
	MaxTokens int `json:"max_tokens,omitempty"`

	// Parser 内容解析器，可选
	Parser ContentParser `json:"-"`
}

// NewPromptRequest 创建纯文本请求
func NewPromptRequest(model, prompt string) *Request {
	return &Request{Model: model, Prompt: prompt}
}

// NewConversationRequest 创建多轮对话请求，对话会被复制
func NewConversationRequest(model string, conv Conversation) *Request {
	return &Request{Model: model, Conversation: conv.Clone()}
}

// Verbose 是否输出详细日志
func (r *Request) Verbose() bool {
	return !r.Quiet
}

// IsConversation 是否为多轮对话请求
func (r *Request) IsConversation() bool {
	return len(r.Conversation) > 0
}

// Validate 检查请求形状
func (r *Request) Validate() error {
	if r == nil {
		return NewRequestError("validate", fmt.Errorf("request is nil"))
	}
	if r.Prompt != "" && len(r.Conversation) > 0 {
		return NewRequestError("validate", fmt.Errorf("request carries both prompt and conversation"))
	}
	if r.Prompt == "" && len(r.Conversation) == 0 {
		return NewRequestError("validate", fmt.Errorf("request carries neither prompt nor conversation"))
	}
	if len(r.Conversation) > 0 {
		return r.Conversation.Validate()
	}
	return nil
}

// Messages 返回归一化后的消息序列
//
// 纯文本提示被提升为单条 user 消息；对话返回副本。
func (r *Request) Messages() Conversation {
	if len(r.Conversation) > 0 {
		return r.Conversation.Clone()
	}
	return Conversation{UserMessage(r.Prompt)}
}

// WithModel 返回替换模型后的副本
func (r *Request) WithModel(model string) *Request {
	cp := *r
	cp.Conversation = r.Conversation.Clone()
	cp.Model = model
	return &cp
}

// ═══════════════════════════════════════════════════════════════════════════
// 结果
// ═══════════════════════════════════════════════════════════════════════════

// Result 适配器返回的归一化结果
type Result struct {
	// Text 模型返回的原始文本
	Text string `json:"text"`

	// Structured 结构化输出（仅在请求携带 Schema 时）
	Structured map[string]any `json:"structured,omitempty"`

	// Model 实际使用的模型
	Model string `json:"model,omitempty"`

	// FinishReason 完成原因
	FinishReason string `json:"finish_reason,omitempty"`

	// Usage Token 使用量
	Usage *TokenUsage `json:"usage,omitempty"`
}

// Content 返回结果内容：结构化输出优先，否则为文本
func (r *Result) Content() any {
	if r.Structured != nil {
		return r.Structured
	}
	return r.Text
}

// TokenUsage Token 使用量
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}
