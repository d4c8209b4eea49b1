package core

import (
	"strings"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
)

// ═══════════════════════════════════════════════════════════════════════════
// 协议适配器接口
// ═══════════════════════════════════════════════════════════════════════════

// ProtocolAdapter 协议适配器接口
//
// 以原始 JSON（map）方式与 Provider 通信的协议实现此接口，
// 用于 [BaseClient] 驱动的 Provider（Ollama、Groq）。
//
// 职责边界：
//   - 负责：消息格式转换、响应文本与 token 用量提取、系统消息策略声明
//   - 不负责：HTTP 通信、配置管理、错误包装
type ProtocolAdapter interface {
	// ConvertToAPI 将统一消息转换为 API 请求格式
	//
	// 输入已经过 [NormalizeSystem] 处理。
	ConvertToAPI(messages llm.Conversation) []map[string]any

	// ConvertFromAPI 从 API 响应中提取文本与完成原因
	//
	// 响应结构不符合协议时返回 [llm.ResponseError]。
	ConvertFromAPI(apiResp map[string]any) (text, finishReason string, err error)

	// ConvertUsage 解析 Token 使用量，无 usage 字段时返回 nil
	ConvertUsage(apiResp map[string]any) *llm.TokenUsage

	// GetSystemMessageHandling 返回系统消息处理策略
	GetSystemMessageHandling() SystemMessageStrategy
}

// ═══════════════════════════════════════════════════════════════════════════
// 系统消息策略
// ═══════════════════════════════════════════════════════════════════════════

// SystemMessageStrategy 系统消息处理策略
//
// 定义系统提示（system prompt）如何传递给 API：
//   - SystemInline: 系统消息保留在消息数组中（role=system）
//   - SystemSeparate: 系统消息提取为独立的请求参数
//   - SystemPromoted: 系统消息转换为开头的 user 消息，后跟一条确认性 assistant 消息
type SystemMessageStrategy string

const (
	// SystemInline 系统消息内联在消息数组中
	//
	// 使用场景：OpenAI、Groq、Ollama
	// 格式：[{"role": "system", "content": "..."}, ...]
	SystemInline SystemMessageStrategy = "inline"

	// SystemSeparate 系统消息作为独立参数
	//
	// 使用场景：Anthropic
	// 格式：{"system": "...", "messages": [...]}
	SystemSeparate SystemMessageStrategy = "separate"

	// SystemPromoted 系统消息提升为 user 消息
	//
	// 使用场景：Gemini（多轮对话中不接受 system 角色）
	// 格式：[{"role": "user", "content": "<system>"}, {"role": "assistant", "content": "Understood."}, ...]
	SystemPromoted SystemMessageStrategy = "promoted"
)

// PromotedAck SystemPromoted 策略插入的确认消息
const PromotedAck = "Understood."

// NormalizeSystem 按策略处理对话中的系统消息
//
// 返回处理后的消息与提取出的系统文本（仅 SystemSeparate 非空）。
// 多条系统消息按出现顺序以空行连接；其他消息顺序保持不变。
//
// 边界情况：
//   - SystemSeparate 下若只剩系统消息，系统文本改为单条 user 消息发送
//   - SystemPromoted 下若没有其他消息，不追加确认消息，保证最后一条为 user
func NormalizeSystem(messages llm.Conversation, strategy SystemMessageStrategy) (llm.Conversation, string) {
	if strategy == SystemInline || !messages.HasRole(llm.RoleSystem) {
		return messages.Clone(), ""
	}

	var parts []string
	rest := make(llm.Conversation, 0, len(messages))
	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			if m.Content != "" {
				parts = append(parts, m.Content)
			}
			continue
		}
		rest = append(rest, m)
	}
	system := strings.Join(parts, "\n\n")

	switch strategy {
	case SystemSeparate:
		if len(rest) == 0 && system != "" {
			return llm.Conversation{llm.UserMessage(system)}, ""
		}
		return rest, system

	case SystemPromoted:
		if system == "" {
			return rest, ""
		}
		out := make(llm.Conversation, 0, len(rest)+2)
		out = append(out, llm.UserMessage(system))
		if len(rest) > 0 {
			out = append(out, llm.AssistantMessage(PromotedAck))
		}
		return append(out, rest...), ""

	default:
		return messages.Clone(), ""
	}
}
