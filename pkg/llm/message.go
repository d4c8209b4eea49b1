package llm

import "fmt"

// ═══════════════════════════════════════════════════════════════════════════
// 角色定义
// ═══════════════════════════════════════════════════════════════════════════

// Role 消息角色
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid 是否为已知角色
func (r Role) Valid() bool {
	return r == RoleSystem || r == RoleUser || r == RoleAssistant
}

// ═══════════════════════════════════════════════════════════════════════════
// 消息结构
// ═══════════════════════════════════════════════════════════════════════════

// Message 对话消息
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// SystemMessage 创建系统消息
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage 创建用户消息
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage 创建助手消息
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ═══════════════════════════════════════════════════════════════════════════
// 对话
// ═══════════════════════════════════════════════════════════════════════════

// Conversation 有序消息序列，最新消息在末尾
type Conversation []Message

// Clone 返回独立副本
func (c Conversation) Clone() Conversation {
	if c == nil {
		return nil
	}
	out := make(Conversation, len(c))
	copy(out, c)
	return out
}

// Append 返回追加消息后的新对话，不修改原对话
func (c Conversation) Append(msgs ...Message) Conversation {
	out := make(Conversation, 0, len(c)+len(msgs))
	out = append(out, c...)
	return append(out, msgs...)
}

// Last 返回最后一条消息
func (c Conversation) Last() (Message, bool) {
	if len(c) == 0 {
		return Message{}, false
	}
	return c[len(c)-1], true
}

// HasRole 是否包含指定角色的消息
func (c Conversation) HasRole(role Role) bool {
	for _, m := range c {
		if m.Role == role {
			return true
		}
	}
	return false
}

// Validate 检查角色合法且对话非空
func (c Conversation) Validate() error {
	if len(c) == 0 {
		return NewRequestError("validate", fmt.Errorf("conversation is empty"))
	}
	for i, m := range c {
		if !m.Role.Valid() {
			return NewRequestError("validate", fmt.Errorf("message %d has unknown role %q", i, m.Role))
		}
	}
	return nil
}
