package llm

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// ═══════════════════════════════════════════════════════════════════════════
// 状态
// ═══════════════════════════════════════════════════════════════════════════

// Status Envelope 状态
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// ═══════════════════════════════════════════════════════════════════════════
// Envelope
// ═══════════════════════════════════════════════════════════════════════════

// Envelope 每个请求对应的统一结果
//
// 在适配器返回（成功）或失败的那一刻创建且只创建一次，之后不再修改，
// 返回后归调用方所有。
type Envelope struct {
	// ID 唯一标识
	ID string

	// Content 内容：string、map[string]any、[]any 或 Parser 产出的任意值
	Content any

	// Status 成功或失败
	Status Status

	// Model 目标模型（已解析的 ModelName）
	Model string

	// Provider 服务该请求的 ProviderKind
	Provider ProviderKind

	// Duration 调用耗时
	Duration time.Duration

	// Prompt 原始提示（与 Conversation 二选一）
	Prompt string

	// Conversation 原始对话
	Conversation Conversation

	// Usage Token 使用量，可能为 nil
	Usage *TokenUsage

	// Err 失败原因，成功时为 nil
	Err error
}

// NewSuccessEnvelope 创建成功 Envelope
func NewSuccessEnvelope(req *Request, kind ProviderKind, model string, content any, usage *TokenUsage, d time.Duration) *Envelope {
	env := newEnvelope(req, kind, model, d)
	env.Status = StatusSuccess
	env.Content = content
	env.Usage = usage
	return env
}

// NewFailureEnvelope 创建失败 Envelope
func NewFailureEnvelope(req *Request, kind ProviderKind, model string, err error, d time.Duration) *Envelope {
	env := newEnvelope(req, kind, model, d)
	env.Status = StatusFailure
	env.Err = err
	return env
}

func newEnvelope(req *Request, kind ProviderKind, model string, d time.Duration) *Envelope {
	env := &Envelope{
		ID:       uuid.NewString(),
		Model:    model,
		Provider: kind,
		Duration: d,
	}
	if req != nil {
		env.Prompt = req.Prompt
		env.Conversation = req.Conversation.Clone()
		if env.Model == "" {
			env.Model = req.Model
		}
	}
	return env
}

// Succeeded 是否成功
func (e *Envelope) Succeeded() bool {
	return e != nil && e.Status == StatusSuccess
}

// DurationSeconds 耗时（秒）
func (e *Envelope) DurationSeconds() float64 {
	return e.Duration.Seconds()
}

// Len 内容的长度
//
// 纯文本为字符数，键值结构为键数，有序集合为元素数；
// 其他内容（包括失败时的错误信息）取文本表示的字符数。
func (e *Envelope) Len() int {
	if e == nil {
		return 0
	}
	switch c := e.Content.(type) {
	case nil:
	case string:
		return len([]rune(c))
	default:
		switch v := reflect.ValueOf(c); v.Kind() {
		case reflect.Map, reflect.Slice, reflect.Array:
			return v.Len()
		}
	}
	return len([]rune(e.String()))
}

// Text 内容为纯文本时返回它
func (e *Envelope) Text() (string, bool) {
	s, ok := e.Content.(string)
	return s, ok
}

// String 返回确定性的文本表示
//
// 纯文本原样返回；键值结构以 4 空格缩进的 JSON 输出；
// 有序集合以紧凑 JSON 输出；失败时返回错误信息。
func (e *Envelope) String() string {
	if e == nil {
		return ""
	}
	if e.Status == StatusFailure && e.Content == nil {
		if e.Err != nil {
			return e.Err.Error()
		}
		return ""
	}
	return FormatContent(e.Content)
}

// FormatContent 按 Envelope 规则格式化任意内容
func FormatContent(content any) string {
	switch v := content.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	}

	rv := reflect.ValueOf(content)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map, reflect.Struct:
		b, err := json.MarshalIndent(content, "", "    ")
		if err != nil {
			return fmt.Sprint(content)
		}
		return string(b)
	case reflect.Slice, reflect.Array:
		b, err := json.Marshal(content)
		if err != nil {
			return fmt.Sprint(content)
		}
		return string(b)
	default:
		return fmt.Sprint(content)
	}
}

// envelopeJSON JSON 表示
type envelopeJSON struct {
	ID              string       `json:"id"`
	Content         any          `json:"content"`
	Status          Status       `json:"status"`
	Model           string       `json:"model"`
	Provider        ProviderKind `json:"provider,omitempty"`
	DurationSeconds float64      `json:"duration_seconds"`
	Prompt          string       `json:"prompt,omitempty"`
	Conversation    Conversation `json:"conversation,omitempty"`
	Usage           *TokenUsage  `json:"usage,omitempty"`
	Error           string       `json:"error,omitempty"`
}

// MarshalJSON 实现 json.Marshaler
func (e *Envelope) MarshalJSON() ([]byte, error) {
	out := envelopeJSON{
		ID:              e.ID,
		Content:         e.Content,
		Status:          e.Status,
		Model:           e.Model,
		Provider:        e.Provider,
		DurationSeconds: e.DurationSeconds(),
		Prompt:          e.Prompt,
		Conversation:    e.Conversation,
		Usage:           e.Usage,
	}
	if e.Err != nil {
		out.Error = e.Err.Error()
	}
	return json.Marshal(out)
}
