// Package parser 将模型原始文本解析为最终内容
//
// 每个 Parser 携带一段格式说明，Chain 把它追加在渲染后的提示末尾，
// 引导模型按可解析的格式作答。Router 在创建 Envelope 之前调用 Parse，
// 解析失败即为失败 Envelope。
//
// 内置解析器：
//   - String: 原样返回文本
//   - JSON: 解析为 JSON 对象（去除代码块，必要时用 jsonrepair 修复）
//   - List: 解析为 JSON 数组
//
// 也可以用 [Func] 包装自定义函数。
package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/core"
)

// Parser 解析器
type Parser interface {
	// Parse 将模型文本转换为内容
	Parse(text string) (any, error)

	// FormatInstructions 追加到提示末尾的格式说明，可为空
	FormatInstructions() string
}

// ═══════════════════════════════════════════════════════════════════════════
// 格式说明
// ═══════════════════════════════════════════════════════════════════════════

const (
	// JSONInstructions JSON 解析器的格式说明
	JSONInstructions = `

Return your answer as a well-formed JSON object. Only return the JSON object; nothing else.
Do not wrap your answer in code fences like "` + "```json" + `".`

	// ListInstructions 列表解析器的格式说明
	ListInstructions = `

Return your answer as a JSON array of strings, like this: ["item1", "item2", "item3"].
Only return the array; nothing else.`
)

// ═══════════════════════════════════════════════════════════════════════════
// 内置解析器
// ═══════════════════════════════════════════════════════════════════════════

type stringParser struct{}

func (stringParser) Parse(text string) (any, error) { return text, nil }

func (stringParser) FormatInstructions() string { return "" }

type jsonParser struct{}

func (jsonParser) Parse(text string) (any, error) {
	var out map[string]any
	if err := unmarshal(text, &out); err != nil {
		return nil, fmt.Errorf("parse json object: %w", err)
	}
	return out, nil
}

func (jsonParser) FormatInstructions() string { return JSONInstructions }

type listParser struct{}

func (listParser) Parse(text string) (any, error) {
	var out []any
	if err := unmarshal(text, &out); err != nil {
		return nil, fmt.Errorf("parse list: %w", err)
	}
	return out, nil
}

func (listParser) FormatInstructions() string { return ListInstructions }

// String 原样返回文本
func String() Parser { return stringParser{} }

// JSON 解析 JSON 对象
func JSON() Parser { return jsonParser{} }

// List 解析 JSON 数组
func List() Parser { return listParser{} }

// ═══════════════════════════════════════════════════════════════════════════
// 自定义解析器
// ═══════════════════════════════════════════════════════════════════════════

type funcParser struct {
	fn           func(string) (any, error)
	instructions string
}

func (p funcParser) Parse(text string) (any, error) { return p.fn(text) }

func (p funcParser) FormatInstructions() string { return p.instructions }

// Func 用函数创建解析器
func Func(fn func(string) (any, error), instructions string) Parser {
	return funcParser{fn: fn, instructions: instructions}
}

// ByName 按名称返回内置解析器：str、json、list
func ByName(name string) (Parser, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "str", "string", "text":
		return String(), nil
	case "json":
		return JSON(), nil
	case "list":
		return List(), nil
	default:
		return nil, fmt.Errorf("unknown parser %q", name)
	}
}

// unmarshal 先直接解析，失败后修复再解析
func unmarshal(text string, v any) error {
	data := core.StripCodeFence(text)
	if err := json.Unmarshal([]byte(data), v); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(data)
	if err != nil {
		return fmt.Errorf("repair json: %w", err)
	}
	return json.Unmarshal([]byte(repaired), v)
}
