package core

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
)

var errEmptyBody = errors.New("empty response body")

// ═══════════════════════════════════════════════════════════════════════════
// 类型转换辅助函数
// ═══════════════════════════════════════════════════════════════════════════

// GetInt64 将 any 类型安全转换为 int64
//
// 支持的输入类型：
//   - float64: JSON 数字的默认类型
//   - int: Go 原生整数
//   - int64: Go 64位整数
//
// 其他类型返回 0（零值）。
//
// 示例：
//
//	usage := apiResp["usage"].(map[string]any)
//	inputTokens := GetInt64(usage["prompt_tokens"])  // 处理 float64
func GetInt64(val any) int64 {
	switch v := val.(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}

// GetString 将 any 类型安全转换为 string
//
// 其他类型返回 ""（空字符串）。
func GetString(val any) string {
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}

// GetMap 将 any 类型安全转换为 map[string]any
func GetMap(val any) (map[string]any, bool) {
	m, ok := val.(map[string]any)
	return m, ok
}

// GetStrings 将 []string 或 JSON 解码得到的 []any 转换为 []string
//
// 非字符串元素被跳过，其他类型返回 nil。
func GetStrings(val any) []string {
	switch list := val.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// StripCodeFence 去除模型输出外层的 Markdown 代码块
//
// 部分模型在要求 JSON 输出时仍会包裹 ```json ... ```。
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		return strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// DecodeStructured 将模型输出解析为 JSON 对象
//
// 先去除代码块包裹；顶层不是对象时返回 [llm.ResponseError]。
func DecodeStructured(text string) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal([]byte(StripCodeFence(text)), &out); err != nil {
		return nil, llm.NewResponseError("structured", err)
	}
	if out == nil {
		return nil, llm.NewResponseError("structured", errEmptyBody)
	}
	return out, nil
}
