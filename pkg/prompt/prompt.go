// Package prompt 提供 {{var}} 形式的提示模板
//
// 模板由 fasttemplate 解析，标签两侧的空白被忽略（{{ topic }} 与 {{topic}} 等价）。
// 渲染采用严格模式：模板引用而变量表中缺失的变量返回 [llm.MissingVariableError]，
// 从不静默替换为空串。
//
//	tpl := prompt.Must("sing a song about {{input}}")
//	text, err := tpl.Render(map[string]any{"input": "John Henry"})
package prompt

import (
	"fmt"
	"io"
	"strings"

	"github.com/valyala/fasttemplate"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
)

const (
	startTag = "{{"
	endTag   = "}}"
)

// Template 已解析的提示模板，可并发渲染
type Template struct {
	text string
	tpl  *fasttemplate.Template
	vars []string

	// instructions 渲染后追加的格式说明
	instructions string
}

// New 解析模板，标签未闭合时返回错误
func New(text string) (*Template, error) {
	tpl, err := fasttemplate.NewTemplate(text, startTag, endTag)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	t := &Template{text: text, tpl: tpl}
	seen := make(map[string]bool)
	tpl.ExecuteFuncString(func(_ io.Writer, tag string) (int, error) {
		name := strings.TrimSpace(tag)
		if !seen[name] {
			seen[name] = true
			t.vars = append(t.vars, name)
		}
		return 0, nil
	})
	return t, nil
}

// Must 解析模板，失败时 panic
func Must(text string) *Template {
	t, err := New(text)
	if err != nil {
		panic(err)
	}
	return t
}

// Variables 模板引用的变量名（按首次出现顺序）
func (t *Template) Variables() []string {
	out := make([]string, len(t.vars))
	copy(out, t.vars)
	return out
}

// String 返回原始模板文本
func (t *Template) String() string {
	return t.text
}

// WithInstructions 返回在渲染结果末尾追加 s 的副本
func (t *Template) WithInstructions(s string) *Template {
	cp := *t
	cp.instructions = s
	return &cp
}

// Render 使用变量表渲染模板
//
// 非字符串值按 fmt.Sprint 格式化。
func (t *Template) Render(vars map[string]any) (string, error) {
	out, err := t.tpl.ExecuteFuncStringWithErr(func(w io.Writer, tag string) (int, error) {
		name := strings.TrimSpace(tag)
		v, ok := vars[name]
		if !ok {
			return 0, llm.NewMissingVariableError(name)
		}
		switch s := v.(type) {
		case string:
			return io.WriteString(w, s)
		case nil:
			return 0, nil
		default:
			return io.WriteString(w, fmt.Sprint(s))
		}
	})
	if err != nil {
		return "", err
	}
	return out + t.instructions, nil
}
