package stub

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/valyala/fasttemplate"
	"gopkg.in/yaml.v3"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
)

//go:embed polonius.yaml
var defaultScriptYAML []byte

// ═══════════════════════════════════════════════════════════════════════════
// 脚本文件
// ═══════════════════════════════════════════════════════════════════════════

// Script 桩响应脚本
//
// 批量请求并发执行，到达顺序不确定，按内容匹配的 Rules 可以为每个请求
// 给出确定的响应；Responses 队列适合顺序执行的多轮对话。
//
//	default_response: "..."
//	delay: 20ms
//	rules:
//	  - contains: sky
//	    reply: "Rayleigh scattering, {{input}}"
//	  - contains: flaky
//	    error: upstream overloaded
//	    status: 503
//	responses:
//	  - "first turn"
//	  - "second turn"
type Script struct {
	// DefaultResponse 没有规则命中且队列为空时的响应
	DefaultResponse string `yaml:"default_response" json:"default_response"`

	// Responses 响应队列（依次返回，用完后循环）
	Responses []string `yaml:"responses,omitempty" json:"responses,omitempty"`

	// Rules 按最后一条消息内容匹配，第一条命中的规则生效
	Rules []Rule `yaml:"rules,omitempty" json:"rules,omitempty"`

	// Delay 响应延迟（如 "100ms", "1s"）
	Delay string `yaml:"delay,omitempty" json:"delay,omitempty"`

	// Error 每次调用都返回的错误
	Error string `yaml:"error,omitempty" json:"error,omitempty"`
}

// Rule 单条匹配规则
type Rule struct {
	// Contains 最后一条消息包含此子串时命中（区分大小写）
	Contains string `yaml:"contains" json:"contains"`

	// Reply 响应文本，支持 {{input}} 与 {{model}}
	Reply string `yaml:"reply,omitempty" json:"reply,omitempty"`

	// Error 非空时返回错误而不是响应
	Error string `yaml:"error,omitempty" json:"error,omitempty"`

	// Status 与 Error 同时设置时返回该状态码的 [llm.APIError]
	Status int `yaml:"status,omitempty" json:"status,omitempty"`
}

// LoadScript 从文件加载脚本，按扩展名识别 yaml/json
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stub script: %w", err)
	}
	return ParseScript(data, filepath.Ext(path))
}

// ParseScript 解析脚本并校验
func ParseScript(data []byte, format string) (*Script, error) {
	s := &Script{}

	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s (expected yaml, yml, or json)", format)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate 检查延迟格式与规则
func (s *Script) Validate() error {
	if s.Delay != "" {
		if _, err := time.ParseDuration(s.Delay); err != nil {
			return fmt.Errorf("invalid delay %q: %w", s.Delay, err)
		}
	}
	for i, r := range s.Rules {
		if r.Contains == "" {
			return fmt.Errorf("rule %d: contains is required", i)
		}
		if r.Status != 0 && r.Error == "" {
			return fmt.Errorf("rule %d: status requires error", i)
		}
	}
	return nil
}

// DefaultScript 内嵌脚本，响应为 [Polonius]
func DefaultScript() *Script {
	s, err := ParseScript(defaultScriptYAML, "yaml")
	if err != nil {
		panic(err)
	}
	return s
}

// WithScript 应用脚本
func WithScript(s *Script) Option {
	return func(c *Client) {
		if s != nil {
			applyScript(c, s)
		}
	}
}

// WithScriptFile 从文件加载脚本
//
// 加载失败时错误会在每次 Invoke 时返回；需要尽早失败时先调用 [LoadScript]。
func WithScriptFile(path string) Option {
	return func(c *Client) {
		s, err := LoadScript(path)
		if err != nil {
			c.err = err
			return
		}
		applyScript(c, s)
	}
}

func applyScript(c *Client, s *Script) {
	if s.DefaultResponse != "" {
		c.response = strings.TrimSpace(s.DefaultResponse)
	}
	if len(s.Responses) > 0 {
		c.responses = append([]string(nil), s.Responses...)
	}
	if len(s.Rules) > 0 {
		c.rules = append([]Rule(nil), s.Rules...)
	}
	if d, err := time.ParseDuration(s.Delay); err == nil {
		c.delay = d
	}
	if s.Error != "" {
		c.err = errors.New(s.Error)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 规则匹配与渲染
// ═══════════════════════════════════════════════════════════════════════════

// match 返回第一条命中的规则
func match(rules []Rule, input string) (Rule, bool) {
	for _, r := range rules {
		if strings.Contains(input, r.Contains) {
			return r, true
		}
	}
	return Rule{}, false
}

// err 规则对应的错误，没有设置 Error 时为 nil
func (r Rule) err() error {
	switch {
	case r.Error == "":
		return nil
	case r.Status != 0:
		return llm.NewAPIError(r.Status, r.Error).WithProvider(llm.ProviderTesting.String())
	default:
		return errors.New(r.Error)
	}
}

// render 替换 {{input}} 与 {{model}}，其他标签原样保留
func render(text, input, model string) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	return fasttemplate.ExecuteFuncString(text, "{{", "}}", func(w io.Writer, tag string) (int, error) {
		switch strings.TrimSpace(tag) {
		case "input":
			return w.Write([]byte(input))
		case "model":
			return w.Write([]byte(model))
		default:
			return w.Write([]byte("{{" + tag + "}}"))
		}
	})
}
