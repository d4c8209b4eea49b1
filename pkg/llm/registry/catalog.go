package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
)

//go:embed catalog.yaml
var builtinCatalogYAML []byte

// Catalog 模型目录文件结构
type Catalog struct {
	// DefaultTokenBudget 未在 TokenBudgets 中列出的模型使用的预算
	DefaultTokenBudget int `yaml:"default_token_budget" json:"default_token_budget"`

	// Providers 每个 Provider 接受的模型，按声明顺序
	Providers map[llm.ProviderKind][]string `yaml:"providers" json:"providers"`

	// Aliases 短名 -> 规范模型名，精确匹配
	Aliases map[string]string `yaml:"aliases" json:"aliases"`

	// TokenBudgets 模型 -> 输出 token 预算
	TokenBudgets map[string]int `yaml:"token_budgets" json:"token_budgets"`
}

// DefaultTokenBudget 目录未设置时使用的预算
const DefaultTokenBudget = 1024

// LoadFile 从文件加载目录，按扩展名识别 yaml/json
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return LoadBytes(data, filepath.Ext(path))
}

// LoadBytes 从字节数据加载目录
func LoadBytes(data []byte, format string) (*Catalog, error) {
	cat := &Catalog{}

	format = strings.TrimPrefix(strings.ToLower(format), ".")

	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, cat); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, cat); err != nil {
			return nil, fmt.Errorf("parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s (expected yaml, yml, or json)", format)
	}

	return cat, nil
}

// Builtin 加载内嵌目录
func Builtin() (*Catalog, error) {
	return LoadBytes(builtinCatalogYAML, "yaml")
}
