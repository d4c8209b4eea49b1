package llm

import (
	"os"
	"strings"
	"sync"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// Provider 配置
// ═══════════════════════════════════════════════════════════════════════════

// Config 单个 Provider 的客户端配置
//
// 基本用法：
//
//	cfg := llm.DefaultConfig(llm.ProviderGroq)
//	cfg.APIKey = "gsk-xxx"
//
// 通过 viper 加载时使用 mapstructure 标签：
//
//	providers:
//	  ollama:
//	    base-url: http://gpu-box:11434
//	    timeout: 5m
type Config struct {
	// Kind Provider 类别
	Kind ProviderKind `mapstructure:"kind"`

	// APIKey（Ollama 与测试桩除外，其他 Provider 必需）
	APIKey string `mapstructure:"api-key"`

	// BaseURL 为空时使用 Kind 的默认地址
	BaseURL string `mapstructure:"base-url"`

	// Timeout 传输层超时，0 表示使用默认值
	Timeout time.Duration `mapstructure:"timeout"`

	// Headers 额外请求头
	Headers map[string]string `mapstructure:"headers"`
}

// DefaultTimeout 默认传输超时
const DefaultTimeout = 120 * time.Second

// DefaultConfig 返回指定 Provider 的默认配置
func DefaultConfig(kind ProviderKind) Config {
	return Config{
		Kind:    kind,
		BaseURL: kind.DefaultBaseURL(),
		Timeout: DefaultTimeout,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 凭据来源
// ═══════════════════════════════════════════════════════════════════════════

// CredentialSource 按 Provider 提供密钥
type CredentialSource interface {
	// Secret 返回 Provider 的密钥，不存在时 ok 为 false
	Secret(kind ProviderKind) (secret string, ok bool)
}

// EnvCredentials 从环境变量读取密钥
//
// 变量名见 [ProviderKind.SecretEnv]。
type EnvCredentials struct {
	// Lookup 可替换的环境变量查询函数，默认 os.LookupEnv
	Lookup func(key string) (string, bool)
}

// Secret 实现 CredentialSource
func (e EnvCredentials) Secret(kind ProviderKind) (string, bool) {
	lookup := e.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, key := range kind.SecretEnv() {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// MapCredentials 内存中的密钥表，可并发读写
type MapCredentials struct {
	mu      sync.RWMutex
	secrets map[ProviderKind]string
}

// NewMapCredentials 创建内存密钥表
func NewMapCredentials(secrets map[ProviderKind]string) *MapCredentials {
	m := &MapCredentials{secrets: make(map[ProviderKind]string, len(secrets))}
	for k, v := range secrets {
		m.secrets[k] = v
	}
	return m
}

// Set 设置密钥
func (m *MapCredentials) Set(kind ProviderKind, secret string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[kind] = secret
}

// Secret 实现 CredentialSource
func (m *MapCredentials) Secret(kind ProviderKind) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.secrets[kind]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// ChainCredentials 依次查询多个来源，返回第一个命中
type ChainCredentials []CredentialSource

// Secret 实现 CredentialSource
func (c ChainCredentials) Secret(kind ProviderKind) (string, bool) {
	for _, src := range c {
		if src == nil {
			continue
		}
		if v, ok := src.Secret(kind); ok {
			return v, true
		}
	}
	return "", false
}
