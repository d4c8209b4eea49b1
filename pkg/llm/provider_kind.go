package llm

import (
	"fmt"
	"strings"
)

// ProviderKind LLM Provider 类别
//
// 封闭枚举：每个 ModelName 恰好归属于一个 ProviderKind，
// 每个 ProviderKind 恰好对应一个适配器实现。
type ProviderKind string

const (
	// ProviderOpenAI OpenAI 官方 API
	ProviderOpenAI ProviderKind = "openai"

	// ProviderAnthropic Anthropic Claude API
	ProviderAnthropic ProviderKind = "anthropic"

	// ProviderGoogle Google Gemini API
	ProviderGoogle ProviderKind = "google"

	// ProviderOllama Ollama 本地模型
	ProviderOllama ProviderKind = "ollama"

	// ProviderGroq Groq 快速推理 API（OpenAI 兼容）
	ProviderGroq ProviderKind = "groq"

	// ProviderTesting 测试桩，返回固定文本
	ProviderTesting ProviderKind = "testing"
)

// AllProviderKinds 按固定顺序返回全部 ProviderKind
func AllProviderKinds() []ProviderKind {
	return []ProviderKind{
		ProviderOpenAI,
		ProviderAnthropic,
		ProviderGoogle,
		ProviderOllama,
		ProviderGroq,
		ProviderTesting,
	}
}

// ParseProviderKind 解析 ProviderKind，大小写不敏感
//
// "gemini" 作为 "google" 的同义词接受。
func ParseProviderKind(s string) (ProviderKind, error) {
	k := ProviderKind(strings.ToLower(strings.TrimSpace(s)))
	if k == "gemini" {
		return ProviderGoogle, nil
	}
	if k.Valid() {
		return k, nil
	}
	return "", fmt.Errorf("unknown provider kind %q", s)
}

// String 返回字符串表示
func (k ProviderKind) String() string {
	return string(k)
}

// Valid 是否为已知的 ProviderKind
func (k ProviderKind) Valid() bool {
	switch k {
	case ProviderOpenAI, ProviderAnthropic, ProviderGoogle,
		ProviderOllama, ProviderGroq, ProviderTesting:
		return true
	default:
		return false
	}
}

// RequiresSecret 是否需要 API Key
func (k ProviderKind) RequiresSecret() bool {
	switch k {
	case ProviderOllama, ProviderTesting:
		return false
	default:
		return true
	}
}

// SecretEnv 返回读取 API Key 的环境变量名（按优先级）
func (k ProviderKind) SecretEnv() []string {
	switch k {
	case ProviderOpenAI:
		return []string{"OPENAI_API_KEY"}
	case ProviderAnthropic:
		return []string{"ANTHROPIC_API_KEY"}
	case ProviderGoogle:
		return []string{"GOOGLE_API_KEY", "GEMINI_API_KEY"}
	case ProviderGroq:
		return []string{"GROQ_API_KEY"}
	default:
		return nil
	}
}

// DefaultBaseURL 返回默认 Base URL
//
// SDK 驱动的 Provider 返回空字符串，表示沿用 SDK 内置地址。
func (k ProviderKind) DefaultBaseURL() string {
	switch k {
	case ProviderOllama:
		return "http://localhost:11434"
	case ProviderGroq:
		return "https://api.groq.com/openai/v1"
	default:
		return ""
	}
}
