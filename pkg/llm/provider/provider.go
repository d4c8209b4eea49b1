// Package provider 提供 LLM Provider 的统一工厂
//
// 每个 [llm.ProviderKind] 恰好对应一个适配器实现，由 [New] 按类别构造：
//
//	p, err := provider.New(llm.Config{
//	    Kind:   llm.ProviderGroq,
//	    APIKey: "gsk-xxx",
//	})
//
// [Factory] 在此之上提供按类别的惰性单例：同一 Factory 内每个 ProviderKind
// 的客户端只初始化一次，并发首次调用也只初始化一次；缺少密钥只影响该类别。
//
//	f := provider.NewFactory(provider.WithCredentials(llm.EnvCredentials{}))
//	p, err := f.Provider(llm.ProviderAnthropic)
package provider

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/core"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/provider/anthropic"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/provider/gemini"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/provider/groq"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/provider/ollama"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/provider/openai"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/provider/stub"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/registry"
)

// ═══════════════════════════════════════════════════════════════════════════
// 工厂函数
// ═══════════════════════════════════════════════════════════════════════════

// Deps 适配器共享的依赖
type Deps struct {
	// Budgets Token 预算表，通常为 registry.Registry
	Budgets core.TokenBudgeter

	// Logger 为空时各适配器使用 logger.Named(<kind>)
	Logger *slog.Logger
}

// New 创建 Provider
//
// 需要密钥的类别在 cfg.APIKey 为空时返回 [llm.ConfigError]。
func New(cfg llm.Config, deps Deps) (llm.Provider, error) {
	if !cfg.Kind.Valid() {
		return nil, llm.NewConfigError(fmt.Sprintf("unsupported provider kind %q", cfg.Kind), nil)
	}
	if cfg.Kind.RequiresSecret() && cfg.APIKey == "" {
		return nil, llm.NewConfigError(fmt.Sprintf("%s: API key is required", cfg.Kind), nil)
	}

	log := deps.Logger
	if log != nil {
		log = log.With("provider", cfg.Kind.String())
	}

	switch cfg.Kind {
	case llm.ProviderOpenAI:
		return provide(openai.New(&openai.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
			Headers: cfg.Headers,
			Budgets: deps.Budgets,
			Logger:  log,
		}))

	case llm.ProviderAnthropic:
		return provide(anthropic.New(&anthropic.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
			Headers: cfg.Headers,
			Budgets: deps.Budgets,
			Logger:  log,
		}))

	case llm.ProviderGoogle:
		return provide(gemini.New(&gemini.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
			Headers: cfg.Headers,
			Budgets: deps.Budgets,
			Logger:  log,
		}))

	case llm.ProviderOllama:
		return provide(ollama.New(&ollama.Config{
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
			Headers: cfg.Headers,
			Budgets: deps.Budgets,
			Logger:  log,
		}))

	case llm.ProviderGroq:
		return provide(groq.New(&groq.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
			Headers: cfg.Headers,
			Budgets: deps.Budgets,
			Logger:  log,
		}))

	default:
		var opts []stub.Option
		if log != nil {
			opts = append(opts, stub.WithLogger(log))
		}
		return stub.New(opts...), nil
	}
}

// provide 避免把 nil 指针装进非 nil 接口
func provide(p llm.Provider, err error) (llm.Provider, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Must 创建 Provider，失败时 panic
func Must(cfg llm.Config, deps Deps) llm.Provider {
	p, err := New(cfg, deps)
	if err != nil {
		panic(err)
	}
	return p
}

// ═══════════════════════════════════════════════════════════════════════════
// Factory 惰性单例
// ═══════════════════════════════════════════════════════════════════════════

// Factory 按 ProviderKind 缓存客户端
//
// 客户端构造不做网络 I/O，锁只保护槽位表，从不跨越网络往返。
type Factory struct {
	creds   llm.CredentialSource
	configs map[llm.ProviderKind]llm.Config
	deps    Deps

	mu    sync.Mutex
	slots map[llm.ProviderKind]*slot
}

type slot struct {
	once     sync.Once
	provider llm.Provider
	err      error
}

// FactoryOption 配置选项函数
type FactoryOption func(*Factory)

// WithCredentials 设置密钥来源，默认 [llm.EnvCredentials]
func WithCredentials(creds llm.CredentialSource) FactoryOption {
	return func(f *Factory) {
		f.creds = creds
	}
}

// WithConfig 覆盖某个类别的配置（BaseURL、Timeout、Headers 等）
//
// cfg.APIKey 非空时优先于密钥来源。
func WithConfig(cfg llm.Config) FactoryOption {
	return func(f *Factory) {
		f.configs[cfg.Kind] = cfg
	}
}

// WithBudgets 设置 Token 预算表
func WithBudgets(budgets core.TokenBudgeter) FactoryOption {
	return func(f *Factory) {
		f.deps.Budgets = budgets
	}
}

// WithLogger 设置适配器日志
func WithLogger(l *slog.Logger) FactoryOption {
	return func(f *Factory) {
		f.deps.Logger = l
	}
}

// WithProvider 预置某个类别的客户端（常用于注入 stub）
func WithProvider(p llm.Provider) FactoryOption {
	return func(f *Factory) {
		s := &slot{provider: p}
		s.once.Do(func() {})
		f.slots[p.Kind()] = s
	}
}

// NewFactory 创建 Factory
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		creds:   llm.EnvCredentials{},
		configs: make(map[llm.ProviderKind]llm.Config),
		slots:   make(map[llm.ProviderKind]*slot),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Provider 返回 kind 对应的客户端，首次调用时构造
//
// 构造失败的结果同样被缓存：缺少密钥是启动期错误，不会随请求重试。
func (f *Factory) Provider(kind llm.ProviderKind) (llm.Provider, error) {
	if !kind.Valid() {
		return nil, llm.NewConfigError(fmt.Sprintf("unsupported provider kind %q", kind), nil)
	}

	f.mu.Lock()
	s, ok := f.slots[kind]
	if !ok {
		s = &slot{}
		f.slots[kind] = s
	}
	f.mu.Unlock()

	s.once.Do(func() {
		s.provider, s.err = New(f.config(kind), f.deps)
	})
	return s.provider, s.err
}

// config 合并默认配置、覆盖配置与密钥来源
func (f *Factory) config(kind llm.ProviderKind) llm.Config {
	cfg := llm.DefaultConfig(kind)
	if override, ok := f.configs[kind]; ok {
		if override.BaseURL != "" {
			cfg.BaseURL = override.BaseURL
		}
		if override.Timeout > 0 {
			cfg.Timeout = override.Timeout
		}
		cfg.Headers = override.Headers
		cfg.APIKey = override.APIKey
	}
	if cfg.APIKey == "" && f.creds != nil {
		if secret, ok := f.creds.Secret(kind); ok {
			cfg.APIKey = secret
		}
	}
	return cfg
}

// ═══════════════════════════════════════════════════════════════════════════
// 进程级默认 Factory
// ═══════════════════════════════════════════════════════════════════════════

var (
	defaultOnce    sync.Once
	defaultFactory atomic.Pointer[Factory]
)

// Default 返回进程级 Factory
//
// 首次使用时创建：密钥取自环境变量，预算表取自 registry.Default()。
func Default() *Factory {
	defaultOnce.Do(func() {
		defaultFactory.CompareAndSwap(nil, NewFactory(WithBudgets(registry.Default())))
	})
	return defaultFactory.Load()
}

// SetDefault 替换进程级 Factory
func SetDefault(f *Factory) {
	if f == nil {
		return
	}
	defaultFactory.Store(f)
}
