// Package router 将单个请求路由到其模型所属的 Provider
//
// Router 在构造时解析一次模型名（别名 → ModelName → ProviderKind）并取得对应的
// 适配器，之后的 [Router.Route] 不再查表，也不持有任何逐次调用的可变状态，
// 可被任意多个 goroutine 并发复用。
//
//	r, err := router.New("claude")
//	env, err := r.Route(ctx, llm.NewPromptRequest("", "Hello"))
//	fmt.Println(env)
package router

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/provider"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/registry"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// 依赖接口
// ═══════════════════════════════════════════════════════════════════════════

// Resolver 模型名解析，registry.Registry 实现此接口
type Resolver interface {
	Resolve(name string) (string, llm.ProviderKind, error)
}

// ProviderSource 按类别提供适配器，provider.Factory 实现此接口
type ProviderSource interface {
	Provider(kind llm.ProviderKind) (llm.Provider, error)
}

// ═══════════════════════════════════════════════════════════════════════════
// Router
// ═══════════════════════════════════════════════════════════════════════════

// Router 绑定到单个已解析模型的路由器
type Router struct {
	name     string
	model    string
	kind     llm.ProviderKind
	provider llm.Provider
	log      *slog.Logger
}

type options struct {
	resolver Resolver
	source   ProviderSource
	provider llm.Provider
	log      *slog.Logger
}

// Option 配置选项函数
type Option func(*options)

// WithRegistry 设置模型解析器，默认 registry.Default()
func WithRegistry(r Resolver) Option {
	return func(o *options) {
		o.resolver = r
	}
}

// WithFactory 设置适配器来源，默认 provider.Default()
func WithFactory(s ProviderSource) Option {
	return func(o *options) {
		o.source = s
	}
}

// WithProvider 直接指定适配器，其 Kind 必须与解析结果一致
func WithProvider(p llm.Provider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// WithLogger 设置日志，默认 logger.Named("router")
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// New 创建 Router
//
// 模型名无法解析时返回 [llm.UnknownModelError]；适配器无法构造（如缺少密钥）
// 时返回 [llm.ConfigError]。两者都发生在任何网络调用之前。
func New(name string, opts ...Option) (*Router, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.resolver == nil {
		o.resolver = registry.Default()
	}
	if o.log == nil {
		o.log = logger.Named("router")
	}

	model, kind, err := o.resolver.Resolve(name)
	if err != nil {
		return nil, err
	}

	p := o.provider
	if p == nil {
		source := o.source
		if source == nil {
			source = provider.Default()
		}
		if p, err = source.Provider(kind); err != nil {
			return nil, err
		}
	}
	if p.Kind() != kind {
		return nil, llm.NewConfigError(fmt.Sprintf("provider %s cannot serve %s model %q", p.Kind(), kind, model), nil)
	}

	return &Router{
		name:     name,
		model:    model,
		kind:     kind,
		provider: p,
		log:      o.log,
	}, nil
}

// Name 构造时传入的名称（可能是别名）
func (r *Router) Name() string { return r.name }

// Model 已解析的 ModelName
func (r *Router) Model() string { return r.model }

// Kind 目标 ProviderKind
func (r *Router) Kind() llm.ProviderKind { return r.kind }

// Route 执行一次调用并返回 Envelope
//
// 请求的 Model 为空时使用 Router 的模型；非空时必须等于构造时的名称或其解析结果。
// 请求本身不被修改，适配器收到的是替换为 ModelName 的副本。
//
// 调用失败时同时返回失败 Envelope 与错误；Envelope 只在 req 为 nil 时为 nil。
func (r *Router) Route(ctx context.Context, req *llm.Request) (*llm.Envelope, error) {
	if req == nil {
		return nil, llm.NewRequestError("route", fmt.Errorf("request is nil"))
	}
	start := time.Now()

	if req.Model != "" && req.Model != r.name && req.Model != r.model {
		err := llm.NewConfigError(fmt.Sprintf("request model %q does not match router %q", req.Model, r.name), nil)
		return r.fail(req, err, start), err
	}

	res, err := r.provider.Invoke(ctx, req.WithModel(r.model))
	if err != nil {
		return r.fail(req, err, start), err
	}

	content := res.Content()
	if req.Parser != nil {
		parsed, perr := req.Parser.Parse(res.Text)
		if perr != nil {
			err := fmt.Errorf("parse %s output: %w", r.model, perr)
			return r.fail(req, err, start), err
		}
		content = parsed
	}

	env := llm.NewSuccessEnvelope(req, r.kind, r.model, content, res.Usage, time.Since(start))
	r.log.Debug("routed", "model", r.model, "provider", r.kind, "duration", env.Duration)
	return env, nil
}

func (r *Router) fail(req *llm.Request, err error, start time.Time) *llm.Envelope {
	env := llm.NewFailureEnvelope(req, r.kind, r.model, err, time.Since(start))
	r.log.Debug("route failed", "model", r.model, "provider", r.kind, "error", err)
	return env
}
