// Package dispatch 在并发上限内批量路由请求
//
// [Engine.DispatchAll] 为每个请求启动一个工作单元，结果顺序与输入顺序严格一致，
// 单个请求的失败只变成对应位置的失败 Envelope，不会中止其他请求。
//
// # 批量策略
//
//   - PolicyStrict（默认）：并发上限同时是批量大小上限，超过时在任何网络调用之前
//     返回 [llm.BatchTooLargeError]，调用方需要自行分块
//   - PolicyWindow：批量大小不受限，并发上限作为滑动窗口
//
// # 取消
//
// ctx 取消后尚未开始的单元不再调用适配器，直接生成携带 ctx.Err() 的失败 Envelope；
// 进行中的单元由适配器按 ctx 中止。已完成的 Envelope 保持原样。
// DispatchAll 在所有单元退出后才返回，并返回 ctx.Err()。
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/router"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/logger"
)

// Policy 批量大小与并发上限的关系
type Policy int

const (
	// PolicyStrict 并发上限即批量上限
	PolicyStrict Policy = iota

	// PolicyWindow 并发上限为滑动窗口
	PolicyWindow
)

// String 返回策略名
func (p Policy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	case PolicyWindow:
		return "window"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Engine
// ═══════════════════════════════════════════════════════════════════════════

// Engine 批量调度引擎，可并发复用
type Engine struct {
	routers *router.Set
	model   string
	policy  Policy
	log     *slog.Logger
}

// Option 配置选项函数
type Option func(*Engine)

// WithRouters 设置 Router 集合，默认 router.NewSet()
func WithRouters(s *router.Set) Option {
	return func(e *Engine) {
		e.routers = s
	}
}

// WithModel 设置请求未指定模型时使用的模型
func WithModel(name string) Option {
	return func(e *Engine) {
		e.model = name
	}
}

// WithPolicy 设置批量策略
func WithPolicy(p Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithLogger 设置日志，默认 logger.Named("dispatch")
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// New 创建 Engine
func New(opts ...Option) *Engine {
	e := &Engine{policy: PolicyStrict}
	for _, opt := range opts {
		opt(e)
	}
	if e.routers == nil {
		e.routers = router.NewSet()
	}
	if e.log == nil {
		e.log = logger.Named("dispatch")
	}
	return e
}

// Policy 返回批量策略
func (e *Engine) Policy() Policy {
	return e.policy
}

// DispatchAll 并发执行全部请求
//
// 返回的切片长度等于 len(reqs)，第 i 个 Envelope 对应第 i 个请求。
//
// 以下错误在任何网络调用之前同步返回，且不返回 Envelope：
//   - limit 不是正数：[llm.ConfigError]
//   - PolicyStrict 下 len(reqs) > limit：[llm.BatchTooLargeError]
//   - 任一请求的模型无法解析：[llm.UnknownModelError]
//
// 其余失败（包括某个 Provider 缺少密钥）只影响对应位置。
//
// ctx 取消后立即返回，不等待忽略 ctx 的在途调用；未完成的位置为携带
// ctx.Err() 的失败 Envelope，同时返回 ctx.Err()。
func (e *Engine) DispatchAll(ctx context.Context, reqs []*llm.Request, limit int) ([]*llm.Envelope, error) {
	if limit <= 0 {
		return nil, llm.NewConfigError(fmt.Sprintf("concurrency limit must be positive, got %d", limit), nil)
	}
	if e.policy == PolicyStrict && len(reqs) > limit {
		return nil, llm.NewBatchTooLargeError(len(reqs), limit)
	}

	envs := make([]*llm.Envelope, len(reqs))
	routers, err := e.resolve(reqs, envs)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	e.log.Debug("dispatch start", "size", len(reqs), "limit", limit, "policy", e.policy)

	e.collect(ctx, reqs, routers, envs, limit)

	failed := Failed(envs)
	e.log.Debug("dispatch finish",
		"size", len(reqs),
		"failures", len(failed),
		"duration", time.Since(start),
	)

	return envs, ctx.Err()
}

// resolve 在启动任何单元之前为每个请求取得 Router
//
// 无法构造 Router 的非模型错误直接写入 envs。
func (e *Engine) resolve(reqs []*llm.Request, envs []*llm.Envelope) ([]*router.Router, error) {
	routers := make([]*router.Router, len(reqs))
	for i, req := range reqs {
		if req == nil {
			envs[i] = llm.NewFailureEnvelope(nil, "", "", llm.NewRequestError("dispatch", fmt.Errorf("request %d is nil", i)), 0)
			continue
		}

		name := req.Model
		if name == "" {
			name = e.model
		}
		r, err := e.routers.Router(name)
		switch {
		case err == nil:
			routers[i] = r
		case llm.IsUnknownModelError(err):
			return nil, fmt.Errorf("request %d: %w", i, err)
		default:
			envs[i] = llm.NewFailureEnvelope(req, "", name, err, 0)
		}
	}
	return routers, nil
}

// outcome 单元完成后交给收集者的结果
type outcome struct {
	index int
	env   *llm.Envelope
}

// collect 启动单元并收集结果
//
// envs 只由收集者写入。ctx 取消后不再等待在途单元：已送达的结果保留，
// 其余位置写入携带 ctx.Err() 的失败 Envelope。迟到的单元写入带缓冲的
// 通道后退出，不会阻塞也不会修改已返回的切片。
func (e *Engine) collect(ctx context.Context, reqs []*llm.Request, routers []*router.Router, envs []*llm.Envelope, limit int) {
	results := make(chan outcome, len(reqs))
	pending := 0
	for _, r := range routers {
		if r != nil {
			pending++
		}
	}

	go func() {
		var g errgroup.Group
		g.SetLimit(limit)
		for i, req := range reqs {
			r := routers[i]
			if r == nil {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			g.Go(func() error {
				results <- outcome{index: i, env: e.run(ctx, r, req)}
				return nil
			})
		}
		_ = g.Wait()
	}()

	for pending > 0 {
		select {
		case o := <-results:
			envs[o.index] = o.env
			pending--
		case <-ctx.Done():
			e.abandon(ctx, reqs, routers, envs, results)
			return
		}
	}
}

// abandon 保留已送达的结果，其余在途或未启动的单元记为失败
func (e *Engine) abandon(ctx context.Context, reqs []*llm.Request, routers []*router.Router, envs []*llm.Envelope, results <-chan outcome) {
	for drained := false; !drained; {
		select {
		case o := <-results:
			envs[o.index] = o.env
		default:
			drained = true
		}
	}

	abandoned := 0
	for i, r := range routers {
		if r == nil || envs[i] != nil {
			continue
		}
		envs[i] = llm.NewFailureEnvelope(reqs[i], r.Kind(), r.Model(), ctx.Err(), 0)
		abandoned++
	}
	e.log.Debug("dispatch abandoned", "units", abandoned, "error", ctx.Err())
}

// run 执行单个单元，恒返回非 nil Envelope
func (e *Engine) run(ctx context.Context, r *router.Router, req *llm.Request) *llm.Envelope {
	if err := ctx.Err(); err != nil {
		return llm.NewFailureEnvelope(req, r.Kind(), r.Model(), err, 0)
	}
	env, err := r.Route(ctx, req)
	if env == nil {
		env = llm.NewFailureEnvelope(req, r.Kind(), r.Model(), err, 0)
	}
	return env
}

// ═══════════════════════════════════════════════════════════════════════════
// 辅助函数
// ═══════════════════════════════════════════════════════════════════════════

// Failed 返回失败 Envelope 的下标，供调用方决定是否重新提交
func Failed(envs []*llm.Envelope) []int {
	var idx []int
	for i, env := range envs {
		if !env.Succeeded() {
			idx = append(idx, i)
		}
	}
	return idx
}

// Retryable 返回失败原因可重试（限流或服务端 5xx）的下标
//
// 仅作诊断，是否重新提交由调用方决定。
func Retryable(envs []*llm.Envelope) []int {
	var idx []int
	for i, env := range envs {
		if env != nil && !env.Succeeded() && llm.IsRetryableError(env.Err) {
			idx = append(idx, i)
		}
	}
	return idx
}
