// Package chain 组合提示模板、模型与解析器
//
// Chain 是单条流水线：渲染模板 → 追加解析器的格式说明 → 经 Router 调用模型 →
// 解析输出 → Envelope。
//
//	c, err := chain.New(prompt.Must("tell me about {{topic}}"), "claude",
//	    chain.WithParser(parser.JSON()))
//	env, err := c.Run(ctx, map[string]any{"topic": "ux design"})
//
// 批量运行经 dispatch.Engine 并发执行，结果顺序与输入一致：
//
//	envs, err := c.Batch(ctx, inputs, 8)
package chain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/dispatch"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/router"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/logger"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/parser"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/prompt"
)

// Chain 提示模板 + 模型 + 解析器
type Chain struct {
	prompt *prompt.Template
	parser parser.Parser
	schema *llm.OutputSchema
	quiet  bool

	router *router.Router
	engine *dispatch.Engine
	log    *slog.Logger
}

type options struct {
	parser     parser.Parser
	schema     *llm.OutputSchema
	quiet      bool
	policy     dispatch.Policy
	routerOpts []router.Option
	log        *slog.Logger
}

// Option 配置选项函数
type Option func(*options)

// WithParser 设置解析器，默认 parser.String()
func WithParser(p parser.Parser) Option {
	return func(o *options) {
		o.parser = p
	}
}

// WithSchema 请求结构化输出
func WithSchema(s *llm.OutputSchema) Option {
	return func(o *options) {
		o.schema = s
	}
}

// WithQuiet 关闭适配器的详细日志
func WithQuiet(quiet bool) Option {
	return func(o *options) {
		o.quiet = quiet
	}
}

// WithPolicy 设置批量策略，默认 dispatch.PolicyStrict
func WithPolicy(p dispatch.Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithRouterOptions 传递给内部 Router 的选项（注册表、Factory 等）
func WithRouterOptions(opts ...router.Option) Option {
	return func(o *options) {
		o.routerOpts = append(o.routerOpts, opts...)
	}
}

// WithLogger 设置日志，默认 logger.Named("chain")
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// New 创建 Chain
//
// 模型在构造时解析，无法解析时返回 [llm.UnknownModelError]。
func New(tpl *prompt.Template, model string, opts ...Option) (*Chain, error) {
	if tpl == nil {
		return nil, llm.NewConfigError("prompt template is required", nil)
	}

	o := &options{parser: parser.String()}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.Named("chain")
	}

	routers := router.NewSet(append([]router.Option{router.WithLogger(o.log)}, o.routerOpts...)...)
	r, err := routers.Router(model)
	if err != nil {
		return nil, err
	}

	return &Chain{
		prompt: tpl.WithInstructions(o.parser.FormatInstructions()),
		parser: o.parser,
		schema: o.schema,
		quiet:  o.quiet,
		router: r,
		engine: dispatch.New(
			dispatch.WithRouters(routers),
			dispatch.WithModel(r.Model()),
			dispatch.WithPolicy(o.policy),
			dispatch.WithLogger(o.log),
		),
		log: o.log,
	}, nil
}

// Model 已解析的模型名
func (c *Chain) Model() string {
	return c.router.Model()
}

// InputSchema 模板引用的变量名
func (c *Chain) InputSchema() []string {
	return c.prompt.Variables()
}

// Render 渲染提示（含格式说明）
func (c *Chain) Render(vars map[string]any) (string, error) {
	return c.prompt.Render(vars)
}

// Run 渲染模板并调用模型
//
// 变量缺失时返回 [llm.MissingVariableError] 且不发出调用。
// 调用失败时同时返回失败 Envelope 与错误。
func (c *Chain) Run(ctx context.Context, vars map[string]any) (*llm.Envelope, error) {
	text, err := c.Render(vars)
	if err != nil {
		return nil, err
	}
	return c.router.Route(ctx, c.request(text, nil))
}

// RunString 以单个字符串运行只有一个变量的模板
func (c *Chain) RunString(ctx context.Context, input string) (*llm.Envelope, error) {
	vars := c.InputSchema()
	if len(vars) != 1 {
		return nil, llm.NewConfigError(fmt.Sprintf("RunString needs exactly one template variable, template has %d", len(vars)), nil)
	}
	return c.Run(ctx, map[string]any{vars[0]: input})
}

// RunConversation 以多轮对话调用模型，模板不参与
func (c *Chain) RunConversation(ctx context.Context, conv llm.Conversation) (*llm.Envelope, error) {
	return c.router.Route(ctx, c.request("", conv))
}

// Batch 并发运行多组变量
//
// 所有输入先渲染，任一缺失变量都会在发出调用之前返回错误。
func (c *Chain) Batch(ctx context.Context, inputs []map[string]any, limit int) ([]*llm.Envelope, error) {
	reqs := make([]*llm.Request, len(inputs))
	for i, vars := range inputs {
		text, err := c.Render(vars)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		reqs[i] = c.request(text, nil)
	}
	c.log.Debug("chain batch", "model", c.Model(), "size", len(reqs), "limit", limit)
	return c.engine.DispatchAll(ctx, reqs, limit)
}

func (c *Chain) request(text string, conv llm.Conversation) *llm.Request {
	var req *llm.Request
	if len(conv) > 0 {
		req = llm.NewConversationRequest(c.Model(), conv)
	} else {
		req = llm.NewPromptRequest(c.Model(), text)
	}
	req.Quiet = c.quiet
	// 结构化输出已是最终内容
	if c.schema != nil {
		req.Schema = c.schema
	} else {
		req.Parser = c.parser
	}
	return req
}
