package stub

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/core"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/logger"
)

// Model 桩 Provider 唯一的模型名
const Model = "polonius"

// Polonius "polonius" 模型的固定响应
var Polonius = mustDefaultResponse()

// CallRecord 记录一次调用的详情
type CallRecord struct {
	Request *llm.Request
	Time    time.Time
}

// Client 桩 LLM Provider
type Client struct {
	mu        sync.RWMutex
	response  string        // 默认响应
	responses []string      // 响应队列（依次返回）
	respIdx   int           // 当前响应索引
	respFunc  ResponseFunc  // 动态响应函数
	rules     []Rule        // 按内容匹配的脚本规则
	delay     time.Duration // 响应延迟
	delayFunc DelayFunc     // 按调用计算延迟
	err       error         // 返回错误
	errFunc   ErrorFunc     // 按调用注入错误
	calls     []CallRecord  // 调用记录
	counter   int           // 调用计数
	log       *slog.Logger
}

// ResponseFunc 动态响应函数类型
//
// 接收请求和调用序号（从 1 开始），返回响应文本。
type ResponseFunc func(req *llm.Request, callCount int) string

// DelayFunc 按调用计算响应延迟
type DelayFunc func(req *llm.Request, callCount int) time.Duration

// ErrorFunc 按调用注入错误，返回 nil 表示成功
type ErrorFunc func(req *llm.Request, callCount int) error

// Option 配置选项函数
type Option func(*Client)

// New 创建桩 Client
//
// 默认响应为 [Polonius]，再依次应用 Option。
//
//	client := stub.New()                                    // 固定返回 Polonius
//	client := stub.New(stub.WithScriptFile("stub.yaml"))    // 使用响应脚本
//	client := stub.New(stub.WithDelay(100*time.Millisecond))
func New(opts ...Option) *Client {
	c := &Client{
		response: Polonius,
		calls:    make([]CallRecord, 0),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.log == nil {
		c.log = logger.Named("stub")
	}
	return c
}

// WithResponse 设置预设响应文本
func WithResponse(text string) Option {
	return func(c *Client) {
		c.response = text
	}
}

// WithResponses 设置响应队列（依次返回，用完后循环）
func WithResponses(texts ...string) Option {
	return func(c *Client) {
		c.responses = texts
	}
}

// WithResponseFunc 设置动态响应函数
func WithResponseFunc(fn ResponseFunc) Option {
	return func(c *Client) {
		c.respFunc = fn
	}
}

// WithDelay 设置响应延迟
func WithDelay(d time.Duration) Option {
	return func(c *Client) {
		c.delay = d
	}
}

// WithDelayFunc 设置按调用计算的响应延迟
func WithDelayFunc(fn DelayFunc) Option {
	return func(c *Client) {
		c.delayFunc = fn
	}
}

// WithError 设置返回错误
func WithError(err error) Option {
	return func(c *Client) {
		c.err = err
	}
}

// WithErrorFunc 设置按调用注入的错误
func WithErrorFunc(fn ErrorFunc) Option {
	return func(c *Client) {
		c.errFunc = fn
	}
}

// WithLogger 设置日志器
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Provider 接口实现
// ═══════════════════════════════════════════════════════════════════════════

// Kind 实现 [llm.Provider] 接口
func (c *Client) Kind() llm.ProviderKind {
	return llm.ProviderTesting
}

// Invoke 同步完成
//
// 实现 [llm.Provider] 接口。延迟期间遵守 ctx 取消。
func (c *Client) Invoke(ctx context.Context, req *llm.Request) (*llm.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, core.WrapError(llm.ProviderTesting, err)
	}
	core.LogRequest(c.log, req, req.Model)

	messages := req.Messages()

	c.mu.Lock()
	c.counter++
	n := c.counter
	c.calls = append(c.calls, CallRecord{Request: req, Time: time.Now()})

	delay := c.delay
	if c.delayFunc != nil {
		delay = c.delayFunc(req, n)
	}
	err := c.err
	if err == nil && c.errFunc != nil {
		err = c.errFunc(req, n)
	}
	text, ruleErr := c.nextResponse(req, messages, n)
	if err == nil {
		err = ruleErr
	}
	c.mu.Unlock()

	// 模拟延迟
	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, core.WrapError(llm.ProviderTesting, ctx.Err())
		}
	}

	// 模拟错误
	if err != nil {
		return nil, core.WrapError(llm.ProviderTesting, err)
	}

	model := req.Model
	if model == "" {
		model = Model
	}
	res := &llm.Result{
		Text:         text,
		Model:        model,
		FinishReason: "stop",
		Usage: &llm.TokenUsage{
			InputTokens:  int64(len(messages) * 10),
			OutputTokens: int64(len(text) / 4),
			TotalTokens:  int64(len(messages)*10 + len(text)/4),
		},
	}

	if req.Schema != nil {
		res.Structured = map[string]any{"result": text}
		if b, err := json.Marshal(res.Structured); err == nil {
			res.Text = string(b)
		}
	}

	core.LogResult(c.log, req, res)
	return res, nil
}

// nextResponse 获取当前响应（需要在锁内调用）
//
// 优先级：动态响应函数 > 脚本规则 > 响应队列 > 默认响应。
func (c *Client) nextResponse(req *llm.Request, messages llm.Conversation, n int) (string, error) {
	if c.respFunc != nil {
		return c.respFunc(req, n), nil
	}

	last, _ := messages.Last()
	model := req.Model
	if model == "" {
		model = Model
	}
	if r, ok := match(c.rules, last.Content); ok {
		if err := r.err(); err != nil {
			return "", err
		}
		return render(r.Reply, last.Content, model), nil
	}

	if len(c.responses) > 0 {
		resp := c.responses[c.respIdx%len(c.responses)]
		c.respIdx++
		return render(resp, last.Content, model), nil
	}

	return c.response, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 调用记录
// ═══════════════════════════════════════════════════════════════════════════

// SetResponse 动态修改响应（线程安全）
func (c *Client) SetResponse(text string) {
	c.mu.Lock()
	c.response = text
	c.mu.Unlock()
}

// SetError 动态修改错误（线程安全）
func (c *Client) SetError(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

// Calls 返回所有调用记录
func (c *Client) Calls() []CallRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]CallRecord, len(c.calls))
	copy(result, c.calls)
	return result
}

// CallCount 返回调用次数
func (c *Client) CallCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counter
}

// LastCall 返回最后一次调用记录
func (c *Client) LastCall() *CallRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.calls) == 0 {
		return nil
	}
	call := c.calls[len(c.calls)-1]
	return &call
}

// LastInput 返回最后一次调用的最后一条消息内容
func (c *Client) LastInput() string {
	call := c.LastCall()
	if call == nil {
		return ""
	}
	last, _ := call.Request.Messages().Last()
	return last.Content
}

// Reset 重置调用记录和计数器
func (c *Client) Reset() {
	c.mu.Lock()
	c.calls = make([]CallRecord, 0)
	c.counter = 0
	c.respIdx = 0
	c.mu.Unlock()
}

func mustDefaultResponse() string {
	return strings.TrimSpace(DefaultScript().DefaultResponse)
}

var _ llm.Provider = (*Client)(nil)
