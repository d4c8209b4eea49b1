package groq

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/core"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/protocol/openai"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/logger"
)

// DefaultMaxTokens 预算表缺失时的最大输出 tokens
const DefaultMaxTokens = 1024

// Config 客户端配置
type Config struct {
	// APIKey Groq API 密钥（必需）
	APIKey string

	// BaseURL API 基础地址，默认 https://api.groq.com/openai/v1
	BaseURL string

	// Timeout 请求超时时间，默认 120 秒
	Timeout time.Duration

	// Headers 额外的请求头
	Headers map[string]string

	// Budgets 按模型查询最大输出 tokens
	Budgets core.TokenBudgeter

	// Logger 为空时使用 logger.Named("groq")
	Logger *slog.Logger
}

// Client Groq LLM 客户端
type Client struct {
	*core.BaseClient

	config  *Config
	adapter *openai.Adapter
	log     *slog.Logger
}

// New 创建新的 Groq 客户端
func New(config *Config) (*Client, error) {
	if config == nil {
		return nil, llm.NewConfigError("config is required", nil)
	}

	adapter := openai.NewAdapter()
	base, err := core.NewBaseClient(config, adapter)
	if err != nil {
		return nil, err
	}

	log := config.Logger
	if log == nil {
		log = logger.Named("groq")
	}

	return &Client{
		BaseClient: base,
		config:     config,
		adapter:    adapter,
		log:        log,
	}, nil
}

// Kind 实现 [llm.Provider] 接口
func (c *Client) Kind() llm.ProviderKind {
	return llm.ProviderGroq
}

// Invoke 同步完成
func (c *Client) Invoke(ctx context.Context, req *llm.Request) (*llm.Result, error) {
	res, err := c.invoke(ctx, req)
	if err != nil {
		return nil, core.WrapError(llm.ProviderGroq, err)
	}
	core.LogResult(c.log, req, res)
	return res, nil
}

func (c *Client) invoke(ctx context.Context, req *llm.Request) (*llm.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	core.LogRequest(c.log, req, req.Model)

	call := *req
	call.MaxTokens = core.MaxTokens(req, req.Model, c.config.Budgets, DefaultMaxTokens)

	res, err := c.Complete(ctx, req.Model, &call, c.adapter)
	if err != nil {
		return nil, err
	}

	if req.Schema != nil {
		structured, err := core.DecodeStructured(res.Text)
		if err != nil {
			return nil, err
		}
		res.Structured = structured
	}
	return res, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// core.ProviderConfig 接口实现
// ═══════════════════════════════════════════════════════════════════════════

// Validate 验证配置
func (c *Config) Validate() error {
	if c == nil {
		return llm.NewConfigError("config is required", nil)
	}
	if c.APIKey == "" {
		return core.NewMissingAPIKeyError()
	}
	return nil
}

// GetDefaults 获取默认值
func (c *Config) GetDefaults() (string, time.Duration) {
	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = llm.ProviderGroq.DefaultBaseURL()
	}
	return baseURL, core.GetDefaultTimeout(c.Timeout)
}

// BuildHeaders 构建请求头
func (c *Config) BuildHeaders() map[string]string {
	headers := map[string]string{
		"Authorization": "Bearer " + c.APIKey,
	}
	maps.Copy(headers, c.Headers)
	return headers
}

// ProviderKind 返回 Provider 类别
func (c *Config) ProviderKind() llm.ProviderKind {
	return llm.ProviderGroq
}

var (
	_ llm.Provider        = (*Client)(nil)
	_ core.ProviderConfig = (*Config)(nil)
)
