package ollama

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/core"
	protocol "github.com/lwmacct/251220-go-pkg-chain/pkg/llm/protocol/ollama"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/logger"
)

// DefaultMaxTokens 预算表缺失时的 num_predict
const DefaultMaxTokens = 1024

// ═══════════════════════════════════════════════════════════════════════════
// 配置和客户端
// ═══════════════════════════════════════════════════════════════════════════

// Config 客户端配置
type Config struct {
	// BaseURL 服务地址，默认 http://localhost:11434
	BaseURL string

	// Timeout 请求超时时间，默认 120 秒
	Timeout time.Duration

	// Headers 额外的请求头（如反向代理鉴权）
	Headers map[string]string

	// Budgets 按模型查询 num_predict
	Budgets core.TokenBudgeter

	// Logger 为空时使用 logger.Named("ollama")
	Logger *slog.Logger
}

// Client Ollama LLM 客户端
//
// 嵌入 core.BaseClient 复用 HTTP 通信与错误分类。
type Client struct {
	*core.BaseClient

	config  *Config
	adapter *protocol.Adapter
	log     *slog.Logger
}

// New 创建新的 Ollama 客户端
func New(config *Config) (*Client, error) {
	if config == nil {
		config = &Config{}
	}

	adapter := protocol.NewAdapter()
	base, err := core.NewBaseClient(config, adapter)
	if err != nil {
		return nil, err
	}
	base.SetEndpointBuilder(adapter)

	log := config.Logger
	if log == nil {
		log = logger.Named("ollama")
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
	return llm.ProviderOllama
}

// Invoke 同步完成
func (c *Client) Invoke(ctx context.Context, req *llm.Request) (*llm.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, core.WrapError(llm.ProviderOllama, err)
	}
	if req.Schema != nil {
		return nil, llm.NewUnsupportedFeatureError(llm.ProviderOllama, req.Model, "structured output")
	}
	core.LogRequest(c.log, req, req.Model)

	call := *req
	call.MaxTokens = core.MaxTokens(req, req.Model, c.config.Budgets, DefaultMaxTokens)

	res, err := c.Complete(ctx, req.Model, &call, c.adapter)
	if err != nil {
		return nil, core.WrapError(llm.ProviderOllama, err)
	}
	core.LogResult(c.log, req, res)
	return res, nil
}

// ListModels 列出本地已拉取的模型
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	var tags protocol.TagsResponse
	if err := c.Get(ctx, protocol.TagsEndpoint, &tags); err != nil {
		return nil, core.WrapError(llm.ProviderOllama, err)
	}
	return tags.Names(), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// core.ProviderConfig 接口实现
// ═══════════════════════════════════════════════════════════════════════════

// Validate 验证配置（Ollama 无需密钥）
func (c *Config) Validate() error {
	if c == nil {
		return llm.NewConfigError("config is required", nil)
	}
	return nil
}

// GetDefaults 获取默认值
func (c *Config) GetDefaults() (string, time.Duration) {
	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = llm.ProviderOllama.DefaultBaseURL()
	}
	return baseURL, core.GetDefaultTimeout(c.Timeout)
}

// BuildHeaders 构建请求头
func (c *Config) BuildHeaders() map[string]string {
	headers := map[string]string{}
	maps.Copy(headers, c.Headers)
	return headers
}

// ProviderKind 返回 Provider 类别
func (c *Config) ProviderKind() llm.ProviderKind {
	return llm.ProviderOllama
}

var (
	_ llm.Provider        = (*Client)(nil)
	_ core.ProviderConfig = (*Config)(nil)
)
