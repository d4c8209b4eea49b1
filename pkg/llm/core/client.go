package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
)

// ═══════════════════════════════════════════════════════════════════════════
// 接口定义
// ═══════════════════════════════════════════════════════════════════════════

// ProviderConfig Provider 配置接口
//
// 每个 Provider 实现此接口来定义其特有的配置和默认值。
type ProviderConfig interface {
	// Validate 验证配置
	Validate() error

	// GetDefaults 获取默认值
	// 返回 baseURL, timeout
	GetDefaults() (baseURL string, timeout time.Duration)

	// BuildHeaders 构建请求头
	// 返回认证头和其他必要的 HTTP 头
	BuildHeaders() map[string]string

	// ProviderKind 返回 Provider 类别
	// 用于错误日志和追踪
	ProviderKind() llm.ProviderKind
}

// EndpointBuilder 端点构建器接口
//
// 端点不是 /chat/completions 的 Provider（如 Ollama 的 /api/chat）实现此接口。
type EndpointBuilder interface {
	// BuildCompleteEndpoint 构建 Complete 端点
	BuildCompleteEndpoint() string
}

// RequestBuilder 请求构建器接口
//
// 每个 Provider 实现此接口来定义协议特定的请求体构建逻辑。
type RequestBuilder interface {
	// BuildRequest 构建请求体
	//
	// 参数：
	//   - model: 已解析的模型名
	//   - messages: 已转换为 API 格式的消息
	//   - system: SystemSeparate 策略下提取的系统文本
	//   - req: 原始请求（Schema、MaxTokens 等）
	BuildRequest(model string, messages []map[string]any, system string, req *llm.Request) (map[string]any, error)
}

// ═══════════════════════════════════════════════════════════════════════════
// BaseClient 基础客户端
// ═══════════════════════════════════════════════════════════════════════════

// BaseClient 基础客户端
//
// 封装了 HTTP 通信、协议适配、传输错误分类等通用逻辑。
// 以原始 JSON 通信的 Provider 嵌入 BaseClient 复用这些功能。
//
// 使用示例：
//
//	config := &groq.Config{APIKey: "gsk-xxx"}
//	baseClient, _ := core.NewBaseClient(config, openai.NewAdapter())
//
//	client := &groq.Client{BaseClient: baseClient, config: config}
type BaseClient struct {
	config          ProviderConfig
	resty           *resty.Client
	transformer     *Transformer
	endpointBuilder EndpointBuilder // 可选
}

// NewBaseClient 创建基础客户端
//
// 参数：
//   - config: Provider 特定配置，实现 ProviderConfig 接口
//   - adapter: 协议适配器，处理消息格式转换
//
// 返回：
//   - BaseClient 实例
//   - 错误（如果配置验证失败）
func NewBaseClient(config ProviderConfig, adapter ProtocolAdapter) (*BaseClient, error) {
	// 1. 验证配置
	if err := config.Validate(); err != nil {
		return nil, llm.NewConfigError("config validation failed", err)
	}

	// 2. 获取默认值
	baseURL, timeout := config.GetDefaults()

	// 3. 创建 resty 客户端（不做自动重试）
	r := resty.New()
	r.SetBaseURL(baseURL)
	r.SetTimeout(timeout)
	r.SetRetryCount(0)
	for k, v := range config.BuildHeaders() {
		r.SetHeader(k, v)
	}

	return &BaseClient{
		config:      config,
		resty:       r,
		transformer: NewTransformer(adapter),
	}, nil
}

// SetEndpointBuilder 设置端点构建器
func (c *BaseClient) SetEndpointBuilder(builder EndpointBuilder) {
	c.endpointBuilder = builder
}

// Transformer 返回消息转换器
func (c *BaseClient) Transformer() *Transformer {
	return c.transformer
}

// Complete 同步完成（通用实现）
//
// 通用流程：
//  1. 归一化消息并按协议转换（使用 Transformer）
//  2. 构建 API 请求体（委托给 RequestBuilder）
//  3. 发送 HTTP POST 请求
//  4. 检查 HTTP 状态码
//  5. 解析响应（使用 Transformer）
//
// 返回的错误为传输层分类错误（RequestError / HTTPError / APIError / ResponseError），
// 由调用方包装为 [llm.ProviderError]。
func (c *BaseClient) Complete(
	ctx context.Context,
	model string,
	req *llm.Request,
	requestBuilder RequestBuilder,
) (*llm.Result, error) {
	// 1. 转换消息
	apiMsgs, system := c.transformer.BuildAPIMessages(req.Messages())

	// 2. 构建请求体
	body, err := requestBuilder.BuildRequest(model, apiMsgs, system, req)
	if err != nil {
		return nil, llm.NewRequestError("build", err)
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, llm.NewRequestError("marshal", err)
	}

	// 3. 发送请求
	var apiResp map[string]any
	resp, err := c.resty.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(bodyBytes).
		SetResult(&apiResp).
		Post(c.getCompleteEndpoint())
	if err != nil {
		return nil, llm.NewHTTPError("request failed", err)
	}

	// 4. 检查 HTTP 错误
	if resp.StatusCode() >= 400 {
		return nil, c.apiError(resp)
	}
	if apiResp == nil {
		return nil, llm.NewResponseError("body", errEmptyBody)
	}

	// 5. 解析响应
	text, finishReason, usage, err := c.transformer.ParseAPIResponse(apiResp)
	if err != nil {
		return nil, err
	}

	// 6. 提取模型（如果响应中有）
	if respModel := GetString(apiResp["model"]); respModel != "" {
		model = respModel
	}

	return &llm.Result{
		Text:         text,
		Model:        model,
		FinishReason: finishReason,
		Usage:        usage,
	}, nil
}

// Get 发送 GET 请求并将 JSON 响应解码到 out
func (c *BaseClient) Get(ctx context.Context, path string, out any) error {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetResult(out).
		Get(path)
	if err != nil {
		return llm.NewHTTPError("request failed", err)
	}
	if resp.StatusCode() >= 400 {
		return c.apiError(resp)
	}
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 辅助方法
// ═══════════════════════════════════════════════════════════════════════════

// apiError 从 HTTP 响应构建 APIError
func (c *BaseClient) apiError(resp *resty.Response) *llm.APIError {
	apiErr := llm.NewAPIError(resp.StatusCode(), resp.String())

	// 尝试提取请求 ID（从响应头）
	if requestID := resp.Header().Get("X-Request-ID"); requestID != "" {
		apiErr = apiErr.WithRequestID(requestID)
	}

	return apiErr.WithProvider(c.config.ProviderKind().String())
}

// getCompleteEndpoint 获取 Complete 端点
func (c *BaseClient) getCompleteEndpoint() string {
	if c.endpointBuilder != nil {
		return c.endpointBuilder.BuildCompleteEndpoint()
	}
	return "/chat/completions" // 默认端点
}

// ═══════════════════════════════════════════════════════════════════════════
// 辅助函数
// ═══════════════════════════════════════════════════════════════════════════

// GetDefaultTimeout 获取默认超时时间的辅助函数
//
// 如果 timeout 为 0，返回 [llm.DefaultTimeout]。
func GetDefaultTimeout(timeout time.Duration) time.Duration {
	if timeout == 0 {
		return llm.DefaultTimeout
	}
	return timeout
}

// NewInvalidConfigError 创建无效配置错误
func NewInvalidConfigError(field string) error {
	return llm.NewConfigError(field+" is required", nil)
}

// NewMissingAPIKeyError 创建缺少 API Key 错误
func NewMissingAPIKeyError() error {
	return llm.NewConfigError("API key is required", nil)
}
