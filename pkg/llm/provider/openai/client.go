package openai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/core"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// 常量定义
// ═══════════════════════════════════════════════════════════════════════════

const (
	// DefaultBaseURL OpenAI API 默认地址
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultMaxTokens 预算表缺失时的最大输出 tokens
	DefaultMaxTokens = 1024
)

// ═══════════════════════════════════════════════════════════════════════════
// 配置和客户端
// ═══════════════════════════════════════════════════════════════════════════

// Config 客户端配置
type Config struct {
	// APIKey API 密钥（必需）
	APIKey string

	// BaseURL API 基础地址，默认 https://api.openai.com/v1
	BaseURL string

	// Timeout 请求超时时间，默认 120 秒
	Timeout time.Duration

	// Headers 额外的请求头
	Headers map[string]string

	// Budgets 按模型查询最大输出 tokens，为空时使用 DefaultMaxTokens
	Budgets core.TokenBudgeter

	// Logger 为空时使用 logger.Named("openai")
	Logger *slog.Logger
}

// Client OpenAI LLM 客户端
//
// 实现 [llm.Provider] 接口。
type Client struct {
	config *Config
	sdk    sdk.Client
	log    *slog.Logger
}

// New 创建新的 OpenAI 客户端
//
// 参数 config 必须包含 APIKey。
func New(config *Config) (*Client, error) {
	if config == nil {
		return nil, llm.NewConfigError("config is required", nil)
	}
	if config.APIKey == "" {
		return nil, core.NewMissingAPIKeyError()
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: core.GetDefaultTimeout(config.Timeout)}),
	}
	for k, v := range config.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}

	log := config.Logger
	if log == nil {
		log = logger.Named("openai")
	}

	return &Client{
		config: config,
		sdk:    sdk.NewClient(opts...),
		log:    log,
	}, nil
}

// Kind 实现 [llm.Provider] 接口
func (c *Client) Kind() llm.ProviderKind {
	return llm.ProviderOpenAI
}

// Invoke 同步完成
//
// 实现 [llm.Provider] 接口。
func (c *Client) Invoke(ctx context.Context, req *llm.Request) (*llm.Result, error) {
	res, err := c.invoke(ctx, req)
	if err != nil {
		return nil, core.WrapError(llm.ProviderOpenAI, err)
	}
	core.LogResult(c.log, req, res)
	return res, nil
}

func (c *Client) invoke(ctx context.Context, req *llm.Request) (*llm.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	core.LogRequest(c.log, req, req.Model)

	params := c.buildParams(req)

	completion, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, convertError(err)
	}
	if len(completion.Choices) == 0 {
		return nil, llm.NewResponseError("choices", nil)
	}

	choice := completion.Choices[0]
	res := &llm.Result{
		Text:         choice.Message.Content,
		Model:        completion.Model,
		FinishReason: choice.FinishReason,
		Usage: &llm.TokenUsage{
			InputTokens:  completion.Usage.PromptTokens,
			OutputTokens: completion.Usage.CompletionTokens,
			TotalTokens:  completion.Usage.TotalTokens,
		},
	}
	if res.Model == "" {
		res.Model = req.Model
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
// 请求构建
// ═══════════════════════════════════════════════════════════════════════════

// buildParams 构建 Chat Completions 请求参数
func (c *Client) buildParams(req *llm.Request) sdk.ChatCompletionNewParams {
	messages := req.Messages()

	params := sdk.ChatCompletionNewParams{
		Model:     req.Model,
		Messages:  convertMessages(messages),
		MaxTokens: sdk.Int(int64(core.MaxTokens(req, req.Model, c.config.Budgets, DefaultMaxTokens))),
	}

	if req.Schema != nil {
		schema := sdk.ResponseFormatJSONSchemaJSONSchemaParam{
			Name:   req.Schema.SchemaName(),
			Schema: req.Schema.Schema,
			Strict: sdk.Bool(true),
		}
		if req.Schema.Description != "" {
			schema.Description = sdk.String(req.Schema.Description)
		}
		params.ResponseFormat = sdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &sdk.ResponseFormatJSONSchemaParam{JSONSchema: schema},
		}
	}
	return params
}

// convertMessages 统一消息转换为 SDK 消息（系统消息内联）
func convertMessages(messages llm.Conversation) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			out = append(out, sdk.SystemMessage(m.Content))
		case llm.RoleAssistant:
			out = append(out, sdk.AssistantMessage(m.Content))
		default:
			out = append(out, sdk.UserMessage(m.Content))
		}
	}
	return out
}

// convertError 将 SDK 错误转换为传输层错误
func convertError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		e := llm.NewAPIError(apiErr.StatusCode, apiErr.Message).WithProvider(llm.ProviderOpenAI.String())
		if apiErr.Code != "" {
			e = e.WithErrorCode(apiErr.Code)
		}
		if apiErr.Response != nil {
			if id := apiErr.Response.Header.Get("X-Request-Id"); id != "" {
				e = e.WithRequestID(id)
			}
		}
		e.Err = err
		return e
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return llm.NewHTTPError("request failed", err)
}

var _ llm.Provider = (*Client)(nil)
