package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/core"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// 常量定义
// ═══════════════════════════════════════════════════════════════════════════

const (
	// DefaultBaseURL Anthropic API 默认地址（SDK 路径自带 /v1）
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultMaxTokens 预算表缺失时的最大输出 tokens
	DefaultMaxTokens = 1024
)

// ═══════════════════════════════════════════════════════════════════════════
// 配置和客户端
// ═══════════════════════════════════════════════════════════════════════════

// Config 客户端配置
type Config struct {
	// APIKey Anthropic API 密钥（必需）
	APIKey string

	// BaseURL API 基础地址，默认 https://api.anthropic.com
	BaseURL string

	// Timeout 请求超时时间，默认 120 秒
	Timeout time.Duration

	// Headers 额外的请求头
	Headers map[string]string

	// Budgets 按模型查询 max_tokens
	Budgets core.TokenBudgeter

	// Logger 为空时使用 logger.Named("anthropic")
	Logger *slog.Logger
}

// Client Anthropic LLM 客户端
type Client struct {
	config *Config
	sdk    sdk.Client
	log    *slog.Logger
}

// New 创建新的 Anthropic 客户端
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
		log = logger.Named("anthropic")
	}

	return &Client{
		config: config,
		sdk:    sdk.NewClient(opts...),
		log:    log,
	}, nil
}

// Kind 实现 [llm.Provider] 接口
func (c *Client) Kind() llm.ProviderKind {
	return llm.ProviderAnthropic
}

// Invoke 同步完成
func (c *Client) Invoke(ctx context.Context, req *llm.Request) (*llm.Result, error) {
	res, err := c.invoke(ctx, req)
	if err != nil {
		return nil, core.WrapError(llm.ProviderAnthropic, err)
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

	completion, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return nil, convertError(err)
	}

	res := &llm.Result{
		Model:        string(completion.Model),
		FinishReason: mapStopReason(string(completion.StopReason)),
		Usage: &llm.TokenUsage{
			InputTokens:  completion.Usage.InputTokens,
			OutputTokens: completion.Usage.OutputTokens,
			TotalTokens:  completion.Usage.InputTokens + completion.Usage.OutputTokens,
		},
	}
	if res.Model == "" {
		res.Model = req.Model
	}

	var text strings.Builder
	var toolInput string
	for _, block := range completion.Content {
		switch variant := block.AsAny().(type) {
		case sdk.TextBlock:
			text.WriteString(variant.Text)
		case sdk.ToolUseBlock:
			toolInput = variant.JSON.Input.Raw()
		}
	}

	if req.Schema == nil {
		res.Text = text.String()
		return res, nil
	}

	// 结构化输出：优先取工具参数，模型未调用工具时退回文本
	if toolInput == "" {
		toolInput = text.String()
	}
	var structured map[string]any
	if err := json.Unmarshal([]byte(core.StripCodeFence(toolInput)), &structured); err != nil || structured == nil {
		return nil, llm.NewResponseError("tool_use.input", err)
	}
	res.Text = toolInput
	res.Structured = structured
	return res, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 请求构建
// ═══════════════════════════════════════════════════════════════════════════

// buildParams 构建 Messages API 请求参数
func (c *Client) buildParams(req *llm.Request) sdk.MessageNewParams {
	messages, system := core.NormalizeSystem(req.Messages(), core.SystemSeparate)

	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: int64(core.MaxTokens(req, req.Model, c.config.Budgets, DefaultMaxTokens)),
		Messages:  convertMessages(messages),
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	if req.Schema != nil {
		name := req.Schema.SchemaName()
		tool := &sdk.ToolParam{
			Name:        name,
			InputSchema: inputSchema(req.Schema.Schema),
		}
		if req.Schema.Description != "" {
			tool.Description = sdk.String(req.Schema.Description)
		}
		params.Tools = []sdk.ToolUnionParam{{OfTool: tool}}
		params.ToolChoice = sdk.ToolChoiceUnionParam{
			OfTool: &sdk.ToolChoiceToolParam{Name: name},
		}
	}
	return params
}

// convertMessages 统一消息转换为 SDK 消息（输入已去除系统消息）
func convertMessages(messages llm.Conversation) []sdk.MessageParam {
	out := make([]sdk.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := sdk.NewTextBlock(m.Content)
		if m.Role == llm.RoleAssistant {
			out = append(out, sdk.NewAssistantMessage(block))
		} else {
			out = append(out, sdk.NewUserMessage(block))
		}
	}
	return out
}

// inputSchema 将 JSON Schema 转换为工具 input_schema
//
// properties 与 required 映射到对应字段，其余关键字经 ExtraFields 原样转发。
func inputSchema(schema map[string]any) sdk.ToolInputSchemaParam {
	props, ok := schema["properties"].(map[string]any)
	if !ok || props == nil {
		props = map[string]any{}
	}
	param := sdk.ToolInputSchemaParam{
		Properties: props,
		Required:   core.GetStrings(schema["required"]),
	}
	for k, v := range schema {
		switch k {
		case "type", "properties", "required":
			continue
		}
		if param.ExtraFields == nil {
			param.ExtraFields = make(map[string]any)
		}
		param.ExtraFields[k] = v
	}
	return param
}

// mapStopReason 归一完成原因
func mapStopReason(reason string) string {
	switch reason {
	case "end_turn", "tool_use", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	default:
		return reason
	}
}

// convertError 将 SDK 错误转换为传输层错误
func convertError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		e := llm.NewAPIError(apiErr.StatusCode, apiErr.Error()).WithProvider(llm.ProviderAnthropic.String())
		if apiErr.Response != nil {
			if id := apiErr.Response.Header.Get("Request-Id"); id != "" {
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
