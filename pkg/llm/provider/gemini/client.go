package gemini

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/core"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// 常量定义
// ═══════════════════════════════════════════════════════════════════════════

const (
	// DefaultMaxTokens 预算表缺失时的最大输出 tokens
	DefaultMaxTokens = 1024
)

// ═══════════════════════════════════════════════════════════════════════════
// 配置和客户端
// ═══════════════════════════════════════════════════════════════════════════

// Config 客户端配置
type Config struct {
	// APIKey Gemini API 密钥（必需）
	APIKey string

	// BaseURL API 基础地址，为空时使用 SDK 默认值
	BaseURL string

	// Timeout 请求超时时间，默认 120 秒
	Timeout time.Duration

	// Headers 额外的请求头
	Headers map[string]string

	// Budgets 按模型查询 maxOutputTokens
	Budgets core.TokenBudgeter

	// Logger 为空时使用 logger.Named("gemini")
	Logger *slog.Logger
}

// Client Gemini LLM 客户端
type Client struct {
	config *Config
	sdk    *genai.Client
	log    *slog.Logger
}

// New 创建新的 Gemini 客户端
func New(config *Config) (*Client, error) {
	if config == nil {
		return nil, llm.NewConfigError("config is required", nil)
	}
	if config.APIKey == "" {
		return nil, core.NewMissingAPIKeyError()
	}

	httpOpts := genai.HTTPOptions{BaseURL: config.BaseURL}
	if len(config.Headers) > 0 {
		httpOpts.Headers = http.Header{}
		for k, v := range config.Headers {
			httpOpts.Headers.Set(k, v)
		}
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      config.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: core.GetDefaultTimeout(config.Timeout)},
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, llm.NewConfigError("create genai client", err)
	}

	log := config.Logger
	if log == nil {
		log = logger.Named("gemini")
	}

	return &Client{config: config, sdk: client, log: log}, nil
}

// Kind 实现 [llm.Provider] 接口
func (c *Client) Kind() llm.ProviderKind {
	return llm.ProviderGoogle
}

// Invoke 同步完成
func (c *Client) Invoke(ctx context.Context, req *llm.Request) (*llm.Result, error) {
	res, err := c.invoke(ctx, req)
	if err != nil {
		return nil, core.WrapError(llm.ProviderGoogle, err)
	}
	core.LogResult(c.log, req, res)
	return res, nil
}

func (c *Client) invoke(ctx context.Context, req *llm.Request) (*llm.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	core.LogRequest(c.log, req, req.Model)

	contents := BuildContents(req.Messages())
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(core.MaxTokens(req, req.Model, c.config.Budgets, DefaultMaxTokens)),
	}
	if req.Schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = ConvertSchema(req.Schema.Schema)
	}

	resp, err := c.sdk.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, convertError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, llm.NewResponseError("candidates", nil)
	}

	res := &llm.Result{
		Text:         resp.Text(),
		Model:        resp.ModelVersion,
		FinishReason: string(resp.Candidates[0].FinishReason),
	}
	if res.Model == "" {
		res.Model = req.Model
	}
	if u := resp.UsageMetadata; u != nil {
		res.Usage = &llm.TokenUsage{
			InputTokens:  int64(u.PromptTokenCount),
			OutputTokens: int64(u.CandidatesTokenCount),
			TotalTokens:  int64(u.TotalTokenCount),
		}
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
// 消息与 Schema 转换
// ═══════════════════════════════════════════════════════════════════════════

// BuildContents 将统一消息转换为 Gemini Content 列表
//
// 系统消息按 SystemPromoted 策略提升，结果中不含 system 角色。
func BuildContents(messages llm.Conversation) []*genai.Content {
	normalized, _ := core.NormalizeSystem(messages, core.SystemPromoted)

	contents := make([]*genai.Content, 0, len(normalized))
	for _, m := range normalized {
		role := genai.Role(genai.RoleUser)
		if m.Role == llm.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return contents
}

// ConvertSchema 将标准 JSON Schema 转换为 genai.Schema
//
// 仅转换 Gemini 支持的子集：type、description、properties、required、items、enum。
func ConvertSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return &genai.Schema{Type: genai.TypeObject}
	}

	result := &genai.Schema{}

	if t, ok := schema["type"].(string); ok {
		result.Type = mapSchemaType(t)
	}

	if desc, ok := schema["description"].(string); ok {
		result.Description = desc
	}

	if props, ok := schema["properties"].(map[string]any); ok {
		result.Properties = make(map[string]*genai.Schema, len(props))
		for k, v := range props {
			if propMap, ok := v.(map[string]any); ok {
				result.Properties[k] = ConvertSchema(propMap)
			}
		}
	}

	result.Required = core.GetStrings(schema["required"])

	if items, ok := schema["items"].(map[string]any); ok {
		result.Items = ConvertSchema(items)
	}

	result.Enum = core.GetStrings(schema["enum"])

	return result
}

// mapSchemaType 将 JSON Schema 类型映射到 Gemini 类型
func mapSchemaType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// convertError 将 SDK 错误转换为传输层错误
func convertError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		e := llm.NewAPIError(apiErr.Code, apiErr.Message).WithProvider(llm.ProviderGoogle.String())
		if apiErr.Status != "" {
			e = e.WithErrorCode(apiErr.Status)
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
