package core

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
)

// ═══════════════════════════════════════════════════════════════════════════
// 适配器公共逻辑
// ═══════════════════════════════════════════════════════════════════════════

// TokenBudgeter 按模型查询最大输出 token 数
//
// registry.Registry 实现此接口。
type TokenBudgeter interface {
	TokenBudget(model string) int
}

// MaxTokens 计算本次调用的最大输出 token 数
//
// 请求显式指定时优先，否则查预算表，预算表为空时返回 fallback。
func MaxTokens(req *llm.Request, model string, budgets TokenBudgeter, fallback int) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if budgets != nil {
		if n := budgets.TokenBudget(model); n > 0 {
			return n
		}
	}
	return fallback
}

// WrapError 将适配器内部错误包装为 [llm.ProviderError]
//
// 已是 ProviderError 或 UnsupportedFeatureError 的错误原样返回。
func WrapError(kind llm.ProviderKind, err error) error {
	if err == nil {
		return nil
	}
	if llm.IsProviderError(err) || llm.IsUnsupportedFeatureError(err) {
		return err
	}

	msg := "request failed"
	switch {
	case errors.Is(err, context.Canceled):
		msg = "request canceled"
	case errors.Is(err, context.DeadlineExceeded):
		msg = "request timed out"
	case llm.IsAPIError(err):
		msg = "api error"
	case llm.IsResponseError(err):
		msg = "malformed response"
	case llm.IsRequestError(err):
		msg = "invalid request"
	case llm.IsConfigError(err):
		msg = "invalid config"
	}
	return llm.NewProviderError(kind, msg, err)
}

// LogRequest 记录请求摘要
//
// 只输出 150 字符预览，从不输出完整请求体。
func LogRequest(logger *slog.Logger, req *llm.Request, model string) {
	if logger == nil {
		return
	}
	logger.Debug("invoke", "model", model, "preview", previewRequest(req))
}

// LogResult 记录响应预览
//
// verbose 请求输出 Info，否则仅 Debug。
func LogResult(logger *slog.Logger, req *llm.Request, res *llm.Result) {
	if logger == nil || res == nil {
		return
	}
	level := slog.LevelDebug
	if req.Verbose() {
		level = slog.LevelInfo
	}
	logger.Log(context.Background(), level, "completion",
		"model", res.Model,
		"preview", llm.Preview(res.Text),
	)
}

func previewRequest(req *llm.Request) string {
	if req.IsConversation() {
		return llm.PreviewMessages(req.Conversation)
	}
	return llm.Preview(req.Prompt)
}
