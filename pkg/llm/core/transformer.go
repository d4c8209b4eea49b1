package core

import (
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
)

// ═══════════════════════════════════════════════════════════════════════════
// 消息转换器
// ═══════════════════════════════════════════════════════════════════════════

// Transformer 消息转换器
//
// 封装通用的消息转换流程，协议差异委托给 ProtocolAdapter。
//
// 使用示例：
//
//	transformer := core.NewTransformer(ollama.NewAdapter())
//
//	// 构建 API 请求消息
//	apiMsgs, system := transformer.BuildAPIMessages(req.Messages())
//
//	// 解析 API 响应
//	text, reason, usage, err := transformer.ParseAPIResponse(apiResp)
type Transformer struct {
	adapter ProtocolAdapter
}

// NewTransformer 创建消息转换器
func NewTransformer(adapter ProtocolAdapter) *Transformer {
	return &Transformer{adapter: adapter}
}

// Strategy 返回适配器的系统消息策略
func (t *Transformer) Strategy() SystemMessageStrategy {
	return t.adapter.GetSystemMessageHandling()
}

// BuildAPIMessages 构建 API 请求消息数组
//
// 通用流程：
//  1. 按适配器策略处理系统消息（[NormalizeSystem]）
//  2. 委托 adapter 转换每条消息
//
// 返回的 system 仅在 SystemSeparate 策略下非空，由调用方放入独立字段。
func (t *Transformer) BuildAPIMessages(messages llm.Conversation) (apiMsgs []map[string]any, system string) {
	normalized, system := NormalizeSystem(messages, t.adapter.GetSystemMessageHandling())
	return t.adapter.ConvertToAPI(normalized), system
}

// ParseAPIResponse 解析 API 响应
//
// 通用流程：
//  1. 委托 adapter 提取文本与完成原因
//  2. 委托 adapter 解析 Token 使用量
func (t *Transformer) ParseAPIResponse(apiResp map[string]any) (
	text string,
	finishReason string,
	usage *llm.TokenUsage,
	err error,
) {
	text, finishReason, err = t.adapter.ConvertFromAPI(apiResp)
	if err != nil {
		return "", "", nil, err
	}
	usage = t.adapter.ConvertUsage(apiResp)
	return text, finishReason, usage, nil
}
