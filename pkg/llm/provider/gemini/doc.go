// Package gemini 提供 Google Gemini 系列模型的 Provider 实现
//
// 本包基于官方 SDK google.golang.org/genai（Gemini API 后端）实现 [llm.Provider] 接口。
//
// # 协议特点
//
//   - 内容格式：Content{Role, Parts[]}，角色映射 user→user, assistant→model
//   - 系统消息：多轮对话中不使用 system 角色，系统文本提升为开头的 user 消息，
//     后跟一条 "Understood." 的 model 确认消息（见 core.SystemPromoted）
//   - 最大输出：generationConfig.maxOutputTokens，按模型从预算表读取
//   - 结构化输出：responseMimeType = application/json + 由 JSON Schema 转换的 responseSchema
//
// # 快速开始
//
//	client, err := gemini.New(&gemini.Config{APIKey: "AIza..."})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := client.Invoke(ctx, llm.NewPromptRequest("gemini-1.5-flash-latest", "Hello"))
package gemini
