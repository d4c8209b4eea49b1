// Package groq 提供 Groq 推理服务的 Provider 实现
//
// Groq 暴露 OpenAI 兼容的 Chat Completions 端点，本包以 core.BaseClient（resty）
// 结合 protocol/openai 适配器发送原始 JSON，不依赖 OpenAI SDK。
//
// # 快速开始
//
//	client, err := groq.New(&groq.Config{APIKey: "gsk_..."})
//	res, err := client.Invoke(ctx, llm.NewPromptRequest("llama3-70b-8192", "Hello"))
//
// # 结构化输出
//
// 使用 response_format.type = "json_schema"，响应文本去除代码块后解析为 JSON 对象。
package groq
