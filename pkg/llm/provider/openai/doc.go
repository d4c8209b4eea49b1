// Package openai 提供 OpenAI 系列模型的 Provider 实现
//
// 本包基于官方 SDK github.com/openai/openai-go 实现 [llm.Provider] 接口，
// 覆盖 gpt-4o、gpt-4-turbo、gpt-3.5-turbo 等 Chat Completions 模型。
//
// # 快速开始
//
//	client, err := openai.New(&openai.Config{
//	    APIKey: "sk-xxx",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := client.Invoke(ctx, llm.NewPromptRequest("gpt-4o", "Hello"))
//
// # 消息格式
//
// 系统消息内联在消息数组中，纯文本提示提升为单条 user 消息。
//
// # 结构化输出
//
// 请求携带 [llm.OutputSchema] 时使用 response_format.type = "json_schema"（strict 模式），
// 响应 JSON 解析到 [llm.Result.Structured]。
//
// # 错误处理
//
// SDK 的自动重试被关闭（MaxRetries = 0）。所有失败以 [llm.ProviderError] 返回，
// HTTP 状态码可通过 [llm.GetStatusCode] 读取。
//
// # 线程安全
//
// [Client] 是线程安全的，可以被多个 goroutine 并发调用 Invoke。
package openai
