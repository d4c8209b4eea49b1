// Package anthropic 提供 Anthropic Claude 系列模型的 Provider 实现
//
// 本包基于官方 SDK github.com/anthropics/anthropic-sdk-go 实现 [llm.Provider] 接口。
//
// # 快速开始
//
//	client, err := anthropic.New(&anthropic.Config{
//	    APIKey: "sk-ant-...",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := client.Invoke(ctx, llm.NewPromptRequest("claude-3-haiku-20240307", "Hello!"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Text)
//
// # 与 OpenAI 的区别
//
//   - 系统提示：Messages API 不接受 system 角色消息，统一提取到顶层 system 字段
//     （多条系统消息以空行连接，见 core.SystemSeparate）
//   - max_tokens：必填，按模型从预算表读取
//   - 结构化输出：没有 response_format，改为强制调用一个以 Schema 为
//     input_schema 的工具，工具参数即结构化结果
//   - 完成原因：end_turn / tool_use 归一为 stop，max_tokens 归一为 length
//
// # 线程安全
//
// [Client] 是线程安全的，可以并发调用 Invoke。
package anthropic
